package handlers

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/vetbook/libs/httpx"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

type windowRequest struct {
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

type publishSlotsRequest struct {
	Date  string          `json:"date" validate:"required,date"`
	Slots []windowRequest `json:"slots" validate:"required,min=1,max=96,dive"`
}

type generateSlotsRequest struct {
	Date string `json:"date" validate:"required,date"`
}

type slotsResponse struct {
	Slots []slotView `json:"slots"`
}

func (h *Handler) PublishSlots(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req publishSlotsRequest
	if !h.decode(w, r, &req) {
		return
	}
	windows := make([]model.SlotWindow, 0, len(req.Slots))
	for _, s := range req.Slots {
		windows = append(windows, model.SlotWindow{StartTime: s.StartTime, EndTime: s.EndTime})
	}

	created, err := h.slots.PublishSlots(r.Context(), callerID(r), req.Date, windows)
	if err != nil {
		h.writeServiceError(w, r, "publish_slots", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, slotsResponse{Slots: slotViews(created)})
}

func (h *Handler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req generateSlotsRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.slots.GenerateDefaultSlots(r.Context(), callerID(r), req.Date)
	if err != nil {
		h.writeServiceError(w, r, "generate_slots", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, slotsResponse{Slots: slotViews(created)})
}

// ListSlots is public: available slots are what owners browse before booking.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	list, err := h.slots.ListAvailable(r.Context(),
		strings.TrimSpace(q.Get("veterinarian_id")),
		strings.TrimSpace(q.Get("date")),
	)
	if err != nil {
		h.writeServiceError(w, r, "list_slots", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{Slots: slotViews(list)})
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	list, err := h.slots.Schedule(r.Context(), callerID(r),
		strings.TrimSpace(q.Get("veterinarian_id")),
		strings.TrimSpace(q.Get("start_date")),
		strings.TrimSpace(q.Get("end_date")),
	)
	if err != nil {
		h.writeServiceError(w, r, "schedule", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{Slots: slotViews(list)})
}
