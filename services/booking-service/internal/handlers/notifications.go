package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/vetbook/libs/httpx"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

type markReadRequest struct {
	NotificationID string `json:"notification_id" validate:"required"`
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	limit, ok := queryLimit(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "invalid limit", nil)
		return
	}
	unread := false
	if raw := strings.TrimSpace(r.URL.Query().Get("unread")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "invalid unread flag", nil)
			return
		}
		unread = v
	}

	list, err := h.notify.List(r.Context(), callerID(r), unread, limit)
	if err != nil {
		h.writeServiceError(w, r, "list_notifications", err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	httpx.WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: list})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req markReadRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.notify.MarkRead(r.Context(), callerID(r), req.NotificationID); err != nil {
		h.writeServiceError(w, r, "mark_notification_read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
