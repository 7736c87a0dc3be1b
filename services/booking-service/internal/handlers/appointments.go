package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/vetbook/libs/httpx"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

type bookRequest struct {
	VeterinarianID string `json:"veterinarian_id" validate:"required"`
	PetID          string `json:"pet_id" validate:"required"`
	Date           string `json:"date" validate:"required,date"`
	StartTime      string `json:"start_time" validate:"required,clock"`
	EndTime        string `json:"end_time" validate:"omitempty,clock"`
	Type           string `json:"appointment_type" validate:"required"`
	Severity       string `json:"severity" validate:"required"`
	Notes          string `json:"notes" validate:"max=2000"`
	DepositCents   int64  `json:"deposit_cents" validate:"gte=0"`
	// PaymentMethod, when present, charges the deposit in the same call.
	PaymentMethod string `json:"payment_method"`
}

type appointmentIDRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
}

type payRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

type completeRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	Notes         string `json:"veterinarian_notes" validate:"required,max=4000"`
}

type bookingResponse struct {
	Appointment appointmentView `json:"appointment"`
	Payment     *paymentView    `json:"payment,omitempty"`
}

type appointmentsResponse struct {
	Appointments []appointmentView `json:"appointments"`
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	br := booking.BookRequest{
		VeterinarianID: strings.TrimSpace(req.VeterinarianID),
		PetID:          strings.TrimSpace(req.PetID),
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Type:           model.AppointmentType(req.Type),
		Severity:       model.Severity(req.Severity),
		Notes:          strings.TrimSpace(req.Notes),
		DepositCents:   req.DepositCents,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
	}

	if br.PaymentMethod == "" {
		appt, err := h.booking.Book(r.Context(), callerID(r), br)
		if err != nil {
			h.writeServiceError(w, r, "book", err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, bookingResponse{Appointment: toAppointmentView(appt)})
		return
	}

	res, err := h.booking.BookAndPay(r.Context(), callerID(r), br)
	h.writeBookingResult(w, r, "book_and_pay", http.StatusCreated, res, err)
}

func (h *Handler) PayDeposit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req payRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.booking.PayDeposit(r.Context(), callerID(r), req.AppointmentID, strings.TrimSpace(req.PaymentMethod))
	h.writeBookingResult(w, r, "pay_deposit", http.StatusOK, res, err)
}

// writeBookingResult reports a declined charge with the pending appointment
// attached so the client can retry the payment.
func (h *Handler) writeBookingResult(w http.ResponseWriter, r *http.Request, op string, okStatus int, res booking.Result, err error) {
	if err == nil {
		httpx.WriteJSON(w, okStatus, bookingResponse{
			Appointment: toAppointmentView(res.Appointment),
			Payment:     toPaymentView(res.Payment),
		})
		return
	}
	if errors.Is(err, model.ErrPaymentDeclined) && res.Appointment.ID != "" {
		httpx.WriteJSON(w, http.StatusPaymentRequired, struct {
			httpx.ErrorResponse
			bookingResponse
		}{
			ErrorResponse: httpx.ErrorResponse{Error: err.Error(), Code: "payment_declined"},
			bookingResponse: bookingResponse{
				Appointment: toAppointmentView(res.Appointment),
				Payment:     toPaymentView(res.Payment),
			},
		})
		return
	}
	h.writeServiceError(w, r, op, err)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req appointmentIDRequest
	if !h.decode(w, r, &req) {
		return
	}
	appt, err := h.booking.Confirm(r.Context(), callerID(r), req.AppointmentID)
	if err != nil {
		h.writeServiceError(w, r, "confirm", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingResponse{Appointment: toAppointmentView(appt)})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req appointmentIDRequest
	if !h.decode(w, r, &req) {
		return
	}
	appt, err := h.booking.Cancel(r.Context(), callerID(r), req.AppointmentID)
	if err != nil {
		h.writeServiceError(w, r, "cancel", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingResponse{Appointment: toAppointmentView(appt)})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req completeRequest
	if !h.decode(w, r, &req) {
		return
	}
	appt, err := h.booking.Complete(r.Context(), callerID(r), req.AppointmentID, req.Notes)
	if err != nil {
		h.writeServiceError(w, r, "complete", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingResponse{Appointment: toAppointmentView(appt)})
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "appointment_id required", nil)
		return
	}
	appt, err := h.ledger.Get(r.Context(), callerID(r), id)
	if err != nil {
		h.writeServiceError(w, r, "get_appointment", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingResponse{Appointment: toAppointmentView(appt)})
}

// ListAppointments serves both sides: as=owner (default) or as=veterinarian.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	limit, ok := queryLimit(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "invalid limit", nil)
		return
	}
	status := model.AppointmentStatus(strings.TrimSpace(q.Get("status")))

	var (
		list []model.Appointment
		err  error
	)
	switch strings.TrimSpace(q.Get("as")) {
	case "", "owner":
		list, err = h.ledger.ListForOwner(r.Context(), callerID(r), status, limit)
	case "veterinarian":
		list, err = h.ledger.ListForVeterinarian(r.Context(), callerID(r), status, limit)
	default:
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "as must be owner or veterinarian", nil)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, "list_appointments", err)
		return
	}

	out := make([]appointmentView, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentView(a))
	}
	httpx.WriteJSON(w, http.StatusOK, appointmentsResponse{Appointments: out})
}
