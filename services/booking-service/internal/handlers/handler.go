package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/vetbook/libs/httpx"
	"github.com/md-rashed-zaman/vetbook/libs/validation"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/slots"
)

type Handler struct {
	slots    *slots.Service
	booking  *booking.Orchestrator
	ledger   *ledger.Service
	notify   *notify.Sink
	validate *validation.Validator
	logger   *slog.Logger
}

func New(s *slots.Service, o *booking.Orchestrator, l *ledger.Service, n *notify.Sink, logger *slog.Logger) *Handler {
	return &Handler{
		slots:    s,
		booking:  o,
		ledger:   l,
		notify:   n,
		validate: validation.New(),
		logger:   logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/slots", h.ListSlots)
	mux.HandleFunc("/api/v1/slots/publish", h.PublishSlots)
	mux.HandleFunc("/api/v1/slots/generate", h.GenerateSlots)
	mux.HandleFunc("/api/v1/schedule", h.Schedule)

	mux.HandleFunc("/api/v1/appointments", h.ListAppointments)
	mux.HandleFunc("/api/v1/appointments/get", h.GetAppointment)
	mux.HandleFunc("/api/v1/appointments/book", h.Book)
	mux.HandleFunc("/api/v1/appointments/pay", h.PayDeposit)
	mux.HandleFunc("/api/v1/appointments/confirm", h.Confirm)
	mux.HandleFunc("/api/v1/appointments/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/appointments/complete", h.Complete)

	mux.HandleFunc("/api/v1/notifications", h.ListNotifications)
	mux.HandleFunc("/api/v1/notifications/read", h.MarkNotificationRead)
}

// callerID is set by Authenticate from a verified token; inbound values are stripped.
func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(httpx.UserIDHeader))
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	return false
}

// decode reads and validates a JSON body, writing the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body", nil)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "validation failed", validation.Details(err))
		return false
	}
	return true
}

func queryLimit(r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{model.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
	{model.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{model.ErrNotFound, http.StatusNotFound, "not_found"},
	{model.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{model.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{model.ErrDepositRequired, http.StatusPreconditionFailed, "deposit_required"},
	{model.ErrPaymentDeclined, http.StatusPaymentRequired, "payment_declined"},
	{model.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "op", op, "path", r.URL.Path, "err", err)
		httpx.WriteError(w, status, code, "internal error", nil)
		return
	}
	httpx.WriteError(w, status, code, err.Error(), nil)
}
