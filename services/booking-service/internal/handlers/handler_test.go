package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/md-rashed-zaman/vetbook/libs/auth"
	"github.com/md-rashed-zaman/vetbook/libs/httpx"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/memstore"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/payment"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/slots"
)

const (
	testSecret = "handler-test-secret"
	vetID      = "vet-1"
	ownerID    = "owner-1"
	petID      = "pet-1"
	day        = "2030-03-14"
)

type harness struct {
	t          *testing.T
	store      *memstore.Store
	handler    http.Handler
	dispatcher *outbox.Dispatcher
}

func newHarness(t *testing.T, successRate float64) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memstore.New()
	store.PutProfile(model.Profile{UserID: vetID, DisplayName: "Dr. Reyes", Role: model.RoleVeterinarian})
	store.PutProfile(model.Profile{UserID: ownerID, DisplayName: "Sam", Role: model.RolePetOwner})
	store.PutPet(model.Pet{ID: petID, OwnerID: ownerID, Name: "Biscuit", Species: "dog"})

	slotSvc := slots.NewService(store, store, logger)
	led := ledger.NewService(store, store, store, logger)
	gate := payment.NewGate(payment.NewSimulatedProcessor(0, successRate), store, time.Second, logger)
	sink := notify.NewSink(store, logger)

	mux := http.NewServeMux()
	New(slotSvc, booking.NewOrchestrator(slotSvc, led, gate, logger), led, sink, logger).Register(mux)

	return &harness{
		t:          t,
		store:      store,
		handler:    httpx.Chain(mux, Authenticate(auth.NewVerifier(testSecret, nil), logger)),
		dispatcher: outbox.NewDispatcher(store, logger, outbox.DispatcherConfig{}, sink),
	}
}

func token(t *testing.T, subject string) string {
	t.Helper()
	signed, err := auth.SignHS256(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func (h *harness) do(method, path, user string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(h.t, user))
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func (h *harness) generateDay() {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/slots/generate", vetID, map[string]string{"date": day})
	expectStatus(h.t, rec, http.StatusCreated)
}

func bookBody(start, method string) map[string]any {
	body := map[string]any{
		"veterinarian_id":  vetID,
		"pet_id":           petID,
		"date":             day,
		"start_time":       start,
		"appointment_type": "vaccination",
		"severity":         "low",
	}
	if method != "" {
		body["payment_method"] = method
	}
	return body
}

func TestBookPayConfirmFlow(t *testing.T) {
	h := newHarness(t, 1)
	h.generateDay()

	rec := h.do(http.MethodGet, "/api/v1/slots?veterinarian_id="+vetID+"&date="+day, "", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := len(decodeBody[slotsResponse](t, rec).Slots); got != 16 {
		t.Fatalf("expected 16 open slots, got %d", got)
	}

	rec = h.do(http.MethodPost, "/api/v1/appointments/book", ownerID, bookBody("10:00", "card"))
	expectStatus(t, rec, http.StatusCreated)
	booked := decodeBody[bookingResponse](t, rec)
	if booked.Appointment.Status != "pending" || !booked.Appointment.DepositPaid {
		t.Fatalf("unexpected appointment %+v", booked.Appointment)
	}
	if booked.Appointment.DepositCents != 900 || booked.Payment == nil || booked.Payment.Status != "completed" {
		t.Fatalf("unexpected payment %+v / %+v", booked.Appointment, booked.Payment)
	}

	rec = h.do(http.MethodGet, "/api/v1/slots?veterinarian_id="+vetID+"&date="+day, "", nil)
	if got := len(decodeBody[slotsResponse](t, rec).Slots); got != 15 {
		t.Fatalf("expected 15 open slots after booking, got %d", got)
	}

	rec = h.do(http.MethodPost, "/api/v1/appointments/confirm", vetID,
		map[string]string{"appointment_id": booked.Appointment.AppointmentID})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[bookingResponse](t, rec).Appointment.Status; got != "confirmed" {
		t.Fatalf("expected confirmed, got %s", got)
	}

	if _, err := h.dispatcher.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	rec = h.do(http.MethodGet, "/api/v1/notifications", vetID, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := len(decodeBody[notificationsResponse](t, rec).Notifications); got != 2 {
		t.Fatalf("expected booked and payment notices for the vet, got %d", got)
	}

	rec = h.do(http.MethodGet, "/api/v1/notifications?unread=true", ownerID, nil)
	notes := decodeBody[notificationsResponse](t, rec).Notifications
	if len(notes) != 1 || notes[0].Title != "Appointment Confirmed" {
		t.Fatalf("unexpected owner notifications %+v", notes)
	}

	rec = h.do(http.MethodPost, "/api/v1/notifications/read", ownerID, map[string]string{"notification_id": notes[0].ID})
	expectStatus(t, rec, http.StatusNoContent)
	rec = h.do(http.MethodGet, "/api/v1/notifications?unread=true", ownerID, nil)
	if got := len(decodeBody[notificationsResponse](t, rec).Notifications); got != 0 {
		t.Fatalf("expected no unread notifications, got %d", got)
	}

	rec = h.do(http.MethodPost, "/api/v1/appointments/complete", vetID, map[string]string{
		"appointment_id":     booked.Appointment.AppointmentID,
		"veterinarian_notes": "Rabies booster given",
	})
	expectStatus(t, rec, http.StatusOK)

	rec = h.do(http.MethodGet, "/api/v1/appointments?as=veterinarian&status=completed", vetID, nil)
	list := decodeBody[appointmentsResponse](t, rec).Appointments
	if len(list) != 1 || list[0].VeterinarianNotes != "Rabies booster given" {
		t.Fatalf("unexpected vet listing %+v", list)
	}
}

func TestConfirmBeforeDepositIsPreconditionFailed(t *testing.T) {
	h := newHarness(t, 1)
	h.generateDay()

	rec := h.do(http.MethodPost, "/api/v1/appointments/book", ownerID, bookBody("09:30", ""))
	expectStatus(t, rec, http.StatusCreated)
	id := decodeBody[bookingResponse](t, rec).Appointment.AppointmentID

	rec = h.do(http.MethodPost, "/api/v1/appointments/confirm", vetID, map[string]string{"appointment_id": id})
	expectStatus(t, rec, http.StatusPreconditionFailed)
	if got := decodeBody[httpx.ErrorResponse](t, rec).Code; got != "deposit_required" {
		t.Fatalf("expected deposit_required, got %s", got)
	}

	rec = h.do(http.MethodPost, "/api/v1/appointments/pay", ownerID, map[string]string{
		"appointment_id": id,
		"payment_method": "card",
	})
	expectStatus(t, rec, http.StatusOK)

	rec = h.do(http.MethodPost, "/api/v1/appointments/confirm", vetID, map[string]string{"appointment_id": id})
	expectStatus(t, rec, http.StatusOK)
}

type declinedBody struct {
	Code        string          `json:"code"`
	Appointment appointmentView `json:"appointment"`
	Payment     *paymentView    `json:"payment"`
}

func TestDeclinedPaymentKeepsPendingAppointment(t *testing.T) {
	h := newHarness(t, 0)
	h.generateDay()

	rec := h.do(http.MethodPost, "/api/v1/appointments/book", ownerID, bookBody("11:00", "card"))
	expectStatus(t, rec, http.StatusPaymentRequired)

	body := decodeBody[declinedBody](t, rec)
	if body.Code != "payment_declined" {
		t.Fatalf("expected payment_declined, got %s", body.Code)
	}
	if body.Appointment.Status != "pending" || body.Appointment.DepositPaid {
		t.Fatalf("expected unpaid pending appointment, got %+v", body.Appointment)
	}
	if body.Payment == nil || body.Payment.Status != "failed" {
		t.Fatalf("expected failed payment record, got %+v", body.Payment)
	}
}

func TestDoubleBookingConflicts(t *testing.T) {
	h := newHarness(t, 1)
	h.generateDay()

	expectStatus(t, h.do(http.MethodPost, "/api/v1/appointments/book", ownerID, bookBody("14:00", "")), http.StatusCreated)
	rec := h.do(http.MethodPost, "/api/v1/appointments/book", ownerID, bookBody("14:00", ""))
	expectStatus(t, rec, http.StatusConflict)
	if got := decodeBody[httpx.ErrorResponse](t, rec).Code; got != "slot_unavailable" {
		t.Fatalf("expected slot_unavailable, got %s", got)
	}
}

func TestSpoofedUserHeaderIsIgnored(t *testing.T) {
	h := newHarness(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set(httpx.UserIDHeader, ownerID)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestInvalidTokenRejected(t *testing.T) {
	h := newHarness(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestValidationDetails(t *testing.T) {
	h := newHarness(t, 1)

	rec := h.do(http.MethodPost, "/api/v1/appointments/book", ownerID, map[string]any{
		"veterinarian_id":  vetID,
		"pet_id":           petID,
		"date":             "14/03/2030",
		"start_time":       "9am",
		"appointment_type": "vaccination",
		"severity":         "low",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	details := decodeBody[httpx.ErrorResponse](t, rec).Details
	if details["date"] != "date" || details["start_time"] != "clock" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t, 1)
	rec := h.do(http.MethodGet, "/api/v1/appointments/book", ownerID, nil)
	expectStatus(t, rec, http.StatusMethodNotAllowed)
}

func TestOwnerCannotPublishSlots(t *testing.T) {
	h := newHarness(t, 1)
	rec := h.do(http.MethodPost, "/api/v1/slots/publish", ownerID, map[string]any{
		"date":  day,
		"slots": []map[string]string{{"start_time": "09:00", "end_time": "09:30"}},
	})
	expectStatus(t, rec, http.StatusForbidden)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
		{fmt.Errorf("wrapped: %w", model.ErrUnauthorized), http.StatusForbidden, "unauthorized"},
		{model.ErrNotFound, http.StatusNotFound, "not_found"},
		{model.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
		{model.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{model.ErrDepositRequired, http.StatusPreconditionFailed, "deposit_required"},
		{model.ErrPaymentDeclined, http.StatusPaymentRequired, "payment_declined"},
		{model.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := statusFor(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: expected %d/%s, got %d/%s", tc.err, tc.status, tc.code, status, code)
		}
	}
}
