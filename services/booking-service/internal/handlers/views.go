package handlers

import (
	"time"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

type slotView struct {
	SlotID         string `json:"slot_id"`
	VeterinarianID string `json:"veterinarian_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Reserved       bool   `json:"reserved"`
}

func slotViews(in []model.TimeSlot) []slotView {
	out := make([]slotView, 0, len(in))
	for _, s := range in {
		out = append(out, slotView{
			SlotID:         s.ID,
			VeterinarianID: s.VeterinarianID,
			Date:           s.Date,
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			Reserved:       s.Reserved,
		})
	}
	return out
}

type appointmentView struct {
	AppointmentID     string `json:"appointment_id"`
	OwnerID           string `json:"owner_id"`
	VeterinarianID    string `json:"veterinarian_id"`
	PetID             string `json:"pet_id"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Type              string `json:"appointment_type"`
	Severity          string `json:"severity"`
	Status            string `json:"status"`
	Notes             string `json:"notes,omitempty"`
	DepositCents      int64  `json:"deposit_cents"`
	DepositPaid       bool   `json:"deposit_paid"`
	PaymentID         string `json:"payment_id,omitempty"`
	VeterinarianNotes string `json:"veterinarian_notes,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

func toAppointmentView(a model.Appointment) appointmentView {
	return appointmentView{
		AppointmentID:     a.ID,
		OwnerID:           a.OwnerID,
		VeterinarianID:    a.VeterinarianID,
		PetID:             a.PetID,
		Date:              a.Date,
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		Type:              string(a.Type),
		Severity:          string(a.Severity),
		Status:            string(a.Status),
		Notes:             a.Notes,
		DepositCents:      a.DepositCents,
		DepositPaid:       a.DepositPaid,
		PaymentID:         a.PaymentID,
		VeterinarianNotes: a.VeterinarianNotes,
		CreatedAt:         a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type paymentView struct {
	PaymentID         string `json:"payment_id"`
	AmountCents       int64  `json:"amount_cents"`
	Method            string `json:"method"`
	Status            string `json:"status"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
}

func toPaymentView(p *model.PaymentRecord) *paymentView {
	if p == nil {
		return nil
	}
	return &paymentView{
		PaymentID:         p.ID,
		AmountCents:       p.AmountCents,
		Method:            p.Method,
		Status:            string(p.Status),
		ProviderPaymentID: p.ProviderPaymentID,
		FailureReason:     p.FailureReason,
	}
}
