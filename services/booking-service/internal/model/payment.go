package model

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentRecord is one charge attempt. Records are append-only.
type PaymentRecord struct {
	ID                string
	AppointmentID     string
	PayerID           string
	AmountCents       int64
	Method            string
	ProviderPaymentID string
	Status            PaymentStatus
	FailureReason     string
	CreatedAt         time.Time
}
