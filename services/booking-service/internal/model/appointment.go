package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type AppointmentType string

const (
	TypeRegularCheckup AppointmentType = "regular_checkup"
	TypeVaccination    AppointmentType = "vaccination"
	TypeEmergency      AppointmentType = "emergency"
	TypeSurgery        AppointmentType = "surgery"
	TypeDental         AppointmentType = "dental"
	TypeGrooming       AppointmentType = "grooming"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeRegularCheckup, TypeVaccination, TypeEmergency, TypeSurgery, TypeDental, TypeGrooming:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow       Severity = "low"
	SeverityMedium    Severity = "medium"
	SeverityHigh      Severity = "high"
	SeverityEmergency Severity = "emergency"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityEmergency:
		return true
	}
	return false
}

// Appointment is a booking of one slot for one pet. Records are never deleted;
// cancellation is a status.
type Appointment struct {
	ID                string
	OwnerID           string
	VeterinarianID    string
	PetID             string
	Date              string
	StartTime         string
	EndTime           string
	Type              AppointmentType
	Severity          Severity
	Status            AppointmentStatus
	Notes             string
	DepositCents      int64
	DepositPaid       bool
	PaymentID         string
	VeterinarianNotes string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Slot is the natural key of the slot this appointment holds.
func (a Appointment) Slot() SlotKey {
	return SlotKey{VeterinarianID: a.VeterinarianID, Date: a.Date, StartTime: a.StartTime}
}

// Participant reports whether userID is the owner or the veterinarian.
func (a Appointment) Participant(userID string) bool {
	return userID != "" && (userID == a.OwnerID || userID == a.VeterinarianID)
}
