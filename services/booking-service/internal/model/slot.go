package model

import "time"

// SlotKey identifies a slot by value. At most one live slot exists per key.
type SlotKey struct {
	VeterinarianID string
	Date           string
	StartTime      string
}

func (k SlotKey) String() string {
	return k.VeterinarianID + "/" + k.Date + "/" + k.StartTime
}

type TimeSlot struct {
	ID             string
	VeterinarianID string
	Date           string
	StartTime      string
	EndTime        string
	Reserved       bool
	CreatedAt      time.Time
}

func (s TimeSlot) Key() SlotKey {
	return SlotKey{VeterinarianID: s.VeterinarianID, Date: s.Date, StartTime: s.StartTime}
}

// SlotWindow is a start/end pair in HH:MM, as submitted when publishing a day.
type SlotWindow struct {
	StartTime string
	EndTime   string
}
