package models

import "fmt"

// Slot is a bookable appointment window.
type Slot struct {
	Date string
	Time string
}

// Key returns a stable identifier for locks and logs.
func (s Slot) Key() string {
	return fmt.Sprintf("slot:%s:%s", s.Date, s.Time)
}

// BookedSlot is the public view of an occupied slot. Date is nil when the
// stored row has no date.
type BookedSlot struct {
	Date *string `json:"date"`
	Time string  `json:"time"`
}

// BookedSlotsResponse is the GET payload.
type BookedSlotsResponse struct {
	BookedSlots []BookedSlot `json:"booked_slots"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
