package models

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingDefaults(t *testing.T) {
	b := NewBooking()
	assert.Equal(t, "cash", b.PaymentMethod)
	assert.Equal(t, "", b.Wishes)
}

func TestBookingDecodeKeepsDefaults(t *testing.T) {
	b := NewBooking()
	err := json.Unmarshal([]byte(`{"client_name":"Anna","booking_date":"2024-01-01","booking_time":"10:00"}`), b)
	require.NoError(t, err)

	assert.Equal(t, "Anna", b.ClientName)
	assert.Equal(t, "cash", b.PaymentMethod)
	assert.Equal(t, Slot{Date: "2024-01-01", Time: "10:00"}, b.Slot())
}

func TestSlotKey(t *testing.T) {
	s := Slot{Date: "2024-01-01", Time: "10:00"}
	assert.Equal(t, "slot:2024-01-01:10:00", s.Key())
}

func TestBookedSlotNullDate(t *testing.T) {
	raw, err := json.Marshal(BookedSlotsResponse{BookedSlots: []BookedSlot{{Time: "10:00"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"booked_slots":[{"date":null,"time":"10:00"}]}`, string(raw))
}
