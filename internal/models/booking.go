package models

// Booking is a single client appointment. BookingDate is kept as the
// string the client submitted; the store casts it to its date type.
type Booking struct {
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	Services      string `json:"services"`
	BookingDate   string `json:"booking_date"`
	BookingTime   string `json:"booking_time"`
	PaymentMethod string `json:"payment_method"`
	Wishes        string `json:"wishes"`
}

// NewBooking returns a booking with the submission defaults applied.
func NewBooking() *Booking {
	return &Booking{
		PaymentMethod: DefaultPaymentMethod,
		Wishes:        "",
	}
}

// Slot returns the (date, time) pair the booking occupies.
func (b *Booking) Slot() Slot {
	return Slot{Date: b.BookingDate, Time: b.BookingTime}
}
