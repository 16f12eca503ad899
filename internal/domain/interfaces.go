package domain

import (
	"context"
	"time"

	"salonbook/internal/models"
)

// BookingStore is one acquired store session. Close must be called on
// every exit path.
type BookingStore interface {
	ListBookedSlots(ctx context.Context) ([]models.BookedSlot, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	Close() error
}

// StoreOpener acquires a BookingStore for one invocation.
type StoreOpener interface {
	Open(ctx context.Context, dsn string) (BookingStore, error)
}

// SlotLocker serializes concurrent bookings of the same slot across
// invocations. The returned release func is safe to call once.
type SlotLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, eventType string, payload interface{}) error
}

// OwnerNotifier delivers a new-booking notice to the business owner.
type OwnerNotifier interface {
	NotifyOwner(ctx context.Context, booking *models.Booking) error
}

type BookingService interface {
	ListBookedSlots(ctx context.Context) ([]models.BookedSlot, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
}
