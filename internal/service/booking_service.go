package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/repository"

	"github.com/rs/zerolog"
)

const lockPollInterval = 20 * time.Millisecond

type BookingService struct {
	store    domain.BookingStore
	locker   domain.SlotLocker
	lockTTL  time.Duration
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

// NewBookingService wires a service around one store session. locker and
// eventBus may be nil.
func NewBookingService(store domain.BookingStore, locker domain.SlotLocker, lockTTL time.Duration, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		store:    store,
		locker:   locker,
		lockTTL:  lockTTL,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *BookingService) ListBookedSlots(ctx context.Context) ([]models.BookedSlot, error) {
	return s.store.ListBookedSlots(ctx)
}

// CreateBooking persists the booking and publishes booking_created.
// Returns database.ErrSlotTaken only when a booking for the slot is stored.
func (s *BookingService) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if err := s.persist(ctx, booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncBookingConflict()
		}
		return err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Str("date", booking.BookingDate).
		Str("time", booking.BookingTime).
		Msg("booking created")

	// Уведомления отправляются после снятия блокировки слота
	s.publishEvent(ctx, events.EventBookingCreated, booking)
	return nil
}

func (s *BookingService) persist(ctx context.Context, booking *models.Booking) error {
	release, err := s.lockSlot(ctx, booking.Slot())
	if err != nil {
		return err
	}
	defer release()

	return s.store.CreateBookingWithLock(ctx, booking)
}

// lockSlot waits up to lockTTL for a concurrent booking of the same slot to
// finish. A lock that is still held after that is not a conflict: the
// transactional check in the store decides.
func (s *BookingService) lockSlot(ctx context.Context, slot models.Slot) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	deadline := time.Now().Add(s.lockTTL)
	for {
		release, err := s.locker.Acquire(ctx, slot.Key(), s.lockTTL)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, repository.ErrSlotLocked) {
			return nil, fmt.Errorf("failed to lock slot: %w", err)
		}
		if !time.Now().Before(deadline) {
			s.logger.Warn().Str("slot", slot.Key()).Msg("slot lock still held, relying on store check")
			return func() {}, nil
		}

		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.PublishJSON(ctx, eventType, events.NewBookingPayload(booking)); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
