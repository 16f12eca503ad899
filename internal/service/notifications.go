package service

import (
	"context"
	"fmt"

	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/metrics"

	"github.com/rs/zerolog"
)

// SubscribeOwnerNotifications sends an owner notice for every
// booking_created event. Failures are logged by the bus and never reach the
// booking request.
func SubscribeOwnerNotifications(bus *events.EventBus, notifier domain.OwnerNotifier, logger *zerolog.Logger) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	bus.Subscribe(events.EventBookingCreated, func(ctx context.Context, event *events.Event) error {
		payload, err := events.DecodeBooking(event)
		if err != nil {
			return err
		}

		if err := notifier.NotifyOwner(ctx, payload.Booking()); err != nil {
			metrics.IncNotification("failed")
			return fmt.Errorf("SMS notification failed: %w", err)
		}

		metrics.IncNotification("sent")
		logger.Info().Str("date", payload.BookingDate).Str("time", payload.BookingTime).Msg("owner notified")
		return nil
	})
}
