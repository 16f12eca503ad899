package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"salonbook/internal/events"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyOwner(ctx context.Context, booking *models.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func TestSubscribeOwnerNotifications(t *testing.T) {
	bus := events.NewEventBus(nil)
	notifier := new(mockNotifier)
	SubscribeOwnerNotifications(bus, notifier, nil)

	booking := newTestBooking()
	booking.Wishes = "window seat"
	notifier.On("NotifyOwner", mock.Anything, booking).Return(nil)

	require.NoError(t, bus.PublishJSON(context.Background(), events.EventBookingCreated, events.NewBookingPayload(booking)))
	notifier.AssertExpectations(t)
}

func TestSubscribeOwnerNotificationsFailureLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := events.NewEventBus(&logger)
	notifier := new(mockNotifier)
	SubscribeOwnerNotifications(bus, notifier, &logger)

	notifier.On("NotifyOwner", mock.Anything, mock.Anything).Return(errors.New("gateway timeout"))

	err := bus.PublishJSON(context.Background(), events.EventBookingCreated, events.NewBookingPayload(newTestBooking()))
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "SMS notification failed: gateway timeout")
}

func TestSubscribeOwnerNotificationsBadPayload(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := events.NewEventBus(&logger)
	notifier := new(mockNotifier)
	SubscribeOwnerNotifications(bus, notifier, &logger)

	bus.Publish(context.Background(), &events.Event{Type: events.EventBookingCreated, Payload: []byte("{")})
	notifier.AssertNotCalled(t, "NotifyOwner", mock.Anything, mock.Anything)
	assert.Contains(t, buf.String(), "event handler failed")
}
