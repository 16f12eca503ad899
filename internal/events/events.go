package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salonbook/internal/models"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	EventBookingCreated = "booking_created"
)

// BookingEventPayload describes the booking snapshot for event consumers.
type BookingEventPayload struct {
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	Services      string `json:"services"`
	BookingDate   string `json:"booking_date"`
	BookingTime   string `json:"booking_time"`
	PaymentMethod string `json:"payment_method"`
	Wishes        string `json:"wishes,omitempty"`
}

func NewBookingPayload(b *models.Booking) BookingEventPayload {
	return BookingEventPayload{
		ClientName:    b.ClientName,
		ClientPhone:   b.ClientPhone,
		Services:      b.Services,
		BookingDate:   b.BookingDate,
		BookingTime:   b.BookingTime,
		PaymentMethod: b.PaymentMethod,
		Wishes:        b.Wishes,
	}
}

func (p BookingEventPayload) Booking() *models.Booking {
	return &models.Booking{
		ClientName:    p.ClientName,
		ClientPhone:   p.ClientPhone,
		Services:      p.Services,
		BookingDate:   p.BookingDate,
		BookingTime:   p.BookingTime,
		PaymentMethod: p.PaymentMethod,
		Wishes:        p.Wishes,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(ctx context.Context, event *Event) error

// EventBus provides in-process pub/sub for events. Handler failures are
// logged and never reach the publisher.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type synchronously.
func (b *EventBus) Publish(ctx context.Context, event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := b.run(ctx, handler, event); err != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

func (b *EventBus) run(ctx context.Context, handler EventHandler, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(ctx context.Context, eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.Publish(ctx, &event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// DecodeBooking unmarshals a booking_created payload.
func DecodeBooking(event *Event) (BookingEventPayload, error) {
	var payload BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return payload, nil
}
