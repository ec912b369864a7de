package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingApproved  = "booking_approved"
	EventBookingRejected  = "booking_rejected"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
	EventPaymentReceived  = "payment_received"
	EventPaymentCompleted = "payment_completed"
)

// BookingEvent is the booking snapshot carried by booking_* events.
type BookingEvent struct {
	BookingID  int64     `json:"booking_id"`
	Reference  string    `json:"reference"`
	CustomerID int64     `json:"customer_id"`
	SlotID     int64     `json:"slot_id"`
	Status     string    `json:"status"`
	Duration   string    `json:"duration"`
	Amount     int64     `json:"amount_cents"`
	ActorID    int64     `json:"actor_id,omitempty"`
	At         time.Time `json:"at"`
}

// PaymentEvent is carried by payment_* events.
type PaymentEvent struct {
	PaymentID  int64     `json:"payment_id"`
	BookingID  int64     `json:"booking_id"`
	Reference  string    `json:"reference,omitempty"`
	Amount     int64     `json:"amount_cents"`
	PaidAmount int64     `json:"paid_amount_cents"`
	DueAmount  int64     `json:"due_amount_cents"`
	Status     string    `json:"status"`
	PaidBy     string    `json:"paid_by"`
	At         time.Time `json:"at"`
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub. Handlers run synchronously on the
// publisher's goroutine; a failing handler is logged and does not stop the rest.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]EventHandler
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish returns the number of handlers that failed.
func (b *EventBus) Publish(event *Event) int {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	failed := 0
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			failed++
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
	return failed
}

// PublishJSON is nil-safe so services can run without a bus.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	b.Publish(&Event{Type: eventType, Payload: raw})
	return nil
}
