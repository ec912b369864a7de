package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"parkdesk/internal/domain"
	"parkdesk/internal/events"
	"parkdesk/internal/metrics"
	"parkdesk/internal/models"

	"github.com/rs/zerolog"
)

type PaymentService struct {
	repo     domain.PaymentRepository
	queue    domain.NotifyQueue
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

// NewPaymentService builds the payment updater. queue and eventBus may be nil.
func NewPaymentService(repo domain.PaymentRepository, queue domain.NotifyQueue, eventBus domain.EventPublisher, logger *zerolog.Logger) *PaymentService {
	return &PaymentService{repo: repo, queue: queue, eventBus: eventBus, logger: logger}
}

// Pay applies amount to the payment. Reaching PAID queues a notice; a
// notification problem is logged and never undoes the payment.
func (s *PaymentService) Pay(ctx context.Context, paymentID int64, amount models.Cents, paidBy string) (*models.Payment, error) {
	if paymentID <= 0 {
		return nil, invalidf("payment id must be positive")
	}
	if amount < 0 {
		metrics.IncPayment("invalid")
		return nil, ErrInvalidAmount
	}
	if amount == 0 {
		metrics.IncPayment("invalid")
		return nil, ErrNonPositiveAmount
	}
	paidBy = strings.TrimSpace(paidBy)
	if paidBy == "" {
		return nil, invalidf("paid_by is required")
	}

	p, err := s.repo.ApplyPayment(ctx, paymentID, amount, paidBy)
	if err != nil {
		metrics.IncPayment(outcomeOf(err))
		return nil, err
	}
	metrics.IncPayment(strings.ToLower(p.Status.String()))

	s.publish(events.EventPaymentReceived, p, amount)
	if p.Status == models.PaymentPaid {
		s.publish(events.EventPaymentCompleted, p, amount)
		s.dispatchNotice(ctx, p)
	}
	return p, nil
}

func outcomeOf(err error) string {
	switch {
	case IsValidation(err):
		return "invalid"
	case errors.Is(err, ErrPaymentAlreadyCompleted):
		return "already_paid"
	default:
		return "rejected"
	}
}

func (s *PaymentService) dispatchNotice(ctx context.Context, p *models.Payment) {
	if s.queue == nil {
		return
	}
	var reference string
	if b, err := s.repo.GetBooking(ctx, p.BookingID); err == nil {
		reference = b.Reference
	} else {
		s.logger.Warn().Err(err).Int64("booking_id", p.BookingID).Msg("booking lookup for notice failed")
	}

	if err := s.queue.EnqueuePaymentNotice(context.WithoutCancel(ctx), models.NewPaymentNotice(p, reference)); err != nil {
		s.logger.Error().Err(err).Int64("payment_id", p.ID).Msg("payment notice not queued")
	}
}

func (s *PaymentService) Cancel(ctx context.Context, paymentID int64) (*models.Payment, error) {
	p, err := s.repo.CancelPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("payment_id", p.ID).Msg("payment cancelled")
	return p, nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (*models.Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

func (s *PaymentService) GetByBooking(ctx context.Context, bookingID int64) (*models.Payment, error) {
	return s.repo.GetPaymentByBooking(ctx, bookingID)
}

func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	return s.repo.ListPayments(ctx, filter)
}

func (s *PaymentService) publish(eventType string, p *models.Payment, amount models.Cents) {
	if s.eventBus == nil {
		return
	}
	at := p.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	err := s.eventBus.PublishJSON(eventType, events.PaymentEvent{
		PaymentID:  p.ID,
		BookingID:  p.BookingID,
		Amount:     int64(amount),
		PaidAmount: int64(p.PaidAmount),
		DueAmount:  int64(p.DueAmount),
		Status:     p.Status.String(),
		PaidBy:     p.PaidBy,
		At:         at,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("payment_id", p.ID).Msg("publish event error")
	}
}
