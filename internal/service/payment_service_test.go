package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parkdesk/internal/database"
	"parkdesk/internal/events"
	"parkdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPaymentService(repo *mockPaymentRepo, queue *mockQueue, bus *events.EventBus) *PaymentService {
	logger := zerolog.Nop()
	if queue == nil {
		return NewPaymentService(repo, nil, bus, &logger)
	}
	return NewPaymentService(repo, queue, bus, &logger)
}

func TestPay_RejectsBadInput(t *testing.T) {
	repo := new(mockPaymentRepo)
	s := newPaymentService(repo, nil, nil)
	ctx := context.Background()

	_, err := s.Pay(ctx, 1, -5, "cashier")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.Pay(ctx, 1, 0, "cashier")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = s.Pay(ctx, 1, 100, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.Pay(ctx, 0, 100, "cashier")
	assert.ErrorIs(t, err, ErrValidation)

	repo.AssertNotCalled(t, "ApplyPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPay_PartialDoesNotNotify(t *testing.T) {
	repo := new(mockPaymentRepo)
	queue := new(mockQueue)
	bus := events.NewEventBus(nil)
	completed := 0
	bus.Subscribe(events.EventPaymentCompleted, func(*events.Event) error { completed++; return nil })

	repo.On("ApplyPayment", mock.Anything, int64(1), models.Cents(300), "cashier").
		Return(&models.Payment{ID: 1, BookingID: 2, DueAmount: 1000, PaidAmount: 300, Status: models.PaymentPartial}, nil)

	p, err := newPaymentService(repo, queue, bus).Pay(context.Background(), 1, 300, "cashier")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, p.Status)
	assert.Zero(t, completed)
	queue.AssertNotCalled(t, "EnqueuePaymentNotice", mock.Anything, mock.Anything)
}

func TestPay_CompletedQueuesNotice(t *testing.T) {
	repo := new(mockPaymentRepo)
	queue := new(mockQueue)
	bus := events.NewEventBus(nil)

	var ev events.PaymentEvent
	bus.Subscribe(events.EventPaymentCompleted, func(e *events.Event) error { return e.Decode(&ev) })

	paidAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	repo.On("ApplyPayment", mock.Anything, int64(1), models.Cents(700), "cashier").Return(&models.Payment{
		ID: 1, BookingID: 2, DueAmount: 1000, PaidAmount: 1000, Status: models.PaymentPaid,
		PaidBy: "cashier", PaymentDate: &paidAt, UpdatedAt: paidAt,
	}, nil)
	repo.On("GetBooking", mock.Anything, int64(2)).Return(&models.Booking{ID: 2, Reference: "BK-20260302090000-123"}, nil)
	queue.On("EnqueuePaymentNotice", mock.Anything, mock.MatchedBy(func(n models.PaymentNotice) bool {
		return n.PaymentID == 1 && n.Reference == "BK-20260302090000-123" && n.PaidAmount == 1000
	})).Return(nil)

	p, err := newPaymentService(repo, queue, bus).Pay(context.Background(), 1, 700, "cashier")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, p.Status)
	assert.Equal(t, int64(1), ev.PaymentID)
	assert.Equal(t, int64(700), ev.Amount)
	assert.Equal(t, "PAID", ev.Status)
	queue.AssertExpectations(t)
}

func TestPay_QueueFailureKeepsPayment(t *testing.T) {
	repo := new(mockPaymentRepo)
	queue := new(mockQueue)

	repo.On("ApplyPayment", mock.Anything, int64(1), models.Cents(1000), "cashier").
		Return(&models.Payment{ID: 1, BookingID: 2, DueAmount: 1000, PaidAmount: 1000, Status: models.PaymentPaid}, nil)
	repo.On("GetBooking", mock.Anything, int64(2)).Return(nil, database.ErrNotFound)
	queue.On("EnqueuePaymentNotice", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	p, err := newPaymentService(repo, queue, nil).Pay(context.Background(), 1, 1000, "cashier")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, p.Status)
	queue.AssertExpectations(t)
}

func TestPay_BusinessRuleErrorsPassThrough(t *testing.T) {
	repo := new(mockPaymentRepo)
	repo.On("ApplyPayment", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(nil, models.ErrPaymentAlreadyCompleted)
	repo.On("ApplyPayment", mock.Anything, int64(2), mock.Anything, mock.Anything).Return(nil, models.ErrPaymentNotReady)

	s := newPaymentService(repo, nil, nil)
	_, err := s.Pay(context.Background(), 1, 100, "cashier")
	assert.ErrorIs(t, err, ErrPaymentAlreadyCompleted)
	assert.False(t, IsValidation(err))

	_, err = s.Pay(context.Background(), 2, 100, "cashier")
	assert.ErrorIs(t, err, ErrPaymentNotReady)
}

func TestPaymentCancel(t *testing.T) {
	repo := new(mockPaymentRepo)
	repo.On("CancelPayment", mock.Anything, int64(3)).Return(&models.Payment{ID: 3, Status: models.PaymentCancelled}, nil)
	repo.On("CancelPayment", mock.Anything, int64(4)).Return(nil, models.ErrPaymentAlreadyCompleted)

	s := newPaymentService(repo, nil, nil)
	p, err := s.Cancel(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, p.Status)

	_, err = s.Cancel(context.Background(), 4)
	assert.ErrorIs(t, err, ErrPaymentAlreadyCompleted)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "already_paid", outcomeOf(models.ErrPaymentAlreadyCompleted))
	assert.Equal(t, "invalid", outcomeOf(models.ErrNonPositiveAmount))
	assert.Equal(t, "rejected", outcomeOf(models.ErrPaymentNotReady))
}
