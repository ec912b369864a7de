package database

import (
	"context"
	"testing"
	"time"

	"parkdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedBooking(t *testing.T, db *DB, due models.Cents) (*models.Booking, *models.Payment) {
	t.Helper()
	ctx := context.Background()
	seedRefs(t, db, 5, 10, 3)
	id, err := db.ReserveSlot(ctx, models.NewBooking(5, 10, 3, "4 Hours", "", time.Now()))
	require.NoError(t, err)
	b, p, err := db.ApproveBooking(ctx, id, due, 0)
	require.NoError(t, err)
	return b, p
}

func TestApplyPayment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b, p := approvedBooking(t, db, 2000)

	t.Run("Partial", func(t *testing.T) {
		got, err := db.ApplyPayment(ctx, p.ID, 1200, "cash")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPartial, got.Status)
		assert.Equal(t, models.Cents(1200), got.PaidAmount)
		assert.Equal(t, models.Cents(800), got.Balance())
		require.NotNil(t, got.PaymentDate)

		booking, err := db.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, booking.IsPaid)
	})

	t.Run("Completes", func(t *testing.T) {
		got, err := db.ApplyPayment(ctx, p.ID, 800, "card")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, got.Status)
		assert.Equal(t, models.Cents(2000), got.PaidAmount)
		assert.Equal(t, "card", got.PaidBy)

		booking, err := db.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, booking.IsPaid)
	})

	t.Run("AlreadyPaid", func(t *testing.T) {
		_, err := db.ApplyPayment(ctx, p.ID, 100, "cash")
		assert.ErrorIs(t, err, models.ErrPaymentAlreadyCompleted)

		stored, err := db.GetPayment(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Cents(2000), stored.PaidAmount)
		assert.Equal(t, models.PaymentPaid, stored.Status)
	})

	t.Run("CancelPaidRejected", func(t *testing.T) {
		_, err := db.CancelPayment(ctx, p.ID)
		assert.ErrorIs(t, err, models.ErrPaymentAlreadyCompleted)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := db.ApplyPayment(ctx, 404, 100, "cash")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestApplyPaymentRejectsNonPositive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, p := approvedBooking(t, db, 2000)

	for _, amount := range []models.Cents{0, -500} {
		_, err := db.ApplyPayment(ctx, p.ID, amount, "cash")
		assert.ErrorIs(t, err, models.ErrNonPositiveAmount)
	}

	stored, err := db.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentApprovedUnpaid, stored.Status)
	assert.Zero(t, stored.PaidAmount)
	assert.Nil(t, stored.PaymentDate)
}

func TestApplyPaymentOverpays(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, p := approvedBooking(t, db, 1000)

	got, err := db.ApplyPayment(ctx, p.ID, 1500, "cash")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.Status)
	assert.Equal(t, models.Cents(1500), got.PaidAmount)
	assert.Equal(t, models.Cents(-500), got.Balance())
}

func TestPendingApprovalPaymentNotPayable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRefs(t, db, 5, 10, 3)
	bid, err := db.ReserveSlot(ctx, models.NewBooking(5, 10, 3, "1 Hour", "", time.Now()))
	require.NoError(t, err)

	p := &models.Payment{BookingID: bid, DueAmount: 500, Status: models.PaymentPendingApproval}
	_, err = db.CreatePayment(ctx, p)
	require.NoError(t, err)

	_, err = db.ApplyPayment(ctx, p.ID, 500, "cash")
	assert.ErrorIs(t, err, models.ErrPaymentNotReady)

	cancelled, err := db.CancelPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, cancelled.Status)

	_, err = db.ApplyPayment(ctx, p.ID, 500, "cash")
	assert.ErrorIs(t, err, models.ErrPaymentNotReady)

	_, err = db.CancelPayment(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrPaymentNotReady)

	_, err = db.CancelPayment(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPartialPaymentOnCancelledBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b, p := approvedBooking(t, db, 1000)

	_, err := db.ApplyPayment(ctx, p.ID, 400, "cash")
	require.NoError(t, err)

	_, err = db.UpdateBookingStatus(ctx, b.ID, models.BookingCancelled, 0)
	require.NoError(t, err)

	// a partial payment survives cancellation but takes no more money
	_, err = db.ApplyPayment(ctx, p.ID, 600, "cash")
	assert.ErrorIs(t, err, models.ErrPaymentNotReady)

	stored, err := db.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, stored.Status)
	assert.Equal(t, models.Cents(400), stored.PaidAmount)

	booking, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, booking.IsPaid)
	assert.Equal(t, models.BookingCancelled, booking.Status)
}

func TestCreatePaymentValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreatePayment(ctx, &models.Payment{BookingID: 99, DueAmount: 100})
	assert.ErrorIs(t, err, ErrNotFound)

	_, p := approvedBooking(t, db, 100)
	_, err = db.CreatePayment(ctx, &models.Payment{BookingID: p.BookingID, DueAmount: -1})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestListPayments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, p := approvedBooking(t, db, 1000)
	_, err := db.ApplyPayment(ctx, p.ID, 1000, "cash")
	require.NoError(t, err)

	all, err := db.ListPayments(ctx, models.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	unpaid := models.PaymentApprovedUnpaid
	none, err := db.ListPayments(ctx, models.PaymentFilter{Status: &unpaid})
	require.NoError(t, err)
	assert.Empty(t, none)
}
