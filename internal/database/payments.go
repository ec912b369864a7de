package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parkdesk/internal/models"
)

const paymentColumns = `id, booking_id, user_id, due_amount, paid_amount, status, paid_by, remarks,
    payment_date, created_at, updated_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var userID sql.NullInt64
	var paidAt sql.NullTime
	err := row.Scan(&p.ID, &p.BookingID, &userID, &p.DueAmount, &p.PaidAmount, &p.Status, &p.PaidBy, &p.Remarks,
		&paidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.UserID = int64Ptr(userID)
	p.PaymentDate = timePtr(paidAt)
	return &p, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPayment(ctx context.Context, ex execer, p *models.Payment) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if p.CreatedAt.IsZero() {
		now := time.Now()
		p.CreatedAt, p.UpdatedAt = now, now
	}
	res, err := ex.ExecContext(ctx, `
        INSERT INTO payments (booking_id, user_id, due_amount, paid_amount, status, paid_by, remarks,
            payment_date, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.BookingID, nullInt64(p.UserID), p.DueAmount, p.PaidAmount, p.Status, p.PaidBy, p.Remarks,
		nullTime(p.PaymentDate), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get payment id: %w", err)
	}
	return id, nil
}

// CreatePayment records a payment for an existing booking.
func (db *DB) CreatePayment(ctx context.Context, p *models.Payment) (int64, error) {
	if _, err := db.GetBooking(ctx, p.BookingID); err != nil {
		return 0, err
	}
	id, err := insertPayment(ctx, db, p)
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

func (db *DB) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	return p, nil
}

// GetPaymentByBooking returns the most recent payment for a booking.
func (db *DB) GetPaymentByBooking(ctx context.Context, bookingID int64) (*models.Payment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments
        WHERE booking_id = ? ORDER BY id DESC LIMIT 1`, bookingID)
	p, err := scanPayment(row)
	if err != nil {
		return nil, notFound(err, "payment for booking", bookingID)
	}
	return p, nil
}

func (db *DB) ListPayments(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1 = 1`
	var args []any
	if f.Status != nil {
		query += ` AND status = ?`
		args = append(args, *f.Status)
	}
	if !f.From.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, f.To)
	}
	limit := f.Limit
	if limit == 0 {
		limit = -1
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ApplyPayment adds amount to a payment. When the payment becomes PAID the
// booking is flagged paid in the same transaction. Rejected applications
// leave the stored payment unchanged.
func (db *DB) ApplyPayment(ctx context.Context, id int64, amount models.Cents, paidBy string) (*models.Payment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.rollback(tx, "apply_payment")

	row := tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}

	var bookingStatus models.BookingStatus
	if err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, p.BookingID).
		Scan(&bookingStatus); err != nil {
		return nil, notFound(err, "booking", p.BookingID)
	}
	if bookingStatus == models.BookingCancelled || bookingStatus == models.BookingRejected {
		return nil, fmt.Errorf("%w: booking %d is %s", models.ErrPaymentNotReady, p.BookingID, bookingStatus)
	}

	if err := p.Apply(amount); err != nil {
		return nil, err
	}

	now := time.Now()
	p.PaidBy = paidBy
	p.PaymentDate = &now
	p.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, `
        UPDATE payments SET paid_amount = ?, status = ?, paid_by = ?, payment_date = ?, updated_at = ?
        WHERE id = ?`, p.PaidAmount, p.Status, p.PaidBy, now, now, id); err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	if p.Status == models.PaymentPaid {
		if _, err := tx.ExecContext(ctx, `UPDATE bookings SET is_paid = 1, updated_at = ? WHERE id = ?`,
			now, p.BookingID); err != nil {
			return nil, fmt.Errorf("failed to mark booking paid: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	db.logger.Info().
		Int64("payment_id", id).
		Int64("amount", int64(amount)).
		Str("status", p.Status.String()).
		Msg("payment applied")
	return p, nil
}

// CancelPayment cancels a payment that has not been fully paid. Payments
// already PAID or CANCELLED are left as they are.
func (db *DB) CancelPayment(ctx context.Context, id int64) (*models.Payment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.rollback(tx, "cancel_payment")

	row := tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	switch p.Status {
	case models.PaymentPaid:
		return nil, models.ErrPaymentAlreadyCompleted
	case models.PaymentCancelled:
		return nil, fmt.Errorf("%w: payment %d is already cancelled", models.ErrPaymentNotReady, id)
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`,
		models.PaymentCancelled, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel payment: %w", err)
	}
	if err := expectRow(res, "payment", id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment cancellation: %w", err)
	}

	p.Status, p.UpdatedAt = models.PaymentCancelled, now
	db.logger.Info().Int64("payment_id", id).Msg("payment cancelled")
	return p, nil
}
