package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"parkdesk/internal/models"
)

const bookingColumns = `id, customer_id, vehicle_id, slot_id, user_id, status, duration, remarks,
    booking_time, expected_arrival, actual_arrival, departure, total_hours, total_amount,
    reference, is_paid, created_at, updated_at`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var expected, arrival, departure sql.NullTime
	err := row.Scan(&b.ID, &b.CustomerID, &b.VehicleID, &b.SlotID, &b.UserID, &b.Status, &b.Duration, &b.Remarks,
		&b.BookingTime, &expected, &arrival, &departure, &b.TotalHours, &b.TotalAmount,
		&b.Reference, &b.IsPaid, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.ExpectedArrival = timePtr(expected)
	b.ActualArrival = timePtr(arrival)
	b.Departure = timePtr(departure)
	return &b, nil
}

// ReserveSlot inserts a PENDING booking and moves its slot from AVAILABLE to
// RESERVED in one transaction. If the slot is not available, or either write
// fails, neither change is kept.
func (db *DB) ReserveSlot(ctx context.Context, b *models.Booking) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.rollback(tx, "reserve_slot")

	now := time.Now()
	if b.BookingTime.IsZero() {
		b.BookingTime = now
	}
	if b.Reference == "" {
		b.Reference = models.GenerateReference(b.BookingTime, nil)
	}
	if b.UserID == 0 {
		b.UserID = b.CustomerID
	}
	b.Status = models.BookingPending

	res, err := tx.ExecContext(ctx, `
        INSERT INTO bookings (customer_id, vehicle_id, slot_id, user_id, status, duration, remarks,
            booking_time, expected_arrival, total_hours, total_amount, reference, is_paid, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		b.CustomerID, b.VehicleID, b.SlotID, b.UserID, b.Status, b.Duration, b.Remarks,
		b.BookingTime, nullTime(b.ExpectedArrival), b.TotalHours, b.TotalAmount, b.Reference, now, now)
	if err != nil {
		return 0, insertErr(err, "booking")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get booking id: %w", err)
	}

	res, err = tx.ExecContext(ctx, `
        UPDATE parking_slots SET status = ?, user_id = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		models.SlotReserved, b.CustomerID, now, b.SlotID, models.SlotAvailable)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("slot %d: %w", b.SlotID, ErrSlotUnavailable)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reservation: %w", err)
	}

	b.ID = id
	b.CreatedAt, b.UpdatedAt = now, now
	db.logger.Info().
		Int64("booking_id", id).
		Int64("slot_id", b.SlotID).
		Str("reference", b.Reference).
		Msg("slot reserved")
	return id, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

func (db *DB) GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, ref)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, "booking", ref)
	}
	return b, nil
}

func (db *DB) ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error) {
	var where []string
	var args []any
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}
	if f.CustomerID > 0 {
		where = append(where, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.SlotID > 0 {
		where = append(where, "slot_id = ?")
		args = append(args, f.SlotID)
	}
	if !f.From.IsZero() {
		where = append(where, "booking_time >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "booking_time < ?")
		args = append(args, f.To)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	// negative limit lists everything
	limit := f.Limit
	if limit == 0 {
		limit = models.DefaultListLimit
	}
	query += ` ORDER BY booking_time DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// lockBooking reads the booking inside tx. With _txlock=immediate the write
// lock is already held, so the row cannot change until commit.
func lockBooking(ctx context.Context, tx *sql.Tx, id int64) (*models.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

// UpdateBookingStatus moves a booking along the status table. Rejecting or
// cancelling also cancels any payment that has not taken money yet. The slot
// is not released here.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, to models.BookingStatus, actingUserID int64) (*models.Booking, error) {
	if to == models.BookingApproved {
		return nil, fmt.Errorf("use ApproveBooking to approve: %w", ErrInvalidTransition)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.rollback(tx, "update_booking_status")

	b, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(b.Status, to) {
		return nil, fmt.Errorf("booking %d %s -> %s: %w", id, b.Status, to, ErrInvalidTransition)
	}

	now := time.Now()
	userID := b.UserID
	if actingUserID > 0 {
		userID = actingUserID
	}
	if _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ?, user_id = ?, updated_at = ? WHERE id = ?`,
		to, userID, now, id); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	if to == models.BookingCancelled || to == models.BookingRejected {
		if _, err := tx.ExecContext(ctx, `
            UPDATE payments SET status = ?, updated_at = ?
            WHERE booking_id = ? AND status IN (?, ?)`,
			models.PaymentCancelled, now, id, models.PaymentPendingApproval, models.PaymentApprovedUnpaid); err != nil {
			return nil, fmt.Errorf("failed to cancel payments: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}

	b.Status, b.UserID, b.UpdatedAt = to, userID, now
	return b, nil
}

// ApproveBooking approves a PENDING booking and opens its payment with the
// given due amount in one transaction.
func (db *DB) ApproveBooking(ctx context.Context, id int64, due models.Cents, actingUserID int64) (*models.Booking, *models.Payment, error) {
	if due < 0 {
		return nil, nil, models.ErrInvalidAmount
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.rollback(tx, "approve_booking")

	b, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if !models.CanTransition(b.Status, models.BookingApproved) {
		return nil, nil, fmt.Errorf("booking %d %s -> %s: %w", id, b.Status, models.BookingApproved, ErrInvalidTransition)
	}

	now := time.Now()
	userID := b.UserID
	if actingUserID > 0 {
		userID = actingUserID
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE bookings SET status = ?, user_id = ?, total_amount = ?, updated_at = ?
        WHERE id = ?`, models.BookingApproved, userID, due, now, id); err != nil {
		return nil, nil, fmt.Errorf("failed to approve booking: %w", err)
	}

	p := &models.Payment{
		BookingID: id,
		DueAmount: due,
		Status:    models.PaymentApprovedUnpaid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actingUserID > 0 {
		p.UserID = &actingUserID
	}
	pid, err := insertPayment(ctx, tx, p)
	if err != nil {
		return nil, nil, err
	}
	p.ID = pid

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	b.Status, b.UserID, b.TotalAmount, b.UpdatedAt = models.BookingApproved, userID, due, now
	return b, p, nil
}

// MarkArrival records the customer's arrival and moves the slot from
// RESERVED to OCCUPIED. Only approved bookings can arrive, once.
func (db *DB) MarkArrival(ctx context.Context, id int64, at time.Time) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.rollback(tx, "mark_arrival")

	b, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingApproved {
		return nil, fmt.Errorf("booking %d is %s: %w", id, b.Status, ErrNotActive)
	}
	if b.ActualArrival != nil {
		return nil, fmt.Errorf("booking %d: %w", id, ErrAlreadyArrived)
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
        UPDATE parking_slots SET status = ?, user_id = ?, updated_at = ?
        WHERE id = ? AND status = ? AND user_id = ?`,
		models.SlotOccupied, b.CustomerID, now, b.SlotID, models.SlotReserved, b.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to occupy slot: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("slot %d not reserved for customer %d: %w", b.SlotID, b.CustomerID, ErrSlotUnavailable)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE bookings SET actual_arrival = ?, updated_at = ? WHERE id = ?`,
		at, now, id); err != nil {
		return nil, fmt.Errorf("failed to record arrival: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit arrival: %w", err)
	}

	b.ActualArrival = &at
	b.UpdatedAt = now
	return b, nil
}

// MarkDeparture records departure for an active booking. The slot keeps its
// occupant until it is released explicitly.
func (db *DB) MarkDeparture(ctx context.Context, id int64, at time.Time) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.rollback(tx, "mark_departure")

	b, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive() {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotActive)
	}
	if at.Before(*b.ActualArrival) {
		return nil, fmt.Errorf("departure %s before arrival %s", at.Format(time.RFC3339), b.ActualArrival.Format(time.RFC3339))
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `UPDATE bookings SET departure = ?, updated_at = ? WHERE id = ?`,
		at, now, id); err != nil {
		return nil, fmt.Errorf("failed to record departure: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit departure: %w", err)
	}

	b.Departure = &at
	b.UpdatedAt = now
	return b, nil
}

// OverdueBookings returns approved bookings whose expected arrival plus
// duration has passed without a departure.
func (db *DB) OverdueBookings(ctx context.Context, now time.Time) ([]*models.Booking, error) {
	status := models.BookingApproved
	candidates, err := db.ListBookings(ctx, models.BookingFilter{Status: &status, Limit: -1})
	if err != nil {
		return nil, err
	}
	var out []*models.Booking
	for _, b := range candidates {
		if b.Departure == nil && b.IsOverdue(now) {
			out = append(out, b)
		}
	}
	return out, nil
}
