package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"parkdesk/internal/models"
)

const slotColumns = `id, slot_number, status, user_id, slot_type, zone, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.ParkingSlot, error) {
	var s models.ParkingSlot
	var userID sql.NullInt64
	if err := row.Scan(&s.ID, &s.SlotNumber, &s.Status, &userID, &s.SlotType, &s.Zone, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.UserID = int64Ptr(userID)
	return &s, nil
}

// CreateSlot inserts a slot. New slots are always AVAILABLE with no occupant.
func (db *DB) CreateSlot(ctx context.Context, slot *models.ParkingSlot) (int64, error) {
	slot.SlotNumber = strings.TrimSpace(slot.SlotNumber)
	if slot.SlotNumber == "" {
		return 0, fmt.Errorf("slot number is required")
	}

	now := time.Now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO parking_slots (slot_number, status, user_id, slot_type, zone, created_at, updated_at)
        VALUES (?, ?, NULL, ?, ?, ?, ?)`,
		slot.SlotNumber, models.SlotAvailable, slot.SlotType, slot.Zone, now, now)
	if err != nil {
		return 0, insertErr(err, "slot")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get slot id: %w", err)
	}
	slot.ID = id
	slot.Status = models.SlotAvailable
	slot.UserID = nil
	slot.CreatedAt, slot.UpdatedAt = now, now
	return id, nil
}

func (db *DB) GetSlot(ctx context.Context, id int64) (*models.ParkingSlot, error) {
	row := db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM parking_slots WHERE id = ?`, id)
	s, err := scanSlot(row)
	if err != nil {
		return nil, notFound(err, "slot", id)
	}
	return s, nil
}

// ListSlots returns all slots ordered by number, optionally filtered by status.
func (db *DB) ListSlots(ctx context.Context, status *models.SlotStatus) ([]*models.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY slot_number`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.ParkingSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// UpdateSlot changes descriptive fields only. Status moves through the
// reservation and release paths.
func (db *DB) UpdateSlot(ctx context.Context, slot *models.ParkingSlot) error {
	res, err := db.ExecContext(ctx, `UPDATE parking_slots SET slot_number = ?, slot_type = ?, zone = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(slot.SlotNumber), slot.SlotType, slot.Zone, time.Now(), slot.ID)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	return expectRow(res, "slot", slot.ID)
}

// SetSlotMaintenance moves an unoccupied slot in or out of maintenance.
func (db *DB) SetSlotMaintenance(ctx context.Context, id int64, on bool) error {
	from, to := models.SlotAvailable, models.SlotMaintenance
	if !on {
		from, to = to, from
	}

	res, err := db.ExecContext(ctx, `
        UPDATE parking_slots SET status = ?, updated_at = ?
        WHERE id = ? AND status = ?`, to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update slot status: %w", err)
	}
	return db.expectOneSlot(ctx, res, id)
}

// ReleaseSlot clears the occupant and returns the slot to AVAILABLE.
// Slots under maintenance are not touched.
func (db *DB) ReleaseSlot(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `
        UPDATE parking_slots SET status = ?, user_id = NULL, updated_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		models.SlotAvailable, time.Now(), id, models.SlotReserved, models.SlotOccupied)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return db.expectOneSlot(ctx, res, id)
}

// expectOneSlot turns a zero-row conditional update into ErrNotFound or
// ErrSlotUnavailable depending on whether the slot exists.
func (db *DB) expectOneSlot(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := db.GetSlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("slot %d: %w", id, ErrSlotUnavailable)
}

func (db *DB) DeleteSlot(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM parking_slots WHERE id = ? AND status IN (?, ?)`,
		id, models.SlotAvailable, models.SlotMaintenance)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return db.expectOneSlot(ctx, res, id)
}

// SyncSlots upserts slots by number. Existing rows keep their status and
// occupant; only type and zone are refreshed.
func (db *DB) SyncSlots(ctx context.Context, slots []*models.ParkingSlot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer db.rollback(tx, "sync_slots")

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO parking_slots (slot_number, status, slot_type, zone, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(slot_number) DO UPDATE SET
            slot_type = excluded.slot_type,
            zone = excluded.zone,
            updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare slot upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range slots {
		number := strings.TrimSpace(s.SlotNumber)
		if number == "" {
			return fmt.Errorf("slot number is required")
		}
		if _, err := stmt.ExecContext(ctx, number, models.SlotAvailable, s.SlotType, s.Zone, now, now); err != nil {
			return fmt.Errorf("failed to upsert slot %s: %w", number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit slot sync: %w", err)
	}
	db.logger.Info().Int("count", len(slots)).Msg("parking slots synced")
	return nil
}
