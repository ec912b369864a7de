package database

import (
	"context"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// seedRefs inserts a customer, a vehicle and a slot with fixed ids so
// bookings can reference them.
func seedRefs(t *testing.T, db *DB, customerID, vehicleID, slotID int64) {
	t.Helper()
	ctx := context.Background()
	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT OR IGNORE INTO user_groups (id, name) VALUES (1, 'staff')`, nil},
		{`INSERT OR IGNORE INTO users (id, group_id, username, full_name) VALUES (?, 1, ?, 'Test Customer')`,
			[]any{customerID, "customer" + strconv.FormatInt(customerID, 10)}},
		{`INSERT OR IGNORE INTO vehicle_categories (id, name) VALUES (1, 'car')`, nil},
		{`INSERT OR IGNORE INTO vehicle_owners (id, full_name) VALUES (1, 'Owner')`, nil},
		{`INSERT OR IGNORE INTO vehicles (id, plate_number, category_id, owner_id) VALUES (?, ?, 1, 1)`,
			[]any{vehicleID, "PLATE" + strconv.FormatInt(vehicleID, 10)}},
		{`INSERT OR IGNORE INTO parking_slots (id, slot_number, status) VALUES (?, ?, 0)`,
			[]any{slotID, "S-" + strconv.FormatInt(slotID, 10)}},
	}
	for _, s := range stmts {
		_, err := db.ExecContext(ctx, s.q, s.args...)
		require.NoError(t, err)
	}
}
