package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parkdesk/internal/models"
)

const userColumns = `id, group_id, username, full_name, email, phone, telegram_id, password_hash, is_active, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.GroupID, &u.Username, &u.FullName, &u.Email, &u.Phone, &u.TelegramID,
		&u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) CreateUserGroup(ctx context.Context, g *models.UserGroup) (int64, error) {
	g.CreatedAt = time.Now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO user_groups (name, manage_bookings, manage_payments, manage_slots, manage_users,
            manage_vehicles, view_reports, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Name, g.ManageBookings, g.ManagePayments, g.ManageSlots, g.ManageUsers, g.ManageVehicles, g.ViewReports, g.CreatedAt)
	if err != nil {
		return 0, insertErr(err, "user group")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get user group id: %w", err)
	}
	g.ID = id
	return id, nil
}

func (db *DB) GetUserGroup(ctx context.Context, id int64) (*models.UserGroup, error) {
	var g models.UserGroup
	err := db.QueryRowContext(ctx, `
        SELECT id, name, manage_bookings, manage_payments, manage_slots, manage_users, manage_vehicles, view_reports, created_at
        FROM user_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.ManageBookings, &g.ManagePayments, &g.ManageSlots, &g.ManageUsers,
			&g.ManageVehicles, &g.ViewReports, &g.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user group", id)
	}
	return &g, nil
}

func (db *DB) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	u.Username = strings.TrimSpace(u.Username)
	now := time.Now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO users (group_id, username, full_name, email, phone, telegram_id, password_hash, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.GroupID, u.Username, u.FullName, u.Email, u.Phone, u.TelegramID, u.PasswordHash, u.IsActive, now, now)
	if err != nil {
		return 0, insertErr(err, "user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = id
	u.CreatedAt, u.UpdatedAt = now, now
	return id, nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`,
		strings.TrimSpace(username)))
	if err != nil {
		return nil, notFound(err, "user", username)
	}
	return u, nil
}

func (db *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now()
	res, err := db.ExecContext(ctx, `
        UPDATE users SET group_id = ?, full_name = ?, email = ?, phone = ?, telegram_id = ?,
            password_hash = ?, is_active = ?, updated_at = ?
        WHERE id = ?`,
		u.GroupID, u.FullName, u.Email, u.Phone, u.TelegramID, u.PasswordHash, u.IsActive, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectRow(res, "user", u.ID)
}

// DeactivateUser keeps the row for booking history but blocks logins.
func (db *DB) DeactivateUser(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return expectRow(res, "user", id)
}

func (db *DB) ListUserGroups(ctx context.Context) ([]*models.UserGroup, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, name, manage_bookings, manage_payments, manage_slots, manage_users, manage_vehicles, view_reports, created_at
        FROM user_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	defer rows.Close()

	var out []*models.UserGroup
	for rows.Next() {
		var g models.UserGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.ManageBookings, &g.ManagePayments, &g.ManageSlots, &g.ManageUsers,
			&g.ManageVehicles, &g.ViewReports, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user group: %w", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}
