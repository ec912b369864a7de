package models

import "time"

type UserGroup struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ManageBookings bool      `json:"manage_bookings"`
	ManagePayments bool      `json:"manage_payments"`
	ManageSlots    bool      `json:"manage_slots"`
	ManageUsers    bool      `json:"manage_users"`
	ManageVehicles bool      `json:"manage_vehicles"`
	ViewReports    bool      `json:"view_reports"`
	CreatedAt      time.Time `json:"created_at"`
}

type User struct {
	ID           int64     `json:"id"`
	GroupID      int64     `json:"group_id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	TelegramID   int64     `json:"telegram_id,omitempty"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
