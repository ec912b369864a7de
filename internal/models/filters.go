package models

import "time"

type BookingFilter struct {
	Status     *BookingStatus
	CustomerID int64
	SlotID     int64
	From       time.Time
	To         time.Time
	// Limit 0 means DefaultListLimit, negative means no limit.
	Limit  int
	Offset int
}

type PaymentFilter struct {
	Status *PaymentStatus
	From   time.Time
	To     time.Time
	Limit  int
}
