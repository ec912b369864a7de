package models

import (
	"fmt"
	"math/rand/v2"
	"time"
)

type BookingStatus int

const (
	BookingPending BookingStatus = iota
	BookingApproved
	BookingRejected
	BookingCompleted
	BookingCancelled
)

var bookingStatusNames = map[BookingStatus]string{
	BookingPending:   "PENDING",
	BookingApproved:  "APPROVED",
	BookingRejected:  "REJECTED",
	BookingCompleted: "COMPLETED",
	BookingCancelled: "CANCELLED",
}

func (s BookingStatus) String() string {
	if name, ok := bookingStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("BookingStatus(%d)", int(s))
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingStatusNames[s]
	return ok
}

// bookingTransitions lists the allowed moves. Nothing goes back to PENDING.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:  {BookingApproved, BookingRejected, BookingCancelled},
	BookingApproved: {BookingCompleted, BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID              int64         `json:"id"`
	CustomerID      int64         `json:"customer_id"`
	VehicleID       int64         `json:"vehicle_id"`
	SlotID          int64         `json:"slot_id"`
	UserID          int64         `json:"user_id"`
	Status          BookingStatus `json:"status"`
	Duration        string        `json:"duration"`
	Remarks         string        `json:"remarks"`
	BookingTime     time.Time     `json:"booking_time"`
	ExpectedArrival *time.Time    `json:"expected_arrival,omitempty"`
	ActualArrival   *time.Time    `json:"actual_arrival,omitempty"`
	Departure       *time.Time    `json:"departure,omitempty"`
	TotalHours      float64       `json:"total_hours"`
	TotalAmount     Cents         `json:"total_amount"`
	Reference       string        `json:"reference"`
	IsPaid          bool          `json:"is_paid"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewBooking builds a fresh PENDING booking stamped with now.
func NewBooking(customerID, vehicleID, slotID int64, duration, remarks string, now time.Time) *Booking {
	return &Booking{
		CustomerID:  customerID,
		VehicleID:   vehicleID,
		SlotID:      slotID,
		UserID:      customerID,
		Status:      BookingPending,
		Duration:    duration,
		Remarks:     remarks,
		BookingTime: now,
		Reference:   GenerateReference(now, nil),
	}
}

// GenerateReference returns BK-<yyyyMMddHHmmss>-<3 digits>. A nil rng uses the global source.
func GenerateReference(now time.Time, rng *rand.Rand) string {
	var n int
	if rng != nil {
		n = 100 + rng.IntN(900)
	} else {
		n = 100 + rand.IntN(900)
	}
	return fmt.Sprintf("%s-%s-%03d", ReferencePrefix, now.Format(ReferenceTimeLayout), n)
}

// IsActive: approved, arrived and not yet departed.
func (b *Booking) IsActive() bool {
	return b.Status == BookingApproved && b.ActualArrival != nil && b.Departure == nil
}

// IsOverdue reports whether now is past expected arrival plus the booked duration.
// An unparseable duration never makes a booking overdue.
func (b *Booking) IsOverdue(now time.Time) bool {
	if b.ExpectedArrival == nil {
		return false
	}
	d, err := ParseDuration(b.Duration)
	if err != nil {
		return false
	}
	return now.After(b.ExpectedArrival.Add(d.Std()))
}
