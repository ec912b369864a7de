package models

import (
	"errors"
	"fmt"
	"time"
)

type PaymentStatus int

const (
	PaymentPendingApproval PaymentStatus = iota
	PaymentApprovedUnpaid
	PaymentPaid
	PaymentPartial
	PaymentCancelled
)

var paymentStatusNames = map[PaymentStatus]string{
	PaymentPendingApproval: "PENDING_APPROVAL",
	PaymentApprovedUnpaid:  "APPROVED_UNPAID",
	PaymentPaid:            "PAID",
	PaymentPartial:         "PARTIAL",
	PaymentCancelled:       "CANCELLED",
}

func (s PaymentStatus) String() string {
	if name, ok := paymentStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PaymentStatus(%d)", int(s))
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatusNames[s]
	return ok
}

var (
	ErrInvalidAmount           = errors.New("amount must not be negative")
	ErrNonPositiveAmount       = errors.New("payment amount must be positive")
	ErrInvalidBookingRef       = errors.New("booking id must be positive")
	ErrInvalidPaymentStatus    = errors.New("invalid payment status")
	ErrPaymentAlreadyCompleted = errors.New("payment already completed")
	ErrPaymentNotReady         = errors.New("payment is not ready to accept funds")
)

type Payment struct {
	ID          int64         `json:"id"`
	BookingID   int64         `json:"booking_id"`
	UserID      *int64        `json:"user_id,omitempty"`
	DueAmount   Cents         `json:"due_amount"`
	PaidAmount  Cents         `json:"paid_amount"`
	Status      PaymentStatus `json:"status"`
	PaidBy      string        `json:"paid_by"`
	Remarks     string        `json:"remarks"`
	PaymentDate *time.Time    `json:"payment_date,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (p *Payment) Balance() Cents {
	return p.DueAmount - p.PaidAmount
}

// Validate checks the field-level invariants of a payment record.
func (p *Payment) Validate() error {
	if p.BookingID <= 0 {
		return ErrInvalidBookingRef
	}
	if p.DueAmount < 0 || p.PaidAmount < 0 {
		return ErrInvalidAmount
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPaymentStatus, int(p.Status))
	}
	return nil
}

// Apply runs one payment of amount against p. On error p is left untouched.
// The caller stamps PaymentDate and PaidBy.
func (p *Payment) Apply(amount Cents) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	switch p.Status {
	case PaymentPaid:
		return ErrPaymentAlreadyCompleted
	case PaymentApprovedUnpaid, PaymentPartial:
	default:
		return fmt.Errorf("%w: status %s", ErrPaymentNotReady, p.Status)
	}

	p.PaidAmount += amount
	if p.PaidAmount >= p.DueAmount {
		p.Status = PaymentPaid
	} else {
		p.Status = PaymentPartial
	}
	return nil
}
