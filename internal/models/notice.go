package models

import (
	"fmt"
	"time"
)

// PaymentNotice is what outbound channels report about a completed payment.
type PaymentNotice struct {
	PaymentID  int64     `json:"payment_id"`
	BookingID  int64     `json:"booking_id"`
	Reference  string    `json:"reference"`
	DueAmount  Cents     `json:"due_amount"`
	PaidAmount Cents     `json:"paid_amount"`
	PaidBy     string    `json:"paid_by"`
	PaidAt     time.Time `json:"paid_at"`
}

func NewPaymentNotice(p *Payment, reference string) PaymentNotice {
	n := PaymentNotice{
		PaymentID:  p.ID,
		BookingID:  p.BookingID,
		Reference:  reference,
		DueAmount:  p.DueAmount,
		PaidAmount: p.PaidAmount,
		PaidBy:     p.PaidBy,
		PaidAt:     p.UpdatedAt,
	}
	if p.PaymentDate != nil {
		n.PaidAt = *p.PaymentDate
	}
	return n
}

// Text renders the notice as a plain chat message.
func (n PaymentNotice) Text() string {
	return fmt.Sprintf("Payment completed\nBooking: %s\nAmount paid: %s of %s\nPaid by: %s\nAt: %s",
		n.Reference, n.PaidAmount, n.DueAmount, n.PaidBy, n.PaidAt.Format("2006-01-02 15:04"))
}
