package service

import (
	"errors"
	"fmt"

	"parkdesk/internal/models"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrSlotBusy           = errors.New("slot is being reserved by another request")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactiveUser       = errors.New("user is deactivated")
)

// Payment rule errors, shared with models so errors.Is works on either name.
var (
	ErrInvalidAmount           = models.ErrInvalidAmount
	ErrNonPositiveAmount       = models.ErrNonPositiveAmount
	ErrPaymentAlreadyCompleted = models.ErrPaymentAlreadyCompleted
	ErrPaymentNotReady         = models.ErrPaymentNotReady
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, models.ErrInvalidAmount) ||
		errors.Is(err, models.ErrNonPositiveAmount) ||
		errors.Is(err, models.ErrInvalidBookingRef) ||
		errors.Is(err, models.ErrInvalidPaymentStatus) ||
		errors.Is(err, models.ErrUnparseableDuration) ||
		errors.Is(err, models.ErrUnknownUnit)
}
