package database

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrSlotUnavailable   = errors.New("parking slot is not available")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrAlreadyArrived    = errors.New("arrival already recorded")
	ErrNotActive         = errors.New("booking is not active")
	ErrDuplicate         = errors.New("record already exists")
)
