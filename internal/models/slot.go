package models

import (
	"fmt"
	"time"
)

type SlotStatus int

const (
	SlotAvailable SlotStatus = iota
	SlotOccupied
	SlotReserved
	SlotMaintenance
)

var slotStatusNames = map[SlotStatus]string{
	SlotAvailable:   "AVAILABLE",
	SlotOccupied:    "OCCUPIED",
	SlotReserved:    "RESERVED",
	SlotMaintenance: "MAINTENANCE",
}

func (s SlotStatus) String() string {
	if name, ok := slotStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SlotStatus(%d)", int(s))
}

func (s SlotStatus) Valid() bool {
	_, ok := slotStatusNames[s]
	return ok
}

type ParkingSlot struct {
	ID         int64      `json:"id" yaml:"id"`
	SlotNumber string     `json:"slot_number" yaml:"slot_number"`
	Status     SlotStatus `json:"status" yaml:"status"`
	UserID     *int64     `json:"user_id,omitempty" yaml:"-"`
	SlotType   string     `json:"slot_type" yaml:"slot_type"`
	Zone       string     `json:"zone" yaml:"zone"`
	CreatedAt  time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"-"`
}

// HasOccupant reports whether the slot status requires an occupant.
func (s SlotStatus) HasOccupant() bool {
	return s == SlotOccupied || s == SlotReserved
}
