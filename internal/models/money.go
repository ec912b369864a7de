package models

import (
	"fmt"
	"math"
)

// Cents is an amount of money in the smallest currency unit.
type Cents int64

// FromDollars converts a decimal amount, rounding to the nearest cent.
func FromDollars(d float64) Cents {
	return Cents(math.Round(d * 100))
}

func (c Cents) Dollars() float64 {
	return float64(c) / 100
}

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}
