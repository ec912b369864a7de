// Package pricing turns duration labels and vehicle categories into amounts.
package pricing

import (
	"math"
	"strings"

	"parkdesk/internal/models"
)

// DefaultRates are hourly rates per vehicle category.
var DefaultRates = map[string]models.Cents{
	models.CategoryCar:        500,
	models.CategoryMotorcycle: 300,
	models.CategoryTruck:      800,
	models.CategoryVan:        600,
}

type RateTable struct {
	rates    map[string]models.Cents
	fallback models.Cents
}

// NewRateTable merges overrides (category -> dollars per hour) on top of DefaultRates.
func NewRateTable(overrides map[string]float64) *RateTable {
	rates := make(map[string]models.Cents, len(DefaultRates)+len(overrides))
	for k, v := range DefaultRates {
		rates[k] = v
	}
	for k, v := range overrides {
		if v < 0 {
			continue
		}
		rates[normalizeCategory(k)] = models.FromDollars(v)
	}
	return &RateTable{rates: rates, fallback: rates[models.CategoryCar]}
}

// HourlyRate returns the rate for category, the car rate when unknown.
func (t *RateTable) HourlyRate(category string) models.Cents {
	if r, ok := t.rates[normalizeCategory(category)]; ok {
		return r
	}
	return t.fallback
}

type Quote struct {
	Duration   string       `json:"duration"`
	Category   string       `json:"category"`
	Hours      float64      `json:"hours"`
	HourlyRate models.Cents `json:"hourly_rate"`
	Amount     models.Cents `json:"amount"`
}

// Quote prices a booking strictly: an unparseable label is an error.
func (t *RateTable) Quote(label, category string) (Quote, error) {
	d, err := models.ParseDuration(label)
	if err != nil {
		return Quote{}, err
	}
	return t.quote(label, category, d.Hours), nil
}

// QuoteOrZero keeps the lenient behaviour: unknown labels price at zero hours.
func (t *RateTable) QuoteOrZero(label, category string) Quote {
	return t.quote(label, category, models.HoursOrZero(label))
}

func (t *RateTable) quote(label, category string, hours float64) Quote {
	rate := t.HourlyRate(category)
	return Quote{
		Duration:   label,
		Category:   category,
		Hours:      hours,
		HourlyRate: rate,
		Amount:     models.Cents(math.Round(hours * float64(rate))),
	}
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
