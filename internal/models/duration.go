package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnparseableDuration = errors.New("unparseable duration label")
	ErrUnknownUnit         = errors.New("unknown duration unit")
)

// DurationLabels is the fixed set of labels offered when booking.
var DurationLabels = []string{
	"30 Minutes",
	"1 Hour",
	"2 Hours",
	"3 Hours",
	"4 Hours",
	"6 Hours",
	"12 Hours",
	"1 Day",
	"2 Days",
	"3 Days",
	"1 Week",
}

var durationLabelRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-z]+)$`)

var unitHours = []struct {
	keyword string
	hours   float64
}{
	{"minute", 1.0 / 60},
	{"hour", 1},
	{"day", 24},
	{"week", 168},
}

// Duration is a parsed duration label.
type Duration struct {
	Label string
	Hours float64
}

func (d Duration) Std() time.Duration {
	return time.Duration(d.Hours * float64(time.Hour))
}

// ParseDuration turns a label like "2 Hours" or "1 Week" into hours.
func ParseDuration(label string) (Duration, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	m := durationLabelRe.FindStringSubmatch(normalized)
	if m == nil {
		return Duration{}, fmt.Errorf("%w: %q", ErrUnparseableDuration, label)
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %q", ErrUnparseableDuration, label)
	}

	for _, u := range unitHours {
		if strings.Contains(m[2], u.keyword) {
			return Duration{Label: label, Hours: n * u.hours}, nil
		}
	}
	return Duration{}, fmt.Errorf("%w: %q", ErrUnknownUnit, m[2])
}

// HoursOrZero is the lenient form: anything unrecognized counts as zero hours.
func HoursOrZero(label string) float64 {
	d, err := ParseDuration(label)
	if err != nil {
		return 0
	}
	return d.Hours
}

// IsKnownDurationLabel reports whether label is one of DurationLabels (case-insensitive).
func IsKnownDurationLabel(label string) bool {
	for _, l := range DurationLabels {
		if strings.EqualFold(strings.TrimSpace(label), l) {
			return true
		}
	}
	return false
}
