package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		ObserveHTTP("/api/v1/bookings", 201, 15*time.Millisecond)
		IncBooking("create", "ok")
		IncPayment("paid")
		IncNotification("telegram", "sent")
	})

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"parkdesk_http_requests_total",
		"parkdesk_http_request_duration_seconds",
		"parkdesk_bookings_total",
		"parkdesk_payments_applied_total",
		"parkdesk_notifications_total",
	} {
		assert.True(t, names[want], want)
	}
}
