package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutboxMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.Inc("offer_accepted", OutboxPublished)
	m.Inc("offer_accepted", OutboxPublished)
	m.Inc("", OutboxDeadLettered)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("offer_accepted", OutboxPublished)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("unknown", OutboxDeadLettered)))
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.Inc("offer_accepted", OutboxRetried)
	NewOutboxMetrics(nil).Inc("offer_accepted", OutboxRetried)
}
