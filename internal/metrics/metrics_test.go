package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePurchase("ok", 3)
	m.ObservePurchase("TICKETS_ALREADY_TAKEN", 2)
	m.ObserveReview("confirmed")
	m.ObserveExpired(4)
	m.SetExchangeRate(141.8843)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ticketsReserved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.purchases.WithLabelValues("TICKETS_ALREADY_TAKEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviews.WithLabelValues("confirmed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pendingExpired))
	assert.Equal(t, 141.8843, testutil.ToFloat64(m.exchangeRate))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePurchase("ok", 1)
		m.ObserveReview("failed")
		m.ObserveExpired(1)
		m.SetExchangeRate(1)
	})
}
