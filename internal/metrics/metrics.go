// Package metrics exposes Prometheus collectors for ticket sales and reviews.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ticketsReserved prometheus.Counter
	purchases       *prometheus.CounterVec
	reviews         *prometheus.CounterVec
	pendingExpired  prometheus.Counter
	exchangeRate    prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticketsReserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raffle",
			Name:      "tickets_reserved_total",
			Help:      "Ticket numbers reserved by successful purchases.",
		}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raffle",
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"outcome"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raffle",
			Name:      "payment_reviews_total",
			Help:      "Payment review transitions by resulting status.",
		}, []string{"status"}),
		pendingExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raffle",
			Name:      "pending_tickets_expired_total",
			Help:      "Pending tickets failed by the expiry policy.",
		}),
		exchangeRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raffle",
			Name:      "exchange_rate_usd_local",
			Help:      "USD to local currency rate in effect.",
		}),
	}
	reg.MustRegister(m.ticketsReserved, m.purchases, m.reviews, m.pendingExpired, m.exchangeRate)
	return m
}

// ObservePurchase records a purchase attempt; outcome is "ok" or an error kind
func (m *Metrics) ObservePurchase(outcome string, tickets int) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.ticketsReserved.Add(float64(tickets))
	}
}

// ObserveReview records a pending ticket reaching status
func (m *Metrics) ObserveReview(status string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(status).Inc()
}

// ObserveExpired records tickets failed by the expiry job
func (m *Metrics) ObserveExpired(n int) {
	if m == nil {
		return
	}
	m.pendingExpired.Add(float64(n))
}

// SetExchangeRate publishes the current rate
func (m *Metrics) SetExchangeRate(rate float64) {
	if m == nil {
		return
	}
	m.exchangeRate.Set(rate)
}
