package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts checkout, transition and review outcomes. A nil
// *OrderMetrics is valid and records nothing.
type OrderMetrics struct {
	checkouts     *prometheus.CounterVec
	ordersCreated prometheus.Counter
	droppedLines  prometheus.Counter
	transitions   *prometheus.CounterVec
	reviews       *prometheus.CounterVec
}

// NewOrderMetrics registers the order lifecycle metrics on reg.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created by checkout.",
		}),
		droppedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_dropped_lines_total",
			Help: "Cart lines dropped at checkout because the product was no longer purchasable.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions by target status and outcome.",
		}, []string{"to", "outcome"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_total",
			Help: "Review submissions by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.checkouts, m.ordersCreated, m.droppedLines, m.transitions, m.reviews)
	return m
}

// ObserveCheckout records a checkout outcome along with its created and dropped counts.
func (m *OrderMetrics) ObserveCheckout(outcome string, orders, dropped int) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.ordersCreated.Add(float64(orders))
	m.droppedLines.Add(float64(dropped))
}

func (m *OrderMetrics) ObserveTransition(to, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to), normalizeLabel(outcome)).Inc()
}

func (m *OrderMetrics) ObserveReview(outcome string) {
	if m == nil || m.reviews == nil {
		return
	}
	m.reviews.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// Outcome maps an error to a metric label: "ok" for nil, otherwise the
// lower-cased error code when one is available.
func Outcome(err error, code func(error) string) string {
	if err == nil {
		return "ok"
	}
	if code != nil {
		if c := code(err); c != "" {
			return c
		}
	}
	return "error"
}
