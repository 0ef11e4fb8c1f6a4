package metrics

import "github.com/prometheus/client_golang/prometheus"

// Checkout outcome labels.
const (
	CheckoutCompleted     = "completed"
	CheckoutEmptyCart     = "empty_cart"
	CheckoutOutOfStock    = "out_of_stock"
	CheckoutInvalidInput  = "invalid_input"
	CheckoutInternalError = "internal_error"
)

// OrderMetrics tracks checkout attempts and order lifecycle transitions.
type OrderMetrics struct {
	checkouts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	revenue     prometheus.Counter
}

// NewOrderMetrics registers order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loomline",
		Subsystem: "orders",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loomline",
		Subsystem: "orders",
		Name:      "status_transitions_total",
		Help:      "Order status transitions by target status.",
	}, []string{"to"})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loomline",
		Subsystem: "orders",
		Name:      "paid_amount_cents_total",
		Help:      "Sum of order totals marked paid, in minor currency units.",
	})
	reg.MustRegister(checkouts, transitions, revenue)
	return &OrderMetrics{
		checkouts:   checkouts,
		transitions: transitions,
		revenue:     revenue,
	}
}

// ObserveCheckout counts one checkout attempt with its outcome label.
func (o *OrderMetrics) ObserveCheckout(outcome string) {
	if o == nil || o.checkouts == nil {
		return
	}
	o.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveTransition counts one order status transition.
func (o *OrderMetrics) ObserveTransition(to string) {
	if o == nil || o.transitions == nil {
		return
	}
	o.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

// AddPaidAmount accumulates revenue for orders marked paid.
func (o *OrderMetrics) AddPaidAmount(cents int64) {
	if o == nil || o.revenue == nil || cents <= 0 {
		return
	}
	o.revenue.Add(float64(cents))
}
