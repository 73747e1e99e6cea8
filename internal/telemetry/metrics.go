// Package telemetry exposes Prometheus metrics for the checkout funnel and
// order flow. Metrics answer the operational questions the logs cannot:
// where shoppers drop off, how often capture retries, what orders are worth.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the business metric collectors. All methods are safe for
// concurrent use.
type Metrics struct {
	checkoutStarted   prometheus.Counter
	checkoutStep      *prometheus.CounterVec
	checkoutCompleted prometheus.Counter

	paymentAttempts  prometheus.Counter
	paymentSucceeded prometheus.Counter
	paymentFailed    *prometheus.CounterVec

	ordersCreated    prometheus.Counter
	orderValue       prometheus.Histogram
	orderTransitions *prometheus.CounterVec
	cartLineIssues   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkoutStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesper_checkout_started_total",
			Help: "Checkout sessions started.",
		}),
		checkoutStep: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vesper_checkout_step_total",
			Help: "Checkout step advances, labeled by the step reached.",
		}, []string{"step"}),
		checkoutCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesper_checkout_completed_total",
			Help: "Checkout sessions completed with a paid order.",
		}),
		paymentAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesper_payment_attempts_total",
			Help: "Payment capture attempts.",
		}),
		paymentSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesper_payment_succeeded_total",
			Help: "Payment captures that reconciled to PAID.",
		}),
		paymentFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vesper_payment_failed_total",
			Help: "Payment capture failures, labeled declined or transient.",
		}, []string{"kind"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesper_orders_created_total",
			Help: "Orders assembled and persisted as PENDING.",
		}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vesper_order_value",
			Help:    "Order totals in the configured currency's major unit.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
		}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vesper_order_transitions_total",
			Help: "Committed order status transitions.",
		}, []string{"from", "to"}),
		cartLineIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vesper_cart_line_issues_total",
			Help: "Cart validation repairs, labeled by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.checkoutStarted,
		m.checkoutStep,
		m.checkoutCompleted,
		m.paymentAttempts,
		m.paymentSucceeded,
		m.paymentFailed,
		m.ordersCreated,
		m.orderValue,
		m.orderTransitions,
		m.cartLineIssues,
	)
	return m
}

func (m *Metrics) CheckoutStarted()          { m.checkoutStarted.Inc() }
func (m *Metrics) CheckoutStep(step string)  { m.checkoutStep.WithLabelValues(step).Inc() }
func (m *Metrics) CheckoutCompleted()        { m.checkoutCompleted.Inc() }
func (m *Metrics) PaymentAttempt()           { m.paymentAttempts.Inc() }
func (m *Metrics) PaymentSucceeded()         { m.paymentSucceeded.Inc() }
func (m *Metrics) PaymentFailed(kind string) { m.paymentFailed.WithLabelValues(kind).Inc() }

func (m *Metrics) OrderCreated(totalMajorUnits float64) {
	m.ordersCreated.Inc()
	m.orderValue.Observe(totalMajorUnits)
}

func (m *Metrics) OrderTransition(from, to string) {
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) CartLineIssue(reason string) {
	m.cartLineIssues.WithLabelValues(reason).Inc()
}
