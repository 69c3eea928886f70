package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics is safe to use through a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	gatherer         prometheus.Gatherer
	salesTotal       prometheus.Counter
	revenueTotal     prometheus.Counter
	returnsTotal     prometheus.Counter
	refundedTotal    prometheus.Counter
	alertsRaised     *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
}

// New registers the POS collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		gatherer: reg,
		salesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sales_total",
			Help: "Completed sales.",
		}),
		revenueTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sales_revenue_total",
			Help: "Sum of completed sale totals.",
		}),
		returnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_returns_total",
			Help: "Processed return invoices.",
		}),
		refundedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_returns_refunded_total",
			Help: "Sum of refunded amounts.",
		}),
		alertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_alerts_raised_total",
			Help: "Inventory alerts raised by type.",
		}, []string{"type"}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_checkout_failures_total",
			Help: "Rejected checkouts by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.salesTotal, m.revenueTotal, m.returnsTotal, m.refundedTotal, m.alertsRaised, m.checkoutFailures)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) SaleCompleted(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.salesTotal.Inc()
	m.revenueTotal.Add(total.InexactFloat64())
}

func (m *Metrics) ReturnProcessed(refund decimal.Decimal) {
	if m == nil {
		return
	}
	m.returnsTotal.Inc()
	m.refundedTotal.Add(refund.InexactFloat64())
}

func (m *Metrics) AlertRaised(alertType string) {
	if m == nil {
		return
	}
	m.alertsRaised.WithLabelValues(alertType).Inc()
}

func (m *Metrics) CheckoutFailed(reason string) {
	if m == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(reason).Inc()
}
