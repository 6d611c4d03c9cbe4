// Package metrics exposes marketplace counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	OrdersCreated    *prometheus.CounterVec
	CheckoutFailures *prometheus.CounterVec
	StatusUpdates    *prometheus.CounterVec
	GrossValue       prometheus.Counter
	Commission       prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dojo",
			Name:      "orders_created_total",
			Help:      "Orders created by checkout, one per seller group.",
		}, []string{"seller_id"}),
		CheckoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dojo",
			Name:      "checkout_failures_total",
			Help:      "Rejected checkouts by error kind.",
		}, []string{"kind"}),
		StatusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dojo",
			Name:      "order_status_updates_total",
			Help:      "Order status updates by resulting status.",
		}, []string{"status"}),
		GrossValue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dojo",
			Name:      "gross_merchandise_value",
			Help:      "Sum of order totals.",
		}),
		Commission: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dojo",
			Name:      "commission_total",
			Help:      "Sum of platform commission.",
		}),
	}
	m.registry.MustRegister(
		m.OrdersCreated, m.CheckoutFailures, m.StatusUpdates, m.GrossValue, m.Commission,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderCreated(o models.Order) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(o.SellerID).Inc()
	total, _ := o.TotalAmount.Float64()
	commission, _ := o.CommissionAmount.Float64()
	m.GrossValue.Add(total)
	m.Commission.Add(commission)
}

func (m *Metrics) CheckoutFailed(kind string) {
	if m == nil {
		return
	}
	m.CheckoutFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) StatusUpdated(status models.OrderStatus) {
	if m == nil {
		return
	}
	m.StatusUpdates.WithLabelValues(string(status)).Inc()
}
