// Package metrics exposes kitchen loop counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YelzhanWeb/kds/internal/interfaces"
)

const namespace = "kds"

type Collector struct {
	registry *prometheus.Registry

	pulls         *prometheus.CounterVec
	pulledOrders  prometheus.Gauge
	pushEvents    *prometheus.CounterVec
	orphanPatches prometheus.Counter
	transitions   *prometheus.CounterVec
	arrivals      prometheus.Counter
	activeOrders  prometheus.Gauge
	stale         prometheus.Gauge
	httpRequests  *prometheus.HistogramVec
}

var _ interfaces.Metrics = (*Collector)(nil)

// New registers every collector on a private registry, plus the Go and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		pulls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pulls_total",
			Help:      "Kitchen snapshot pulls by outcome",
		}, []string{"outcome"}),
		pulledOrders: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pulled_orders",
			Help:      "Orders in the last successful pull",
		}),
		pushEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push events received by kind",
		}, []string{"kind"}),
		orphanPatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_patches_total",
			Help:      "Detail patches dropped because no line item matched",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Completed status transitions by target and outcome",
		}, []string{"target", "outcome"}),
		arrivals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arrival_notifications_total",
			Help:      "Arrival notifications emitted",
		}),
		activeOrders: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_orders",
			Help:      "Orders on the kitchen board",
		}),
		stale: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "board_stale",
			Help:      "1 while the staleness alarm is raised",
		}),
		httpRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP view request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (c *Collector) PullCompleted(ok bool, orders int) {
	if ok {
		c.pulls.WithLabelValues("ok").Inc()
		c.pulledOrders.Set(float64(orders))
		return
	}
	c.pulls.WithLabelValues("error").Inc()
}

func (c *Collector) PushReceived(kind string) {
	c.pushEvents.WithLabelValues(kind).Inc()
}

func (c *Collector) OrphanPatch() {
	c.orphanPatches.Inc()
}

func (c *Collector) TransitionCompleted(target string, ok bool) {
	outcome := "confirmed"
	if !ok {
		outcome = "rolled_back"
	}
	c.transitions.WithLabelValues(target, outcome).Inc()
}

func (c *Collector) ArrivalNotified(count int) {
	c.arrivals.Inc()
}

func (c *Collector) BoardChanged(active int, stale bool) {
	c.activeOrders.Set(float64(active))
	if stale {
		c.stale.Set(1)
	} else {
		c.stale.Set(0)
	}
}

// ObserveHTTP records one HTTP view request.
func (c *Collector) ObserveHTTP(method, route, status string, seconds float64) {
	c.httpRequests.WithLabelValues(method, route, status).Observe(seconds)
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
