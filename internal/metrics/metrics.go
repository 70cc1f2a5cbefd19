// Package metrics exposes chronicle counters in Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chronicle/internal/models"
)

const namespace = "chronicle"

type Collectors struct {
	registry *prometheus.Registry

	webhooks      *prometheus.CounterVec
	eventsCreated *prometheus.CounterVec
	syncRuns      *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	streamClients prometheus.Gauge
}

// New builds a private registry holding the chronicle collectors plus the
// standard process and Go runtime collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Inbound webhook deliveries by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		eventsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_created_total",
				Help:      "Timeline events created by source and category.",
			},
			[]string{"source", "category"},
		),
		syncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Polling sync runs by scope and result.",
			},
			[]string{"scope", "result"},
		),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of polling sync runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected live timeline clients.",
		}),
	}
	c.registry.MustRegister(
		c.webhooks,
		c.eventsCreated,
		c.syncRuns,
		c.syncDuration,
		c.streamClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collectors) WebhookReceived(source, outcome string) {
	if c == nil {
		return
	}
	c.webhooks.WithLabelValues(source, outcome).Inc()
}

// EventCreated satisfies the materializer listener contract.
func (c *Collectors) EventCreated(_ context.Context, event models.Event) {
	if c == nil {
		return
	}
	c.eventsCreated.WithLabelValues(event.Source, event.Category).Inc()
}

func (c *Collectors) SyncFinished(scope string, started time.Time, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.syncRuns.WithLabelValues(scope, result).Inc()
	c.syncDuration.Observe(time.Since(started).Seconds())
}

func (c *Collectors) StreamClients(n int) {
	if c == nil {
		return
	}
	c.streamClients.Set(float64(n))
}
