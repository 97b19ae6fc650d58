// Package telemetry defines the operational counters exposed on /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsDistributed counts events fanned out to subscriber queues.
	EventsDistributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deckhand_events_distributed_total",
		Help: "Lifecycle events delivered to subscriber queues.",
	})

	// EventsDropped counts events discarded because a subscriber queue was full.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deckhand_events_dropped_total",
		Help: "Lifecycle events dropped for slow subscribers.",
	})

	// Subscribers tracks the number of live event subscriptions.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deckhand_event_subscribers",
		Help: "Currently connected event subscribers.",
	})

	// UpstreamReconnects counts reconnect attempts to the runtime event feed.
	UpstreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deckhand_event_upstream_reconnects_total",
		Help: "Reconnect attempts to the runtime event feed.",
	})

	// ExecSubmissions counts exec requests by outcome.
	ExecSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deckhand_exec_submissions_total",
		Help: "Exec gateway submissions by outcome.",
	}, []string{"outcome"}) // blocked, dispatched, failed, rejected

	// RefreshFailures counts inventory refresh cycles that hit a runtime error.
	RefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deckhand_inventory_refresh_failures_total",
		Help: "Inventory refresh cycles that failed against the runtime.",
	})

	// SamplesTaken counts metric samples appended across all scopes.
	SamplesTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deckhand_metric_samples_total",
		Help: "Metric samples appended across all scopes.",
	})
)
