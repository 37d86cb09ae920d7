// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	Holds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_holds_total",
			Help: "Hold lifecycle transitions",
		},
		[]string{"outcome"},
	)

	HeldUnits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_held_units_total",
			Help: "Ticket units reserved by holds",
		},
	)

	ReleasedUnits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_released_units_total",
			Help: "Ticket units returned to sale by cancelled or expired holds",
		},
	)

	TicketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_tickets_issued_total",
			Help: "Tickets issued at checkout",
		},
	)

	CheckIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_checkins_total",
			Help: "Ticket scans by result",
		},
		[]string{"result"},
	)

	AdEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_ad_events_total",
			Help: "Ad impressions and clicks",
		},
		[]string{"kind"},
	)

	WorkerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_worker_runs_total",
			Help: "Background worker runs by worker and status",
		},
		[]string{"worker", "status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_cache_lookups_total",
			Help: "Read-through cache lookups by keyspace and result",
		},
		[]string{"keyspace", "result"},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventhub_live_subscribers",
			Help: "Open availability streams",
		},
	)
)

// Hold outcomes.
const (
	HoldCreated   = "created"
	HoldConfirmed = "confirmed"
	HoldCancelled = "cancelled"
	HoldRejected  = "rejected"
	HoldExpired   = "expired"
)
