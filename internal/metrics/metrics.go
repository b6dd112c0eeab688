// Package metrics provides Prometheus collectors for the JMRH portal.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jmrh"

// Metrics holds all portal collectors.
// A nil *Metrics is valid; every Record method is then a no-op.
type Metrics struct {
	// Store
	StoreMutations  *prometheus.CounterVec
	PersistDuration prometheus.Histogram
	PersistFailures prometheus.Counter
	StoreUsers      prometheus.Gauge
	StorePapers     *prometheus.GaugeVec
	SnapshotReloads *prometheus.CounterVec
	LastReloadTime  prometheus.Gauge

	// Access policy and lifecycle
	AccessDecisions    *prometheus.CounterVec
	FlaggedTransitions *prometheus.CounterVec

	// Storage
	SignedURLs        *prometheus.CounterVec
	SignedURLFailures prometheus.Counter

	// Events
	EventsPublished *prometheus.CounterVec

	// HTTP
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StoreMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Store mutations by operation and result.",
		}, []string{"op", "result"}),
		PersistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_duration_seconds",
			Help:      "Time spent writing the state snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_failures_total",
			Help:      "Snapshot writes that failed.",
		}),
		StoreUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "users",
			Help:      "Number of registered users.",
		}),
		StorePapers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "papers",
			Help:      "Number of papers by status.",
		}, []string{"status"}),
		SnapshotReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "reloads_total",
			Help:      "Snapshot reloads by result.",
		}, []string{"result"}),
		LastReloadTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "last_reload_timestamp_seconds",
			Help:      "Unix time of the last successful snapshot reload.",
		}),
		AccessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Route guard outcomes.",
		}, []string{"outcome"}),
		FlaggedTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "flagged_transitions_total",
			Help:      "Status changes applied although the lifecycle table does not allow them.",
		}, []string{"from", "to"}),
		SignedURLs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "signed_urls_total",
			Help:      "Resolved manuscript URLs by source.",
		}, []string{"source"}),
		SignedURLFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "signed_url_failures_total",
			Help:      "Presign calls that failed.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published by topic and result.",
		}, []string{"topic", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.StoreMutations,
			m.PersistDuration,
			m.PersistFailures,
			m.StoreUsers,
			m.StorePapers,
			m.SnapshotReloads,
			m.LastReloadTime,
			m.AccessDecisions,
			m.FlaggedTransitions,
			m.SignedURLs,
			m.SignedURLFailures,
			m.EventsPublished,
			m.HTTPRequests,
			m.HTTPRequestDuration,
		)
	}

	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordMutation counts a store mutation.
func (m *Metrics) RecordMutation(op string, err error) {
	if m == nil {
		return
	}
	m.StoreMutations.WithLabelValues(op, result(err)).Inc()
}

// RecordPersist records a snapshot write.
func (m *Metrics) RecordPersist(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(d.Seconds())
	if err != nil {
		m.PersistFailures.Inc()
	}
}

// RecordReload records a snapshot reload.
func (m *Metrics) RecordReload(err error) {
	if m == nil {
		return
	}
	m.SnapshotReloads.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.LastReloadTime.SetToCurrentTime()
	}
}

// SetCounts publishes the number of users and the papers per status.
func (m *Metrics) SetCounts(users int, papersByStatus map[string]int) {
	if m == nil {
		return
	}
	m.StoreUsers.Set(float64(users))
	m.StorePapers.Reset()
	for status, n := range papersByStatus {
		m.StorePapers.WithLabelValues(status).Set(float64(n))
	}
}

// RecordDecision counts a route guard outcome.
func (m *Metrics) RecordDecision(outcome string) {
	if m == nil {
		return
	}
	m.AccessDecisions.WithLabelValues(outcome).Inc()
}

// RecordFlaggedTransition counts an illegal transition applied in permissive mode.
func (m *Metrics) RecordFlaggedTransition(from, to string) {
	if m == nil {
		return
	}
	m.FlaggedTransitions.WithLabelValues(from, to).Inc()
}

// RecordSignedURL counts a resolved URL. source is "passthrough", "cache" or "presign".
func (m *Metrics) RecordSignedURL(source string) {
	if m == nil {
		return
	}
	m.SignedURLs.WithLabelValues(source).Inc()
}

// RecordSignedURLFailure counts a failed presign.
func (m *Metrics) RecordSignedURLFailure() {
	if m == nil {
		return
	}
	m.SignedURLFailures.Inc()
}

// RecordEvent counts a published domain event.
func (m *Metrics) RecordEvent(topic string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(topic, result(err)).Inc()
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}
