package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contentsite"

// Metrics groups the collectors shared by the cache and loader layers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PageCache      *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	LoadAttempts   *prometheus.CounterVec
	SectionUpdates *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "page_cache",
			Name:      "events_total",
			Help:      "Page cache events by kind (hit, miss, stale, invalidate, canceled, error).",
		}, []string{"event"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of outbound API fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		LoadAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "attempts_total",
			Help:      "List load attempts by resource and outcome.",
		}, []string{"resource", "outcome"}),
		SectionUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "section_updates_total",
			Help:      "Site content section updates by section and outcome.",
		}, []string{"section", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.PageCache, m.FetchDuration, m.LoadAttempts, m.SectionUpdates)
	}
	return m
}

func (m *Metrics) CacheEvent(event string) {
	if m == nil {
		return
	}
	m.PageCache.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveFetch(resource string, seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(resource).Observe(seconds)
}

func (m *Metrics) LoadAttempt(resource, outcome string) {
	if m == nil {
		return
	}
	m.LoadAttempts.WithLabelValues(resource, outcome).Inc()
}

func (m *Metrics) SectionUpdate(section, outcome string) {
	if m == nil {
		return
	}
	m.SectionUpdates.WithLabelValues(section, outcome).Inc()
}
