package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fallback reasons recorded when a profile view is synthesized.
const (
	FallbackNotFound = "not_found"
	FallbackError    = "error"
)

// FeedMetrics records feed assembly and profile resolution outcomes.
type FeedMetrics struct {
	loadDuration *prometheus.HistogramVec
	posts        *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec
}

// NewFeedMetrics registers the feed metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	if reg == nil {
		return &FeedMetrics{}
	}
	loadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_load_duration_seconds",
		Help:    "Duration of feed loads in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	posts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_posts_total",
		Help: "Posts written to the record store, by action.",
	}, []string{"action"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_fallback_total",
		Help: "Profile views synthesized from a bare identity key.",
	}, []string{"reason"})
	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "record_store_errors_total",
		Help: "Record store operations that failed, by operation.",
	}, []string{"op"})
	reg.MustRegister(loadDuration, posts, fallbacks, storeErrors)
	return &FeedMetrics{
		loadDuration: loadDuration,
		posts:        posts,
		fallbacks:    fallbacks,
		storeErrors:  storeErrors,
	}
}

// ObserveLoad records how long a feed load took and whether it succeeded.
func (m *FeedMetrics) ObserveLoad(duration time.Duration, err error) {
	if m == nil || m.loadDuration == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.loadDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncPosts counts a post write such as "created" or "deactivated".
func (m *FeedMetrics) IncPosts(action string) {
	if m == nil || m.posts == nil {
		return
	}
	m.posts.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncFallback counts a synthesized profile view.
func (m *FeedMetrics) IncFallback(reason string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncStoreError counts a failed record store operation.
func (m *FeedMetrics) IncStoreError(op string) {
	if m == nil || m.storeErrors == nil {
		return
	}
	m.storeErrors.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
