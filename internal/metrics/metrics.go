// Package metrics holds the Prometheus instruments for rating, like, aggregate,
// recommendation, cache and HTTP activity.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	ResultOK         = "ok"
	ResultError      = "error"
	ResultRejected   = "rejected"
	ResultDuplicate  = "duplicate"
	ResultRegistered = "registered"

	TargetMedia = "media"
	TargetUser  = "user"

	ModePersonalized = "personalized"
	ModeFallback     = "fallback"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	RatingMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_mutations_total",
			Help: "Rating create, update, delete and confirm calls by outcome",
		},
		[]string{"op", "result"},
	)

	RatingLikes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_likes_total",
			Help: "Like requests by outcome",
		},
		[]string{"result"},
	)

	AggregateRecomputeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregate_recompute_failures_total",
			Help: "Failed recomputations of derived rating statistics",
		},
		[]string{"target"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time spent computing a recommendation list",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRatingMutation counts one rating mutation. Expected rejections are counted
// apart from store failures.
func RecordRatingMutation(op string, err error, internal bool) {
	result := ResultOK
	switch {
	case err != nil && internal:
		result = ResultError
	case err != nil:
		result = ResultRejected
	}
	RatingMutations.WithLabelValues(op, result).Inc()
}

// RecordRecommendation observes the duration of one recommendation computation.
func RecordRecommendation(mode string, started time.Time) {
	RecommendationDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

// RecordHTTPRequest observes one served request.
func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
