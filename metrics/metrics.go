package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musio_recommendations_served_total",
			Help: "Total number of recommendation requests served",
		},
		[]string{"mode"}, // "trending", "genre", "similar", "default"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "musio_recommendation_duration_seconds",
			Help:    "Time spent scoring a catalog snapshot",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "musio_recommendation_candidates",
			Help:    "Number of candidates returned per request",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		},
	)

	// Player Metrics
	PlayerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musio_player_transitions_total",
			Help: "Total number of player transitions by operation",
		},
		[]string{"operation"},
	)

	PlayerSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "musio_player_sessions_active",
			Help: "Current number of live player sessions",
		},
	)

	SleepTimersFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "musio_sleep_timers_fired_total",
			Help: "Total number of sleep timers that stopped playback",
		},
	)

	// Media session websocket
	MediaSessionClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "musio_media_session_clients",
			Help: "Current number of connected media-session clients",
		},
	)

	MediaSessionDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "musio_media_session_dropped_total",
			Help: "Now-playing updates dropped because a client was not keeping up",
		},
	)

	// Storage
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musio_uploads_total",
			Help: "Total number of object uploads by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: song, song_cover, playlist_cover
	)

	StorageBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "musio_storage_breaker_state",
			Help: "Storage circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	IngestedFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musio_ingested_files_total",
			Help: "Files picked up from the drop folder by outcome",
		},
		[]string{"outcome"},
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "musio_api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRecommendation records one served recommendation request.
func RecordRecommendation(mode string, candidates int, duration time.Duration) {
	RecommendationsServed.WithLabelValues(mode).Inc()
	RecommendationDuration.WithLabelValues(mode).Observe(duration.Seconds())
	RecommendationCandidates.Observe(float64(candidates))
}

// RecordUpload records an object upload attempt.
func RecordUpload(kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	UploadsTotal.WithLabelValues(kind, outcome).Inc()
}

// TrackMediaSessionClient adjusts the connected client gauge.
func TrackMediaSessionClient(inc bool) {
	if inc {
		MediaSessionClients.Inc()
	} else {
		MediaSessionClients.Dec()
	}
}
