package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Trade analysis metrics
	TradesAnalyzed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderdetector_trades_total",
			Help: "Total number of trades seen by the analyzer",
		},
		[]string{"outcome"}, // sports_filtered, analyzed, invalid
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insiderdetector_analysis_duration_seconds",
			Help:    "Duration of one analysis pass",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
		},
		[]string{"source"}, // poll, stream, dashboard
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderdetector_runs_total",
			Help: "Total number of analysis runs",
		},
		[]string{"source", "status"},
	)

	// Alert metrics
	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderdetector_alerts_generated_total",
			Help: "Total number of alerts generated",
		},
		[]string{"level"}, // CRITICAL, HIGH, MEDIUM
	)

	AlertScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insiderdetector_alert_scores",
			Help:    "Distribution of alert scores",
			Buckets: []float64{50, 60, 75, 90, 100, 125, 150, 200},
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderdetector_notifications_total",
			Help: "Total number of notification attempts per channel",
		},
		[]string{"channel", "status"}, // delivered, failed, not_configured
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insiderdetector_notification_duration_seconds",
			Help:    "Duration of notification delivery per channel",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	// API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderdetector_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"api", "endpoint", "status"}, // data/gamma, /trades, success/error
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insiderdetector_api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api", "endpoint"},
	)

	// State store metrics
	StoreQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderdetector_store_queries_total",
			Help: "Total number of state store queries",
		},
		[]string{"backend", "operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insiderdetector_store_query_duration_seconds",
			Help:    "Duration of state store queries",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	// Stream metrics
	StreamMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderdetector_stream_messages_total",
			Help: "Total number of stream messages received",
		},
		[]string{"result"}, // trade, ignored, invalid
	)

	StreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insiderdetector_stream_reconnects_total",
			Help: "Total number of stream reconnect attempts",
		},
	)

	StreamFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insiderdetector_stream_flushes_total",
			Help: "Total number of stream buffer flushes",
		},
	)

	StreamConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insiderdetector_stream_connected",
			Help: "1 while the stream connection is open",
		},
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insiderdetector_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"}, // healthy/unhealthy
	)
)

// RecordAnalysis records one analysis pass
func RecordAnalysis(source string, duration time.Duration, sportsFiltered, analyzed int) {
	TradesAnalyzed.WithLabelValues("sports_filtered").Add(float64(sportsFiltered))
	TradesAnalyzed.WithLabelValues("analyzed").Add(float64(analyzed))
	AnalysisDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordRejectedTrades counts trades dropped by shape validation
func RecordRejectedTrades(n int) {
	TradesAnalyzed.WithLabelValues("invalid").Add(float64(n))
}

// RecordRun records the outcome of a poll, stream or dashboard run
func RecordRun(source string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	Runs.WithLabelValues(source, status).Inc()
}

// RecordAlert records an alert and its score
func RecordAlert(level string, score int) {
	AlertsGenerated.WithLabelValues(level).Inc()
	AlertScores.Observe(float64(score))
}

// RecordNotification records one channel delivery attempt
func RecordNotification(channel, status string, duration time.Duration) {
	NotificationsSent.WithLabelValues(channel, status).Inc()
	if status != "not_configured" {
		NotificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
	}
}

// RecordAPIRequest records API request metrics
func RecordAPIRequest(api, endpoint string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	APIRequests.WithLabelValues(api, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

// RecordStoreQuery records state store query metrics
func RecordStoreQuery(backend, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreQueries.WithLabelValues(backend, operation, status).Inc()
	StoreQueryDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordStreamMessage records a received stream message
func RecordStreamMessage(result string) {
	StreamMessages.WithLabelValues(result).Inc()
}

// RecordStreamReconnect records a reconnect attempt
func RecordStreamReconnect() {
	StreamReconnects.Inc()
}

// RecordStreamFlush records a buffer flush
func RecordStreamFlush() {
	StreamFlushes.Inc()
}

// SetStreamConnected flips the connection gauge
func SetStreamConnected(connected bool) {
	if connected {
		StreamConnected.Set(1)
		return
	}
	StreamConnected.Set(0)
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
