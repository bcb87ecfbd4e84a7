package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ratewatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// Activity metrics
	trackedCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Subsystem: "activity",
			Name:      "tracked_calls_total",
			Help:      "Total number of upstream API calls recorded per platform",
		},
		[]string{"platform"},
	)

	activityLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ratewatch",
			Subsystem: "activity",
			Name:      "level",
			Help:      "Current activity level per platform (0=idle .. 4=critical)",
		},
		[]string{"platform"},
	)

	rateLimitUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ratewatch",
			Subsystem: "activity",
			Name:      "rate_limit_percent",
			Help:      "Last observed rate-limit consumption percentage per platform",
		},
		[]string{"platform"},
	)

	thresholdActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Subsystem: "activity",
			Name:      "threshold_actions_total",
			Help:      "Threshold actions taken per platform",
		},
		[]string{"platform", "action"},
	)

	// Alert metrics
	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Subsystem: "alert",
			Name:      "created_total",
			Help:      "Alerts written to the alert store",
		},
		[]string{"platform", "type", "severity"},
	)

	alertWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Subsystem: "alert",
			Name:      "write_failures_total",
			Help:      "Alert writes that failed and were dropped",
		},
	)

	// Job metrics
	jobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Subsystem: "job",
			Name:      "enqueued_total",
			Help:      "Jobs placed on the queue",
		},
		[]string{"job_type", "origin"},
	)

	jobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Subsystem: "job",
			Name:      "processed_total",
			Help:      "Jobs executed by the worker pool",
		},
		[]string{"job_type", "status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ratewatch",
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Job execution duration in seconds",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30},
		},
		[]string{"job_type"},
	)

	jobsCancelledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Subsystem: "job",
			Name:      "cancelled_total",
			Help:      "Jobs removed by emergency stop",
		},
		[]string{"platform"},
	)

	scheduledTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ratewatch",
			Subsystem: "scheduler",
			Name:      "timers",
			Help:      "Number of live (platform, job type) timers",
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		routePattern := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			routePattern = rc.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTrackedCall counts one upstream call for a platform
func RecordTrackedCall(platform string) {
	trackedCallsTotal.WithLabelValues(platform).Inc()
}

// SetActivityLevel records the current activity level ordinal for a platform
func SetActivityLevel(platform string, level int) {
	activityLevel.WithLabelValues(platform).Set(float64(level))
}

// SetRateLimitUsage records the last parsed rate-limit percentage
func SetRateLimitUsage(platform string, percent float64) {
	rateLimitUsage.WithLabelValues(platform).Set(percent)
}

// RecordThresholdAction counts a non-normal threshold action
func RecordThresholdAction(platform, action string) {
	thresholdActionsTotal.WithLabelValues(platform, action).Inc()
}

// RecordAlert counts a persisted alert
func RecordAlert(platform, alertType, severity string) {
	alertsTotal.WithLabelValues(platform, alertType, severity).Inc()
}

// RecordAlertWriteFailure counts a dropped alert
func RecordAlertWriteFailure() {
	alertWriteFailures.Inc()
}

// RecordJobEnqueued counts an enqueued job; origin is "scheduled" or "manual"
func RecordJobEnqueued(jobType, origin string) {
	jobsEnqueuedTotal.WithLabelValues(jobType, origin).Inc()
}

// RecordJobProcessed records a finished job execution
func RecordJobProcessed(jobType, status string, duration time.Duration) {
	jobsProcessedTotal.WithLabelValues(jobType, status).Inc()
	jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// RecordJobsCancelled counts jobs removed for a platform
func RecordJobsCancelled(platform string, n int) {
	jobsCancelledTotal.WithLabelValues(platform).Add(float64(n))
}

// SetScheduledTimers sets the live timer gauge
func SetScheduledTimers(n int) {
	scheduledTimers.Set(float64(n))
}
