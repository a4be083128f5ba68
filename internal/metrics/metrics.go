package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmsched_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmsched_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pmsched_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmsched_runs_total",
			Help: "Total number of schedule generation runs",
		},
		[]string{"status"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pmsched_run_duration_seconds",
			Help:    "Schedule generation run time in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	entriesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmsched_entries_created_total",
			Help: "Total number of schedule entries created",
		},
	)

	candidatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmsched_candidates_skipped_total",
			Help: "Candidates skipped during generation, by reason",
		},
		[]string{"reason"},
	)

	overflowCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmsched_overflow_candidates_total",
			Help: "Eligible candidates cut by the weekly target",
		},
	)

	completionsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmsched_completions_recorded_total",
			Help: "Completion records entered",
		},
	)

	archiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmsched_archive_writes_total",
			Help: "Schedule snapshot archive writes",
		},
		[]string{"status"},
	)

	webhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmsched_webhook_deliveries_total",
			Help: "Webhook delivery attempts",
		},
		[]string{"status"},
	)

	eventsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pmsched_events_clients",
			Help: "Number of connected event stream clients",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func IncrementInFlight() {
	httpRequestsInFlight.Inc()
}

func DecrementInFlight() {
	httpRequestsInFlight.Dec()
}

func RecordRun(status string, created int, duration time.Duration) {
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(duration.Seconds())
	entriesCreated.Add(float64(created))
}

func RecordSkips(skipped map[string]int) {
	for reason, n := range skipped {
		candidatesSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

func RecordOverflow(n int) {
	overflowCandidates.Add(float64(n))
}

func RecordCompletion() {
	completionsRecorded.Inc()
}

func RecordArchiveWrite(err error) {
	if err != nil {
		archiveWrites.WithLabelValues("error").Inc()
		return
	}
	archiveWrites.WithLabelValues("ok").Inc()
}

func RecordWebhookDelivery(status string) {
	webhookDeliveries.WithLabelValues(status).Inc()
}

func UpdateEventClients(n int) {
	eventsClients.Set(float64(n))
}
