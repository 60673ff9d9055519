package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sst_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sst_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	documentsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sst_documents_rendered_total",
			Help: "Documents rendered by profile and outcome",
		},
		[]string{"profile", "status"},
	)

	documentRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sst_document_render_duration_seconds",
			Help:    "Document render duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"profile"},
	)

	documentPages = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sst_document_pages",
			Help:    "Pages per rendered document",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
		[]string{"profile"},
	)

	stampsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sst_signature_stamps_total",
			Help: "Signature stamping attempts by outcome",
		},
		[]string{"status"},
	)

	requestTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sst_signature_request_transitions_total",
			Help: "Signature request state transitions",
		},
		[]string{"status"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sst_notifications_total",
			Help: "In-app notifications by outcome",
		},
		[]string{"status"},
	)

	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sst_notification_emails_total",
			Help: "Notification emails by transport and outcome",
		},
		[]string{"transport", "status"},
	)

	workerJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sst_worker_jobs_total",
			Help: "Queue jobs handled by cmd/worker, by outcome",
		},
		[]string{"status"},
	)

	emailQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sst_notification_email_queue_depth",
		Help: "Emails waiting for a dispatcher worker",
	})
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveRender records one render attempt.
func ObserveRender(profile string, pages int, elapsed time.Duration, err error) {
	if err != nil {
		documentsRenderedTotal.WithLabelValues(profile, "error").Inc()
		return
	}
	documentsRenderedTotal.WithLabelValues(profile, "ok").Inc()
	documentRenderDuration.WithLabelValues(profile).Observe(elapsed.Seconds())
	documentPages.WithLabelValues(profile).Observe(float64(pages))
}

// IncStamp records one stamping attempt.
func IncStamp(err error) {
	stampsTotal.WithLabelValues(outcome(err)).Inc()
}

// IncTransition records a request moving to status.
func IncTransition(status string) {
	requestTransitionsTotal.WithLabelValues(status).Inc()
}

// IncNotification records one in-app notification write.
func IncNotification(err error) {
	notificationsTotal.WithLabelValues(outcome(err)).Inc()
}

// IncEmail records one email delivery attempt.
func IncEmail(transport string, status string) {
	emailsTotal.WithLabelValues(transport, status).Inc()
}

// SetEmailQueueDepth reports the number of queued emails.
func SetEmailQueueDepth(n int) {
	emailQueueDepth.Set(float64(n))
}

// IncWorkerJob records one queue job outcome: received, completed, failed or discarded.
func IncWorkerJob(status string) {
	workerJobsTotal.WithLabelValues(status).Inc()
}

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
