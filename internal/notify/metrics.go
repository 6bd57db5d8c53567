package notify

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	jobsEnqueuedTotal  *prometheus.CounterVec
	jobsDeliveredTotal *prometheus.CounterVec
	jobsFailedTotal    *prometheus.CounterVec
	deliveryDuration   *prometheus.HistogramVec
)

// RegisterMetrics registra las métricas del pipeline de notificaciones.
// Idempotente; con registry nil usa el default.
func RegisterMetrics(registry prometheus.Registerer) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	metricsOnce.Do(func() {
		jobsEnqueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_jobs_enqueued_total",
			Help: "Jobs de notificación publicados en la cola",
		}, []string{"kind"})

		jobsDeliveredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_jobs_delivered_total",
			Help: "Jobs de notificación entregados por SMTP",
		}, []string{"kind"})

		jobsFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_jobs_failed_total",
			Help: "Jobs de notificación fallados, por resultado (retry|dropped)",
		}, []string{"kind", "result"})

		deliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notify_delivery_duration_seconds",
			Help:    "Duración del envío SMTP por tipo de job",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"})

		registry.MustRegister(jobsEnqueuedTotal, jobsDeliveredTotal, jobsFailedTotal, deliveryDuration)
	})
}

func incEnqueued(kind JobKind) {
	if jobsEnqueuedTotal != nil {
		jobsEnqueuedTotal.WithLabelValues(string(kind)).Inc()
	}
}

func incDelivered(kind JobKind) {
	if jobsDeliveredTotal != nil {
		jobsDeliveredTotal.WithLabelValues(string(kind)).Inc()
	}
}

func incFailed(kind JobKind, result string) {
	if jobsFailedTotal != nil {
		jobsFailedTotal.WithLabelValues(string(kind), result).Inc()
	}
}

func observeDelivery(kind JobKind, seconds float64) {
	if deliveryDuration != nil {
		deliveryDuration.WithLabelValues(string(kind)).Observe(seconds)
	}
}
