package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - счётчики обработки work item'ов.
type Metrics struct {
	Processed *prometheus.CounterVec
	Retries   prometheus.Counter
	DLQ       prometheus.Counter
	Duration  *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики воркера в registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Processed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_worker_items_total",
			Help: "Work items processed, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_worker_retries_total",
			Help: "Work items republished for retry.",
		}),
		DLQ: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_worker_dlq_total",
			Help: "Work items routed to the dead letter queue.",
		}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_worker_settle_duration_seconds",
			Help:    "Settlement duration per work item.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
