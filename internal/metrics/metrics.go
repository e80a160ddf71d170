package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	TGIncomingUpdates  *prometheus.CounterVec
	TGOutgoingMessages *prometheus.CounterVec
	Verifications      *prometheus.CounterVec
	PaymentDecisions   *prometheus.CounterVec
	SchedulerRuns      *prometheus.CounterVec
	SchedulerSent      *prometheus.CounterVec
	ReportLatency      *prometheus.HistogramVec
	Errors             *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			TGIncomingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tg_incoming_updates_total",
				Help:      "Total incoming Telegram updates processed.",
			}, []string{"type"}),
			TGOutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tg_outgoing_messages_total",
				Help:      "Total outgoing Telegram messages sent.",
			}, []string{"type"}),
			Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Total PIN verification attempts by outcome.",
			}, []string{"outcome"}),
			PaymentDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_decisions_total",
				Help:      "Total admin payment decisions by verdict.",
			}, []string{"verdict"}),
			SchedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_runs_total",
				Help:      "Total scheduled job executions by job and outcome.",
			}, []string{"job", "outcome"}),
			SchedulerSent: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_messages_sent_total",
				Help:      "Total notifications sent by scheduled jobs.",
			}, []string{"job"}),
			ReportLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_render_duration_seconds",
				Help:      "Latency distribution for report rendering.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"format"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.TGIncomingUpdates,
			metricsInstance.TGOutgoingMessages,
			metricsInstance.Verifications,
			metricsInstance.PaymentDecisions,
			metricsInstance.SchedulerRuns,
			metricsInstance.SchedulerSent,
			metricsInstance.ReportLatency,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
