package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Producer-side metrics
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_events_published_total",
		Help: "Total number of events successfully published to the broker",
	}, []string{"kind"})
	EventPublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_event_publish_errors_total",
		Help: "Total number of failed event publish attempts",
	}, []string{"kind", "reason"})
	EventsCaptured = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_events_captured_total",
		Help: "Total number of events recorded by the capture buffer instead of the broker",
	}, []string{"kind"})
	FallbackSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_fallback_sends_total",
		Help: "Total number of synchronous direct sends after a publish failure",
	}, []string{"kind"})
	SinkConnected = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notifier_sink_connected",
		Help: "Whether the broker sink believes it is connected (1) or not (0)",
	}, []string{"sink"})

	// Worker-side metrics
	TasksDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_tasks_dispatched_total",
		Help: "Total number of notification tasks dispatched to the queue",
	}, []string{"kind"})
	TaskRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_task_retries_total",
		Help: "Total number of notification task retries scheduled",
	}, []string{"kind"})
	TasksSucceeded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_tasks_succeeded_total",
		Help: "Total number of notification tasks that completed successfully",
	}, []string{"kind"})
	TasksExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_tasks_exhausted_total",
		Help: "Total number of notification tasks that failed after exhausting retries",
	}, []string{"kind"})
	TasksDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_tasks_dropped_total",
		Help: "Total number of tasks dropped because the queue was full or shutting down",
	}, []string{"kind"})
	EventsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_events_consumed_total",
		Help: "Total number of events read from the broker by the worker",
	}, []string{"kind"})
	PoisonMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_poison_messages_total",
		Help: "Total number of undecodable broker messages acknowledged and skipped",
	}, []string{"kind"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})
)

func init() {
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(EventPublishErrors)
	prometheus.MustRegister(EventsCaptured)
	prometheus.MustRegister(FallbackSends)
	prometheus.MustRegister(SinkConnected)
	prometheus.MustRegister(TasksDispatched)
	prometheus.MustRegister(TaskRetries)
	prometheus.MustRegister(TasksSucceeded)
	prometheus.MustRegister(TasksExhausted)
	prometheus.MustRegister(TasksDropped)
	prometheus.MustRegister(EventsConsumed)
	prometheus.MustRegister(PoisonMessages)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
}

// Handler returns the HTTP handler that exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
