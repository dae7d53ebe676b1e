package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow components.
// Methods are safe to call on a nil receiver.
type Metrics struct {
	TransitionsAccepted  *prometheus.CounterVec
	TransitionsRejected  *prometheus.CounterVec
	DocumentsSealed      *prometheus.CounterVec
	NotificationsSent    prometheus.Counter
	NotificationsFailed  prometheus.Counter
	NotificationsDeadLtr prometheus.Counter
	DeadlinesExpired     prometheus.Counter
	OperationDuration    *prometheus.HistogramVec
	EscalationAdvisories prometheus.Counter
}

var (
	metricsOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns the process-wide metrics, registering them on first use
func DefaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = newMetrics()
	})
	return defaultMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		TransitionsAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "court_flow_transitions_accepted_total",
			Help: "Stage transitions applied, by event",
		}, []string{"event"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "court_flow_transitions_rejected_total",
			Help: "Stage transitions refused, by event",
		}, []string{"event"}),
		DocumentsSealed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "court_flow_documents_sealed_total",
			Help: "Documents and hearing records sealed, by kind",
		}, []string{"kind"}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "court_flow_notifications_delivered_total",
			Help: "Notification records created for recipients",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "court_flow_notifications_failed_total",
			Help: "Individual notification deliveries that failed",
		}),
		NotificationsDeadLtr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "court_flow_notification_jobs_dead_lettered_total",
			Help: "Outbox jobs abandoned after the retry limit",
		}),
		DeadlinesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "court_flow_deadlines_expired_total",
			Help: "Deadlines flagged as expired by the sweep",
		}),
		EscalationAdvisories: promauto.NewCounter(prometheus.CounterOpts{
			Name: "court_flow_citation_escalation_advisories_total",
			Help: "Failed citation attempts that raised the public edict advisory",
		}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "court_flow_operation_duration_seconds",
			Help:    "Duration of workflow operations, by component",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"component"}),
	}
}

func (m *Metrics) transitionAccepted(event string) {
	if m == nil {
		return
	}
	m.TransitionsAccepted.WithLabelValues(event).Inc()
}

func (m *Metrics) transitionRejected(event string) {
	if m == nil {
		return
	}
	m.TransitionsRejected.WithLabelValues(event).Inc()
}

func (m *Metrics) documentSealed(kind string) {
	if m == nil {
		return
	}
	m.DocumentsSealed.WithLabelValues(kind).Inc()
}

func (m *Metrics) notificationDelivered() {
	if m == nil {
		return
	}
	m.NotificationsSent.Inc()
}

func (m *Metrics) notificationFailed() {
	if m == nil {
		return
	}
	m.NotificationsFailed.Inc()
}

func (m *Metrics) jobDeadLettered() {
	if m == nil {
		return
	}
	m.NotificationsDeadLtr.Inc()
}

func (m *Metrics) deadlinesExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DeadlinesExpired.Add(float64(n))
}

func (m *Metrics) escalationAdvised() {
	if m == nil {
		return
	}
	m.EscalationAdvisories.Inc()
}

// observe records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) observe(component string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(component).Observe(time.Since(start).Seconds())
}
