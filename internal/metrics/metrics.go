package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the engine and worker metrics. A nil *Recorder records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	ExecutionsStarted  *prometheus.CounterVec
	ExecutionsFinished *prometheus.CounterVec
	ExecutionsRejected *prometheus.CounterVec
	ActiveExecutions   prometheus.Gauge
	NodeDuration       *prometheus.HistogramVec
	TasksProcessed     *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		ExecutionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobflow_executions_started_total",
				Help: "Total number of workflow executions started",
			},
			[]string{"trigger"},
		),
		ExecutionsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobflow_executions_finished_total",
				Help: "Total number of workflow executions by terminal status",
			},
			[]string{"status"},
		),
		ExecutionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobflow_executions_rejected_total",
				Help: "Total number of trigger calls rejected before a run started",
			},
			[]string{"reason"},
		),
		ActiveExecutions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobflow_active_executions",
				Help: "Number of executions currently tracked in memory",
			},
		),
		NodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobflow_node_duration_seconds",
				Help:    "Duration of node executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node_type", "status"},
		),
		TasksProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobflow_tasks_processed_total",
				Help: "Total number of background tasks handled by workers",
			},
			[]string{"task_type", "status"},
		),
	}
}

func (r *Recorder) ExecutionStarted(trigger string) {
	if r == nil {
		return
	}
	r.ExecutionsStarted.WithLabelValues(trigger).Inc()
	r.ActiveExecutions.Inc()
}

func (r *Recorder) ExecutionFinished(status string) {
	if r == nil {
		return
	}
	r.ExecutionsFinished.WithLabelValues(status).Inc()
	r.ActiveExecutions.Dec()
}

func (r *Recorder) ExecutionRejected(reason string) {
	if r == nil {
		return
	}
	r.ExecutionsRejected.WithLabelValues(reason).Inc()
}

func (r *Recorder) NodeFinished(nodeType string, success bool, d time.Duration) {
	if r == nil {
		return
	}
	r.NodeDuration.WithLabelValues(nodeType, statusLabel(success)).Observe(d.Seconds())
}

func (r *Recorder) TaskProcessed(taskType, status string) {
	if r == nil {
		return
	}
	r.TasksProcessed.WithLabelValues(taskType, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
