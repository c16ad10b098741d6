package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	WorkflowTransitions    *prometheus.CounterVec
	WorkflowRuns           *prometheus.CounterVec
	WorkflowStepDuration   *prometheus.HistogramVec
	NormalizationAnomalies *prometheus.CounterVec
	ConsentChecks          *prometheus.CounterVec
	RemoteCallDuration     *prometheus.HistogramVec
	HTTPRequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on reg. Passing nil uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		WorkflowTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complyscan_workflow_transitions_total",
			Help: "Observable workflow state transitions by target state",
		}, []string{"state"}),
		WorkflowRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complyscan_workflow_runs_total",
			Help: "Finished workflow runs by outcome (ready or failure kind)",
		}, []string{"outcome"}),
		WorkflowStepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complyscan_workflow_step_duration_seconds",
			Help:    "Duration of each collaborator step of a workflow run",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		NormalizationAnomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complyscan_summary_normalization_anomalies_total",
			Help: "Non-fatal anomalies met while normalizing audit summaries",
		}, []string{"field"}),
		ConsentChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complyscan_consent_checks_total",
			Help: "Consent checks by result (granted, missing, error)",
		}, []string{"result"}),
		RemoteCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complyscan_remote_call_duration_seconds",
			Help:    "Latency of calls to the remote consent/audit service",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complyscan_http_request_duration_seconds",
			Help:    "Latency of BFF HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) ObserveTransition(state string) {
	m.WorkflowTransitions.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveRun(outcome string) {
	m.WorkflowRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStep(step string, d time.Duration) {
	m.WorkflowStepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (m *Metrics) IncrementAnomalies(field string) {
	m.NormalizationAnomalies.WithLabelValues(field).Inc()
}

func (m *Metrics) ObserveConsentCheck(result string) {
	m.ConsentChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRemoteCall(op, outcome string, d time.Duration) {
	m.RemoteCallDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
