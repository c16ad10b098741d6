package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTransition("running")
	m.ObserveTransition("running")
	m.ObserveRun("CreateError")
	m.IncrementAnomalies("violations")
	m.ObserveConsentCheck("missing")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkflowTransitions.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowRuns.WithLabelValues("CreateError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NormalizationAnomalies.WithLabelValues("violations")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsentChecks.WithLabelValues("missing")))
}

func TestMetrics_Histograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStep("create", 120*time.Millisecond)
	m.ObserveRemoteCall("audits.create", "ok", 80*time.Millisecond)
	m.ObserveHTTPRequest("POST", "/audits", "202", 3*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.WorkflowStepDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RemoteCallDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}
