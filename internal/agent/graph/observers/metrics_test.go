package observers

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()
	m.ObserveStep("Init", nil, time.Millisecond)
	m.ObserveStep("Estimate_Cost", errors.New("boom"), time.Millisecond)
	m.ObserveRun("completed", 0.25)
	m.IncBudgetRetry()
	m.IncBudgetRetry()
	m.observeTokens("Recommend_Country", 100, 10)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepsTotal.WithLabelValues("Init", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepsTotal.WithLabelValues("Estimate_Cost", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.budgetRetries))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.llmCostTotal))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.tokensTotal.WithLabelValues("Recommend_Country", "prompt")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStep("Init", nil, time.Millisecond)
		m.ObserveRun("failed", 1)
		m.IncBudgetRetry()
		m.observeTokens("Init", 1, 1)
	})
	assert.Nil(t, m.Registry())
}

func TestNewAllCallbacks(t *testing.T) {
	assert.NotNil(t, NewAllCallbacks(nil))
	assert.NotNil(t, NewAllCallbacks(NewMetrics()))
}
