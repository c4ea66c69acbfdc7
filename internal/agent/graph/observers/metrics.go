package observers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records workflow activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	budgetRetries prometheus.Counter
	tokensTotal   *prometheus.CounterVec
	llmCostTotal  prometheus.Counter
}

// NewMetrics registers the planner metrics on their own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_steps_total",
				Help: "Total number of planning steps executed by step and status",
			},
			[]string{"step", "status"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planner_step_duration_seconds",
				Help:    "Duration of planning steps in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_runs_total",
				Help: "Total number of workflow runs by outcome",
			},
			[]string{"outcome"},
		),
		budgetRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "planner_budget_retries_total",
			Help: "Total number of budget retries taken",
		}),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_llm_tokens_total",
				Help: "Total number of LLM tokens used by step and type",
			},
			[]string{"step", "type"},
		),
		llmCostTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "planner_llm_cost_usd_total",
			Help: "Total LLM cost in USD across runs",
		}),
	}
}

// Registry exposes the registry for an HTTP handler or a test gatherer.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStep records one step execution.
func (m *Metrics) ObserveStep(step string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stepsTotal.WithLabelValues(step, status).Inc()
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(outcome string, llmCostUSD float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	if llmCostUSD > 0 {
		m.llmCostTotal.Add(llmCostUSD)
	}
}

// IncBudgetRetry counts one budget retry.
func (m *Metrics) IncBudgetRetry() {
	if m == nil {
		return
	}
	m.budgetRetries.Inc()
}

func (m *Metrics) observeTokens(step string, prompt, completion int) {
	if m == nil {
		return
	}
	m.tokensTotal.WithLabelValues(step, "prompt").Add(float64(prompt))
	m.tokensTotal.WithLabelValues(step, "completion").Add(float64(completion))
}
