package graph

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/wayfarer-planner/server/internal/agent/graph/nodes"
	"github.com/wayfarer-planner/server/internal/agent/graph/observers"
	"github.com/wayfarer-planner/server/internal/agent/model"
	"github.com/wayfarer-planner/server/internal/clients/pricing"
	"github.com/wayfarer-planner/server/internal/clients/weather"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	"github.com/wayfarer-planner/server/internal/core/retry"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// Run outcomes reported to metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeLimit     = "limit_exceeded"
)

// Runner executes planning runs on a compiled graph. It is safe for
// concurrent use; every run owns its state.
type Runner interface {
	// Run drives one workflow to completion. The returned state is the
	// state accumulated so far, also when err is non-nil.
	Run(ctx context.Context, info model.UserInfo, opts ...RunOption) (model.PlanningState, error)
	// Stream runs in the background and yields one snapshot per merged step.
	// The stream ends with io.EOF, or with the run error.
	Stream(ctx context.Context, info model.UserInfo, opts ...RunOption) *schema.StreamReader[model.Snapshot]
}

// Config holds everything needed to compose the planner end-to-end.
// This is a convenience layer over GraphConfig that also constructs the chat model and steps.
type Config struct {
	ChatModel nodes.ChatModelConfig
	Workflow  model.WorkflowConfig
	Retriever nodes.Retriever
	Pricing   pricing.Lookup
	Weather   weather.Provider
	Metrics   *observers.Metrics
}

type graphRunner struct {
	runnable compose.Runnable[model.StepResult, model.StepResult]
	handler  callbacks.Handler
	metrics  *observers.Metrics
	maxSteps int
}

// BuildPlanner creates the chat model and steps, builds the graph, and returns a Runner.
func BuildPlanner(ctx context.Context, cfg Config) (Runner, error) {
	chatModel, err := nodes.NewChatModel(ctx, cfg.ChatModel)
	if err != nil {
		return nil, err
	}

	policy := retry.DefaultPolicy
	policy.MaxRetries = cfg.Workflow.StepMaxRetries
	if cfg.Workflow.StepRetryDelay > 0 {
		policy.InitialDelay = cfg.Workflow.StepRetryDelay
	}

	steps, err := nodes.NewSteps(nodes.Deps{
		ChatModel: chatModel,
		Retriever: cfg.Retriever,
		Pricing:   cfg.Pricing,
		Weather:   cfg.Weather,
		Retry:     policy,
		TopK:      cfg.Workflow.TopK,
		RetryCap:  cfg.Workflow.RetryCap,
	})
	if err != nil {
		return nil, err
	}

	runner, err := NewRunner(ctx, &GraphConfig{
		Steps:    steps.Table(),
		RetryCap: steps.RetryCap(),
		MaxSteps: cfg.Workflow.MaxSteps,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Str("model", chatModel.Name).Msg("Planner built successfully")
	return runner, nil
}

// NewRunner compiles the graph for config.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	return &graphRunner{
		runnable: runnable,
		handler:  observers.NewAllCallbacks(config.Metrics),
		metrics:  config.Metrics,
		maxSteps: config.MaxSteps,
	}, nil
}

// RunOption customises one run.
type RunOption func(*runOptions)

type runOptions struct {
	runID     string
	observers []func(model.Snapshot)
}

// WithObserver receives a snapshot after every merged step, in order.
func WithObserver(fn func(model.Snapshot)) RunOption {
	return func(o *runOptions) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

func (r *graphRunner) Run(ctx context.Context, info model.UserInfo, opts ...RunOption) (model.PlanningState, error) {
	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	if err := info.Validate(); err != nil {
		return *model.NewPlanningState(o.runID, info), err
	}

	sc := &runScope{state: model.NewPlanningState(o.runID, info), observers: o.observers}
	logx.Info().Str("run_id", o.runID).Float64("budget", info.Budget).Str("origin", info.Origin).Msg("Planning run started")

	_, err := r.runnable.Invoke(withScope(ctx, sc), model.StepResult{}, compose.WithCallbacks(r.handler))
	final := sc.snapshot()

	if err != nil {
		if recorded := sc.failure(); recorded != nil {
			err = recorded
		} else {
			err = fmt.Errorf("workflow run %s: %w", o.runID, err)
		}
		outcome := OutcomeFailed
		if errx.IsKind(err, errx.KindWorkflowLimit) {
			outcome = OutcomeLimit
		}
		r.metrics.ObserveRun(outcome, final.LLMCostUSD)
		logx.Error().Err(err).Str("run_id", o.runID).Int("steps", final.StepCount).Msg("Planning run halted")
		return final, err
	}

	r.metrics.ObserveRun(OutcomeCompleted, final.LLMCostUSD)
	logx.Info().
		Str("run_id", o.runID).
		Int("steps", final.StepCount).
		Int("budget_adjustment_count", final.BudgetAdjustmentCount).
		Float64("llm_cost_usd", final.LLMCostUSD).
		Msg("Planning run completed")
	return final, nil
}

func (r *graphRunner) Stream(ctx context.Context, info model.UserInfo, opts ...RunOption) *schema.StreamReader[model.Snapshot] {
	sr, sw := schema.Pipe[model.Snapshot](r.maxSteps + 1)
	go func() {
		defer sw.Close()
		runOpts := append(slices.Clone(opts), WithObserver(func(s model.Snapshot) {
			sw.Send(s, nil)
		}))
		if _, err := r.Run(ctx, info, runOpts...); err != nil {
			sw.Send(model.Snapshot{}, err)
		}
	}()
	return sr
}

// runScope carries one run's state through the graph context. GenLocalState
// hands the same pointer to eino, so the state survives a failed Invoke.
type runScope struct {
	mu        sync.Mutex
	state     *model.PlanningState
	observers []func(model.Snapshot)
	err       error
}

type scopeKey struct{}

func withScope(ctx context.Context, sc *runScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, sc)
}

func scopeFrom(ctx context.Context) *runScope {
	if sc, ok := ctx.Value(scopeKey{}).(*runScope); ok {
		return sc
	}
	return &runScope{state: model.NewPlanningState("", model.UserInfo{})}
}

// fail keeps the first error of the run.
func (s *runScope) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *runScope) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *runScope) emit(snap model.Snapshot) {
	for _, fn := range s.observers {
		fn(snap)
	}
}

func (s *runScope) snapshot() model.PlanningState {
	return s.state.Clone()
}
