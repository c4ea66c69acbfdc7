package graph

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/wayfarer-planner/server/internal/agent/graph/nodes"
	"github.com/wayfarer-planner/server/internal/agent/graph/observers"
	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

const DefaultMaxSteps = 25

// successors is the dispatch table: the steps each step may route to.
// Summarize is the only step allowed to terminate.
var successors = map[model.StepName][]model.StepName{
	model.StepInit:                   {model.StepRecommendCountry},
	model.StepRecommendCountry:       {model.StepResolveDestinationCode},
	model.StepResolveDestinationCode: {model.StepResolveOriginCode},
	model.StepResolveOriginCode:      {model.StepEstimateCost},
	model.StepEstimateCost:           {model.StepCheckBudget},
	model.StepCheckBudget:            {model.StepRecommendCountry, model.StepFetchWeather},
	model.StepFetchWeather:           {model.StepSuggestClothing},
	model.StepSuggestClothing:        {model.StepFindHotels},
	model.StepFindHotels:             {model.StepFindRestaurants},
	model.StepFindRestaurants:        {model.StepAssembleItinerary},
	model.StepAssembleItinerary:      {model.StepSummarize},
	model.StepSummarize:              {},
}

// stepOrder fixes node registration order so builds are deterministic.
var stepOrder = []model.StepName{
	model.StepInit,
	model.StepRecommendCountry,
	model.StepResolveDestinationCode,
	model.StepResolveOriginCode,
	model.StepEstimateCost,
	model.StepCheckBudget,
	model.StepFetchWeather,
	model.StepSuggestClothing,
	model.StepFindHotels,
	model.StepFindRestaurants,
	model.StepAssembleItinerary,
	model.StepSummarize,
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	Steps    map[model.StepName]nodes.StepFunc
	RetryCap int
	MaxSteps int
	Metrics  *observers.Metrics
}

// GraphBuilder handles the construction of the planning workflow graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.StepResult, model.StepResult]
}

// BuildGraph constructs and returns the compiled planning graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.StepResult, model.StepResult], error) {
	if config == nil {
		return nil, errx.Configuration("graph config is nil")
	}
	for _, step := range stepOrder {
		if config.Steps[step] == nil {
			return nil, errx.Configuration("step %s is not implemented", step)
		}
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultMaxSteps
	}
	if config.RetryCap < 0 {
		config.RetryCap = nodes.DefaultRetryCap
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.StepResult, model.StepResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.PlanningState {
				return scopeFrom(ctx).state
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes registers one lambda per step, guarded by the step budget and
// merged through the state post-handler.
func (b *GraphBuilder) addNodes() error {
	for _, step := range stepOrder {
		err := b.graph.AddLambdaNode(string(step),
			compose.InvokableLambda(b.newStepLambda(step, b.config.Steps[step])),
			compose.WithNodeName(string(step)),
			compose.WithStatePreHandler(b.newStepPreHandler(step)),
			compose.WithStatePostHandler(b.newStepPostHandler(step)),
		)
		if err != nil {
			logx.Error().Err(err).Str("step", string(step)).Msg("Error adding step node")
			return fmt.Errorf("error adding step node %s: %w", step, err)
		}
	}
	return nil
}

// addEdges wires the entry point. Every other transition is a branch.
func (b *GraphBuilder) addEdges() error {
	if err := b.graph.AddEdge(compose.START, string(model.StepInit)); err != nil {
		return fmt.Errorf("error adding entry edge: %w", err)
	}
	return nil
}

// addBranches creates one routing branch per step from the dispatch table
func (b *GraphBuilder) addBranches() error {
	for _, step := range stepOrder {
		ends := map[string]bool{}
		for _, next := range successors[step] {
			ends[string(next)] = true
		}
		if len(ends) == 0 {
			ends[compose.END] = true
		}

		branch := compose.NewGraphBranch(routeCondition, ends)
		if err := b.graph.AddBranch(string(step), branch); err != nil {
			logx.Error().Err(err).Str("step", string(step)).Msg("Error adding routing branch")
			return fmt.Errorf("error adding routing branch for %s: %w", step, err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.StepResult, model.StepResult], error) {
	// The engine's own step budget fires first; this only stops a runaway graph.
	backstop := 2*b.config.MaxSteps + 10

	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("travel_planner"),
		compose.WithMaxRunSteps(backstop),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Int("max_steps", b.config.MaxSteps).Msg("Graph compiled successfully")
	return runnable, nil
}

// newStepLambda runs fn against a snapshot of the state. A failing step is
// recorded on the run scope so the caller sees the typed error.
func (b *GraphBuilder) newStepLambda(step model.StepName, fn nodes.StepFunc) func(context.Context, model.StepResult) (model.StepResult, error) {
	return func(ctx context.Context, _ model.StepResult) (model.StepResult, error) {
		var snapshot model.PlanningState
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.PlanningState) error {
			snapshot = s.Clone()
			return nil
		}); err != nil {
			return model.StepResult{}, fmt.Errorf("read planning state: %w", err)
		}

		start := time.Now()
		res, err := fn(ctx, snapshot)
		b.config.Metrics.ObserveStep(string(step), err, time.Since(start))
		if err != nil {
			stepErr := &StepError{Step: step, Err: err}
			scopeFrom(ctx).fail(stepErr)
			logx.Error().Err(err).Str("run_id", snapshot.RunID).Str("step", string(step)).Msg("Step failed")
			return model.StepResult{}, stepErr
		}
		res.Step = step
		return res, nil
	}
}

func (b *GraphBuilder) newStepPreHandler(step model.StepName) func(context.Context, model.StepResult, *model.PlanningState) (model.StepResult, error) {
	return func(ctx context.Context, in model.StepResult, state *model.PlanningState) (model.StepResult, error) {
		if state.StepCount >= b.config.MaxSteps {
			err := errx.WorkflowLimit("run %s exceeded %d steps before %s", state.RunID, b.config.MaxSteps, step)
			scopeFrom(ctx).fail(err)
			logx.Warn().Str("run_id", state.RunID).Str("step", string(step)).Int("max_steps", b.config.MaxSteps).Msg("Step budget exhausted")
			return in, err
		}
		state.StepCount++
		state.Visited = append(state.Visited, step)
		return in, nil
	}
}

// newStepPostHandler merges the step result and applies the routing
// transition in one critical section, then publishes a snapshot.
func (b *GraphBuilder) newStepPostHandler(step model.StepName) func(context.Context, model.StepResult, *model.PlanningState) (model.StepResult, error) {
	return func(ctx context.Context, out model.StepResult, state *model.PlanningState) (model.StepResult, error) {
		sc := scopeFrom(ctx)
		if err := checkDirective(step, out.Directive); err != nil {
			sc.fail(err)
			return out, err
		}

		state.Apply(out.Update)
		if out.Directive.Kind == model.Retry {
			if state.BudgetAdjustmentCount >= b.config.RetryCap {
				err := errx.WorkflowLimit("budget retry requested after %d of %d retries", state.BudgetAdjustmentCount, b.config.RetryCap)
				sc.fail(err)
				return out, err
			}
			state.ApplyBudgetRetry()
			b.config.Metrics.IncBudgetRetry()
			logx.Debug().
				Str("run_id", state.RunID).
				Int("budget_adjustment_count", state.BudgetAdjustmentCount).
				Strs("rejected", state.RejectedCountries).
				Msg("Budget retry applied")
		}

		logx.Debug().
			Str("run_id", state.RunID).
			Str("step", string(step)).
			Str("directive", out.Directive.Kind.String()).
			Str("next", string(out.Directive.Next)).
			Msg("Step merged")

		sc.emit(model.Snapshot{
			Step:  step,
			Delta: deltaOf(out.Update),
			State: state.Clone(),
		})
		return out, nil
	}
}

// routeCondition maps a directive to the next graph node.
func routeCondition(_ context.Context, in model.StepResult) (string, error) {
	if in.Directive.Kind == model.Terminate {
		return compose.END, nil
	}
	return string(in.Directive.Next), nil
}

func checkDirective(step model.StepName, d model.Directive) error {
	allowed := successors[step]
	if d.Kind == model.Terminate {
		if len(allowed) == 0 {
			return nil
		}
		return errx.New(fmt.Errorf("step %s may not terminate the run", step), http.StatusInternalServerError, errx.SystemErrorMessage)
	}
	if d.Kind == model.Retry && step != model.StepCheckBudget {
		return errx.New(fmt.Errorf("step %s may not request a budget retry", step), http.StatusInternalServerError, errx.SystemErrorMessage)
	}
	for _, next := range allowed {
		if next == d.Next {
			return nil
		}
	}
	return errx.New(fmt.Errorf("step %s may not route to %q", step, d.Next), http.StatusInternalServerError, errx.SystemErrorMessage)
}

func deltaOf(u model.Update) []*schema.Message {
	delta := make([]*schema.Message, 0, len(u.Trace))
	for _, m := range u.Trace {
		if m != nil {
			delta = append(delta, m)
		}
	}
	return delta
}
