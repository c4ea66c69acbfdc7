package nodes

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/wayfarer-planner/server/internal/agent/graph/parsers"
	"github.com/wayfarer-planner/server/internal/agent/graph/prompts"
	"github.com/wayfarer-planner/server/internal/agent/model"
	"github.com/wayfarer-planner/server/internal/clients/pricing"
	"github.com/wayfarer-planner/server/internal/clients/weather"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	"github.com/wayfarer-planner/server/internal/core/retry"
	"github.com/wayfarer-planner/server/internal/rag"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// StartMessage is the user entry Init writes at the head of every trace.
const StartMessage = "Please start planning my trip based on the provided preferences."

// StepFunc is one planning step. It reads a snapshot of the state and returns
// a partial update plus where to go next; it never mutates the snapshot.
type StepFunc func(ctx context.Context, state model.PlanningState) (model.StepResult, error)

// Retriever finds reference text for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (rag.RetrievalResult, error)
}

// Deps bundles everything the steps talk to.
type Deps struct {
	ChatModel *ChatModel
	Retriever Retriever
	Pricing   pricing.Lookup
	Weather   weather.Provider
	Retry     retry.Policy
	TopK      int
	RetryCap  int
}

// Steps implements every planning step over one Deps bundle.
type Steps struct {
	deps     Deps
	topK     int
	retryCap int
}

// NewSteps validates deps and returns the step set.
func NewSteps(deps Deps) (*Steps, error) {
	switch {
	case deps.ChatModel == nil || deps.ChatModel.Model == nil:
		return nil, errx.Configuration("chat model is not initialized")
	case deps.Retriever == nil:
		return nil, errx.Configuration("retriever is nil")
	case deps.Pricing == nil:
		return nil, errx.Configuration("pricing lookup is nil")
	case deps.Weather == nil:
		return nil, errx.Configuration("weather provider is nil")
	}
	return &Steps{
		deps:     deps,
		topK:     normalizeTopK(deps.TopK),
		retryCap: normalizeRetryCap(deps.RetryCap),
	}, nil
}

// RetryCap is the number of budget retries Check_Budget may request.
func (s *Steps) RetryCap() int { return s.retryCap }

// Table maps every step name to its implementation.
func (s *Steps) Table() map[model.StepName]StepFunc {
	return map[model.StepName]StepFunc{
		model.StepInit:                   s.Init,
		model.StepRecommendCountry:       s.RecommendCountry,
		model.StepResolveDestinationCode: s.ResolveDestinationCode,
		model.StepResolveOriginCode:      s.ResolveOriginCode,
		model.StepEstimateCost:           s.EstimateCost,
		model.StepCheckBudget:            s.CheckBudget,
		model.StepFetchWeather:           s.FetchWeather,
		model.StepSuggestClothing:        s.SuggestClothing,
		model.StepFindHotels:             s.FindHotels,
		model.StepFindRestaurants:        s.FindRestaurants,
		model.StepAssembleItinerary:      s.AssembleItinerary,
		model.StepSummarize:              s.Summarize,
	}
}

// Init opens the trace.
func (s *Steps) Init(_ context.Context, state model.PlanningState) (model.StepResult, error) {
	return model.StepResult{
		Step:      model.StepInit,
		Update:    model.Update{Trace: []*schema.Message{schema.UserMessage(StartMessage)}},
		Directive: model.ProceedTo(model.StepRecommendCountry),
	}, nil
}

// RecommendCountry asks the model for one destination, steering away from
// places already visited or rejected as too expensive.
func (s *Steps) RecommendCountry(ctx context.Context, state model.PlanningState) (model.StepResult, error) {
	info := state.UserInfo
	retryNote := ""
	if state.BudgetAdjustmentCount > 0 {
		retryNote = fmt.Sprintf("Earlier suggestions were over budget (attempt %d). Pick a cheaper destination.", state.BudgetAdjustmentCount+1)
	}

	answer, cost, err := s.generate(ctx, model.StepRecommendCountry, prompts.Country, map[string]any{
		"budget":     fmt.Sprintf("%.0f", info.Budget),
		"interests":  listOrNone(info.Interests),
		"previous":   listOrNone(info.PreviousDestinations),
		"rejected":   listOrNone(state.RejectedCountries),
		"duration":   info.Duration,
		"origin":     info.Origin,
		"date":       info.TravelDate,
		"retry_note": retryNote,
	})
	if err != nil {
		return model.StepResult{}, fmt.Errorf("recommend country: %w", err)
	}
	country, err := parsers.ParseCountry(answer)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("recommend country: %w", err)
	}

	logx.Debug().Str("run_id", state.RunID).Str("country", country).Msg("Country recommended")
	return model.StepResult{
		Step: model.StepRecommendCountry,
		Update: model.Update{
			Country:    model.Str(country),
			Trace:      []*schema.Message{assistant("Recommended country: %s", country)},
			LLMCostUSD: cost,
		},
		Directive: model.ProceedTo(model.StepResolveDestinationCode),
	}, nil
}

// ResolveDestinationCode finds the main airport of the recommended country.
func (s *Steps) ResolveDestinationCode(ctx context.Context, state model.PlanningState) (model.StepResult, error) {
	if state.Country == "" {
		return model.StepResult{}, missingField(model.StepResolveDestinationCode, "country")
	}
	code, cost, err := s.resolveCode(ctx, model.StepResolveDestinationCode, state.Country)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("resolve destination code: %w", err)
	}
	return model.StepResult{
		Step: model.StepResolveDestinationCode,
		Update: model.Update{
			DestinationCode: model.Str(code),
			Trace:           []*schema.Message{assistant("Destination IATA: %s", code)},
			LLMCostUSD:      cost,
		},
		Directive: model.ProceedTo(model.StepResolveOriginCode),
	}, nil
}

// ResolveOriginCode finds the airport the traveller departs from.
func (s *Steps) ResolveOriginCode(ctx context.Context, state model.PlanningState) (model.StepResult, error) {
	code, cost, err := s.resolveCode(ctx, model.StepResolveOriginCode, state.UserInfo.Origin)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("resolve origin code: %w", err)
	}
	return model.StepResult{
		Step: model.StepResolveOriginCode,
		Update: model.Update{
			OriginCode: model.Str(code),
			Trace:      []*schema.Message{assistant("Origin IATA: %s", code)},
			LLMCostUSD: cost,
		},
		Directive: model.ProceedTo(model.StepEstimateCost),
	}, nil
}

// resolveCode grounds an airport lookup on retrieved reference text. With no
// reference text the model is not asked, so it cannot invent a code.
func (s *Steps) resolveCode(ctx context.Context, step model.StepName, location string) (string, float64, error) {
	hits, err := s.retrieve(ctx, step, fmt.Sprintf("main international airport IATA code for %s", location))
	if err != nil {
		return "", 0, err
	}
	if hits.Empty() {
		logx.Debug().Str("step", string(step)).Str("location", location).Msg("No airport context retrieved")
		return model.NotFoundCode, 0, nil
	}

	answer, cost, err := s.generate(ctx, step, prompts.Airport, map[string]any{
		"context":  hits.Context(),
		"location": location,
	})
	if err != nil {
		return "", 0, err
	}
	return parsers.ParseAirportCode(answer), cost, nil
}

// EstimateCost prices the flight between the two resolved airports.
func (s *Steps) EstimateCost(ctx context.Context, state model.PlanningState) (model.StepResult, error) {
	if !state.CodesResolved() {
		return model.StepResult{}, missingField(model.StepEstimateCost, "airport codes")
	}

	cost := model.UnknownCost
	if state.OriginCode != model.NotFoundCode && state.DestinationCode != model.NotFoundCode {
		var err error
		cost, err = retry.DoValue(ctx, s.deps.Retry, string(model.StepEstimateCost), func(ctx context.Context) (model.Cost, error) {
			return s.deps.Pricing.Lookup(ctx, state.OriginCode, state.DestinationCode, state.UserInfo.TravelDate)
		})
		if err != nil {
			return model.StepResult{}, fmt.Errorf("estimate cost: %w", err)
		}
	} else {
		logx.Debug().
			Str("run_id", state.RunID).
			Str("origin", state.OriginCode).
			Str("destination", state.DestinationCode).
			Msg("Skipping price lookup for unresolved airport")
	}

	return model.StepResult{
		Step: model.StepEstimateCost,
		Update: model.Update{
			TravelCost: &cost,
			Trace:      []*schema.Message{assistant("Travel cost: %s", cost)},
		},
		Directive: model.ProceedTo(model.StepCheckBudget),
	}, nil
}

// CheckBudget routes back to Recommend_Country while the flight is over
// budget and retries remain. The retry transition itself is applied by the
// engine.
func (s *Steps) CheckBudget(_ context.Context, state model.PlanningState) (model.StepResult, error) {
	if state.TravelCost == nil {
		return model.StepResult{}, missingField(model.StepCheckBudget, "travel cost")
	}
	cost := *state.TravelCost
	budget := state.UserInfo.Budget

	switch {
	case !cost.Exceeds(budget):
		msg := "Budget OK"
		if !cost.Known {
			msg = "Budget OK (flight cost unknown)"
		}
		return model.StepResult{
			Step: model.StepCheckBudget,
			Update: model.Update{
				BudgetUnresolved: model.Bool(false),
				Trace:            []*schema.Message{schema.AssistantMessage(msg, nil)},
			},
			Directive: model.ProceedTo(model.StepFetchWeather),
		}, nil

	case state.BudgetAdjustmentCount < s.retryCap:
		return model.StepResult{
			Step: model.StepCheckBudget,
			Update: model.Update{
				Trace: []*schema.Message{assistant(
					"Budget exceeded (%s > $%.2f), looking for another destination (retry %d of %d)",
					cost, budget, state.BudgetAdjustmentCount+1, s.retryCap)},
			},
			Directive: model.RetryFrom(model.StepRecommendCountry),
		}, nil

	default:
		return model.StepResult{
			Step: model.StepCheckBudget,
			Update: model.Update{
				BudgetUnresolved: model.Bool(true),
				Trace: []*schema.Message{assistant(
					"Budget exceeded (%s > $%.2f) and no retries left, continuing with %s",
					cost, budget, state.Country)},
			},
			Directive: model.ProceedTo(model.StepFetchWeather),
		}, nil
	}
}

// FetchWeather reads current conditions and has the model summarise them.
func (s *Steps) FetchWeather(ctx context.Context, state model.PlanningState) (model.StepResult, error) {
	if state.Country == "" {
		return model.StepResult{}, missingField(model.StepFetchWeather, "country")
	}
	report, err := retry.DoValue(ctx, s.deps.Retry, string(model.StepFetchWeather), func(ctx context.Context) (weather.Report, error) {
		return s.deps.Weather.Current(ctx, state.Country)
	})
	if err != nil {
		return model.StepResult{}, fmt.Errorf("fetch weather: %w", err)
	}

	summary, cost, err := s.generate(ctx, model.StepFetchWeather, prompts.Weather, map[string]any{
		"country": state.Country,
		"report":  report.String(),
	})
	if err != nil {
		return model.StepResult{}, fmt.Errorf("summarize weather: %w", err)
	}
	return model.StepResult{
		Step: model.StepFetchWeather,
		Update: model.Update{
			WeatherSummary: model.Str(summary),
			Trace:          []*schema.Message{assistant("Weather: %s", summary)},
			LLMCostUSD:     cost,
		},
		Directive: model.ProceedTo(model.StepSuggestClothing),
	}, nil
}

// SuggestClothing turns the weather summary into packing advice.
func (s *Steps) SuggestClothing(ctx context.Context, state model.PlanningState) (model.StepResult, error) {
	clothes, cost, err := s.generate(ctx, model.StepSuggestClothing, prompts.Clothing, map[string]any{
		"weather":   state.WeatherSummary,
		"duration":  state.UserInfo.Duration,
		"country":   state.Country,
		"interests": listOrNone(state.UserInfo.Interests),
	})
	if err != nil {
		return model.StepResult{}, fmt.Errorf("suggest clothing: %w", err)
	}
	return model.StepResult{
		Step: model.StepSuggestClothing,
		Update: model.Update{
			ClothingSuggestion: model.Str(clothes),
			Trace:              []*schema.Message{assistant("Clothes: %s", clothes)},
			LLMCostUSD:         cost,
		},
		Directive: model.ProceedTo(model.StepFindHotels),
	}, nil
}

// FindHotels suggests places to stay from the reference documents.
func (s *Steps) FindHotels(ctx context.Context, state model.PlanningState) (model.StepResult, error) {
	hits, err := s.retrieve(ctx, model.StepFindHotels, fmt.Sprintf("hotels and accommodation in %s", state.Country))
	if err != nil {
		return model.StepResult{}, fmt.Errorf("find hotels: %w", err)
	}

	hotels := fmt.Sprintf("No hotel information found for %s.", state.Country)
	var cost float64
	if !hits.Empty() {
		hotels, cost, err = s.generate(ctx, model.StepFindHotels, prompts.Hotels, map[string]any{
			"context":        hits.Context(),
			"country":        state.Country,
			"nightly_budget": fmt.Sprintf("%.0f", nightlyBudget(state.UserInfo, state.TravelCost)),
		})
		if err != nil {
			return model.StepResult{}, fmt.Errorf("find hotels: %w", err)
		}
	}
	return model.StepResult{
		Step: model.StepFindHotels,
		Update: model.Update{
			HotelOptions: model.Str(hotels),
			Trace:        []*schema.Message{assistant("Hotels: %s", hotels)},
			LLMCostUSD:   cost,
		},
		Directive: model.ProceedTo(model.StepFindRestaurants),
	}, nil
}

// FindRestaurants suggests places to eat from the reference documents.
func (s *Steps) FindRestaurants(ctx context.Context, state model.PlanningState) (model.StepResult, error) {
	hits, err := s.retrieve(ctx, model.StepFindRestaurants, fmt.Sprintf("restaurants and local food in %s", state.Country))
	if err != nil {
		return model.StepResult{}, fmt.Errorf("find restaurants: %w", err)
	}

	restaurants := fmt.Sprintf("No restaurant information found for %s.", state.Country)
	var cost float64
	if !hits.Empty() {
		restaurants, cost, err = s.generate(ctx, model.StepFindRestaurants, prompts.Restaurants, map[string]any{
			"context":   hits.Context(),
			"country":   state.Country,
			"interests": listOrNone(state.UserInfo.Interests),
		})
		if err != nil {
			return model.StepResult{}, fmt.Errorf("find restaurants: %w", err)
		}
	}
	return model.StepResult{
		Step: model.StepFindRestaurants,
		Update: model.Update{
			RestaurantOptions: model.Str(restaurants),
			Trace:             []*schema.Message{assistant("Restaurants: %s", restaurants)},
			LLMCostUSD:        cost,
		},
		Directive: model.ProceedTo(model.StepAssembleItinerary),
	}, nil
}

// AssembleItinerary writes the itinerary text. It makes no external calls.
func (s *Steps) AssembleItinerary(_ context.Context, state model.PlanningState) (model.StepResult, error) {
	itinerary := BuildItinerary(state)
	return model.StepResult{
		Step: model.StepAssembleItinerary,
		Update: model.Update{
			Itinerary: model.Str(itinerary),
			Trace:     []*schema.Message{schema.AssistantMessage(itinerary, nil)},
		},
		Directive: model.ProceedTo(model.StepSummarize),
	}, nil
}

// BuildItinerary renders the itinerary for the accumulated state.
func BuildItinerary(state model.PlanningState) string {
	days := state.UserInfo.Duration
	var lines []string
	if state.BudgetUnresolved {
		cost := "unknown"
		if state.TravelCost != nil {
			cost = state.TravelCost.String()
		}
		lines = append(lines,
			fmt.Sprintf("Budget unresolved: cheapest flight found costs %s against a budget of $%.2f after %d adjustments.",
				cost, state.UserInfo.Budget, state.BudgetAdjustmentCount),
			fmt.Sprintf("Adjusted %d-day trip in %s to fit budget.", max(days-1, 1), state.Country),
		)
	} else {
		lines = append(lines, fmt.Sprintf("Planned %d-day trip in %s with suggested activities.", days, state.Country))
	}
	if state.TravelCost == nil || !state.TravelCost.Known {
		lines = append(lines, "Flight cost could not be determined; check prices before booking.")
	}
	if state.HotelOptions != "" {
		lines = append(lines, "Where to stay: "+state.HotelOptions)
	}
	if state.RestaurantOptions != "" {
		lines = append(lines, "Where to eat: "+state.RestaurantOptions)
	}
	return strings.Join(lines, "\n")
}

// Summarize appends the final summary and ends the run.
func (s *Steps) Summarize(_ context.Context, state model.PlanningState) (model.StepResult, error) {
	return model.StepResult{
		Step:      model.StepSummarize,
		Update:    model.Update{Trace: []*schema.Message{schema.AssistantMessage(BuildSummary(state), nil)}},
		Directive: model.Done(),
	}, nil
}

// BuildSummary renders the final summary entry.
func BuildSummary(state model.PlanningState) string {
	cost := "unknown"
	if state.TravelCost != nil {
		cost = state.TravelCost.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Country: %s\n", state.Country)
	fmt.Fprintf(&b, "IATA: %s -> %s\n", state.OriginCode, state.DestinationCode)
	fmt.Fprintf(&b, "Weather: %s\n", state.WeatherSummary)
	fmt.Fprintf(&b, "Clothes: %s\n", state.ClothingSuggestion)
	fmt.Fprintf(&b, "Travel Cost: %s\n", cost)
	fmt.Fprintf(&b, "Itinerary: %s", state.Itinerary)
	return b.String()
}

func missingField(step model.StepName, field string) error {
	return errx.New(fmt.Errorf("%s: %s is not set", step, field), http.StatusInternalServerError, errx.SystemErrorMessage)
}
