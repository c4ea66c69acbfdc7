package model

import (
	"fmt"
	"slices"

	"github.com/cloudwego/eino/schema"
)

// StepName identifies a planning step and doubles as its graph node key.
type StepName string

const (
	StepInit                   StepName = "Init"
	StepRecommendCountry       StepName = "Recommend_Country"
	StepResolveDestinationCode StepName = "Resolve_Destination_Code"
	StepResolveOriginCode      StepName = "Resolve_Origin_Code"
	StepEstimateCost           StepName = "Estimate_Cost"
	StepCheckBudget            StepName = "Check_Budget"
	StepFetchWeather           StepName = "Fetch_Weather"
	StepSuggestClothing        StepName = "Suggest_Clothing"
	StepFindHotels             StepName = "Find_Hotels"
	StepFindRestaurants        StepName = "Find_Restaurants"
	StepAssembleItinerary      StepName = "Assemble_Itinerary"
	StepSummarize              StepName = "Summarize"
)

// NotFoundCode is written to a code field when no airport could be resolved.
const NotFoundCode = "NOT FOUND"

// Cost is a flight price. Known=false is the explicit "no price data"
// sentinel and must never be read as free.
type Cost struct {
	Amount float64 `json:"amount"`
	Known  bool    `json:"known"`
}

// UnknownCost is the sentinel returned when pricing has no data.
var UnknownCost = Cost{Known: false}

// KnownCost wraps a real price.
func KnownCost(amount float64) Cost {
	return Cost{Amount: amount, Known: true}
}

func (c Cost) String() string {
	if !c.Known {
		return "unknown"
	}
	return fmt.Sprintf("$%.2f", c.Amount)
}

// Exceeds reports whether a known cost is over budget. Unknown never exceeds.
func (c Cost) Exceeds(budget float64) bool {
	return c.Known && c.Amount > budget
}

// PlanningState is threaded through one workflow run.
// Concurrency model:
//   - One instance per run, registered as graph local state via
//     compose.WithGenLocalState.
//   - Steps never receive the live value; they get a Clone taken inside
//     compose.ProcessState and return an Update.
//   - Updates and engine transitions are applied only inside state
//     post-handlers, so a failed step leaves the state untouched.
type PlanningState struct {
	RunID    string   `json:"run_id"`
	UserInfo UserInfo `json:"user_info"`

	Country         string `json:"country,omitempty"`
	DestinationCode string `json:"destination_code,omitempty"`
	OriginCode      string `json:"origin_code,omitempty"`

	WeatherSummary     string `json:"weather_summary,omitempty"`
	ClothingSuggestion string `json:"clothing_suggestion,omitempty"`
	TravelCost         *Cost  `json:"travel_cost,omitempty"`
	HotelOptions       string `json:"hotel_options,omitempty"`
	RestaurantOptions  string `json:"restaurant_options,omitempty"`
	Itinerary          string `json:"itinerary,omitempty"`

	BudgetAdjustmentCount int      `json:"budget_adjustment_count"`
	BudgetUnresolved      bool     `json:"budget_unresolved"`
	RejectedCountries     []string `json:"rejected_countries,omitempty"`

	Trace []*schema.Message `json:"trace"`

	// Accumulated LLM cost (USD) across model invocations for this run
	LLMCostUSD float64 `json:"llm_cost_usd"`

	StepCount int        `json:"step_count"`
	Visited   []StepName `json:"visited"`
}

// NewPlanningState returns the initial state for a run.
func NewPlanningState(runID string, info UserInfo) *PlanningState {
	return &PlanningState{
		RunID:    runID,
		UserInfo: info,
		Trace:    []*schema.Message{},
	}
}

// Clone returns a copy that shares no slices with s. Messages are treated as
// immutable once appended, so the pointers are shared.
func (s *PlanningState) Clone() PlanningState {
	c := *s
	c.UserInfo = s.UserInfo.clone()
	c.RejectedCountries = slices.Clone(s.RejectedCountries)
	c.Trace = slices.Clone(s.Trace)
	c.Visited = slices.Clone(s.Visited)
	if s.TravelCost != nil {
		cost := *s.TravelCost
		c.TravelCost = &cost
	}
	return c
}

// CodesResolved reports whether both airport codes have been set.
func (s *PlanningState) CodesResolved() bool {
	return s.DestinationCode != "" && s.OriginCode != ""
}

// VisitCount returns how many times a step ran in this run.
func (s *PlanningState) VisitCount(step StepName) int {
	n := 0
	for _, v := range s.Visited {
		if v == step {
			n++
		}
	}
	return n
}

// LastMessage returns the most recent trace entry, or nil.
func (s *PlanningState) LastMessage() *schema.Message {
	if len(s.Trace) == 0 {
		return nil
	}
	return s.Trace[len(s.Trace)-1]
}

// Snapshot is what observers receive after every merged step.
type Snapshot struct {
	Step StepName
	// Messages appended by Step, in order.
	Delta []*schema.Message
	State PlanningState
}
