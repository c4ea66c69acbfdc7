package model

import "github.com/cloudwego/eino/schema"

// Update is a partial state update returned by a step. Nil pointer fields are
// left untouched; Trace is appended; LLMCostUSD is added.
type Update struct {
	Country            *string
	DestinationCode    *string
	OriginCode         *string
	WeatherSummary     *string
	ClothingSuggestion *string
	TravelCost         *Cost
	HotelOptions       *string
	RestaurantOptions  *string
	Itinerary          *string
	BudgetUnresolved   *bool

	Trace      []*schema.Message
	LLMCostUSD float64
}

// Str is a helper for filling optional Update fields.
func Str(v string) *string { return &v }

// Bool is a helper for filling optional Update fields.
func Bool(v bool) *bool { return &v }

// DirectiveKind tags a routing directive.
type DirectiveKind int

const (
	// Proceed routes to Next unchanged.
	Proceed DirectiveKind = iota
	// Retry routes to Next after the engine applies the budget retry transition.
	Retry
	// Terminate ends the run.
	Terminate
)

func (k DirectiveKind) String() string {
	switch k {
	case Proceed:
		return "proceed"
	case Retry:
		return "retry"
	case Terminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Directive tells the engine where to go after a step.
type Directive struct {
	Kind DirectiveKind
	Next StepName
}

// ProceedTo routes to next.
func ProceedTo(next StepName) Directive { return Directive{Kind: Proceed, Next: next} }

// RetryFrom routes to next after a budget retry transition.
func RetryFrom(next StepName) Directive { return Directive{Kind: Retry, Next: next} }

// Done ends the run.
func Done() Directive { return Directive{Kind: Terminate} }

// StepResult is what flows between graph nodes.
type StepResult struct {
	Step      StepName
	Update    Update
	Directive Directive
}

// Apply merges u into s: scalars overwrite, trace appends.
func (s *PlanningState) Apply(u Update) {
	setString(&s.Country, u.Country)
	setString(&s.DestinationCode, u.DestinationCode)
	setString(&s.OriginCode, u.OriginCode)
	setString(&s.WeatherSummary, u.WeatherSummary)
	setString(&s.ClothingSuggestion, u.ClothingSuggestion)
	setString(&s.HotelOptions, u.HotelOptions)
	setString(&s.RestaurantOptions, u.RestaurantOptions)
	setString(&s.Itinerary, u.Itinerary)
	if u.TravelCost != nil {
		c := *u.TravelCost
		s.TravelCost = &c
	}
	if u.BudgetUnresolved != nil {
		s.BudgetUnresolved = *u.BudgetUnresolved
	}
	for _, m := range u.Trace {
		if m != nil {
			s.Trace = append(s.Trace, m)
		}
	}
	s.LLMCostUSD += u.LLMCostUSD
}

// ApplyBudgetRetry discards the current destination so the next pass starts
// from a fresh recommendation. The trace is kept.
func (s *PlanningState) ApplyBudgetRetry() {
	s.BudgetAdjustmentCount++
	if s.Country != "" {
		s.RejectedCountries = append(s.RejectedCountries, s.Country)
	}
	s.Country = ""
	s.DestinationCode = ""
	s.OriginCode = ""
	s.TravelCost = nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
