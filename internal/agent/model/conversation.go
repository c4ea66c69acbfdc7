package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// PlanRepository persists finished runs so they can be replayed later.
type PlanRepository interface {
	// SavePlan stores the final state and the full trace of a run
	SavePlan(ctx context.Context, state PlanningState) error

	// LoadPlan retrieves a stored run
	LoadPlan(ctx context.Context, runID string) (*PlanHistory, error)

	// DeletePlan removes a stored run
	DeletePlan(ctx context.Context, runID string) error
}

// PlanHistory represents a stored run.
type PlanHistory struct {
	RunID    string
	SavedAt  time.Time
	Summary  *PlanningState
	Messages []*schema.Message
}
