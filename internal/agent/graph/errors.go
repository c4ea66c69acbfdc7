package graph

import (
	"fmt"

	"github.com/wayfarer-planner/server/internal/agent/model"
)

// StepError reports which step halted a run.
type StepError struct {
	Step model.StepName
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
