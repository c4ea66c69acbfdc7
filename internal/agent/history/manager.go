// Package history records finished planning runs and replays their traces.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/wayfarer-planner/server/internal/agent/model"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

type Manager struct {
	planRepo    model.PlanRepository
	replayTurns int
}

func NewManager(planRepo model.PlanRepository, config model.HistoryConfig) *Manager {
	return &Manager{
		planRepo:    planRepo,
		replayTurns: config.ReplayTurns,
	}
}

// Record stores a finished or halted run. A nil manager records nothing.
func (m *Manager) Record(ctx context.Context, state model.PlanningState) error {
	if m == nil || m.planRepo == nil {
		return nil
	}
	if err := m.planRepo.SavePlan(ctx, state); err != nil {
		return fmt.Errorf("record plan %s: %w", state.RunID, err)
	}
	logx.Debug().Str("run_id", state.RunID).Int("messages", len(state.Trace)).Msg("Plan recorded")
	return nil
}

// Load returns a stored run with its trace trimmed to the replay window.
func (m *Manager) Load(ctx context.Context, runID string) (*model.PlanHistory, error) {
	h, err := m.planRepo.LoadPlan(ctx, runID)
	if err != nil {
		return nil, err
	}
	h.Messages = trimTail(h.Messages, m.replayTurns)
	return h, nil
}

// Transcript renders a stored run the way the console shows a live one.
func (m *Manager) Transcript(ctx context.Context, runID string) (string, error) {
	h, err := m.Load(ctx, runID)
	if err != nil {
		return "", err
	}
	return BuildTranscript(h.Messages), nil
}

// BuildTranscript formats trace messages as "User:" / "AI:" lines.
func BuildTranscript(messages []*schema.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("User: " + msg.Content + "\n")
		case schema.Assistant:
			b.WriteString("AI: " + msg.Content + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ====================== Helper function ======================
// trimTail keeps the last maxTurns messages; maxTurns <= 0 keeps all.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
