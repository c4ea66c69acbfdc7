package presenter

import (
	"bytes"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-planner/server/internal/agent/graph"
	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
)

func snapshots() []model.Snapshot {
	state := model.NewPlanningState("run-1", model.UserInfo{})
	var out []model.Snapshot
	steps := []struct {
		step model.StepName
		msg  *schema.Message
	}{
		{model.StepInit, schema.UserMessage("Please start planning my trip based on the provided preferences.")},
		{model.StepRecommendCountry, schema.AssistantMessage("Recommended country: Portugal", nil)},
		{model.StepSummarize, schema.AssistantMessage("Country: Portugal", nil)},
	}
	for _, s := range steps {
		state.Visited = append(state.Visited, s.step)
		state.Trace = append(state.Trace, s.msg)
		out = append(out, model.Snapshot{Step: s.step, Delta: []*schema.Message{s.msg}, State: state.Clone()})
	}
	return out
}

func streamOf(snaps []model.Snapshot, err error) *schema.StreamReader[model.Snapshot] {
	sr, sw := schema.Pipe[model.Snapshot](len(snaps) + 1)
	for _, s := range snaps {
		sw.Send(s, nil)
	}
	if err != nil {
		sw.Send(model.Snapshot{}, err)
	}
	sw.Close()
	return sr
}

func TestConsole_RendersTraceAndSummary(t *testing.T) {
	var buf bytes.Buffer
	final, err := NewConsole(&buf).Render(streamOf(snapshots(), nil))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "User:")
	assert.Contains(t, out, "Please start planning my trip")
	assert.Contains(t, out, "AI:")
	assert.Contains(t, out, "Recommended country: Portugal")
	assert.Contains(t, out, "Final Travel Summary")
	assert.Len(t, final.Trace, 3)
}

func TestConsole_ReportsFailingStep(t *testing.T) {
	var buf bytes.Buffer
	runErr := &graph.StepError{Step: model.StepEstimateCost, Err: errx.FromStatus("pricing", 500, "down")}
	final, err := NewConsole(&buf).Render(streamOf(snapshots()[:2], runErr))
	require.Error(t, err)

	assert.Contains(t, buf.String(), "Planning failed at step Estimate_Cost after 2 completed steps")
	assert.NotContains(t, buf.String(), "Final Travel Summary")
	assert.Len(t, final.Trace, 2)
}

func TestFailureLine_GenericError(t *testing.T) {
	line := FailureLine(model.PlanningState{}, errors.New("boom"))
	assert.Equal(t, "Planning failed after 0 completed steps: boom", line)
}

func TestTranscript(t *testing.T) {
	out := Transcript([]*schema.Message{schema.UserMessage("hi"), nil, schema.AssistantMessage("hello", nil)})
	assert.Contains(t, out, "hi")
	assert.Contains(t, out, "hello")
}

func TestTUI_Update(t *testing.T) {
	snaps := snapshots()
	m := NewTUI(streamOf(nil, nil))

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(TUI)
	assert.Contains(t, m.View(), "Starting...")

	for _, s := range snaps {
		next, cmd := m.Update(snapshotMsg(s))
		m = next.(TUI)
		assert.NotNil(t, cmd)
	}
	assert.Len(t, m.lines, 3)
	assert.Contains(t, m.View(), "Recommended country: Portugal")
	assert.Contains(t, m.View(), "Summarize done")

	next, _ = m.Update(doneMsg{})
	m = next.(TUI)
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "Travel plan generated")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTUI_DoneWithError(t *testing.T) {
	m := NewTUI(streamOf(nil, nil))
	next, _ := m.Update(doneMsg{err: errors.New("boom")})
	m = next.(TUI)
	assert.Equal(t, "boom", m.err.Error())
	assert.Contains(t, m.View(), "Run halted")
}

func TestWaitForSnapshot(t *testing.T) {
	snaps := snapshots()
	sr := streamOf(snaps[:1], nil)
	msg := waitForSnapshot(sr)()
	assert.Equal(t, snapshotMsg(snaps[0]).Step, msg.(snapshotMsg).Step)
	assert.Equal(t, doneMsg{}, waitForSnapshot(sr)())
}
