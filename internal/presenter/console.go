// Package presenter renders a planning run as it streams in.
package presenter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"

	"github.com/wayfarer-planner/server/internal/agent/graph"
	"github.com/wayfarer-planner/server/internal/agent/model"
)

var (
	userLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	aiLabel    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Console prints trace entries as plain lines.
type Console struct {
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Render drains sr, printing each new trace entry as it arrives. It returns
// the last state seen and the run error, if any.
func (c *Console) Render(sr *schema.StreamReader[model.Snapshot]) (model.PlanningState, error) {
	defer sr.Close()

	var last model.PlanningState
	for {
		snap, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(c.out, errorStyle.Render(FailureLine(last, err)))
			return last, err
		}
		for _, msg := range snap.Delta {
			fmt.Fprintln(c.out, FormatMessage(msg))
		}
		last = snap.State
	}

	if m := last.LastMessage(); m != nil {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, titleStyle.Render("Final Travel Summary"))
		fmt.Fprintln(c.out, m.Content)
	}
	return last, nil
}

// FormatMessage renders one trace entry with its speaker label.
func FormatMessage(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	switch msg.Role {
	case schema.User:
		return userLabel.Render("User:") + " " + msg.Content
	default:
		return aiLabel.Render("AI:") + " " + msg.Content
	}
}

// FailureLine explains where a run stopped.
func FailureLine(last model.PlanningState, err error) string {
	var stepErr *graph.StepError
	if errors.As(err, &stepErr) {
		return fmt.Sprintf("Planning failed at step %s after %d completed steps: %v",
			stepErr.Step, completed(last), stepErr.Err)
	}
	return fmt.Sprintf("Planning failed after %d completed steps: %v", completed(last), err)
}

func completed(s model.PlanningState) int {
	return len(s.Visited)
}

// Transcript renders a whole trace, one entry per line.
func Transcript(msgs []*schema.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			lines = append(lines, FormatMessage(m))
		}
	}
	return strings.Join(lines, "\n")
}
