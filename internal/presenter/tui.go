package presenter

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"

	"github.com/wayfarer-planner/server/internal/agent/model"
)

type snapshotMsg model.Snapshot

type doneMsg struct{ err error }

// TUI is the Bubble Tea model for watching a run.
type TUI struct {
	stream   *schema.StreamReader[model.Snapshot]
	spinner  spinner.Model
	viewport viewport.Model
	lines    []string
	state    model.PlanningState
	step     model.StepName
	err      error
	done     bool
	ready    bool
}

// NewTUI watches sr until it ends.
func NewTUI(sr *schema.StreamReader[model.Snapshot]) TUI {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return TUI{stream: sr, spinner: sp, viewport: viewport.New(80, 20)}
}

// RunTUI runs the program to completion and returns the last state seen.
func RunTUI(sr *schema.StreamReader[model.Snapshot]) (model.PlanningState, error) {
	defer sr.Close()
	final, err := tea.NewProgram(NewTUI(sr), tea.WithAltScreen()).Run()
	if err != nil {
		return model.PlanningState{}, err
	}
	m := final.(TUI)
	return m.state, m.err
}

func (m TUI) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSnapshot(m.stream))
}

// waitForSnapshot reads the next stream item as a message.
func waitForSnapshot(sr *schema.StreamReader[model.Snapshot]) tea.Cmd {
	return func() tea.Msg {
		snap, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return doneMsg{}
		}
		if err != nil {
			return doneMsg{err: err}
		}
		return snapshotMsg(snap)
	}
}

func (m TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := frameStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-fh-3)
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (m.done && msg.String() == "q") {
			return m, tea.Quit
		}
	case snapshotMsg:
		for _, d := range msg.Delta {
			m.lines = append(m.lines, FormatMessage(d))
		}
		m.state = msg.State
		m.step = msg.Step
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, waitForSnapshot(m.stream)
	case doneMsg:
		m.done = true
		m.err = msg.err
		if msg.err != nil {
			m.lines = append(m.lines, errorStyle.Render(FailureLine(m.state, msg.err)))
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if !m.done {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m TUI) View() string {
	header := titleStyle.Render("Travel Planner")
	body := frameStyle.Render(m.viewport.View())
	return header + "\n" + body + "\n" + m.status()
}

func (m TUI) status() string {
	switch {
	case m.done && m.err != nil:
		return errorStyle.Render("Run halted. Press q to quit.")
	case m.done:
		return statusStyle.Render("Travel plan generated. Press q to quit.")
	case m.step == "":
		return m.spinner.View() + " Starting..."
	default:
		return m.spinner.View() + " " + string(m.step) + " done, planning..."
	}
}

var (
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
