// Package chat is a terminal front-end for the supervisor: a scrollback
// viewport over the conversation plus an input field for requests. Agent
// output and tool activity stream into the transcript as they happen.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmcgann/fabworks/internal/agent"
	"github.com/tmcgann/fabworks/internal/supervisor"
)

var (
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	agentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	toolStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// streamMsg carries one loop event into the TUI.
type streamMsg agent.StreamEvent

// doneMsg signals the end of one request.
type doneMsg struct {
	resp *supervisor.Response
	err  error
}

// Model is the bubbletea model for the chat session.
type Model struct {
	sup      *supervisor.Supervisor
	ctx      context.Context
	viewport viewport.Model
	input    textinput.Model
	lines    []string
	events   chan tea.Msg
	busy     bool
	ready    bool
	quitting bool
}

// New creates a chat model over the supervisor. Stream events are forwarded
// into the TUI through an internal channel; the supervisor's stream handler
// is owned by this model for the session's lifetime.
func New(ctx context.Context, sup *supervisor.Supervisor) *Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about work items, requirements, or the Power BI project..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 70

	m := &Model{
		sup:    sup,
		ctx:    ctx,
		input:  ti,
		events: make(chan tea.Msg, 64),
	}
	sup.SetStreamHandler(func(ev agent.StreamEvent) {
		m.events <- streamMsg(ev)
	})
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent())
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *Model) submit(request string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.sup.Ask(m.ctx, request)
		return doneMsg{resp: resp, err: err}
	}
}

func (m *Model) append(line string) {
	m.lines = append(m.lines, line)
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.append(userStyle.Render("you: ") + text)
			return m, m.submit(text)
		}

	case tea.WindowSizeMsg:
		inputHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.input.Width = msg.Width - 6
		m.viewport.SetContent(strings.Join(m.lines, "\n"))

	case streamMsg:
		switch msg.Type {
		case "text":
			for _, line := range strings.Split(strings.TrimRight(msg.Content, "\n"), "\n") {
				m.append(agentStyle.Render(line))
			}
		case "tool_use":
			m.append(toolStyle.Render(fmt.Sprintf("[tool] %s", msg.Tool)))
		case "tool_result":
			first := msg.Content
			if idx := strings.IndexByte(first, '\n'); idx >= 0 {
				first = first[:idx]
			}
			m.append(toolStyle.Render(fmt.Sprintf("[tool] %s: %s", msg.Tool, first)))
		case "error":
			m.append(errStyle.Render("error: " + msg.Content))
		}
		return m, m.waitForEvent()

	case doneMsg:
		m.busy = false
		if msg.err != nil {
			m.append(errStyle.Render("error: " + msg.err.Error()))
		} else if msg.resp != nil && msg.resp.Agent == "" {
			// Clarification path: records were not streamed, show them.
			for _, rec := range msg.resp.Records {
				for _, line := range strings.Split(strings.TrimRight(rec.Content, "\n"), "\n") {
					m.append(agentStyle.Render(line))
				}
			}
		}
		m.append("")
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}
	prompt := "> "
	if m.busy {
		prompt = "… "
	}
	return m.viewport.View() + "\n" + inputStyle.Render(prompt+m.input.View())
}

// Run starts the chat session and blocks until the user quits.
func Run(ctx context.Context, sup *supervisor.Supervisor) error {
	program := tea.NewProgram(New(ctx, sup), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
