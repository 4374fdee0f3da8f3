package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/muesli/reflow/wordwrap"
)

// eventForwarder hands orchestrator events to the running program, if any.
type eventForwarder struct {
	program atomic.Pointer[tea.Program]
}

func (f *eventForwarder) handle(event events.Event) {
	if program := f.program.Load(); program != nil {
		go program.Send(eventMsg{event: event})
	}
}

type eventMsg struct{ event events.Event }

type actionDoneMsg struct {
	status string
	err    error
}

type uiTheme struct {
	header      lipgloss.Style
	userLabel   lipgloss.Style
	botLabel    lipgloss.Style
	errorLabel  lipgloss.Style
	imageNote   lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	help        lipgloss.Style
	panel       lipgloss.Style
}

func newTheme() uiTheme {
	accent := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")

	return uiTheme{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1),
		userLabel:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		botLabel:    lipgloss.NewStyle().Foreground(mint).Bold(true),
		errorLabel:  lipgloss.NewStyle().Foreground(pink).Bold(true),
		imageNote:   lipgloss.NewStyle().Foreground(muted).Italic(true),
		status:      lipgloss.NewStyle().Foreground(accent),
		errorStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		help:        lipgloss.NewStyle().Foreground(muted),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted),
	}
}

type model struct {
	ctx          context.Context
	orchestrator *orchestration.Orchestrator

	input    textinput.Model
	timeline viewport.Model
	theme    uiTheme

	turns   []conversations.Turn
	passive orchestration.PassiveState
	busy    bool

	statusLine  string
	statusIsErr bool
	width       int
	height      int
}

func newModel(ctx context.Context, orchestrator *orchestration.Orchestrator) model {
	input := textinput.New()
	input.Placeholder = "Type a message and press enter"
	input.Focus()

	return model{
		ctx:          ctx,
		orchestrator: orchestrator,
		input:        input,
		timeline:     viewport.New(0, 0),
		theme:        newTheme(),
		turns:        orchestrator.Turns(),
		passive:      orchestrator.PassiveState(),
		statusLine:   "ready",
	}
}

func runTUI(ctx context.Context, orchestrator *orchestration.Orchestrator, forwarder *eventForwarder) error {
	program := tea.NewProgram(newModel(ctx, orchestrator), tea.WithAltScreen(), tea.WithContext(ctx))
	forwarder.program.Store(program)
	defer forwarder.program.Store(nil)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case eventMsg:
		m.refresh()
		if failed, ok := msg.event.(events.SpeechDispatchFailed); ok {
			m.setStatus("speech failed: "+failed.Err.Error(), true)
		}
	case actionDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else if msg.status != "" {
			m.setStatus(msg.status, false)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderTimeline()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.setStatus("thinking...", false)
			return m, m.sendPromptCmd(prompt)
		case "ctrl+r":
			m.setStatus("listening...", false)
			return m, m.manualCaptureCmd()
		case "ctrl+p":
			return m, m.togglePassiveCmd()
		case "ctrl+s":
			muted := !m.orchestrator.IsSpeechMuted()
			m.orchestrator.SetSpeechMuted(muted)
			if muted {
				m.setStatus("speech muted", false)
			} else {
				m.setStatus("speech on", false)
			}
			return m, nil
		case "pgup":
			m.timeline.LineUp(8)
			return m, nil
		case "pgdown":
			m.timeline.LineDown(8)
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) refresh() {
	var after int64
	if n := len(m.turns); n > 0 {
		after = m.turns[n-1].Sequence
	}
	m.turns = append(m.turns, m.orchestrator.TurnsSince(after)...)
	m.passive = m.orchestrator.PassiveState()
	m.busy = m.orchestrator.IsBusy()
	m.renderTimeline()
}

func (m *model) setStatus(status string, isErr bool) {
	m.statusLine = status
	m.statusIsErr = isErr
}

func (m model) sendPromptCmd(prompt string) tea.Cmd {
	ctx, orchestrator := m.ctx, m.orchestrator
	return func() tea.Msg {
		exchange, err := orchestrator.RunTurn(ctx, prompt)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if exchange.Failed() {
			return actionDoneMsg{status: "request failed"}
		}
		return actionDoneMsg{status: "ready"}
	}
}

func (m model) manualCaptureCmd() tea.Cmd {
	ctx, orchestrator := m.ctx, m.orchestrator
	return func() tea.Msg {
		if err := orchestrator.TriggerManualCapture(ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "ready"}
	}
}

func (m model) togglePassiveCmd() tea.Cmd {
	ctx, orchestrator := m.ctx, m.orchestrator
	polling := m.passive.Mode == orchestration.PassiveModePolling
	return func() tea.Msg {
		if polling {
			orchestrator.StopPassiveListening()
			return actionDoneMsg{status: "passive listening off"}
		}
		if _, err := orchestrator.StartPassiveListening(ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "passive listening on"}
	}
}

func (m *model) resize() {
	// header, input, status and help lines plus the panel border
	const chrome = 6
	m.timeline.Width = max(m.width-2, 10)
	m.timeline.Height = max(m.height-chrome, 3)
	m.input.Width = max(m.width-4, 10)
}

func (m *model) renderTimeline() {
	width := max(m.timeline.Width-2, 10)

	var b strings.Builder
	for _, turn := range m.turns {
		b.WriteString(m.turnLabel(turn))
		b.WriteString("\n")
		if turn.MediaKind == conversations.MediaKindImage {
			b.WriteString(m.theme.imageNote.Render(fmt.Sprintf("[image, %d bytes]", len(turn.Content))))
		} else {
			b.WriteString(wordwrap.String(turn.Content, width))
		}
		b.WriteString("\n\n")
	}

	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m model) turnLabel(turn conversations.Turn) string {
	switch {
	case turn.Role == conversations.RoleUser:
		return m.theme.userLabel.Render("You")
	case turn.IsError:
		return m.theme.errorLabel.Render("Ema")
	default:
		return m.theme.botLabel.Render("Ema")
	}
}

func (m model) View() string {
	passive := string(m.passive.Mode)
	if m.passive.RetryCount > 0 {
		passive = fmt.Sprintf("%s (retry %d)", passive, m.passive.RetryCount)
	}
	speech := "on"
	if m.orchestrator.IsSpeechMuted() {
		speech = "muted"
	}
	header := m.theme.header.Render(fmt.Sprintf("Ema · passive: %s · speech: %s", passive, speech))

	statusStyle := m.theme.status
	if m.statusIsErr {
		statusStyle = m.theme.errorStatus
	}
	status := m.statusLine
	if m.busy {
		status = "working... " + status
	}

	help := m.theme.help.Render("enter send · ctrl+r record · ctrl+p passive · ctrl+s speech · ctrl+c quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.theme.panel.Render(m.timeline.View()),
		m.input.View(),
		statusStyle.Render(status),
		help,
	)
}
