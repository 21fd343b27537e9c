package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/eidolonlabs/eidolon-core/core"
	"github.com/eidolonlabs/eidolon-core/core/events"
	"github.com/muesli/reflow/wordwrap"
)

type uiTheme struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	interim   lipgloss.Style
	tool      lipgloss.Style
	failure   lipgloss.Style
	status    lipgloss.Style
	footer    lipgloss.Style
}

func newUITheme() uiTheme {
	accent := lipgloss.Color("63")
	muted := lipgloss.Color("241")
	warn := lipgloss.Color("203")

	return uiTheme{
		header:    lipgloss.NewStyle().Foreground(accent).Bold(true),
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		interim:   lipgloss.NewStyle().Foreground(muted).Italic(true),
		tool:      lipgloss.NewStyle().Foreground(lipgloss.Color("179")),
		failure:   lipgloss.NewStyle().Foreground(warn),
		status:    lipgloss.NewStyle().Foreground(muted),
		footer:    lipgloss.NewStyle().Foreground(muted),
	}
}

type eventMsg struct{ event events.Event }

type uiModel struct {
	orchestrator *orchestration.Orchestrator
	events       <-chan events.Event

	transcript viewport.Model
	input      textinput.Model
	theme      uiTheme

	lines   []string
	partial string
	interim string

	speaking  bool
	turnState string

	width  int
	height int
	ready  bool
}

func newUIModel(orchestrator *orchestration.Orchestrator, eventCh <-chan events.Event) uiModel {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a prompt, or just speak"
	input.CharLimit = 2000
	input.Focus()

	return uiModel{
		orchestrator: orchestrator,
		events:       eventCh,
		transcript:   viewport.New(0, 0),
		input:        input,
		theme:        newUITheme(),
		turnState:    "listening",
	}
}

func waitForEvent(events <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return tea.Quit()
		}
		return eventMsg{event: event}
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = msg.Width
		m.transcript.Height = msg.Height - 4
		m.input.Width = msg.Width - 4
		m.ready = true
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.orchestrator.CancelTurn()
			return m, nil
		case "ctrl+k":
			m.orchestrator.SetKillSwitch(!m.orchestrator.KillSwitch())
			return m, nil
		case "enter":
			prompt := strings.TrimSpace(m.input.Value())
			if prompt != "" {
				m.orchestrator.SendPrompt(prompt)
				m.input.Reset()
			}
			return m, nil
		}

	case eventMsg:
		m.apply(msg.event)
		m.refreshTranscript()
		return m, waitForEvent(m.events)
	}

	var inputCmd, transcriptCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.transcript, transcriptCmd = m.transcript.Update(msg)
	return m, tea.Batch(inputCmd, transcriptCmd)
}

// apply folds one orchestration event into the display state. Audio frames
// are intentionally not rendered.
func (m *uiModel) apply(event events.Event) {
	switch typed := event.(type) {
	case events.UserSpeechStarted:
		m.speaking = true
	case events.UserSpeechEnded:
		m.speaking = false
	case events.UserTranscriptInterim:
		m.interim = typed.Transcript
	case events.UserTranscriptFinal:
		m.interim = ""
		m.append(m.theme.user.Render("you ") + typed.Transcript)

	case events.UserPrompt:
		m.append(m.theme.user.Render("you ") + typed.Prompt)

	case events.AssistantResponseSegment:
		m.partial += typed.Segment
	case events.AssistantResponseFinal:
		if typed.Response != "" {
			m.append(m.theme.assistant.Render("eidolon ") + typed.Response)
		}
		m.partial = ""

	case events.ToolCallStarted:
		m.append(m.theme.tool.Render(fmt.Sprintf("tool %s started (%s)", typed.Name, typed.ID)))
	case events.ToolCallCompleted:
		m.append(m.theme.tool.Render(fmt.Sprintf("tool %s: %s", typed.Name, typed.Response)))
	case events.ToolCallFailed:
		m.append(m.theme.failure.Render(fmt.Sprintf("tool %s failed: %s", typed.Name, typed.Error)))

	case events.TurnStarted:
		m.turnState = "in turn"
	case events.TurnCompleted:
		m.turnState = "listening"
	case events.TurnCancelled:
		m.turnState = "listening"
		m.append(m.theme.status.Render("turn cancelled"))
	case events.TurnFailed:
		m.turnState = "listening"
		m.append(m.theme.failure.Render("turn failed: " + typed.Error))

	case events.SessionRotated:
		m.append(m.theme.status.Render("speech session rotated"))
	case events.SessionError:
		if typed.Fatal {
			m.append(m.theme.failure.Render("speech session lost: " + typed.Error))
		} else {
			m.append(m.theme.status.Render("speech session: " + typed.Error))
		}
	case events.DeviceError:
		m.append(m.theme.failure.Render("audio device " + typed.Device + ": " + typed.Error))
	}
}

func (m *uiModel) append(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > 500 {
		m.lines = m.lines[len(m.lines)-500:]
	}
}

func (m *uiModel) refreshTranscript() {
	if !m.ready {
		return
	}

	lines := m.lines
	if m.partial != "" {
		lines = append(lines, m.theme.assistant.Render("eidolon ")+m.partial)
	}
	if m.interim != "" {
		lines = append(lines, m.theme.interim.Render("… "+m.interim))
	}

	m.transcript.SetContent(wordwrap.String(strings.Join(lines, "\n"), m.transcript.Width))
	m.transcript.GotoBottom()
}

func (m uiModel) View() string {
	if !m.ready {
		return "starting…"
	}

	status := m.turnState
	if m.speaking {
		status += " · user speaking"
	}
	if m.orchestrator.KillSwitch() {
		status += " · KILL SWITCH ON"
	}

	header := m.theme.header.Render("eidolon") + "  " + m.theme.status.Render(status)
	footer := m.theme.footer.Render("enter send · esc cancel turn · ctrl+k kill switch · ctrl+c quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.transcript.View(),
		m.input.View(),
		footer,
	)
}
