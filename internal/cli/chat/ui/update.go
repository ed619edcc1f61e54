package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/cli/chat/command"
	"github.com/grokteam/grokteam/internal/generation"
)

// Update handles messages and updates the model (Bubbletea interface).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.snap.Generating() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport(false)
		return m, cmd

	case storeChangedMsg:
		m.snap = m.store.Snapshot()
		m.refreshViewport(false)
		if m.changes == nil {
			return m, nil
		}
		return m, waitForChange(m.changes)

	case healthTickMsg:
		if m.health != nil {
			m.healthState = m.health.State()
		}
		return m, healthTick()

	case generationDoneMsg:
		m.snap = m.store.Snapshot()
		m.refreshViewport(false)
		return m.sendQueued()

	case commandResultMsg:
		return m.handleCommandResult(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKeyMsg handles keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.gen.Active() {
			m.gen.Cancel(chat.StatusStopped)
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.gen.Active() {
			m.gen.Cancel(chat.StatusStopped)
		}
		return m, nil

	case "ctrl+d":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+t":
		m.showTrace = !m.showTrace
		m.refreshViewport(false)
		return m, nil

	case "ctrl+r":
		return m, runCommand(m.ctx, m.runner, "/retry")

	case "ctrl+n":
		return m, runCommand(m.ctx, m.runner, "/new")

	case "ctrl+l":
		return m, runCommand(m.ctx, m.runner, "/clear")

	case "pgup", "pgdown", "ctrl+up", "ctrl+down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m, nil
		}
		m.input.Reset()

		if command.IsCommand(line) {
			return m, runCommand(m.ctx, m.runner, line)
		}
		return m.send(line)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send starts a generation, or queues the prompt while one is running.
func (m Model) send(prompt string) (tea.Model, tea.Cmd) {
	done, err := m.gen.Start(m.ctx, prompt)
	switch {
	case errors.Is(err, generation.ErrGenerationActive):
		m.store.QueuePrompt(prompt, true)
		m.setNotice("Queued, it will be sent when the current answer finishes", false)
		return m, nil
	case err != nil:
		m.setNotice(err.Error(), true)
		return m, nil
	}

	m.notice = ""
	m.snap = m.store.Snapshot()
	m.refreshViewport(true)
	return m, tea.Batch(waitForGeneration(done), m.spinner.Tick)
}

// sendQueued picks up a prompt staged while the last answer was running.
func (m Model) sendQueued() (tea.Model, tea.Cmd) {
	prompt, auto := m.store.ConsumeQueuedPrompt()
	switch {
	case prompt == "":
		return m, nil
	case auto:
		return m.send(prompt)
	default:
		m.input.SetValue(prompt)
		return m, nil
	}
}

func (m Model) handleCommandResult(msg commandResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setNotice(msg.err.Error(), true)
		return m, nil
	}

	res := msg.result
	m.setNotice(res.Output, false)

	switch {
	case res.Quit:
		m.quitting = true
		return m, tea.Quit
	case res.Stop:
		m.gen.Cancel(chat.StatusStopped)
	case res.ToggleTrace:
		m.showTrace = !m.showTrace
	case res.TraceAgent != "":
		m.showTrace = true
		m.traceAgent = res.TraceAgent
		if strings.EqualFold(res.TraceAgent, "all") {
			m.traceAgent = ""
		}
	case res.Edit != "":
		m.input.SetValue(res.Edit)
	}

	m.snap = m.store.Snapshot()
	m.refreshViewport(true)

	if res.Send != "" {
		return m.send(res.Send)
	}
	return m, nil
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.SetWidth(width)
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight-inputHeight, 1)
	m.refreshViewport(false)
}

// refreshViewport re-renders the transcript. It keeps the view pinned to
// the bottom when it already was there, or when force is set.
func (m *Model) refreshViewport(force bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if force || atBottom {
		m.viewport.GotoBottom()
	}
}
