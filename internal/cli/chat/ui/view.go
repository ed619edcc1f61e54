package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/cli/chat/command"
	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/health"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	teamStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// View renders the UI (Bubbletea interface).
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	rule := hintStyle.Render(strings.Repeat("─", max(m.width, 1)))

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	title := chat.StatusNewConversation
	if id := m.snap.ActiveConversationID; id != "" {
		title = id
		for _, c := range m.snap.Conversations {
			if c.ID == id {
				title = c.Title
				break
			}
		}
	}

	header := headerStyle.Render("Grok Team") + hintStyle.Render(" · ") + title
	if m.opts.APIURL != "" {
		header += hintStyle.Render(" · " + m.opts.APIURL)
	}
	return header
}

func (m Model) renderStatusBar() string {
	status := m.snap.Status
	if m.snap.Generating() {
		status = m.spinner.View() + " " + status
	}

	parts := []string{status, renderHealth(m.healthState), command.FormatTemperatures(m.snap.Temperatures)}
	if m.showTrace {
		filter := "all"
		if m.traceAgent != "" {
			filter = m.traceAgent
		}
		parts = append(parts, "trace: "+filter)
	}
	parts = append(parts, "esc stop · ctrl+t trace · ctrl+r retry · ctrl+d quit")
	return hintStyle.Render(strings.Join(parts, " │ "))
}

func renderHealth(s health.State) string {
	switch s {
	case health.Online:
		return onlineStyle.Render("● online")
	case health.Offline:
		return offlineStyle.Render("● offline")
	default:
		return "○ checking"
	}
}

// renderTranscript renders the conversation, the live session and the
// last notice.
func (m Model) renderTranscript() string {
	var b strings.Builder

	if len(m.snap.Messages) == 0 && !m.snap.Generating() && m.notice == "" {
		b.WriteString(hintStyle.Render("Ask the team anything. Type /help for commands."))
		b.WriteString("\n")
	}

	for _, msg := range m.snap.Messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(promptStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString("\n\n")

		case chat.RoleAssistant:
			b.WriteString(teamStyle.Render("Team"))
			if msg.DurationSeconds > 0 {
				b.WriteString(hintStyle.Render(" (" + helpers.FormatSeconds(msg.DurationSeconds) + ")"))
			}
			b.WriteString("\n")
			m.writeTrace(&b, msg.Trace)
			if msg.Content != "" {
				b.WriteString(m.markdown.Render(msg.Content))
				b.WriteString("\n")
			}
			if msg.Error != "" {
				b.WriteString(errorStyle.Render("✗ " + msg.Error))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	if sess := m.snap.Session; sess != nil && sess.Active {
		b.WriteString(teamStyle.Render("Team"))
		b.WriteString("\n")
		m.writeTrace(&b, sess.Trace)
		if sess.Text != "" {
			b.WriteString(m.markdown.Render(sess.Text))
			b.WriteString("\n")
		}
		if sess.LastError != "" {
			b.WriteString(errorStyle.Render("✗ " + sess.LastError))
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), sess.Status))
	}

	if le := m.snap.LastError; le != "" && !m.snap.Generating() && !endsWithError(m.snap.Messages, le) {
		b.WriteString(errorStyle.Render("✗ Error: " + le))
		b.WriteString("\n")
	}

	if m.notice != "" {
		style := hintStyle
		if m.noticeErr {
			style = errorStyle
		}
		b.WriteString(style.Render(m.notice))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) writeTrace(b *strings.Builder, trace []chat.TraceEntry) {
	if !m.showTrace {
		return
	}
	for _, e := range trace {
		if m.traceAgent != "" && !strings.EqualFold(e.Agent, m.traceAgent) {
			continue
		}
		line := helpers.TraceLine(e)
		if e.Kind == chat.TraceToolUse {
			b.WriteString(toolStyle.Render("⚙ "+line) + "\n")
			continue
		}
		b.WriteString(traceStyle.Render("· "+line) + "\n")
	}
}

// endsWithError reports whether the last message already shows errText.
func endsWithError(msgs []chat.Message, errText string) bool {
	return len(msgs) > 0 && msgs[len(msgs)-1].Error == errText
}
