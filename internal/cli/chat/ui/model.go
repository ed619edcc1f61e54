// Package ui is the full-screen chat: a scrolling transcript with the
// agents' reasoning trace, a status bar and a multi-line input.
package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/cli/chat/command"
	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/health"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3
	// header, status bar and the separators around the input.
	chromeHeight = 4
)

// Generator starts and stops answers. *generation.Controller implements it.
type Generator interface {
	Start(ctx context.Context, prompt string) (<-chan struct{}, error)
	Cancel(reason string)
	Active() bool
}

// HealthSource reports backend reachability. *health.Monitor implements it.
type HealthSource interface {
	State() health.State
}

// Options configure the model.
type Options struct {
	ShowTrace bool
	NoColor   bool
	WordWrap  int
	// APIURL is shown in the header.
	APIURL string
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx     context.Context
	store   *chat.Store
	gen     Generator
	runner  *command.Runner
	health  HealthSource
	changes <-chan struct{}
	opts    Options

	input    textarea.Model
	spinner  spinner.Model
	viewport viewport.Model
	markdown *helpers.Markdown

	snap        chat.Snapshot
	healthState health.State
	showTrace   bool
	traceAgent  string
	notice      string
	noticeErr   bool

	width    int
	height   int
	quitting bool
}

// NewModel creates the chat model. changes must come from store.Subscribe.
func NewModel(
	ctx context.Context,
	store *chat.Store,
	gen Generator,
	runner *command.Runner,
	monitor HealthSource,
	changes <-chan struct{},
	opts Options,
) (Model, error) {
	if store == nil || gen == nil || runner == nil {
		return Model{}, errors.New("store, generator and runner are required")
	}

	ta := textarea.New()
	ta.Placeholder = "Ask the team… (Enter to send, Alt+Enter for a newline, /help for commands)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.SetWidth(defaultWidth)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = toolStyle

	wrap := opts.WordWrap
	if wrap <= 0 {
		wrap = defaultWidth
	}
	md, err := helpers.NewMarkdown(opts.NoColor, wrap)
	if err != nil {
		return Model{}, err
	}

	vp := viewport.New(defaultWidth, defaultHeight-chromeHeight-inputHeight)

	m := Model{
		ctx:       ctx,
		store:     store,
		gen:       gen,
		runner:    runner,
		health:    monitor,
		changes:   changes,
		opts:      opts,
		input:     ta,
		spinner:   s,
		viewport:  vp,
		markdown:  md,
		snap:      store.Snapshot(),
		showTrace: opts.ShowTrace,
		width:     defaultWidth,
		height:    defaultHeight,
	}
	if monitor != nil {
		m.healthState = monitor.State()
	}
	m.refreshViewport(true)
	return m, nil
}

// Init initializes the model (Bubbletea interface).
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	if m.health != nil {
		cmds = append(cmds, healthTick())
	}
	return tea.Batch(cmds...)
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}
