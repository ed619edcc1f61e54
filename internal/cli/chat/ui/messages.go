package ui

import "github.com/grokteam/grokteam/internal/cli/chat/command"

// storeChangedMsg reports that the conversation store changed.
type storeChangedMsg struct{}

// healthTickMsg asks the model to re-read the health monitor.
type healthTickMsg struct{}

// generationDoneMsg reports that a generation finished.
type generationDoneMsg struct{}

// commandResultMsg carries the outcome of a slash command.
type commandResultMsg struct {
	result command.Result
	err    error
}
