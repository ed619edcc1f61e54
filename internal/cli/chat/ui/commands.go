package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/grokteam/grokteam/internal/cli/chat/command"
)

const healthTickInterval = time.Second

// waitForChange blocks until the store notifies a change. The channel
// coalesces, so a burst of updates becomes one redraw.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// waitForGeneration blocks until the generation behind done finishes.
func waitForGeneration(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return generationDoneMsg{}
	}
}

func healthTick() tea.Cmd {
	return tea.Tick(healthTickInterval, func(time.Time) tea.Msg {
		return healthTickMsg{}
	})
}

// runCommand executes a slash command off the UI goroutine, since most of
// them call the backend.
func runCommand(ctx context.Context, runner *command.Runner, line string) tea.Cmd {
	return func() tea.Msg {
		res, err := runner.Run(ctx, line)
		return commandResultMsg{result: res, err: err}
	}
}
