package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// PollInterval is how often the TUI reads the session status.
const PollInterval = 100 * time.Millisecond

// tickCmd creates a command that ticks every PollInterval.
func tickCmd() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// describeCmd extracts a description of image.
func describeCmd(extractor *generation.Extractor, image *generation.ImagePayload) tea.Cmd {
	return func() tea.Msg {
		text, err := extractor.Extract(context.Background(), image)
		return DescribedMsg{Text: text, Err: err}
	}
}
