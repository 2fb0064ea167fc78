package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case TickMsg:
		m.snapshot = m.session.CurrentStatus()
		return m, tickCmd()
	case DescribedMsg:
		return m.handleDescribed(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		if m.extractor != nil {
			m.extractor.Cancel()
		}
		m.session.Close()
		return m, tea.Quit

	case "enter", "r":
		m.rejection = m.session.Submit(&m.request)
		m.snapshot = m.session.CurrentStatus()

	case "c":
		if err := m.session.Cancel(); err != nil && !errors.Is(err, generation.ErrNothingToCancel) {
			m.rejection = err
		}
		m.snapshot = m.session.CurrentStatus()

	case "d":
		if m.canDescribe() {
			m.describing = true
			m.describeErr = nil
			return m, describeCmd(m.extractor, m.request.Images[0])
		}
	}
	return m, nil
}

// handleDescribed stores the description and uses it as the prompt when none was given.
func (m Model) handleDescribed(msg DescribedMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.Err, generation.ErrSuperseded) {
		return m, nil
	}
	m.describing = false
	if msg.Err != nil {
		m.describeErr = msg.Err
		return m, nil
	}
	m.description = msg.Text
	if strings.TrimSpace(m.request.Prompt) == "" {
		m.request.Prompt = msg.Text
	}
	return m, nil
}
