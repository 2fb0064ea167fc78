// Package tui is a terminal front-end that drives one generation session.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// Model is the TUI state. The session is the source of truth; the model only
// keeps the latest snapshot it polled.
type Model struct {
	session   *generation.Session
	extractor *generation.Extractor
	request   generation.Request

	snapshot    generation.Snapshot
	rejection   error
	describing  bool
	description string
	describeErr error

	width    int
	quitting bool
}

// NewModel creates a model driving session with the given request template.
func NewModel(session *generation.Session, extractor *generation.Extractor, req generation.Request) Model {
	return Model{
		session:   session,
		extractor: extractor,
		request:   req,
		snapshot:  session.CurrentStatus(),
		width:     60,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Snapshot returns the last polled snapshot.
func (m Model) Snapshot() generation.Snapshot {
	return m.snapshot
}

// Rejection returns the error of the last rejected submission.
func (m Model) Rejection() error {
	return m.rejection
}

func (m Model) canDescribe() bool {
	return m.extractor != nil && m.session.Kind() == generation.KindImageToVideo && len(m.request.Images) > 0
}
