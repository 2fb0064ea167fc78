package tui

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// MockDescriber returns a fixed description.
type MockDescriber struct{}

func (MockDescriber) Describe(ctx context.Context, image *generation.ImagePayload) (string, error) {
	return "a quiet harbour", nil
}

func blockingGenerator() generation.GeneratorFunc {
	return func(ctx context.Context, job generation.Job, onProgress generation.ProgressFunc) (*generation.Result, error) {
		onProgress(30)
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func instantGenerator() generation.GeneratorFunc {
	return func(ctx context.Context, job generation.Job, onProgress generation.ProgressFunc) (*generation.Result, error) {
		return job.Profile.NewResult(job.Request, time.Now()), nil
	}
}

func newSession(t *testing.T, kind generation.Kind, gen generation.Generator) *generation.Session {
	t.Helper()
	profile, err := generation.ProfileFor(kind)
	require.NoError(t, err)
	s := generation.NewSession(profile, gen)
	t.Cleanup(s.Close)
	return s
}

func key(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func pngFile(t *testing.T, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestModel_SubmitAndSucceed(t *testing.T) {
	s := newSession(t, generation.KindTextToImage, instantGenerator())
	m := NewModel(s, nil, generation.Request{Prompt: "a fox"})

	m = step(m, key("enter"))
	require.NoError(t, m.Rejection())

	require.Eventually(t, func() bool {
		m = step(m, TickMsg{Time: time.Now()})
		return m.Snapshot().Status == generation.StatusSucceeded
	}, time.Second, 5*time.Millisecond)

	view := m.View()
	assert.Contains(t, view, "Done")
	assert.Contains(t, view, "ai-generated-")
	assert.Contains(t, view, "100%")
}

func TestModel_Rejection(t *testing.T) {
	s := newSession(t, generation.KindTextToVideo, instantGenerator())
	m := NewModel(s, nil, generation.Request{Prompt: "   "})

	m = step(m, key("enter"))

	assert.ErrorIs(t, m.Rejection(), generation.ErrEmptyPrompt)
	assert.Equal(t, generation.StatusIdle, m.Snapshot().Status)
	assert.Contains(t, m.View(), "Rejected")
}

func TestModel_Cancel(t *testing.T) {
	s := newSession(t, generation.KindTextToVideo, blockingGenerator())
	m := NewModel(s, nil, generation.Request{Prompt: "rain"})

	m = step(m, key("enter"))
	assert.Equal(t, generation.StatusRunning, m.Snapshot().Status)

	m = step(m, key("r"))
	assert.ErrorIs(t, m.Rejection(), generation.ErrBusy)

	m = step(m, key("c"))
	assert.Equal(t, generation.StatusIdle, m.Snapshot().Status)
	assert.Equal(t, 0, m.Snapshot().Progress)

	// nothing left to cancel is not an error for the TUI
	m = step(m, key("c"))
	assert.Equal(t, generation.StatusIdle, m.Snapshot().Status)
}

func TestModel_Describe(t *testing.T) {
	img, err := LoadImage(pngFile(t, "still.png"))
	require.NoError(t, err)

	s := newSession(t, generation.KindImageToVideo, instantGenerator())
	m := NewModel(s, generation.NewExtractor(MockDescriber{}, nil), generation.Request{Images: []*generation.ImagePayload{img}})
	assert.Contains(t, m.View(), "d describe")

	next, cmd := m.Update(key("d"))
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Describing")

	m = step(m, cmd())
	assert.Contains(t, m.View(), "a quiet harbour")

	m = step(m, key("enter"))
	require.NoError(t, m.Rejection())
}

func TestModel_Quit(t *testing.T) {
	s := newSession(t, generation.KindTextToImage, blockingGenerator())
	m := NewModel(s, nil, generation.Request{Prompt: "owl"})
	m = step(m, key("enter"))

	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, s.Closed())
	assert.Empty(t, next.View())
}

func TestLoadImage(t *testing.T) {
	t.Run("uses the extension", func(t *testing.T) {
		img, err := LoadImage(pngFile(t, "a.png"))
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MediaType)
		assert.Equal(t, 3, img.Width)
	})

	t.Run("sniffs without an extension", func(t *testing.T) {
		img, err := LoadImage(pngFile(t, "frame"))
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MediaType)
	})

	t.Run("rejects non images", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

		_, err := LoadImage(path)
		assert.ErrorIs(t, err, generation.ErrNotAnImage)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadImage(filepath.Join(t.TempDir(), "nope.png"))
		assert.Error(t, err)
	})
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, 10, len([]rune(stripANSI(progressBar(40, 10)))))
	assert.Equal(t, "████░░░░░░", stripANSI(progressBar(40, 10)))
}

func stripANSI(s string) string {
	var out []rune
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			out = append(out, r)
		}
	}
	return string(out)
}
