package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("Studio · " + m.session.Kind().String()))
	b.WriteString("\n")

	b.WriteString(m.requestSummary())
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(progressBar(m.snapshot.Progress, m.barWidth()))
	b.WriteString(fmt.Sprintf(" %3d%%\n\n", m.snapshot.Progress))

	if m.rejection != nil {
		b.WriteString(ErrorStyle.Render("Rejected: " + m.rejection.Error()))
		b.WriteString("\n\n")
	}

	switch {
	case m.describing:
		b.WriteString(InfoStyle.Render("Describing image..."))
		b.WriteString("\n\n")
	case m.describeErr != nil:
		b.WriteString(ErrorStyle.Render("Description failed: " + m.describeErr.Error()))
		b.WriteString("\n\n")
	case m.description != "":
		b.WriteString(InfoStyle.Render("Description: " + m.description))
		b.WriteString("\n\n")
	}

	if m.snapshot.Status == generation.StatusSucceeded && m.snapshot.Result != nil {
		r := m.snapshot.Result
		b.WriteString(BoxStyle.Render(fmt.Sprintf("%s\n\nURL:  %s\nSave: %s",
			HighlightStyle.Render("Result"), r.Reference, r.DownloadName())))
		b.WriteString("\n\n")
	}
	if m.snapshot.Status == generation.StatusFailed && m.snapshot.Error != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%s: %s", m.snapshot.Error.Kind, m.snapshot.Error.Message)))
		b.WriteString("\n\n")
	}

	b.WriteString(InfoStyle.Render(m.help()))
	return b.String()
}

func (m Model) statusLine() string {
	status := m.snapshot.Status
	switch status {
	case generation.StatusRunning:
		return StatusStyle.Render("Generating...")
	case generation.StatusSucceeded:
		return StatusStyle.Render("Done")
	case generation.StatusFailed:
		return ErrorStyle.Render("Failed")
	default:
		return InfoStyle.Render("Ready")
	}
}

func (m Model) requestSummary() string {
	var lines []string
	if m.request.Prompt != "" {
		lines = append(lines, "Prompt:  "+m.request.Prompt)
	}
	for i, img := range m.request.Images {
		lines = append(lines, fmt.Sprintf("Image %d: %s (%s, %s)", i+1, img.Name, img.MediaType, humanSize(img.Size())))
	}
	if len(m.request.Options) > 0 {
		names := make([]string, 0, len(m.request.Options))
		for name := range m.request.Options {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s: %s", name, m.request.Options[name]))
		}
	}
	return InfoStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) help() string {
	keys := []string{"enter submit", "c cancel", "r resubmit"}
	if m.canDescribe() {
		keys = append(keys, "d describe")
	}
	keys = append(keys, "q quit")
	return strings.Join(keys, " | ")
}

func (m Model) barWidth() int {
	w := m.width - 10
	if w > 50 {
		w = 50
	}
	if w < 10 {
		w = 10
	}
	return w
}

func progressBar(progress, width int) string {
	filled := progress * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
