package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

var (
	kindStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).PaddingLeft(2)
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List generation kinds and their options",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, p := range generation.Profiles() {
			fmt.Fprintln(out, kindStyle.Render(p.Kind.String()))
			fmt.Fprintln(out, detailStyle.Render(describeProfile(p)))
		}
		return nil
	},
}

func describeProfile(p generation.Profile) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("produces %s, prompt required: %t, images: %d", p.Media, p.RequiresPrompt, p.ImageArity))
	for _, opt := range p.Options {
		values := make([]string, 0, len(opt.Values))
		for _, v := range opt.Values {
			values = append(values, v.Value)
		}
		lines = append(lines, fmt.Sprintf("--option %s=<%s> (default %s)", opt.Name, strings.Join(values, "|"), opt.Default))
	}
	for _, preset := range p.Presets {
		lines = append(lines, fmt.Sprintf("try: %q", preset))
	}
	return strings.Join(lines, "\n")
}
