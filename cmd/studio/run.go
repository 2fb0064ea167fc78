package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/modeyang/M-TraeSoloProduct/internal/adapter/inbound/tui"
	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/logger"
)

// run flags
var (
	kindFlag        string
	promptFlag      string
	imageFlags      []string
	optionFlags     []string
	failureRateFlag float64
	logFileFlag     string
	plainFlag       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open a session and drive it interactively",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

func init() {
	runCmd.Flags().StringVarP(&kindFlag, "kind", "k", generation.KindTextToImage.String(), "generation kind")
	runCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "prompt text")
	runCmd.Flags().StringArrayVarP(&imageFlags, "image", "i", nil, "image file (repeat for frame-to-video)")
	runCmd.Flags().StringArrayVarP(&optionFlags, "option", "o", nil, "option as name=value")
	runCmd.Flags().Float64Var(&failureRateFlag, "failure-rate", 0, "probability of a simulated backend failure")
	runCmd.Flags().StringVar(&logFileFlag, "log-file", "", "write logs to this file")
	runCmd.Flags().BoolVar(&plainFlag, "plain", false, "submit once and print status lines instead of the TUI")
}

func runSession(cmd *cobra.Command, args []string) error {
	kind, err := generation.ParseKind(kindFlag)
	if err != nil {
		return err
	}
	profile, err := generation.ProfileFor(kind)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(logFileFlag)
	if err != nil {
		return err
	}
	defer closeLog()

	req, err := buildRequest(kind)
	if err != nil {
		return err
	}

	sim := generation.NewSimulator(
		generation.WithFailureRate(failureRateFlag),
		generation.WithSimulatorLogger(log),
	)
	session := generation.NewSession(profile, sim, generation.WithLogger(log))
	defer session.Close()

	if plainFlag {
		return runPlain(cmd.OutOrStdout(), session, req)
	}

	extractor := generation.NewExtractor(generation.NewCannedDescriber(generation.DefaultDescriptionDelay), log)
	defer extractor.Cancel()

	_, err = tea.NewProgram(tui.NewModel(session, extractor, *req)).Run()
	return err
}

// runPlain submits once and prints every status change until a terminal state.
func runPlain(out io.Writer, session *generation.Session, req *generation.Request) error {
	done := make(chan generation.Snapshot, 1)
	unsubscribe := session.Subscribe(func(snap generation.Snapshot) {
		fmt.Fprintf(out, "%-9s %3d%%\n", snap.Status, snap.Progress)
		if snap.Status.IsTerminal() {
			select {
			case done <- snap:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := session.Submit(req); err != nil {
		return err
	}

	snap := <-done
	if snap.Status == generation.StatusFailed {
		return snap.Error
	}
	fmt.Fprintf(out, "url:  %s\nsave: %s\n", snap.Result.Reference, snap.Result.DownloadName())
	return nil
}

func buildRequest(kind generation.Kind) (*generation.Request, error) {
	req := &generation.Request{Kind: kind, Prompt: promptFlag}

	for _, path := range imageFlags {
		img, err := tui.LoadImage(path)
		if err != nil {
			return nil, err
		}
		req.Images = append(req.Images, img)
	}

	if len(optionFlags) > 0 {
		req.Options = make(map[string]string, len(optionFlags))
		for _, o := range optionFlags {
			name, value, ok := strings.Cut(o, "=")
			if !ok || name == "" {
				return nil, fmt.Errorf("option %q must be name=value", o)
			}
			req.Options[name] = value
		}
	}
	return req, nil
}

// newLogger logs to a file when one is given; the terminal belongs to the UI.
func newLogger(path string) (*zap.Logger, func(), error) {
	if path == "" {
		return zap.NewNop(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log, err := logger.New(&logger.Config{Level: "debug", Format: "json", Output: f})
	if err != nil {
		return nil, nil, errors.Join(err, f.Close())
	}
	return log, func() {
		_ = log.Sync()
		_ = f.Close()
	}, nil
}
