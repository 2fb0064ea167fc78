// Command studio runs generation sessions from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Simulated image and video generation from the terminal",
	Long: `Studio opens a local generation session and drives it from a terminal UI.

Examples:
  studio kinds
  studio run --kind text-to-image --prompt "a lighthouse at dusk" --option style=watercolor
  studio run --kind image-to-video --image still.png --option effect=parallax
  studio run --kind frame-to-video --image first.png --image last.png --option duration=3`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(kindsCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
