package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	modelFlag string
	verbose   bool

	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "sapphire",
	Short: "Notes in your terminal, with a local AI on the side",
	Long: `sapphire keeps your notes as plain JSON files and talks to a locally
running Ollama server for summaries, rewrites, translations and chat.

Examples:
  sapphire note new "Standup" --template meeting
  sapphire note list
  sapphire ai action summarize --note 3f2a...
  echo "fix my grammer" | sapphire ai action fix_grammar
  sapphire ai chat

Press Ctrl+C while an answer is streaming to stop it.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 1,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Ollama model to use (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and stream events to stderr")

	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(aiCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(doctorCmd)
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}
