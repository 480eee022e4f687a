package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/ai"
	"github.com/arin/sapphire/internal/history"
)

var (
	historyLimit int
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent chat exchanges",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyClear {
			if err := history.Clear(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Println("History cleared.")
			return nil
		}

		entries, err := history.Load(historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		cyan := color.New(color.FgCyan)
		dim := color.New(color.FgHiBlack)
		yellow := color.New(color.FgYellow)
		red := color.New(color.FgRed)

		for i, e := range entries {
			dim.Printf("[%s] %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Model)
			fmt.Printf("you → %s\n", e.Prompt)
			switch e.Outcome {
			case ai.StateCompleted.String():
				cyan.Printf("sapphire → %s\n", truncateLine(e.Reply, 200))
			case ai.StateCancelled.String():
				yellow.Println("⏹ cancelled")
			default:
				red.Println("✗ failed")
			}
			if i < len(entries)-1 {
				fmt.Println()
			}
		}
		return nil
	},
}

func truncateLine(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of history entries to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete the chat history")
}
