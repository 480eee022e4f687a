package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show AI usage statistics",
	Long: `Display a dashboard of your AI usage: request counts, how many answers
completed, were cancelled or failed, response times and the most used actions.

Data is collected automatically and stored locally in ~/.sapphire/stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 sapphire stats\n\n")

		if summary.TotalRequests == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Ask the model something and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		green.Fprintf(os.Stderr, "  Requests:  ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalRequests)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week)\n", summary.TodayCount, summary.ThisWeekCount)

		green.Fprintf(os.Stderr, "  Outcomes:  ")
		fmt.Fprintf(os.Stderr, "%d completed, %d cancelled, %d failed\n", summary.Completed, summary.Cancelled, summary.Failed)

		green.Fprintf(os.Stderr, "  Success:   ")
		if summary.SuccessRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		}

		green.Fprintf(os.Stderr, "  AI time:   ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgLatencyMs)

		printBreakdown("Kinds", summary.KindBreakdown, summary.TotalRequests)
		printBreakdown("Models", summary.ModelBreakdown, summary.TotalRequests)

		if len(summary.TopActions) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Top Actions")
			for i, ac := range summary.TopActions {
				dim.Fprintf(os.Stderr, "  %d. ", i+1)
				fmt.Fprintf(os.Stderr, "%s ", ac.Action)
				dim.Fprintf(os.Stderr, "(%dx)\n", ac.Count)
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}

func printBreakdown(title string, counts map[string]int, total int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	dim := color.New(color.FgHiBlack)
	fmt.Fprintln(os.Stderr)
	color.New(color.FgCyan, color.Bold).Fprintf(os.Stderr, "  %s\n", title)
	for _, k := range keys {
		pct := float64(counts[k]) / float64(total) * 100
		bar := strings.Repeat("█", int(pct/5))
		dim.Fprintf(os.Stderr, "  %-14s ", k)
		fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)\n", bar, counts[k], pct)
	}
}
