package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/ai"
)

var aiStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether Ollama is running and the model is installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadAI()
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		st := sess.client.Status(cmd.Context())
		if !st.Running {
			red.Fprintf(os.Stderr, "  ✗ Ollama is not reachable at %s\n", sess.client.BaseURL())
			dim.Fprintf(os.Stderr, "    %s\n", st.Error)
			return nil
		}
		green.Fprintf(os.Stderr, "  ✓ Ollama is running at %s", sess.client.BaseURL())
		dim.Fprintf(os.Stderr, " (%d models)\n", len(st.Models))

		if hasModel(st.Models, sess.model) {
			green.Fprintf(os.Stderr, "  ✓ Model %s is installed\n", sess.model)
		} else {
			yellow.Fprintf(os.Stderr, "  ⚠ Model %s is not installed\n", sess.model)
			dim.Fprintf(os.Stderr, "    run: ollama pull %s\n", sess.model)
		}
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models installed in Ollama",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadAI()
		if err != nil {
			return err
		}
		models, err := sess.client.Models(cmd.Context())
		if err != nil {
			return err
		}
		if len(models) == 0 {
			fmt.Fprintln(os.Stderr, "No models installed. Try: ollama pull gemma3")
			return nil
		}
		dim := color.New(color.FgHiBlack)
		for _, m := range models {
			marker := "  "
			if m.Name == sess.model {
				marker = color.GreenString("* ")
			}
			fmt.Printf("%s%-32s ", marker, m.Name)
			dim.Printf("%s\n", humanSize(m.Size))
		}
		return nil
	},
}

// hasModel matches "gemma3" against "gemma3:latest" the way Ollama does.
func hasModel(models []ai.Model, name string) bool {
	want := name
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, m := range models {
		if m.Name == name || m.Name == want {
			return true
		}
	}
	return false
}

func humanSize(n int64) string {
	const gb, mb = 1 << 30, 1 << 20
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.0f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d B", n)
}
