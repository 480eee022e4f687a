package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/ai"
	"github.com/arin/sapphire/internal/config"
)

// errWarn marks a check that is worth mentioning but not a failure.
var errWarn = errors.New("warn")

func warnf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errWarn}, args...)...)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system health and configuration",
	Long: `Run a health check on your sapphire setup.
Verifies Ollama connectivity, model availability, settings and the
notes directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 sapphire doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			switch {
			case errors.Is(err, errWarn):
				yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
				dim.Fprintf(os.Stderr, "    %s\n", strings.TrimPrefix(err.Error(), errWarn.Error()+": "))
				warn++
			case err != nil:
				red.Fprintf(os.Stderr, "  ✗ %s\n", name)
				dim.Fprintf(os.Stderr, "    %s\n", err.Error())
				fail++
			default:
				green.Fprintf(os.Stderr, "  ✓ %s", name)
				if detail != "" {
					dim.Fprintf(os.Stderr, " (%s)", detail)
				}
				fmt.Fprintln(os.Stderr)
				pass++
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		model := cfg.Model
		if modelFlag != "" {
			model = modelFlag
		}
		client := ai.NewClient(cfg, ai.WithLogger(logger))

		check("sapphire binary", func() (string, error) {
			path, err := os.Executable()
			if err != nil {
				return "", fmt.Errorf("could not find the sapphire binary")
			}
			return path, nil
		})

		check("Ollama installed", func() (string, error) {
			out, err := exec.Command("ollama", "--version").CombinedOutput()
			if err != nil {
				return "", warnf("ollama not on PATH, install from https://ollama.com (fine if it runs elsewhere)")
			}
			return strings.TrimSpace(string(out)), nil
		})

		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		defer cancel()
		st := client.Status(ctx)

		check("Ollama server reachable", func() (string, error) {
			if !st.Running {
				return "", fmt.Errorf("could not connect to %s (%s), run: ollama serve", client.BaseURL(), st.Error)
			}
			return client.BaseURL(), nil
		})

		check(fmt.Sprintf("Model available (%s)", model), func() (string, error) {
			if !st.Running {
				return "", warnf("skipped, server not reachable")
			}
			if hasModel(st.Models, model) {
				return "ready", nil
			}
			return "", fmt.Errorf("model not found, run: ollama pull %s", model)
		})

		check(fmt.Sprintf("Embedding model (%s)", cfg.EmbedModel), func() (string, error) {
			if !st.Running {
				return "", warnf("skipped, server not reachable")
			}
			if hasModel(st.Models, cfg.EmbedModel) {
				return "ready", nil
			}
			return "", warnf("needed for 'note similar' and 'ai ask', run: ollama pull %s", cfg.EmbedModel)
		})

		check("AI features enabled", func() (string, error) {
			if !cfg.AIEnabled {
				return "", warnf("disabled, enable with: sapphire config set aiEnabled true")
			}
			if cfg.IdleTimeoutSec > 0 {
				return fmt.Sprintf("idle timeout %ds", cfg.IdleTimeoutSec), nil
			}
			return "", nil
		})

		check("Config directory", func() (string, error) {
			return checkDir(config.Dir())
		})

		check("Notes directory", func() (string, error) {
			return checkDir(filepath.Join(config.Dir(), "notes"))
		})

		check("System info", func() (string, error) {
			return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), nil
		})

		fmt.Fprintln(os.Stderr)
		total := pass + fail + warn
		if fail == 0 && warn == 0 {
			green.Fprintf(os.Stderr, "  All %d checks passed. You're good to go.\n\n", total)
		} else if fail == 0 {
			yellow.Fprintf(os.Stderr, "  %d passed, %d warnings. Everything works, but some things could be better.\n\n", pass, warn)
		} else {
			red.Fprintf(os.Stderr, "  %d passed, %d failed, %d warnings. Fix the failures above.\n\n", pass, fail, warn)
		}

		return nil
	},
}

func checkDir(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", warnf("%s not found, it will be created on first use", dir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s exists but is not a directory", dir)
	}
	return dir, nil
}
