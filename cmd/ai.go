package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/ai"
	"github.com/arin/sapphire/internal/config"
	"github.com/arin/sapphire/internal/stats"
	"github.com/arin/sapphire/internal/ui"
)

const maxStdin = 8000

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Generate, rewrite and chat with a local Ollama model",
}

func init() {
	aiCmd.AddCommand(generateCmd)
	aiCmd.AddCommand(chatCmd)
	aiCmd.AddCommand(actionCmd)
	aiCmd.AddCommand(actionsCmd)
	aiCmd.AddCommand(suggestTagsCmd)
	aiCmd.AddCommand(suggestTitleCmd)
	aiCmd.AddCommand(aiStatusCmd)
	aiCmd.AddCommand(modelsCmd)
}

// aiSession bundles what every AI command needs.
type aiSession struct {
	cfg    *config.Config
	client *ai.Client
	model  string
}

func loadAI() (*aiSession, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if !cfg.AIEnabled {
		return nil, errors.New("AI features are disabled (enable with: sapphire config set aiEnabled true)")
	}
	model := cfg.Model
	if modelFlag != "" {
		model = modelFlag
	}
	return &aiSession{
		cfg:    cfg,
		client: ai.NewClient(cfg, ai.WithLogger(logger)),
		model:  model,
	}, nil
}

// cancelOnInterrupt cancels s when the user presses Ctrl+C. The returned
// func stops listening.
func cancelOnInterrupt(s *ai.Stream) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			s.Cancel()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// streamOptions controls how an answer is shown.
type streamOptions struct {
	kind     string
	action   string
	markdown bool
	prefix   string
}

// runStream streams req to stdout and records the request. A cancelled
// stream is not an error.
func (a *aiSession) runStream(ctx context.Context, req ai.Request, opts streamOptions) (ai.Outcome, error) {
	s, err := a.client.Stream(ctx, req)
	if err != nil {
		return ai.Outcome{}, err
	}
	return a.runStreamed(s, opts)
}

// runStreamed shows an already started stream.
func (a *aiSession) runStreamed(s *ai.Stream, opts streamOptions) (ai.Outcome, error) {
	stop := cancelOnInterrupt(s)
	defer stop()

	var out ai.Outcome
	if opts.markdown {
		sp := ui.NewSpinner("Thinking...")
		sp.Start()
		_, _ = s.Collect()
		out = s.Wait()
		if out.State == ai.StateCancelled {
			sp.Cancelled()
		} else {
			sp.Stop()
		}
		if out.State == ai.StateCompleted {
			if err := ui.RenderMarkdown(os.Stdout, out.Text, a.cfg.Theme); err != nil {
				fmt.Println(out.Text)
			}
		}
	} else {
		out = ui.RenderStream(os.Stdout, s, opts.prefix)
	}

	a.record(opts.kind, opts.action, out.State, out.Duration, out.Fragments, len(out.Text))
	if out.State == ai.StateFailed {
		return out, out.Err
	}
	return out, nil
}

// complete runs a non-streaming request behind a spinner. Ctrl+C aborts it.
func (a *aiSession) complete(ctx context.Context, kind, msg string, fn func(ctx context.Context) (string, error)) (string, bool, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sp := ui.NewSpinner(msg)
	sp.Start()
	start := time.Now()
	reply, err := fn(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		sp.Stop()
		a.record(kind, "", ai.StateCompleted, elapsed, 0, len(reply))
		return reply, true, nil
	case ai.IsCancelled(err):
		sp.Cancelled()
		a.record(kind, "", ai.StateCancelled, elapsed, 0, 0)
		return "", false, nil
	default:
		sp.Fail("Request failed")
		a.record(kind, "", ai.StateFailed, elapsed, 0, 0)
		return "", false, err
	}
}

func (a *aiSession) record(kind, action string, state ai.State, d time.Duration, fragments, chars int) {
	err := stats.Save(stats.Record{
		Kind:      kind,
		Action:    action,
		Model:     a.model,
		Outcome:   state.String(),
		Latency:   d,
		Fragments: fragments,
		Chars:     chars,
	})
	if err != nil {
		logger.Debug("failed to save stats", "error", err)
	}
}

// readStdin reads piped input if available.
func readStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil {
		return ""
	}
	// Check if data is being piped in (not a terminal).
	if (info.Mode() & os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdin+1))
	if err != nil {
		return ""
	}
	return clipBytes(strings.TrimSpace(string(data)), maxStdin)
}

// clipBytes cuts s to at most n bytes without splitting a character.
func clipBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// inputText joins args, falling back to piped stdin.
func inputText(args []string) string {
	if text := strings.TrimSpace(strings.Join(args, " ")); text != "" {
		return text
	}
	return readStdin()
}
