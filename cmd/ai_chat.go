package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/ai"
	"github.com/arin/sapphire/internal/config"
	"github.com/arin/sapphire/internal/history"
)

var chatSystem string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start a conversation with the model. Context carries over between
messages (the last 20 are sent with each request).

Ctrl+C while an answer is streaming stops that answer; Ctrl+C on an empty
prompt, 'exit' or Ctrl+D ends the session.

Commands:
  /clear         forget the conversation so far
  /model <name>  switch models`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadAI()
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)

		if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
			return err
		}
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          color.GreenString("  you → "),
			HistoryFile:     filepath.Join(config.Dir(), "chat_readline"),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
			Stdout:          os.Stderr,
		})
		if err != nil {
			return fmt.Errorf("failed to start line editor: %w", err)
		}
		defer rl.Close()

		fmt.Fprintln(os.Stderr)
		cyan.Fprintln(os.Stderr, "  sapphire chat")
		dim.Fprintf(os.Stderr, "  Model: %s. Type 'exit' to quit.\n\n", sess.model)

		var convo []ai.Message
		if chatSystem != "" {
			convo = append(convo, ai.Message{Role: ai.RoleSystem, Content: chatSystem})
		}

		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				if line == "" {
					break
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}

			input := strings.TrimSpace(line)
			switch {
			case input == "":
				continue
			case input == "exit" || input == "quit":
				dim.Fprintf(os.Stderr, "\n  Bye.\n\n")
				return nil
			case input == "/clear":
				convo = convo[:0]
				if chatSystem != "" {
					convo = append(convo, ai.Message{Role: ai.RoleSystem, Content: chatSystem})
				}
				dim.Fprintln(os.Stderr, "  Conversation cleared.")
				continue
			case strings.HasPrefix(input, "/model"):
				if name := strings.TrimSpace(strings.TrimPrefix(input, "/model")); name != "" {
					sess.model = name
				}
				dim.Fprintf(os.Stderr, "  Model: %s\n", sess.model)
				continue
			}

			convo = append(convo, ai.Message{Role: ai.RoleUser, Content: input})
			s, err := sess.client.ChatStream(cmd.Context(), sess.model, convo)
			if err != nil {
				return err
			}

			cyan.Fprint(os.Stdout, "  sapphire → ")
			out, err := sess.runStreamed(s, streamOptions{kind: "chat"})
			saveChat(sess.model, input, out)

			switch out.State {
			case ai.StateCompleted:
				convo = append(convo, ai.Message{Role: ai.RoleAssistant, Content: out.Text})
			default:
				// Drop the unanswered question so the next turn stays coherent.
				convo = convo[:len(convo)-1]
				if err != nil {
					color.New(color.FgRed).Fprintf(os.Stderr, "  ✗ %v\n", err)
				}
			}
			fmt.Fprintln(os.Stdout)
		}
		return nil
	},
}

func saveChat(model, prompt string, out ai.Outcome) {
	err := history.Save(history.Entry{
		Model:   model,
		Prompt:  prompt,
		Reply:   out.Text,
		Outcome: out.State.String(),
	})
	if err != nil {
		logger.Debug("failed to save chat history", "error", err)
	}
}

func init() {
	chatCmd.Flags().StringVarP(&chatSystem, "system", "s", "", "System message that starts the conversation")
}
