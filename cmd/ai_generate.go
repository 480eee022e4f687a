package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/ai"
	"github.com/arin/sapphire/internal/ui"
)

var (
	genSystem   string
	genNoStream bool
	genMarkdown bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Send a single prompt and stream the answer",
	Long: `Send a single prompt to the model and print the answer as it is generated.
The prompt can also be piped in on stdin.

Examples:
  sapphire ai generate "Write a haiku about autumn"
  cat draft.txt | sapphire ai generate --system "You are an editor" --markdown`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := inputText(args)
		if prompt == "" {
			return errors.New("no prompt given (pass it as an argument or pipe it in)")
		}
		sess, err := loadAI()
		if err != nil {
			return err
		}
		req := ai.Request{Model: sess.model, Prompt: prompt, System: genSystem}

		if genNoStream {
			reply, ok, err := sess.complete(cmd.Context(), "generate", "Thinking...", func(ctx context.Context) (string, error) {
				return sess.client.Complete(ctx, req)
			})
			if err != nil || !ok {
				return err
			}
			if genMarkdown {
				return ui.RenderMarkdown(cmd.OutOrStdout(), reply, sess.cfg.Theme)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		}

		_, err = sess.runStream(cmd.Context(), req, streamOptions{kind: "generate", markdown: genMarkdown})
		return err
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genSystem, "system", "s", "", "System instruction for the model")
	generateCmd.Flags().BoolVar(&genNoStream, "no-stream", false, "Wait for the whole answer instead of streaming it")
	generateCmd.Flags().BoolVar(&genMarkdown, "markdown", false, "Render the finished answer as markdown")
}
