package cmd

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/rag"
)

var askMarkdown bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from your indexed notes",
	Long: `Find the notes closest to the question and let the model answer from
them. Run 'sapphire note index' first, and again after editing notes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := inputText(args)
		if question == "" {
			return errors.New("empty question")
		}
		sess, err := loadAI()
		if err != nil {
			return err
		}
		vs := vectorStore()
		if err := vs.Load(); err != nil {
			return err
		}

		emb := rag.NewEmbedClient(sess.cfg.OllamaURL, sess.cfg.EmbedModel)
		results, err := rag.Retrieve(cmd.Context(), emb, vs, question, rag.DefaultTopK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			color.New(color.FgYellow).Fprintln(os.Stderr, "  No notes look related; answering without context.")
		} else {
			dim := color.New(color.FgHiBlack)
			for _, r := range results {
				dim.Fprintf(os.Stderr, "  · %s\n", r.Doc.Title)
			}
		}

		_, err = sess.runStream(cmd.Context(), rag.AskRequest(sess.model, question, results),
			streamOptions{kind: "ask", markdown: askMarkdown})
		return err
	},
}

func init() {
	askCmd.Flags().BoolVar(&askMarkdown, "markdown", false, "Render the finished answer as markdown")
	aiCmd.AddCommand(askCmd)
}
