package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/ai"
	"github.com/arin/sapphire/internal/notes"
)

var (
	actionNote     string
	actionReplace  bool
	actionMarkdown bool
)

var actionCmd = &cobra.Command{
	Use:   "action <action> [text]",
	Short: "Run a text action (summarize, rewrite, translate...) on text or a note",
	Long: `Run one of the built-in text actions. The input is the given text, piped
stdin, or the plain text of a note with --note.

Examples:
  sapphire ai action summarize --note 3f2a
  sapphire ai action translate_french "See you tomorrow"
  pbpaste | sapphire ai action fix_grammar

Run 'sapphire ai actions' for the full list.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := args[0]
		if _, err := ai.ActionRequest("", action, ""); err != nil {
			return err
		}

		var (
			store *notes.Store
			note  *notes.Note
			text  string
			err   error
		)
		if actionNote != "" {
			store, err = notes.Default()
			if err != nil {
				return err
			}
			note, err = store.Resolve(actionNote)
			if err != nil {
				return err
			}
			text = strings.TrimSpace(notes.PlainText(note.Content))
		} else {
			text = inputText(args[1:])
		}
		if text == "" {
			return errors.New("nothing to work on (pass text, pipe it in, or use --note)")
		}
		if actionReplace && note == nil {
			return errors.New("--replace needs --note")
		}

		sess, err := loadAI()
		if err != nil {
			return err
		}
		s, err := sess.client.Action(cmd.Context(), sess.model, action, text)
		if err != nil {
			return err
		}
		out, err := sess.runStreamed(s, streamOptions{kind: "action", action: action, markdown: actionMarkdown})
		if err != nil || out.State != ai.StateCompleted || !actionReplace {
			return err
		}

		note.Content = notes.TextToHTML(out.Text)
		if _, err := store.Save(note); err != nil {
			return fmt.Errorf("failed to save note: %w", err)
		}
		color.New(color.FgGreen).Printf("  ✓ Updated %q\n", note.Title)
		return nil
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the available text actions",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range ai.Actions() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	actionCmd.Flags().StringVarP(&actionNote, "note", "n", "", "Use the text of this note (id or id prefix)")
	actionCmd.Flags().BoolVar(&actionReplace, "replace", false, "Replace the note's content with the result")
	actionCmd.Flags().BoolVar(&actionMarkdown, "markdown", false, "Render the finished answer as markdown")
}
