package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/notes"
)

var suggestApply bool

var suggestTagsCmd = &cobra.Command{
	Use:   "suggest-tags <note>",
	Short: "Ask the model for tags that fit a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, note, err := openNote(args[0])
		if err != nil {
			return err
		}
		sess, err := loadAI()
		if err != nil {
			return err
		}

		var tags []string
		_, ok, err := sess.complete(cmd.Context(), "suggest-tags", "Reading your note...", func(ctx context.Context) (string, error) {
			var err error
			tags, err = sess.client.SuggestTags(ctx, sess.model, note.Title, notes.PlainText(note.Content))
			return strings.Join(tags, ","), err
		})
		if err != nil || !ok {
			return err
		}
		if len(tags) == 0 {
			color.New(color.FgYellow).Println("  No usable tags in the reply.")
			return nil
		}
		fmt.Println(strings.Join(tags, ", "))

		if !suggestApply {
			return nil
		}
		for _, t := range tags {
			if !slices.Contains(note.Tags, t) {
				note.Tags = append(note.Tags, t)
			}
		}
		if _, err := store.Save(note); err != nil {
			return fmt.Errorf("failed to save note: %w", err)
		}
		color.New(color.FgGreen).Printf("  ✓ Tags added to %q\n", note.Title)
		return nil
	},
}

var suggestTitleCmd = &cobra.Command{
	Use:   "suggest-title <note>",
	Short: "Ask the model for a short title for a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, note, err := openNote(args[0])
		if err != nil {
			return err
		}
		sess, err := loadAI()
		if err != nil {
			return err
		}

		title, ok, err := sess.complete(cmd.Context(), "suggest-title", "Reading your note...", func(ctx context.Context) (string, error) {
			return sess.client.SuggestTitle(ctx, sess.model, notes.PlainText(note.Content))
		})
		if err != nil || !ok {
			return err
		}
		fmt.Println(title)

		if !suggestApply || title == "" {
			return nil
		}
		note.Title = title
		if _, err := store.Save(note); err != nil {
			return fmt.Errorf("failed to save note: %w", err)
		}
		color.New(color.FgGreen).Printf("  ✓ Renamed to %q\n", title)
		return nil
	},
}

func init() {
	suggestTagsCmd.Flags().BoolVar(&suggestApply, "apply", false, "Add the suggested tags to the note")
	suggestTitleCmd.Flags().BoolVar(&suggestApply, "apply", false, "Use the suggested title for the note")
}
