package cmd

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/config"
	"github.com/arin/sapphire/internal/editor"
	"github.com/arin/sapphire/internal/notes"
	"github.com/arin/sapphire/internal/templates"
	"github.com/arin/sapphire/internal/ui"
)

var (
	newTemplate string
	newTags     []string
	listTag     string
	listPreview bool
	showRaw     bool
)

var noteCmd = &cobra.Command{
	Use:     "note",
	Aliases: []string{"n"},
	Short:   "Create, list, search and organize notes",
	Long: `Notes live as JSON files in ~/.sapphire/notes. Every command that takes a
note accepts its full id or any unique prefix of it.`,
}

var noteNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a note (content is read from stdin)",
	Example: `  echo "buy milk" | sapphire note new Groceries --tag home
  sapphire note new "Standup" --template meeting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := notes.Default()
		if err != nil {
			return err
		}
		n := &notes.Note{Title: strings.Join(args, " "), Tags: newTags}

		if newTemplate != "" {
			list, err := templates.Load()
			if err != nil {
				return err
			}
			tpl, err := templates.Find(list, newTemplate)
			if err != nil {
				return err
			}
			n.Content = tpl.Content
			if n.Title == "" {
				n.Title = tpl.Name
			}
		}
		if body := readStdin(); body != "" {
			n.Content += notes.TextToHTML(body)
		}

		saved, err := store.Save(n)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ Created %q ", saved.Title)
		fmt.Println(saved.ID)
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notes, pinned first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := notes.Default()
		if err != nil {
			return err
		}
		list, err := store.List()
		if err != nil {
			return err
		}
		notes.SortNotes(list, cfg.SortBy, cfg.SortOrder)

		if listTag != "" {
			list = slices.DeleteFunc(list, func(n *notes.Note) bool {
				return !slices.Contains(n.Tags, listTag)
			})
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No notes yet. Create one with: sapphire note new <title>")
			return nil
		}
		for _, n := range list {
			printNoteLine(n, listPreview)
		}
		return nil
	},
}

func printNoteLine(n *notes.Note, withPreview bool) {
	dim := color.New(color.FgHiBlack)
	yellow := color.New(color.FgYellow)

	dim.Printf("%s  ", shortID(n.ID))
	marks := ""
	if n.Pinned {
		marks += "📌"
	}
	if n.Favorite {
		marks += "★"
	}
	if marks != "" {
		yellow.Printf("%s ", marks)
	}
	fmt.Print(n.Title)
	if len(n.Tags) > 0 {
		color.New(color.FgCyan).Printf("  #%s", strings.Join(n.Tags, " #"))
	}
	dim.Printf("  %s\n", n.UpdatedAt.Local().Format("2006-01-02 15:04"))
	if withPreview && n.Preview != "" {
		dim.Printf("          %s\n", n.Preview)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var noteShowCmd = &cobra.Command{
	Use:   "show <note>",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, n, err := openNote(args[0])
		if err != nil {
			return err
		}
		if showRaw {
			fmt.Println(n.Content)
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		md, err := notes.Export(n, notes.FormatText)
		if err != nil {
			return err
		}
		if err := ui.RenderMarkdown(os.Stdout, string(md), cfg.Theme); err != nil {
			fmt.Print(string(md))
		}
		dim := color.New(color.FgHiBlack)
		if len(n.Tags) > 0 {
			dim.Printf("  tags: %s\n", strings.Join(n.Tags, ", "))
		}
		dim.Printf("  %d words · created %s · updated %s\n", n.WordCount,
			n.CreatedAt.Local().Format("2006-01-02 15:04"), n.UpdatedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <note>",
	Short: "Edit a note in $EDITOR",
	Long: `Open the note as markdown in $VISUAL or $EDITOR. Title and tags are in the
front matter; blank lines separate paragraphs. Saving an unchanged file leaves
the note alone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, n, err := openNote(args[0])
		if err != nil {
			return err
		}
		before, err := notes.Export(n, notes.FormatMarkdown)
		if err != nil {
			return err
		}
		after, err := editor.Edit(notes.FileName(n, notes.FormatMarkdown), before)
		if err != nil {
			return err
		}
		if bytes.Equal(before, after) {
			fmt.Fprintln(os.Stderr, "No changes.")
			return nil
		}
		if err := notes.ApplyEdit(n, after); err != nil {
			return err
		}
		if _, err := store.Save(n); err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("  ✓ Saved %q\n", n.Title)
		return nil
	},
}

var noteRmCmd = &cobra.Command{
	Use:     "rm <note>...",
	Aliases: []string{"delete"},
	Short:   "Delete notes",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := notes.Default()
		if err != nil {
			return err
		}
		for _, ref := range args {
			n, err := store.Resolve(ref)
			if err != nil {
				return err
			}
			if err := store.Delete(n.ID); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("  ✓ Deleted %q\n", n.Title)
		}
		return nil
	},
}

var noteDupCmd = &cobra.Command{
	Use:   "dup <note>",
	Short: "Duplicate a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, n, err := openNote(args[0])
		if err != nil {
			return err
		}
		cp, err := store.Duplicate(n.ID)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ Created %q ", cp.Title)
		fmt.Println(cp.ID)
		return nil
	},
}

var noteSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search note titles and text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := notes.Default()
		if err != nil {
			return err
		}
		results, err := store.Search(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No matches.")
			return nil
		}
		dim := color.New(color.FgHiBlack)
		for _, r := range results {
			dim.Printf("%s  ", shortID(r.ID))
			fmt.Println(r.Title)
			if r.Snippet != "" {
				dim.Printf("          %s\n", r.Snippet)
			}
		}
		return nil
	},
}

var noteLinkCmd = &cobra.Command{
	Use:   "link <from> <to>",
	Short: "Link one note to another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, from, err := openNote(args[0])
		if err != nil {
			return err
		}
		to, err := store.Resolve(args[1])
		if err != nil {
			return err
		}
		if _, err := store.Link(from.ID, to.ID); err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("  ✓ %q → %q\n", from.Title, to.Title)
		return nil
	},
}

var noteBacklinksCmd = &cobra.Command{
	Use:   "backlinks <note>",
	Short: "List the notes that link to a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, n, err := openNote(args[0])
		if err != nil {
			return err
		}
		back, err := store.Backlinks(n.ID)
		if err != nil {
			return err
		}
		if len(back) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing links here.")
			return nil
		}
		for _, b := range back {
			printNoteLine(b, false)
		}
		return nil
	},
}

// toggleCmd flips a boolean field of a note.
func toggleCmd(use, short, on, off string, field func(n *notes.Note) *bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <note>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, n, err := openNote(args[0])
			if err != nil {
				return err
			}
			v := field(n)
			*v = !*v
			if _, err := store.Save(n); err != nil {
				return err
			}
			state := off
			if *v {
				state = on
			}
			color.New(color.FgGreen).Printf("  ✓ %q %s\n", n.Title, state)
			return nil
		},
	}
}

// openNote resolves a note reference in the default store.
func openNote(ref string) (*notes.Store, *notes.Note, error) {
	store, err := notes.Default()
	if err != nil {
		return nil, nil, err
	}
	n, err := store.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}
	return store, n, nil
}

func init() {
	noteNewCmd.Flags().StringVarP(&newTemplate, "template", "t", "", "Start from a template (id or name)")
	noteNewCmd.Flags().StringSliceVar(&newTags, "tag", nil, "Tag the note (repeatable)")
	noteListCmd.Flags().StringVar(&listTag, "tag", "", "Only notes with this tag")
	noteListCmd.Flags().BoolVarP(&listPreview, "preview", "p", false, "Show a preview line for each note")
	noteShowCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the stored HTML")

	noteCmd.AddCommand(noteNewCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteShowCmd)
	noteCmd.AddCommand(noteEditCmd)
	noteCmd.AddCommand(noteRmCmd)
	noteCmd.AddCommand(noteDupCmd)
	noteCmd.AddCommand(noteSearchCmd)
	noteCmd.AddCommand(noteLinkCmd)
	noteCmd.AddCommand(noteBacklinksCmd)
	noteCmd.AddCommand(noteExportCmd)
	noteCmd.AddCommand(noteImportCmd)
	noteCmd.AddCommand(toggleCmd("pin", "Pin or unpin a note", "pinned", "unpinned",
		func(n *notes.Note) *bool { return &n.Pinned }))
	noteCmd.AddCommand(toggleCmd("fav", "Mark or unmark a note as favorite", "is a favorite", "is no longer a favorite",
		func(n *notes.Note) *bool { return &n.Favorite }))
}
