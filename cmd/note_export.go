package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/notes"
)

var (
	exportFormat = formatValue(notes.FormatMarkdown)
	exportOut    string
)

var noteExportCmd = &cobra.Command{
	Use:   "export <note>",
	Short: "Export a note as markdown, json, html or text",
	Long: `Export a note. Without -o the result goes to stdout; with -o pointing at a
directory the file is named after the note.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, n, err := openNote(args[0])
		if err != nil {
			return err
		}
		f := notes.Format(exportFormat)
		data, err := notes.Export(n, f)
		if err != nil {
			return err
		}
		if exportOut == "" {
			_, err := os.Stdout.Write(data)
			return err
		}

		path := exportOut
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, notes.FileName(n, f))
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ Exported to %s\n", path)
		return nil
	},
}

var noteImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import .md, .txt, .json or .html files as notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := notes.Default()
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)

		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				red.Fprintf(os.Stderr, "  ✗ %s: %v\n", path, err)
				failed++
				continue
			}
			n, err := notes.Import(path, data)
			if err == nil {
				n, err = store.Save(n)
			}
			if err != nil {
				red.Fprintf(os.Stderr, "  ✗ %s: %v\n", path, err)
				failed++
				continue
			}
			green.Fprintf(os.Stderr, "  ✓ %s → %q ", filepath.Base(path), n.Title)
			fmt.Println(n.ID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to import", failed, len(args))
		}
		return nil
	},
}

func init() {
	noteExportCmd.Flags().VarP(&exportFormat, "format", "f", "Export format")
	noteExportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to this file or directory")
}
