package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/config"
	"github.com/arin/sapphire/internal/notes"
	"github.com/arin/sapphire/internal/templates"
	"github.com/arin/sapphire/internal/ui"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "List and preview note templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := templates.Load()
		if err != nil {
			return err
		}
		dim := color.New(color.FgHiBlack)
		for _, t := range list {
			fmt.Printf("%-12s ", t.ID)
			dim.Println(t.Name)
		}
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <template>",
	Short: "Preview a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := templates.Load()
		if err != nil {
			return err
		}
		t, err := templates.Find(list, args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		text, _ := notes.Export(&notes.Note{Title: t.Name, Content: t.Content}, notes.FormatText)
		if err := ui.RenderMarkdown(os.Stdout, string(text), cfg.Theme); err != nil {
			fmt.Print(string(text))
		}
		return nil
	},
}

func init() {
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
}
