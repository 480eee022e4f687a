package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/config"
	"github.com/arin/sapphire/internal/notes"
	"github.com/arin/sapphire/internal/rag"
	"github.com/arin/sapphire/internal/ui"
)

var (
	indexRebuild bool
	similarTop   int
)

func vectorStore() *rag.Store {
	return rag.NewStore(filepath.Join(config.Dir(), rag.FileName))
}

func embedder() (*rag.EmbedClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !cfg.AIEnabled {
		return nil, errors.New("AI features are disabled (enable with: sapphire config set aiEnabled true)")
	}
	return rag.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel), nil
}

var noteIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed notes for 'note similar' and 'ai ask'",
	Long: `Embed your notes with a local Ollama embedding model (the embedModel
setting, nomic-embed-text by default). Only new and changed notes are
embedded; run it again any time. Use --rebuild to start from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		emb, err := embedder()
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

		vs := vectorStore()
		if indexRebuild {
			if err := vs.Flush(); err != nil {
				return err
			}
		} else if err := vs.Load(); err != nil && !errors.Is(err, rag.ErrNoIndex) {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dim := color.New(color.FgHiBlack)
		sp := ui.NewSpinner(fmt.Sprintf("Embedding %d notes with %s...", len(list), emb.Model()))
		sp.Start()
		st, err := rag.NewIndexer(emb, vs).Sync(ctx, list, func(msg string) {
			logger.Debug(strings.TrimSpace(msg))
		})
		if err != nil {
			if ctx.Err() != nil {
				sp.Cancelled()
				dim.Fprintf(os.Stderr, "  %d notes embedded before stopping; run again to continue.\n", st.Embedded)
				return nil
			}
			sp.Fail("Indexing failed")
			return err
		}
		sp.Success(fmt.Sprintf("Indexed %d notes", len(list)))
		dim.Fprintf(os.Stderr, "  %d embedded, %d unchanged, %d removed, %d chunks\n",
			st.Embedded, st.Unchanged, st.Removed, st.Chunks)
		return nil
	},
}

var noteSimilarCmd = &cobra.Command{
	Use:   "similar <query>",
	Short: "Find notes by meaning rather than exact words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		emb, err := embedder()
		if err != nil {
			return err
		}
		vs := vectorStore()
		if err := vs.Load(); err != nil {
			return err
		}

		results, err := rag.Retrieve(cmd.Context(), emb, vs, strings.Join(args, " "), similarTop)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No related notes.")
			return nil
		}
		dim := color.New(color.FgHiBlack)
		for _, r := range results {
			dim.Printf("%s  ", shortID(r.Doc.NoteID))
			fmt.Print(r.Doc.Title)
			dim.Printf("  %.0f%%\n", r.Score*100)
		}
		return nil
	},
}

func init() {
	noteIndexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "Discard the index and embed every note again")
	noteSimilarCmd.Flags().IntVarP(&similarTop, "top", "k", rag.DefaultTopK, "Number of notes to show")

	noteCmd.AddCommand(noteIndexCmd)
	noteCmd.AddCommand(noteSimilarCmd)
}
