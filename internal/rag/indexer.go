package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/arin/sapphire/internal/notes"
)

// chunkWords is how many words go into one embedded chunk.
const chunkWords = 200

// IndexStats reports what a Sync did.
type IndexStats struct {
	Embedded  int // notes (re)embedded
	Unchanged int
	Removed   int // notes dropped because they no longer exist
	Chunks    int // chunks in the store afterwards
}

// Indexer keeps a vector store in step with the notes.
type Indexer struct {
	embedder Embedder
	store    *Store
}

// NewIndexer creates an indexer writing into store.
func NewIndexer(embedder Embedder, store *Store) *Indexer {
	return &Indexer{embedder: embedder, store: store}
}

// Sync embeds notes that are new or changed since they were last indexed,
// drops notes that are gone, and saves the store. Work done before an error
// is saved too, so an interrupted run resumes where it stopped.
func (idx *Indexer) Sync(ctx context.Context, list []*notes.Note, progress func(msg string)) (IndexStats, error) {
	var st IndexStats
	stamps := idx.store.Stamps()
	present := make(map[string]bool, len(list))

	var todo []*notes.Note
	for _, n := range list {
		present[n.ID] = true
		if stamp, ok := stamps[n.ID]; ok && stamp == n.UpdatedAt.UnixNano() {
			st.Unchanged++
			continue
		}
		todo = append(todo, n)
	}
	for id := range stamps {
		if !present[id] {
			idx.store.RemoveNote(id)
			st.Removed++
		}
	}

	var err error
	for i, n := range todo {
		if err = idx.embedNote(ctx, n); err != nil {
			err = fmt.Errorf("failed to embed %q: %w", n.Title, err)
			break
		}
		st.Embedded++
		if (i+1)%10 == 0 {
			progress(fmt.Sprintf("  embedded %d/%d notes...", i+1, len(todo)))
		}
	}

	st.Chunks = idx.store.Len()
	if saveErr := idx.store.Save(); saveErr != nil && err == nil {
		err = fmt.Errorf("failed to save vector store: %w", saveErr)
	}
	return st, err
}

func (idx *Indexer) embedNote(ctx context.Context, n *notes.Note) error {
	chunks := chunkText(notes.PlainText(n.Content), chunkWords)
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	docs := make([]Document, 0, len(chunks))
	for _, c := range chunks {
		vec, err := idx.embedder.Embed(ctx, strings.TrimSpace(n.Title+"\n"+c))
		if err != nil {
			return err
		}
		docs = append(docs, Document{
			NoteID: n.ID,
			Title:  n.Title,
			Text:   c,
			Stamp:  n.UpdatedAt.UnixNano(),
			Vector: vec,
		})
	}
	// Replace only once every chunk embedded, so a failure keeps the old ones.
	idx.store.RemoveNote(n.ID)
	for _, d := range docs {
		idx.store.Add(d)
	}
	return nil
}

// chunkText splits text into runs of at most size words.
func chunkText(text string, size int) []string {
	words := strings.Fields(text)
	var out []string
	for len(words) > 0 {
		n := min(size, len(words))
		out = append(out, strings.Join(words[:n], " "))
		words = words[n:]
	}
	return out
}
