package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/arin/sapphire/internal/ai"
)

const (
	// DefaultTopK is how many notes to retrieve per query.
	DefaultTopK = 5

	// MinScore is the minimum cosine similarity for a note to count as
	// related.
	MinScore = 0.3

	maxContextChars = 6000
)

// Retrieve embeds query and returns the closest notes scoring at least
// MinScore.
func Retrieve(ctx context.Context, e Embedder, s *Store, query string, topK int) ([]SearchResult, error) {
	vec, err := e.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	var relevant []SearchResult
	for _, r := range s.Search(vec, topK) {
		if r.Score >= MinScore {
			relevant = append(relevant, r)
		}
	}
	return relevant, nil
}

// FormatContext renders results as a block for the system prompt.
func FormatContext(results []SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Excerpts from the user's notes:\n")
	for _, r := range results {
		entry := fmt.Sprintf("\n## %s\n%s\n", r.Doc.Title, r.Doc.Text)
		if sb.Len()+len(entry) > maxContextChars {
			break
		}
		sb.WriteString(entry)
	}
	return sb.String()
}

// AskRequest builds a generate request that answers question from the
// retrieved notes.
func AskRequest(model, question string, results []SearchResult) ai.Request {
	system := "You answer questions using the user's own notes. Base the answer on the excerpts below. " +
		"If they do not contain the answer, say so briefly. Mention which note an answer comes from.\n\n" +
		FormatContext(results)
	return ai.Request{
		Model:  model,
		System: system,
		Prompt: question,
	}
}
