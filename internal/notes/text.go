package notes

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const snippetContext = 40

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from note HTML and decodes entities.
func PlainText(content string) string {
	if content == "" {
		return ""
	}
	return html.UnescapeString(strict.Sanitize(content))
}

var (
	blockEndRe = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|h[1-6]|li|pre|blockquote)>`)
	blankRunRe = regexp.MustCompile(`\n[ \t]*\n(\s*\n)+`)
)

// BlockText is PlainText that keeps the layout: block elements end with a
// blank line and <br> becomes a newline. TextToHTML turns the result back
// into the same paragraphs.
func BlockText(content string) string {
	marked := blockEndRe.ReplaceAllStringFunc(content, func(m string) string {
		if strings.HasPrefix(strings.ToLower(m), "<br") {
			return m + "\n"
		}
		return m + "\n\n"
	})
	return strings.TrimSpace(blankRunRe.ReplaceAllString(PlainText(marked), "\n\n"))
}

// SearchResult is one note matching a query.
type SearchResult struct {
	ID           string
	Title        string
	Snippet      string
	MatchInTitle bool
}

// Search returns notes whose title or text contains query, ignoring case.
// The snippet shows the first match in the text with some context.
func (s *Store) Search(query string) ([]SearchResult, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	notes, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, n := range notes {
		plain := strings.ToLower(PlainText(n.Content))
		inTitle := strings.Contains(strings.ToLower(n.Title), q)
		idx := strings.Index(plain, q)
		if !inTitle && idx < 0 {
			continue
		}
		results = append(results, SearchResult{
			ID:           n.ID,
			Title:        n.Title,
			Snippet:      snippet(plain, idx, len(q)),
			MatchInTitle: inTitle,
		})
	}
	return results, nil
}

func snippet(text string, idx, qlen int) string {
	if idx < 0 {
		return ""
	}
	start := max(0, idx-snippetContext)
	end := min(len(text), idx+qlen+snippetContext)
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(text[start:end])
	if end < len(text) {
		b.WriteString("...")
	}
	return b.String()
}
