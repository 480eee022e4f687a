package notes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

// Format is an export file format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatText     Format = "txt"
)

// Formats lists the supported formats.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatHTML, FormatText}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(s), "."))
	if f == "markdown" {
		f = FormatMarkdown
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (use md, json, html or txt)", s)
}

// frontMatter is the YAML header of a markdown export.
type frontMatter struct {
	Title   string    `yaml:"title"`
	Tags    []string  `yaml:"tags,omitempty"`
	Created time.Time `yaml:"created,omitempty"`
	Updated time.Time `yaml:"updated,omitempty"`
}

// FileName suggests a file name for an exported note.
func FileName(n *Note, f Format) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, strings.TrimSpace(n.Title))
	if name == "" {
		name = untitled
	}
	return name + "." + string(f)
}

// Export renders a note in the given format.
func Export(n *Note, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(n, "", "  ")
	case FormatHTML:
		return []byte(exportHTML(n)), nil
	case FormatMarkdown:
		return markdownDoc(n)
	case FormatText:
		return []byte(plainExport(n)), nil
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}

func markdownDoc(n *Note) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("---\n")
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(frontMatter{
		Title:   n.Title,
		Tags:    n.Tags,
		Created: n.CreatedAt,
		Updated: n.UpdatedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	b.WriteString("---\n\n")
	b.WriteString(plainExport(n))
	return b.Bytes(), nil
}

// ApplyEdit updates n from an edited markdown export of it. The id and
// timestamps are kept.
func ApplyEdit(n *Note, data []byte) error {
	edited, err := Import(n.ID+".md", data)
	if err != nil {
		return err
	}
	n.Title = edited.Title
	n.Content = edited.Content
	n.Tags = edited.Tags
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return nil
}

func plainExport(n *Note) string {
	return "# " + n.Title + "\n\n" + BlockText(n.Content) + "\n"
}

func exportHTML(n *Note) string {
	title := html.EscapeString(n.Title)
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>` + title + `</title>
  <style>
    body { font-family: -apple-system, sans-serif; max-width: 800px; margin: 40px auto; padding: 20px; line-height: 1.6; }
  </style>
</head>
<body>
  <h1>` + title + `</h1>
  ` + n.Content + `
</body>
</html>
`
}

var (
	titleRe = regexp.MustCompile(`(?i)<title>([^<]*)</title>`)
	bodyRe  = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)
	h1Re    = regexp.MustCompile(`(?is)^\s*<h1[^>]*>.*?</h1>`)

	// ugc keeps formatting markup from imported pages and drops scripts.
	ugc = bluemonday.UGCPolicy()
)

// Import builds an unsaved note from a file's name and contents. The
// format is chosen by extension; anything that is not json or html is
// treated as text.
func Import(name string, data []byte) (*Note, error) {
	extension := strings.ToLower(filepath.Ext(name))
	n := &Note{Title: strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))}
	content := string(data)

	switch extension {
	case ".json":
		var src struct {
			Title   string   `json:"title"`
			Content string   `json:"content"`
			Tags    []string `json:"tags"`
		}
		if err := json.Unmarshal(data, &src); err != nil {
			n.Content = "<pre>" + html.EscapeString(content) + "</pre>"
			return n, nil
		}
		if src.Title != "" {
			n.Title = src.Title
		}
		n.Content = src.Content
		n.Tags = src.Tags
	case ".html", ".htm":
		if m := titleRe.FindStringSubmatch(content); m != nil {
			n.Title = html.UnescapeString(strings.TrimSpace(m[1]))
		}
		body := content
		if m := bodyRe.FindStringSubmatch(content); m != nil {
			body = m[1]
		}
		// Our own exports repeat the title as the first heading.
		body = h1Re.ReplaceAllString(body, "")
		n.Content = strings.TrimSpace(ugc.Sanitize(body))
	case ".md", ".markdown":
		body := content
		fm, rest, hasMeta := splitFrontMatter(content)
		if hasMeta {
			var meta frontMatter
			if err := yaml.Unmarshal([]byte(fm), &meta); err != nil {
				return nil, fmt.Errorf("failed to parse front matter in %s: %w", name, err)
			}
			if meta.Title != "" {
				n.Title = meta.Title
			}
			n.Tags = meta.Tags
			n.CreatedAt = meta.Created
			body = rest
		}
		body = strings.TrimLeft(body, "\r\n")
		if heading, rest, ok := strings.Cut(body, "\n"); ok && strings.HasPrefix(heading, "# ") {
			if h := strings.TrimSpace(heading[2:]); !hasMeta || h == n.Title {
				n.Title = h
				body = strings.TrimLeft(rest, "\r\n")
			}
		}
		n.Content = TextToHTML(body)
	default:
		n.Content = TextToHTML(content)
	}
	return n, nil
}

func splitFrontMatter(s string) (meta, rest string, ok bool) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return "", s, false
	}
	meta, rest, ok = strings.Cut(s[len("---\n"):], "\n---\n")
	if !ok {
		return "", s, false
	}
	return meta, rest, true
}

// TextToHTML turns plain text into HTML: blank lines separate paragraphs
// and single newlines become line breaks.
func TextToHTML(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
