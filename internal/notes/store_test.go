package notes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "notes"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

// clock returns a now func that advances a minute on every call.
func clock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func TestSave_NewNote(t *testing.T) {
	s := setupStore(t)

	n, err := s.Save(&Note{Content: "<p>Hello <b>brave</b> new world</p>"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if n.Title != "Untitled" {
		t.Errorf("expected default title, got %q", n.Title)
	}
	if n.Preview != "Hello brave new world" {
		t.Errorf("unexpected preview: %q", n.Preview)
	}
	if n.WordCount != 4 {
		t.Errorf("expected 4 words, got %d", n.WordCount)
	}
	if n.CreatedAt.IsZero() || n.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if n.Tags == nil || n.Links == nil {
		t.Error("expected empty, non-nil tags and links")
	}

	if _, err := os.Stat(filepath.Join(s.Dir(), n.ID+".json")); err != nil {
		t.Errorf("expected note file on disk: %v", err)
	}

	got, err := s.Get(n.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != n.Content {
		t.Errorf("content mismatch: %q", got.Content)
	}
}

func TestSave_PreservesCreatedAt(t *testing.T) {
	s := setupStore(t)
	s.now = clock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	first, _ := s.Save(&Note{ID: "plan", Title: "Plan", Content: "<p>v1</p>"})
	second, err := s.Save(&Note{ID: "plan", Title: "Plan", Content: "<p>v2</p>"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("expected updatedAt to advance")
	}
}

func TestSave_PreviewIsCapped(t *testing.T) {
	s := setupStore(t)

	n, _ := s.Save(&Note{Content: "<p>" + strings.Repeat("ü", 150) + "</p>"})
	if got := len([]rune(n.Preview)); got != previewLength {
		t.Errorf("expected %d characters, got %d", previewLength, got)
	}
}

func TestSave_SanitizesID(t *testing.T) {
	s := setupStore(t)

	n, err := s.Save(&Note{ID: "../../escape", Title: "x"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n.ID != "escape" {
		t.Errorf("expected sanitized id, got %q", n.ID)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "escape.json")); err != nil {
		t.Errorf("expected file inside the store: %v", err)
	}

	if _, err := s.Get(".."); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_OrderAndSkipsCorrupt(t *testing.T) {
	s := setupStore(t)
	s.now = clock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	s.Save(&Note{ID: "old", Title: "Old"})
	s.Save(&Note{ID: "pinned", Title: "Pinned", Pinned: true})
	s.Save(&Note{ID: "new", Title: "New"})
	os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0o600)
	os.WriteFile(filepath.Join(s.Dir(), "readme.txt"), []byte("ignored"), 0o600)

	list, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var ids []string
	for _, n := range list {
		ids = append(ids, n.ID)
	}
	want := "pinned,new,old"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("expected order %s, got %s", want, got)
	}
}

func TestSortNotes(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	list := []*Note{
		{ID: "b", Title: "banana", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "a", Title: "Apple", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "c", Title: "cherry", CreatedAt: base.Add(1 * time.Hour), Pinned: true},
	}

	SortNotes(list, "title", "asc")
	if got := list[0].ID + list[1].ID + list[2].ID; got != "cab" {
		t.Errorf("title asc: got %s", got)
	}

	SortNotes(list, "createdAt", "asc")
	if got := list[0].ID + list[1].ID + list[2].ID; got != "cba" {
		t.Errorf("createdAt asc: got %s", got)
	}
}

func TestDelete(t *testing.T) {
	s := setupStore(t)
	n, _ := s.Save(&Note{Title: "gone soon"})

	if err := s.Delete(n.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(n.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected note to be gone, got %v", err)
	}
	if err := s.Delete(n.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDuplicate(t *testing.T) {
	s := setupStore(t)
	src, _ := s.Save(&Note{Title: "Recipe", Content: "<p>flour</p>", Tags: []string{"food"}})

	cp, err := s.Duplicate(src.ID)
	if err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	if cp.ID == src.ID {
		t.Error("expected a new id")
	}
	if cp.Title != "Recipe (copy)" {
		t.Errorf("unexpected title %q", cp.Title)
	}
	if cp.Content != src.Content || len(cp.Tags) != 1 {
		t.Errorf("expected content and tags to be copied: %+v", cp)
	}

	list, _ := s.List()
	if len(list) != 2 {
		t.Errorf("expected 2 notes, got %d", len(list))
	}
}

func TestLinkAndBacklinks(t *testing.T) {
	s := setupStore(t)
	a, _ := s.Save(&Note{ID: "a", Title: "A"})
	b, _ := s.Save(&Note{ID: "b", Title: "B"})
	s.Save(&Note{ID: "c", Title: "C"})

	if _, err := s.Link(a.ID, b.ID); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	// Linking twice keeps a single entry.
	linked, _ := s.Link(a.ID, b.ID)
	if len(linked.Links) != 1 {
		t.Errorf("expected 1 link, got %v", linked.Links)
	}
	if _, err := s.Link("c", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing target, got %v", err)
	}
	if _, err := s.Link("a", "a"); err == nil {
		t.Error("expected self link to fail")
	}

	back, err := s.Backlinks(b.ID)
	if err != nil {
		t.Fatalf("Backlinks failed: %v", err)
	}
	if len(back) != 1 || back[0].ID != "a" {
		t.Errorf("expected backlink from a, got %+v", back)
	}
	if back, _ := s.Backlinks("c"); len(back) != 0 {
		t.Errorf("expected no backlinks for c, got %d", len(back))
	}
}

func TestSearch(t *testing.T) {
	s := setupStore(t)
	s.Save(&Note{ID: "1", Title: "Groceries", Content: "<p>milk, eggs &amp; bread</p>"})
	s.Save(&Note{ID: "2", Title: "Trip", Content: "<p>" + strings.Repeat("a", 60) + " remember the BREAD for the ferry " + strings.Repeat("z", 60) + "</p>"})
	s.Save(&Note{ID: "3", Title: "Bread recipes", Content: "<p>sourdough</p>"})
	s.Save(&Note{ID: "4", Title: "Other", Content: "<p>nothing here</p>"})

	results, err := s.Search("Bread")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	byID := map[string]SearchResult{}
	for _, r := range results {
		byID[r.ID] = r
	}
	if len(byID) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if r := byID["1"]; r.Snippet != "milk, eggs & bread" || r.MatchInTitle {
		t.Errorf("unexpected result for 1: %+v", r)
	}
	r := byID["2"]
	if !strings.HasPrefix(r.Snippet, "...") || !strings.HasSuffix(r.Snippet, "...") {
		t.Errorf("expected ellipses around a mid-text snippet, got %q", r.Snippet)
	}
	if !strings.Contains(r.Snippet, "remember the bread for the ferry") {
		t.Errorf("snippet lost context: %q", r.Snippet)
	}
	if r := byID["3"]; !r.MatchInTitle || r.Snippet != "" {
		t.Errorf("expected title-only match for 3: %+v", r)
	}

	if results, _ := s.Search("   "); results != nil {
		t.Error("expected blank query to match nothing")
	}
}

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		"<p>a</p><p>b</p>":                   "ab",
		"<h2>Title</h2><p>x &lt; y</p>":      "Titlex < y",
		"<script>alert(1)</script><p>ok</p>": "ok",
		"plain text":                         "plain text",
	}
	for in, want := range cases {
		if got := PlainText(in); got != want {
			t.Errorf("PlainText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	s := setupStore(t)
	s.Save(&Note{ID: "abc123", Title: "one"})
	s.Save(&Note{ID: "abd456", Title: "two"})

	if n, err := s.Resolve("abc123"); err != nil || n.Title != "one" {
		t.Errorf("full id: %+v %v", n, err)
	}
	if n, err := s.Resolve("abd"); err != nil || n.Title != "two" {
		t.Errorf("unique prefix: %+v %v", n, err)
	}
	if _, err := s.Resolve("ab"); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
	if _, err := s.Resolve("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
