// Package notes stores notes as one JSON file each under the sapphire
// data directory.
package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arin/sapphire/internal/config"
)

const (
	dirName       = "notes"
	ext           = ".json"
	untitled      = "Untitled"
	previewLength = 100
)

var (
	// ErrNotFound is returned when no note has the given id.
	ErrNotFound = errors.New("note not found")
	// ErrInvalidID is returned for ids that cannot name a file.
	ErrInvalidID = errors.New("invalid note id")
	// ErrAmbiguous is returned when an id prefix matches several notes.
	ErrAmbiguous = errors.New("ambiguous note id")
)

// Note is a single note. Content is HTML.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Preview   string    `json:"preview"`
	WordCount int       `json:"wordCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Pinned    bool      `json:"pinned"`
	Favorite  bool      `json:"favorite"`
	Folder    string    `json:"folder,omitempty"`
	Tags      []string  `json:"tags"`
	Links     []string  `json:"links"`
}

// Store reads and writes notes in a directory.
type Store struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// Open returns a store rooted at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create notes dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Default opens the store in the configuration directory.
func Default() (*Store, error) {
	return Open(filepath.Join(config.Dir(), dirName))
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string { return s.dir }

func sanitizeID(id string) (string, error) {
	id = filepath.Base(strings.TrimSpace(id))
	id = strings.TrimSuffix(id, ext)
	if id == "" || id == "." || id == ".." || id == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+ext)
}

// Get loads a note by id.
func (s *Store) Get(id string) (*Note, error) {
	id, err := sanitizeID(id)
	if err != nil {
		return nil, err
	}
	return s.read(s.path(id))
}

// Resolve loads a note by its full id or by a unique id prefix.
func (s *Store) Resolve(ref string) (*Note, error) {
	n, err := s.Get(ref)
	if !errors.Is(err, ErrNotFound) {
		return n, err
	}
	notes, lerr := s.List()
	if lerr != nil {
		return nil, lerr
	}
	var match *Note
	for _, cand := range notes {
		if !strings.HasPrefix(cand.ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %q matches %s and %s", ErrAmbiguous, ref, match.ID, cand.ID)
		}
		match = cand
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func (s *Store) read(path string) (*Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), ext))
		}
		return nil, err
	}
	var n Note
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if n.ID == "" {
		n.ID = strings.TrimSuffix(filepath.Base(path), ext)
	}
	if n.Title == "" {
		n.Title = untitled
	}
	if n.UpdatedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			n.UpdatedAt = info.ModTime()
		}
	}
	return &n, nil
}

// List returns every readable note, pinned first, then most recently
// updated first. Files that fail to parse are skipped.
func (s *Store) List() ([]*Note, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var notes []*Note
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		n, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		notes = append(notes, n)
	}
	SortNotes(notes, "updatedAt", "desc")
	return notes, nil
}

// SortNotes orders notes in place by the given field ("updatedAt",
// "createdAt" or "title") and order ("asc" or "desc"). Pinned notes always
// come first.
func SortNotes(notes []*Note, by, order string) {
	less := func(a, b *Note) bool {
		switch by {
		case "title":
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case "createdAt":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if order == "asc" {
			return less(a, b)
		}
		return less(b, a)
	})
}

// Save writes a note and returns the stored version. An empty id gets a
// fresh one; derived fields are recomputed and createdAt is kept.
func (s *Store) Save(n *Note) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *n
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	id, err := sanitizeID(out.ID)
	if err != nil {
		return nil, err
	}
	out.ID = id

	if out.Title == "" {
		out.Title = untitled
	}
	if out.CreatedAt.IsZero() {
		if prev, err := s.read(s.path(id)); err == nil && !prev.CreatedAt.IsZero() {
			out.CreatedAt = prev.CreatedAt
		} else {
			out.CreatedAt = s.now()
		}
	}
	out.UpdatedAt = s.now()

	plain := strings.TrimSpace(PlainText(out.Content))
	out.Preview = truncateRunes(plain, previewLength)
	out.WordCount = len(strings.Fields(plain))
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.Links == nil {
		out.Links = []string{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal note: %w", err)
	}
	if err := os.WriteFile(s.path(id), data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write note: %w", err)
	}
	return &out, nil
}

// Delete removes a note.
func (s *Store) Delete(id string) error {
	id, err := sanitizeID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// Duplicate saves a copy of a note under a new id with "(copy)" appended
// to the title.
func (s *Store) Duplicate(id string) (*Note, error) {
	src, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	cp := *src
	cp.ID = ""
	cp.Title = src.Title + " (copy)"
	cp.CreatedAt = time.Time{}
	cp.Tags = slices.Clone(src.Tags)
	cp.Links = slices.Clone(src.Links)
	return s.Save(&cp)
}

// Link records a link from one note to another.
func (s *Store) Link(from, to string) (*Note, error) {
	target, err := s.Get(to)
	if err != nil {
		return nil, err
	}
	n, err := s.Get(from)
	if err != nil {
		return nil, err
	}
	if n.ID == target.ID {
		return nil, fmt.Errorf("a note cannot link to itself")
	}
	if slices.Contains(n.Links, target.ID) {
		return n, nil
	}
	n.Links = append(n.Links, target.ID)
	return s.Save(n)
}

// Backlinks returns the notes whose links contain id.
func (s *Store) Backlinks(id string) ([]*Note, error) {
	notes, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []*Note
	for _, n := range notes {
		if slices.Contains(n.Links, id) {
			out = append(out, n)
		}
	}
	return out, nil
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
