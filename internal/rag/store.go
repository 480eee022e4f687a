package rag

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
)

const (
	// FileName is the vector store file inside the sapphire directory.
	FileName = "vectors.bin"

	formatVersion uint32 = 1
)

// ErrNoIndex is returned by Load when nothing has been indexed yet.
var ErrNoIndex = errors.New("no note index yet, run: sapphire note index")

// Document is one embedded chunk of a note.
type Document struct {
	NoteID string
	Title  string
	Text   string
	// Stamp is the note's UpdatedAt in unix nanoseconds when it was embedded.
	Stamp  int64
	Vector []float32
}

// SearchResult is a document matched by similarity search.
type SearchResult struct {
	Doc   Document
	Score float32 // cosine similarity
}

// Store is an in-memory vector store backed by a binary file.
type Store struct {
	path string
	docs []Document
}

// NewStore creates an empty store that persists to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store persists to.
func (s *Store) Path() string { return s.path }

// Add inserts a document in memory. Call Save to persist.
func (s *Store) Add(doc Document) {
	s.docs = append(s.docs, doc)
}

// Len returns the number of documents.
func (s *Store) Len() int {
	return len(s.docs)
}

// Stamps maps each indexed note to the stamp it was embedded at.
func (s *Store) Stamps() map[string]int64 {
	out := make(map[string]int64)
	for _, d := range s.docs {
		out[d.NoteID] = d.Stamp
	}
	return out
}

// RemoveNote drops every chunk of a note and reports how many were removed.
func (s *Store) RemoveNote(id string) int {
	kept := s.docs[:0]
	for _, d := range s.docs {
		if d.NoteID != id {
			kept = append(kept, d)
		}
	}
	n := len(s.docs) - len(kept)
	clear(s.docs[len(kept):])
	s.docs = kept
	return n
}

// Save writes all documents to disk.
//
// Layout, little-endian:
//
//	[4] format version
//	[4] document count
//	per document:
//	  note id, title, text as [4]len + bytes
//	  [8] stamp
//	  [4] dim, then dim float32s
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	w := bufio.NewWriter(f)

	err = s.write(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write vector store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.docs))); err != nil {
		return err
	}
	for _, doc := range s.docs {
		for _, str := range []string{doc.NoteID, doc.Title, doc.Text} {
			if err := writeString(w, str); err != nil {
				return err
			}
		}
		if err := binary.Write(w, binary.LittleEndian, doc.Stamp); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(doc.Vector))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, doc.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the in-memory documents with the ones on disk. It returns
// ErrNoIndex when the file does not exist.
func (s *Store) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoIndex
		}
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var version, count uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("failed to read store header: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("vector store version %d is not supported, rebuild with: sapphire note index --rebuild", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("failed to read document count: %w", err)
	}

	docs := make([]Document, 0, count)
	for i := uint32(0); i < count; i++ {
		var doc Document
		for _, dst := range []*string{&doc.NoteID, &doc.Title, &doc.Text} {
			if *dst, err = readString(r); err != nil {
				return fmt.Errorf("corrupt vector store: %w", err)
			}
		}
		if err := binary.Read(r, binary.LittleEndian, &doc.Stamp); err != nil {
			return fmt.Errorf("corrupt vector store: %w", err)
		}
		var dim uint32
		if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
			return fmt.Errorf("corrupt vector store: %w", err)
		}
		doc.Vector = make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, doc.Vector); err != nil {
			return fmt.Errorf("corrupt vector store: %w", err)
		}
		docs = append(docs, doc)
	}
	s.docs = docs
	return nil
}

// Flush deletes the store file and empties the store.
func (s *Store) Flush() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete vector store: %w", err)
	}
	s.docs = nil
	return nil
}

// Search returns the topK documents most similar to queryVec, best first.
// Only the best chunk of each note is kept. topK <= 0 returns all.
func (s *Store) Search(queryVec []float32, topK int) []SearchResult {
	best := make(map[string]int)
	var results []SearchResult
	for _, doc := range s.docs {
		score := cosineSimilarity(queryVec, doc.Vector)
		if i, ok := best[doc.NoteID]; ok {
			if score > results[i].Score {
				results[i] = SearchResult{Doc: doc, Score: score}
			}
			continue
		}
		best[doc.NoteID] = len(results)
		results = append(results, SearchResult{Doc: doc, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// cosineSimilarity returns cos(a, b), or 0 for mismatched or zero vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float32
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	denom := float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB)))
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
