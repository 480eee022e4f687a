// Package history keeps a log of AI chat exchanges for sapphire.
// History is stored as a JSON file in the user's config directory.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arin/sapphire/internal/config"
)

const (
	fileName   = "chat_history.json"
	maxEntries = 500
)

// fileMu guards concurrent access to the history file.
var fileMu sync.Mutex

// Entry is one prompt and the reply it got.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Reply     string    `json:"reply,omitempty"`
	Outcome   string    `json:"outcome"`
}

func historyPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new entry to the history file.
func Save(entry Entry) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	entry.Timestamp = time.Now()

	entries, _ := loadAll()
	entries = append(entries, entry)

	// Trim to max entries, keeping the most recent.
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(historyPath(), data, 0o600)
}

// Load returns the most recent n history entries.
func Load(limit int) ([]Entry, error) {
	entries, err := loadAll()
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	return entries, nil
}

// Clear removes the history file.
func Clear() error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if err := os.Remove(historyPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func loadAll() ([]Entry, error) {
	data, err := os.ReadFile(historyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}
