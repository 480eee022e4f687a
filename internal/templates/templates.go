// Package templates manages note templates stored in templates.json.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arin/sapphire/internal/config"
)

const fileName = "templates.json"

// ErrNotFound is returned when no template has the given id.
var ErrNotFound = errors.New("template not found")

// Template is the starting content for a new note.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Defaults returns the built-in templates.
func Defaults() []Template {
	return []Template{
		{ID: "meeting", Name: "Meeting Notes", Content: `<h2>Meeting Notes</h2><p><strong>Date:</strong> </p><p><strong>Attendees:</strong> </p><h3>Agenda</h3><ul><li></li></ul><h3>Notes</h3><p></p><h3>Action Items</h3><ul data-checked="false"><li></li></ul>`},
		{ID: "daily", Name: "Daily Note", Content: `<h2>Daily Note</h2><h3>Goals for Today</h3><ul data-checked="false"><li></li></ul><h3>Notes</h3><p></p><h3>Gratitude</h3><p></p>`},
		{ID: "project", Name: "Project", Content: `<h2>Project Name</h2><p><strong>Status:</strong> </p><p><strong>Deadline:</strong> </p><h3>Overview</h3><p></p><h3>Tasks</h3><ul data-checked="false"><li></li></ul><h3>Resources</h3><ul><li></li></ul>`},
	}
}

func templatesPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Load returns the saved templates, or the defaults when none are saved.
func Load() ([]Template, error) {
	data, err := os.ReadFile(templatesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, err
	}
	var list []Template
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	return list, nil
}

// Save replaces the stored templates.
func Save(list []Template) error {
	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(templatesPath(), data, 0o600)
}

// Find looks a template up by id or, failing that, by name ignoring case.
func Find(list []Template, key string) (Template, error) {
	for _, t := range list {
		if t.ID == key {
			return t, nil
		}
	}
	for _, t := range list {
		if strings.EqualFold(t.Name, key) {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrNotFound, key)
}
