package history

import (
	"testing"
)

func setupTestDir(t *testing.T) {
	t.Helper()
	t.Setenv("SAPPHIRE_HOME", t.TempDir())
}

func TestSave_SingleEntry(t *testing.T) {
	setupTestDir(t)

	err := Save(Entry{Model: "gemma3:latest", Prompt: "what is a monad", Reply: "A monoid in...", Outcome: "completed"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := Load(10)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Prompt != "what is a monad" {
		t.Errorf("expected prompt 'what is a monad', got %q", entries[0].Prompt)
	}
	if entries[0].Outcome != "completed" {
		t.Errorf("expected outcome 'completed', got %q", entries[0].Outcome)
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestSave_TrimsToMaxEntries(t *testing.T) {
	setupTestDir(t)

	for i := 0; i < maxEntries+10; i++ {
		Save(Entry{Prompt: "test", Reply: "ok", Outcome: "completed"})
	}

	entries, err := Load(0) // Load all.
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(entries))
	}
}

func TestLoad_WithLimit(t *testing.T) {
	setupTestDir(t)

	for i := 0; i < 20; i++ {
		Save(Entry{Prompt: "test", Outcome: "completed"})
	}

	entries, err := Load(5)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("expected 5 entries with limit, got %d", len(entries))
	}
}

func TestLoad_NoFile(t *testing.T) {
	setupTestDir(t)

	entries, err := Load(10)
	if err != nil {
		t.Fatalf("Load on missing file should not error: %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil entries, got %v", entries)
	}
}

func TestSave_CancelledEntryKeepsNoReply(t *testing.T) {
	setupTestDir(t)

	Save(Entry{Prompt: "write an essay", Outcome: "cancelled"})

	entries, _ := Load(10)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Reply != "" {
		t.Errorf("expected empty reply, got %q", entries[0].Reply)
	}
}

func TestClear(t *testing.T) {
	setupTestDir(t)

	Save(Entry{Prompt: "a", Outcome: "completed"})
	if err := Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	entries, _ := Load(0)
	if len(entries) != 0 {
		t.Errorf("expected no entries after clear, got %d", len(entries))
	}
	if err := Clear(); err != nil {
		t.Errorf("Clear on missing file should not error: %v", err)
	}
}
