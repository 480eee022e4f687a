package editor

import (
	"runtime"
	"strings"
	"testing"
)

func TestCommand(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "nano")
	if got := Command(); got != "nano" {
		t.Errorf("expected $EDITOR, got %q", got)
	}

	t.Setenv("VISUAL", "code --wait")
	if got := Command(); got != "code --wait" {
		t.Errorf("expected $VISUAL to win, got %q", got)
	}
}

func TestEdit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	t.Setenv("SHELL", "/bin/sh")
	t.Setenv("VISUAL", "")
	// The "editor" appends a line to the file it is given.
	t.Setenv("EDITOR", "echo edited >>")

	out, err := Edit("note's draft.md", []byte("original\n"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got := string(out); got != "original\nedited\n" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestEdit_FailingEditor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	t.Setenv("SHELL", "/bin/sh")
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "false")

	_, err := Edit("x.md", nil)
	if err == nil || !strings.Contains(err.Error(), `"false"`) {
		t.Errorf("expected editor error, got %v", err)
	}
}

func TestQuote(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX quoting")
	}
	tests := []struct {
		input string
		want  string
	}{
		{"/tmp/a.md", "'/tmp/a.md'"},
		{"/tmp/it's.md", `'/tmp/it'\''s.md'`},
	}
	for _, tt := range tests {
		if got := quote(tt.input); got != tt.want {
			t.Errorf("quote(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
