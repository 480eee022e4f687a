// Package editor opens text in the user's editor.
package editor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Command returns the editor command line: $VISUAL, then $EDITOR, then a
// platform default.
func Command() string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "vi"
}

// Edit writes content to a temporary file named after name, opens it in
// the editor and returns what was saved. The editor command runs through
// the user's shell so values like "code --wait" work.
func Edit(name string, content []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "sapphire-edit-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return nil, err
	}

	shell, flag := shellAndFlag()
	cmd := exec.Command(shell, flag, Command()+" "+quote(path))
	cmd.Env = os.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("editor %q failed: %w: %s", Command(), err, msg)
		}
		return nil, fmt.Errorf("editor %q failed: %w", Command(), err)
	}
	return os.ReadFile(path)
}

func shellAndFlag() (string, string) {
	if runtime.GOOS == "windows" {
		return "powershell", "-Command"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, "-c"
	}
	return "/bin/sh", "-c"
}

// quote single-quotes a path for the shell.
func quote(path string) string {
	if runtime.GOOS == "windows" {
		return `"` + path + `"`
	}
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
