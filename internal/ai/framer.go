package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// lineFramer splits decoded stream bytes into newline-terminated lines.
// A partial line at the end of a chunk is held until the next chunk
// completes it. '\n' never occurs inside a multi-byte UTF-8 sequence, so
// splitting decoded bytes on it cannot cut a character in half.
type lineFramer struct {
	buf []byte
}

// push appends chunk and calls fn for every complete line, without the
// trailing newline. It stops at the first error fn returns.
func (f *lineFramer) push(chunk []byte, fn func(line []byte) error) error {
	f.buf = append(f.buf, chunk...)
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			return nil
		}
		line := f.buf[:i]
		rest := f.buf[i+1:]
		if err := fn(line); err != nil {
			f.buf = rest
			return err
		}
		f.buf = rest
	}
}

// tail returns the unterminated remainder, if any.
func (f *lineFramer) tail() []byte {
	return f.buf
}

// parseFragment extracts the text carried by one line. ok is false for
// blank lines, lines without the mode's content field and empty fragments;
// err is non-nil only when the line is not valid JSON.
func parseFragment(line []byte, chat bool) (frag string, ok bool, err error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return "", false, nil
	}
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrMalformedLine, err)
	}
	text, found := env.text(chat)
	if !found || text == "" {
		return "", false, nil
	}
	return text, true, nil
}
