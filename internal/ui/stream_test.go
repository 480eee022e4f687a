package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/arin/sapphire/internal/ai"
)

// fakeStream replays fragments and then reports a fixed outcome.
type fakeStream struct {
	ch  chan ai.StreamDelta
	out ai.Outcome
}

func newFakeStream(out ai.Outcome, tokens ...string) *fakeStream {
	ch := make(chan ai.StreamDelta, len(tokens))
	var acc strings.Builder
	for _, tok := range tokens {
		acc.WriteString(tok)
		ch <- ai.StreamDelta{Token: tok, Accumulated: acc.String()}
	}
	close(ch)
	return &fakeStream{ch: ch, out: out}
}

func (f *fakeStream) Deltas() <-chan ai.StreamDelta { return f.ch }
func (f *fakeStream) Wait() ai.Outcome { return f.out }

func completed(text string) ai.Outcome {
	return ai.Outcome{State: ai.StateCompleted, Text: text}
}

func TestRenderStream_BasicTokens(t *testing.T) {
	var buf bytes.Buffer
	out := RenderStream(&buf, newFakeStream(completed("hello world"), "hello", " world"), "  ")

	if out.Text != "hello world" {
		t.Errorf("expected 'hello world', got %q", out.Text)
	}
	// Output should start with the prefix.
	if !strings.HasPrefix(buf.String(), "  hello") {
		t.Errorf("expected output to start with prefix, got %q", buf.String())
	}
}

func TestRenderStream_EmptyPrefix(t *testing.T) {
	var buf bytes.Buffer
	RenderStream(&buf, newFakeStream(completed("test"), "test"), "")

	if strings.HasPrefix(buf.String(), " ") {
		t.Error("empty prefix should not add leading space")
	}
}

func TestRenderStream_SkipsEmptyTokens(t *testing.T) {
	var buf bytes.Buffer
	RenderStream(&buf, newFakeStream(completed("hello"), "", "hello", ""), ">")

	if buf.String() != ">hello\n" {
		t.Errorf("expected '>hello\\n', got %q", buf.String())
	}
}

func TestRenderStream_Failure(t *testing.T) {
	var buf bytes.Buffer
	fail := ai.Outcome{State: ai.StateFailed, Fragments: 1, Err: ai.ErrTransportInterrupted}
	out := RenderStream(&buf, newFakeStream(fail, "partial"), "")

	if out.Err != ai.ErrTransportInterrupted {
		t.Errorf("expected the stream error, got %v", out.Err)
	}
	if buf.String() != "partial\n" {
		t.Errorf("expected partial output only, got %q", buf.String())
	}
}

func TestRenderStream_CancelledShowsNotice(t *testing.T) {
	var buf bytes.Buffer
	cancelled := ai.Outcome{State: ai.StateCancelled, Fragments: 2, Err: ai.ErrCancelled}
	out := RenderStream(&buf, newFakeStream(cancelled, "once upon", " a time"), "")

	if out.State != ai.StateCancelled {
		t.Errorf("expected cancelled outcome, got %v", out.State)
	}
	if !strings.Contains(buf.String(), "Generation cancelled") {
		t.Errorf("expected a cancel notice, got %q", buf.String())
	}
	if strings.Contains(strings.ToLower(buf.String()), "error") {
		t.Errorf("a cancel is not an error: %q", buf.String())
	}
}

func TestRenderStream_EmptyStream(t *testing.T) {
	var buf bytes.Buffer
	out := RenderStream(&buf, newFakeStream(completed("")), ">> ")

	if out.Text != "" {
		t.Errorf("expected empty result, got %q", out.Text)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for an empty stream, got %q", buf.String())
	}
}

func TestRenderStream_PreservesExistingNewline(t *testing.T) {
	var buf bytes.Buffer
	RenderStream(&buf, newFakeStream(completed("ends with newline\n"), "ends with newline\n"), "")

	// Should not double-newline.
	if strings.HasSuffix(buf.String(), "\n\n") {
		t.Errorf("should not double-newline, got %q", buf.String())
	}
}

func TestRenderStream_MultipleTokensConcatenate(t *testing.T) {
	var buf bytes.Buffer
	RenderStream(&buf, newFakeStream(completed("abcde"), "a", "b", "c", "d", "e"), "")

	if buf.String() != "abcde\n" {
		t.Errorf("expected 'abcde\\n', got %q", buf.String())
	}
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, "# Title\n\nSome **bold** text.", "dark"); err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Title") || !strings.Contains(buf.String(), "bold") {
		t.Errorf("expected rendered text to keep its words, got %q", buf.String())
	}
}
