package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/arin/sapphire/internal/ai"
)

// FragmentStream is a stream of generated text that ends in an outcome.
// *ai.Stream satisfies it.
type FragmentStream interface {
	Deltas() <-chan ai.StreamDelta
	Wait() ai.Outcome
}

// RenderStream writes fragments to w as they arrive, with prefix before
// the first one (e.g. "  " for indentation). A cancelled stream ends with a
// neutral notice rather than an error. It returns the stream outcome.
func RenderStream(w io.Writer, s FragmentStream, prefix string) ai.Outcome {
	var last string
	first := true

	for delta := range s.Deltas() {
		if delta.Token == "" {
			continue
		}
		if first {
			fmt.Fprint(w, prefix)
			first = false
		}
		fmt.Fprint(w, delta.Token)
		last = delta.Token
	}

	// Ensure we end with a newline.
	if !first && !strings.HasSuffix(last, "\n") {
		fmt.Fprintln(w)
	}

	out := s.Wait()
	if out.State == ai.StateCancelled {
		CancelNotice(w)
	}
	return out
}

// CancelNotice tells the user that generation stopped at their request.
func CancelNotice(w io.Writer) {
	color.New(color.FgYellow).Fprintln(w, "  ⏹ Generation cancelled")
}
