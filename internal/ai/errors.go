package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors. Everything a Stream or Client returns wraps one of these.
var (
	ErrBackendUnavailable   = errors.New("ollama: backend unavailable")
	ErrBackend              = errors.New("ollama: backend error")
	ErrModelNotFound        = errors.New("ollama: model not found")
	ErrTransportInterrupted = errors.New("ollama: transport interrupted")
	ErrIdleTimeout          = errors.New("ollama: no data received before idle timeout")
	ErrCancelled            = errors.New("ollama: request cancelled")
	ErrInvalidRequest       = errors.New("ollama: invalid request")
	ErrUnknownAction        = errors.New("ollama: unknown action")

	// ErrMalformedLine is only ever logged; a bad line never ends a stream.
	ErrMalformedLine = errors.New("ollama: malformed stream line")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
	Body   string
	Model  string
}

func (e *StatusError) Error() string {
	if e.notFound() {
		return fmt.Sprintf("model %q not found — run: ollama pull %s", e.Model, e.Model)
	}
	msg := fmt.Sprintf("ollama: backend error: %s", e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	if e.notFound() {
		return ErrModelNotFound
	}
	return ErrBackend
}

// Is lets errors.Is(err, ErrBackend) hold for model-not-found too.
func (e *StatusError) Is(target error) bool {
	return target == ErrBackend
}

func (e *StatusError) notFound() bool {
	return e.Code == http.StatusNotFound && strings.Contains(e.Body, "not found")
}

// IsCancelled reports whether err is a caller-initiated cancellation rather
// than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// classifyTransport maps a transport-level error onto the taxonomy, using the
// request context to tell cancellation and idle timeouts apart from real
// connection failures. reached is false while the backend has not answered yet.
func classifyTransport(ctx context.Context, err error, reached bool) error {
	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		switch {
		case errors.Is(cause, ErrIdleTimeout):
			return fmt.Errorf("%w: %w", ErrTransportInterrupted, ErrIdleTimeout)
		case errors.Is(cause, context.DeadlineExceeded):
			return fmt.Errorf("%w: %w", ErrTransportInterrupted, cause)
		default:
			return ErrCancelled
		}
	}
	if !reached {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrTransportInterrupted, err)
}
