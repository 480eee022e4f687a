package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const readChunkSize = 4096

// State is where a Stream is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// StreamDelta is one fragment of generated text.
type StreamDelta struct {
	// Token is the fragment decoded from a single line.
	Token string
	// Accumulated is every fragment so far, Token included.
	Accumulated string
}

// Outcome is the terminal result of a Stream.
type Outcome struct {
	State State
	// Text is the full response. Only set when State is StateCompleted.
	Text      string
	Fragments int
	Duration  time.Duration
	Err       error
}

// Stream is one in-flight streaming completion. Fragments arrive on Deltas
// in decode order; the channel is closed once the stream is terminal, after
// which Wait returns the outcome. A consumer must drain Deltas or Cancel the
// stream, otherwise the transfer blocks.
type Stream struct {
	id     string
	req    Request
	client *Client
	log    *slog.Logger

	deltas chan StreamDelta
	done   chan struct{}
	cancel context.CancelCauseFunc

	mu      sync.Mutex
	state   State
	outcome Outcome
	started time.Time
}

func newStream(c *Client, req Request, cancel context.CancelCauseFunc) *Stream {
	id := uuid.New().String()
	return &Stream{
		id:     id,
		req:    req,
		client: c,
		log:    c.logger.With("stream", id, "model", req.Model, "chat", req.IsChat()),
		deltas: make(chan StreamDelta),
		done:   make(chan struct{}),
		cancel: cancel,
		state:  StateIdle,
	}
}

// ID is the cancellation token for this request.
func (s *Stream) ID() string { return s.id }

// Deltas returns the fragment channel.
func (s *Stream) Deltas() <-chan StreamDelta { return s.deltas }

// Done is closed once the outcome is available.
func (s *Stream) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wait blocks until the stream is terminal and returns its outcome.
func (s *Stream) Wait() Outcome {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Collect drains the stream and returns the final text.
func (s *Stream) Collect() (string, error) {
	for range s.deltas {
	}
	out := s.Wait()
	return out.Text, out.Err
}

// Cancel aborts the request. It reports whether the cancellation took
// effect; calling it on a terminal stream is a no-op that returns false.
func (s *Stream) Cancel() bool {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.state = StateCancelled
	s.outcome = Outcome{State: StateCancelled, Err: ErrCancelled}
	s.mu.Unlock()

	s.cancel(ErrCancelled)
	s.log.Debug("stream cancelled")
	return true
}

func (s *Stream) start(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateIdle {
		s.state = StateStreaming
	}
	s.started = time.Now()
	s.mu.Unlock()

	go s.run(ctx)
}

func (s *Stream) run(ctx context.Context) {
	text, n, err := s.relay(ctx)
	close(s.deltas)
	s.finish(text, n, err)
	s.cancel(nil)
	close(s.done)
}

func (s *Stream) finish(text string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.started)
	if s.state != StateStreaming {
		// Cancel already recorded the outcome.
		s.outcome.Fragments = n
		s.outcome.Duration = elapsed
		return
	}

	switch {
	case err == nil:
		s.state = StateCompleted
		s.outcome = Outcome{State: StateCompleted, Text: text}
	case errors.Is(err, ErrCancelled):
		s.state = StateCancelled
		s.outcome = Outcome{State: StateCancelled, Err: ErrCancelled}
	default:
		s.state = StateFailed
		s.outcome = Outcome{State: StateFailed, Err: err}
	}
	s.outcome.Fragments = n
	s.outcome.Duration = elapsed

	if err != nil && !errors.Is(err, ErrCancelled) {
		s.log.Warn("stream failed", "fragments", n, "duration_ms", elapsed.Milliseconds(), "error", err)
		return
	}
	s.log.Debug("stream finished", "state", s.state, "fragments", n, "chars", len(text), "duration_ms", elapsed.Milliseconds())
}

// emit hands one fragment to the consumer unless the stream was cancelled.
func (s *Stream) emit(ctx context.Context, d StreamDelta) error {
	if s.State() != StateStreaming {
		return ErrCancelled
	}
	select {
	case s.deltas <- d:
		return nil
	case <-ctx.Done():
		return classifyTransport(ctx, ctx.Err(), true)
	}
}

// relay drives the transfer: open, frame, parse, accumulate, emit.
func (s *Stream) relay(ctx context.Context) (string, int, error) {
	resp, err := s.client.send(ctx, s.req, true)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if idle := s.client.idleTimeout; idle > 0 {
		timer := time.AfterFunc(idle, func() { s.cancel(ErrIdleTimeout) })
		defer timer.Stop()
		body = &idleReader{r: body, timer: timer, idle: idle}
	}
	text, n, err := pump(body, s.req.IsChat(), s.log, func(d StreamDelta) error {
		return s.emit(ctx, d)
	})
	if err != nil && !errors.Is(err, ErrCancelled) && !errors.Is(err, ErrTransportInterrupted) {
		err = classifyTransport(ctx, err, true)
	}
	return text, n, err
}

// pump reads body to the end, framing it into lines and handing every
// fragment to emit. Read errors are returned unclassified; an error from emit
// stops the pump and is returned as is.
func pump(body io.Reader, chat bool, log *slog.Logger, emit func(StreamDelta) error) (string, int, error) {
	dec := transform.NewReader(body, unicode.UTF8.NewDecoder())

	var (
		framer lineFramer
		acc    strings.Builder
		n      int
		lines  int
	)
	handle := func(line []byte) error {
		lines++
		frag, ok, err := parseFragment(line, chat)
		if err != nil {
			log.Debug("skipping line", "line", lines, "error", err)
			return nil
		}
		if !ok {
			return nil
		}
		acc.WriteString(frag)
		n++
		return emit(StreamDelta{Token: frag, Accumulated: acc.String()})
	}

	buf := make([]byte, readChunkSize)
	for {
		k, rerr := dec.Read(buf)
		if k > 0 {
			if err := framer.push(buf[:k], handle); err != nil {
				return acc.String(), n, err
			}
		}
		if rerr == io.EOF {
			if tail := framer.tail(); len(tail) > 0 {
				log.Debug("discarding unterminated final line", "bytes", len(tail))
			}
			return acc.String(), n, nil
		}
		if rerr != nil {
			return acc.String(), n, rerr
		}
	}
}

// idleReader pushes the idle deadline forward on every read that returns data.
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.idle)
	}
	return n, err
}
