// Package ai talks to a locally running Ollama server: streaming and
// one-shot completions, chat, and the text actions built on top of them.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/arin/sapphire/internal/config"
)

const (
	statusTimeout = 3 * time.Second
	maxErrorBody  = 1024
)

// Client communicates with the Ollama API.
type Client struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	logger      *slog.Logger
	idleTimeout time.Duration

	mu     sync.Mutex
	active map[string]*Stream
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Its Timeout should be zero: a
// whole-request timeout would cut long streams off.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the server address from the config.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithIdleTimeout aborts a stream when no bytes arrive for d.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

// NewClient builds a client from the user configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.OllamaURL, "/"),
		model:       cfg.Model,
		httpClient:  &http.Client{},
		logger:      slog.New(slog.DiscardHandler),
		idleTimeout: cfg.IdleTimeout(),
		active:      make(map[string]*Stream),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the default model from the configuration.
func (c *Client) Model() string { return c.model }

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Stream starts a streaming completion. The only error it returns is a
// local validation failure; everything else ends up in the stream outcome.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sctx, cancel := context.WithCancelCause(ctx)
	s := newStream(c, req, cancel)
	c.track(s)
	s.start(sctx)
	return s, nil
}

// Relay runs a streaming completion to the end, calling onFragment for
// every fragment in arrival order. Cancel ctx to abort it.
func (c *Client) Relay(ctx context.Context, req Request, onFragment func(delta, accumulated string)) (string, error) {
	s, err := c.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	for d := range s.Deltas() {
		if onFragment != nil {
			onFragment(d.Token, d.Accumulated)
		}
	}
	out := s.Wait()
	return out.Text, out.Err
}

// Complete runs a non-streaming completion and returns the backend's
// content field as is.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransport(ctx, err, true)
	}
	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %w", ErrBackend, err)
	}
	text, _ := env.text(req.IsChat())
	return text, nil
}

// Cancel cancels an in-flight stream by its token. It reports whether there
// was something to cancel.
func (c *Client) Cancel(id string) bool {
	c.mu.Lock()
	s, ok := c.active[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return s.Cancel()
}

// CancelAll cancels every in-flight stream and returns how many it stopped.
func (c *Client) CancelAll() int {
	c.mu.Lock()
	streams := make([]*Stream, 0, len(c.active))
	for _, s := range c.active {
		streams = append(streams, s)
	}
	c.mu.Unlock()

	n := 0
	for _, s := range streams {
		if s.Cancel() {
			n++
		}
	}
	return n
}

// Active returns the tokens of streams that have not finished yet.
func (c *Client) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) track(s *Stream) {
	c.mu.Lock()
	c.active[s.id] = s
	c.mu.Unlock()

	go func() {
		<-s.done
		c.mu.Lock()
		delete(c.active, s.id)
		c.mu.Unlock()
	}()
}

// Status reports whether the server answers and which models it has.
func (c *Client) Status(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	models, err := c.Models(ctx)
	if err != nil {
		return Status{Running: false, Error: err.Error()}
	}
	return Status{Running: true, Models: models}
}

// Models lists the models installed on the server.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classifyTransport(ctx, err, false)
		if errors.Is(err, ErrBackendUnavailable) {
			return nil, fmt.Errorf("could not reach Ollama at %s, is it running? (start with: ollama serve): %w", c.baseURL, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, ""); err != nil {
		return nil, err
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("%w: failed to parse model list: %w", ErrBackend, err)
	}
	return tags.Models, nil
}

// send posts the request and returns the response once headers arrived
// with a 2xx status. The caller closes the body.
func (c *Client) send(ctx context.Context, r Request, stream bool) (*http.Response, error) {
	body, err := json.Marshal(r.body(stream))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+r.path(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("request", "path", r.path(), "model", r.Model, "stream", stream)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err, false)
	}
	if err := checkStatus(resp, r.Model); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response, model string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Code:   resp.StatusCode,
		Status: resp.Status,
		Body:   strings.TrimSpace(string(body)),
		Model:  model,
	}
}
