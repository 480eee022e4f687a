// Package rag indexes notes as embedding vectors so they can be found by
// meaning and handed to the model as context for questions.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// EmbedModel is the Ollama model used for embeddings.
	EmbedModel = "nomic-embed-text"

	embedTimeout = 30 * time.Second
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedClient generates vector embeddings via Ollama's /api/embeddings.
type EmbedClient struct {
	model      string
	apiURL     string
	httpClient *http.Client
}

// NewEmbedClient creates an embedding client for the Ollama server at
// baseURL. An empty model selects EmbedModel.
func NewEmbedClient(baseURL, model string) *EmbedClient {
	if model == "" {
		model = EmbedModel
	}
	return &EmbedClient{
		model:      model,
		apiURL:     strings.TrimRight(baseURL, "/") + "/api/embeddings",
		httpClient: &http.Client{Timeout: embedTimeout},
	}
}

// Model returns the embedding model name.
func (e *EmbedClient) Model() string { return e.model }

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed converts a single text into a vector.
func (e *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("could not reach Ollama for embeddings, is it running? (start with: ollama serve)")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (status %d): %s\nHint: run 'ollama pull %s' if the model is missing",
			resp.StatusCode, strings.TrimSpace(string(respBody)), e.model)
	}

	var result embedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned, %s may not support embeddings", e.model)
	}
	return result.Embedding, nil
}
