package ai

import (
	"fmt"
	"time"
)

// Chat roles accepted by the backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion. Exactly one of Prompt or Messages is set:
// Prompt (with an optional System instruction) selects /api/generate,
// Messages selects /api/chat.
type Request struct {
	Model    string
	Prompt   string
	System   string
	Messages []Message
}

// IsChat reports whether the request is a multi-turn chat request.
func (r Request) IsChat() bool {
	return len(r.Messages) > 0
}

// Validate checks the request shape locally. Unknown model names are left
// for the backend to reject.
func (r Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidRequest)
	}
	hasPrompt := r.Prompt != ""
	if hasPrompt == r.IsChat() {
		return fmt.Errorf("%w: exactly one of prompt or messages must be set", ErrInvalidRequest)
	}
	if r.IsChat() && r.System != "" {
		return fmt.Errorf("%w: system prompt is only valid with a single prompt; add a system message instead", ErrInvalidRequest)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidRequest, i, m.Role)
		}
	}
	return nil
}

func (r Request) path() string {
	if r.IsChat() {
		return "/api/chat"
	}
	return "/api/generate"
}

func (r Request) body(stream bool) any {
	if r.IsChat() {
		return chatRequest{Model: r.Model, Messages: r.Messages, Stream: stream}
	}
	return generateRequest{Model: r.Model, Prompt: r.Prompt, System: r.System, Stream: stream}
}

// generateRequest is the body for /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

// chatRequest is the body for /api/chat.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// envelope is one line of a streamed response, or a whole non-streamed one.
// Pointers distinguish an absent field from an empty one.
type envelope struct {
	Response *string `json:"response"`
	Message  *struct {
		Content *string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// text extracts the content field for the request mode.
func (e envelope) text(chat bool) (string, bool) {
	if chat {
		if e.Message == nil || e.Message.Content == nil {
			return "", false
		}
		return *e.Message.Content, true
	}
	if e.Response == nil {
		return "", false
	}
	return *e.Response, true
}

// Model is an installed model as reported by /api/tags.
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

// Status is the backend health as shown to the user.
type Status struct {
	Running bool
	Models  []Model
	Error   string
}
