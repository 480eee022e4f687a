package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// maxHistory caps chat context to stay inside the model's window.
	maxHistory = 20

	tagsInputLimit  = 1000
	titleInputLimit = 500
	maxTagLen       = 20
)

type actionPrompt struct {
	system string
	prompt string // %s receives the text
}

var actions = map[string]actionPrompt{
	"summarize": {
		system: "You are a helpful assistant that creates concise summaries. Respond only with the summary, no preamble.",
		prompt: "Summarize the following text in 2-3 sentences:\n\n%s",
	},
	"expand": {
		system: "You are a helpful writing assistant. Expand on the given text while maintaining its tone and style. Respond only with the expanded text.",
		prompt: "Expand the following text with more detail and depth:\n\n%s",
	},
	"rewrite": {
		system: "You are a helpful writing assistant. Rewrite the given text to improve clarity and flow. Respond only with the rewritten text.",
		prompt: "Rewrite the following text to be clearer and more engaging:\n\n%s",
	},
	"simplify": {
		system: "You are a helpful writing assistant. Simplify the given text using plain language. Respond only with the simplified text.",
		prompt: "Simplify the following text for easier understanding:\n\n%s",
	},
	"professional": {
		system: "You are a professional writing assistant. Rewrite in a formal, professional tone. Respond only with the rewritten text.",
		prompt: "Rewrite the following in a professional tone:\n\n%s",
	},
	"casual": {
		system: "You are a friendly writing assistant. Rewrite in a casual, conversational tone. Respond only with the rewritten text.",
		prompt: "Rewrite the following in a casual, friendly tone:\n\n%s",
	},
	"bullets": {
		system: "You are a helpful assistant. Convert text to bullet points. Respond only with the bullet points.",
		prompt: "Convert the following text into clear bullet points:\n\n%s",
	},
	"fix_grammar": {
		system: "You are a grammar expert. Fix grammar and spelling errors. Respond only with the corrected text.",
		prompt: "Fix any grammar and spelling errors in the following text:\n\n%s",
	},
	"translate_spanish":  translation("Spanish"),
	"translate_french":   translation("French"),
	"translate_german":   translation("German"),
	"translate_chinese":  translation("Simplified Chinese"),
	"translate_japanese": translation("Japanese"),
	"explain": {
		system: "You are a helpful teacher. Explain concepts clearly. Respond with a clear explanation.",
		prompt: "Explain the following in simple terms:\n\n%s",
	},
	"continue": {
		system: "You are a creative writing assistant. Continue the text naturally. Respond only with the continuation.",
		prompt: "Continue writing from where this text leaves off:\n\n%s",
	},
}

func translation(lang string) actionPrompt {
	return actionPrompt{
		system: fmt.Sprintf("You are a translator. Translate to %s. Respond only with the translation.", lang),
		prompt: "Translate the following to " + lang + ":\n\n%s",
	}
}

// Actions returns the names of the available text actions, sorted.
func Actions() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActionRequest builds the generate request for a named action.
func ActionRequest(model, action, text string) (Request, error) {
	p, ok := actions[action]
	if !ok {
		return Request{}, fmt.Errorf("%w: %q (see: sapphire ai actions)", ErrUnknownAction, action)
	}
	return Request{
		Model:  model,
		System: p.system,
		Prompt: fmt.Sprintf(p.prompt, text),
	}, nil
}

// Action streams the result of a text action.
func (c *Client) Action(ctx context.Context, model, action, text string) (*Stream, error) {
	req, err := ActionRequest(model, action, text)
	if err != nil {
		return nil, err
	}
	return c.Stream(ctx, req)
}

// ChatStream streams a reply to the conversation, keeping only the most
// recent messages.
func (c *Client) ChatStream(ctx context.Context, model string, history []Message) (*Stream, error) {
	return c.Stream(ctx, Request{Model: model, Messages: trimHistory(history)})
}

// trimHistory keeps the leading system messages and the most recent turns,
// maxHistory messages in all.
func trimHistory(history []Message) []Message {
	if len(history) <= maxHistory {
		return history
	}
	lead := 0
	for lead < len(history) && history[lead].Role == RoleSystem {
		lead++
	}
	keep := max(maxHistory-lead, 0)
	out := make([]Message, 0, lead+keep)
	out = append(out, history[:lead]...)
	return append(out, history[len(history)-keep:]...)
}

// SuggestTags asks for 3-5 single-word tags for a note.
func (c *Client) SuggestTags(ctx context.Context, model, title, plain string) ([]string, error) {
	if title == "" {
		title = "Untitled"
	}
	reply, err := c.Complete(ctx, Request{
		Model:  model,
		System: "You are a helpful assistant that suggests relevant tags for notes. Respond only with comma-separated single-word tags.",
		Prompt: fmt.Sprintf("Based on this note, suggest 3-5 relevant single-word tags. Return only the tags as a comma-separated list, nothing else.\n\nTitle: %s\n\nContent: %s",
			title, truncate(plain, tagsInputLimit)),
	})
	if err != nil {
		return nil, err
	}
	return parseTags(reply), nil
}

// SuggestTitle asks for a short title for a note.
func (c *Client) SuggestTitle(ctx context.Context, model, plain string) (string, error) {
	reply, err := c.Complete(ctx, Request{
		Model:  model,
		System: "You are a helpful assistant. Respond only with a short title.",
		Prompt: fmt.Sprintf("Based on this note content, suggest a short, descriptive title (max 6 words). Return only the title, nothing else.\n\n%s",
			truncate(plain, titleInputLimit)),
	})
	if err != nil {
		return "", err
	}
	return cleanTitle(reply), nil
}

func parseTags(reply string) []string {
	var tags []string
	for _, t := range strings.Split(reply, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || utf8.RuneCountInString(t) >= maxTagLen {
			continue
		}
		tags = append(tags, t)
	}
	return tags
}

func cleanTitle(reply string) string {
	t := strings.TrimSpace(reply)
	t = strings.TrimPrefix(t, `"`)
	t = strings.TrimPrefix(t, "'")
	t = strings.TrimSuffix(t, `"`)
	t = strings.TrimSuffix(t, "'")
	return t
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
