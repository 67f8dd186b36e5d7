// Package api defines the OpenAI-compatible chat completion wire types.
//
// DESIGN: Message content on the wire is either a plain string or an array
// of typed parts (text, image_url). Instead of branching on shape at every
// call site, MessageContent models this as an explicit tagged variant with
// custom JSON marshaling that accepts and emits both forms.
package api

import (
	"encoding/json"
	"fmt"
)

// Content part types.
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ChatCompletionRequest is an inbound chat completion request.
type ChatCompletionRequest struct {
	Model            string    `json:"model,omitempty"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	Stream           bool      `json:"stream,omitempty"`
	User             string    `json:"user,omitempty"`
}

// Validate checks the request before any upstream call is made.
// Model is optional; the gateway fills in a configured default.
func (r *ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages is required and must not be empty")
	}
	for i, m := range r.Messages {
		if m.Role == "" {
			return fmt.Errorf("messages[%d].role is required", i)
		}
	}
	return nil
}

// Message is a single conversation turn.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
	Name    string         `json:"name,omitempty"`
}

// ChatCompletion is an OpenAI-shaped chat completion response.
type ChatCompletion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
	// Logprobs is passed through untouched; nil encodes as null, which
	// OpenAI-compatible clients expect to be present.
	Logprobs json.RawMessage `json:"logprobs"`
}

// ResponseMessage is the assistant message inside a choice.
type ResponseMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
	Refusal *string        `json:"refusal"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ContentPart is one typed unit of multimodal message content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference. For generated charts the URL is a
// data:image/png;base64 URI, never a remote address.
type ImageURL struct {
	URL string `json:"url"`
}

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart creates an image_url content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// Validate checks that the completion still has the shape an
// OpenAI-compatible client expects. Used to reject malformed hook output.
func (c *ChatCompletion) Validate() error {
	if c == nil {
		return fmt.Errorf("completion is nil")
	}
	for i, choice := range c.Choices {
		if choice.Message.Role == "" {
			return fmt.Errorf("choices[%d].message.role is empty", i)
		}
		if err := choice.Message.Content.validate(); err != nil {
			return fmt.Errorf("choices[%d].message.content: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy. Hooks receive clones so a failing hook can
// never leave partial mutations visible to the rest of the chain.
func (c *ChatCompletion) Clone() *ChatCompletion {
	if c == nil {
		return nil
	}
	out := *c
	out.Choices = make([]Choice, len(c.Choices))
	for i, choice := range c.Choices {
		cc := choice
		cc.Message.Content = choice.Message.Content.clone()
		if choice.Message.Refusal != nil {
			refusal := *choice.Message.Refusal
			cc.Message.Refusal = &refusal
		}
		if choice.Logprobs != nil {
			cc.Logprobs = append(json.RawMessage(nil), choice.Logprobs...)
		}
		out.Choices[i] = cc
	}
	if c.Usage != nil {
		usage := *c.Usage
		out.Usage = &usage
	}
	return &out
}

// Text returns the text content of the first choice, handling both the
// scalar and the multipart content form. Empty string if there are no choices.
func (c *ChatCompletion) Text() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content.Text()
}
