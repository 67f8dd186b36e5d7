package provider

import (
	"strings"
	"time"

	"github.com/chartgate/chartgate/internal/api"
)

// AnthropicRequest is the Anthropic Messages API request body. Bedrock with
// Anthropic models uses the same format plus the anthropic_version field.
type AnthropicRequest struct {
	Model            string             `json:"model,omitempty"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []AnthropicMessage `json:"messages"`
	Temperature      *float64           `json:"temperature,omitempty"`
	AnthropicVersion string             `json:"anthropic_version,omitempty"`
}

// AnthropicMessage is one Messages API turn.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicResponse is the Messages API response body.
type AnthropicResponse struct {
	ID         string                  `json:"id"`
	Model      string                  `json:"model"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      AnthropicUsage          `json:"usage"`
}

// AnthropicContentBlock is one response content block.
type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicUsage is the Messages API token accounting.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ToChatCompletion converts the Anthropic response to the OpenAI envelope.
func (r *AnthropicResponse) ToChatCompletion() *api.ChatCompletion {
	var text strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	finish := "stop"
	if r.StopReason == "max_tokens" {
		finish = "length"
	}

	id := r.ID
	if id != "" && !strings.HasPrefix(id, "chatcmpl-") {
		id = "chatcmpl-" + id
	}

	return &api.ChatCompletion{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   r.Model,
		Choices: []api.Choice{
			{
				Index: 0,
				Message: api.ResponseMessage{
					Role:    "assistant",
					Content: api.Text(text.String()),
				},
				FinishReason: finish,
			},
		},
		Usage: &api.Usage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		},
	}
}
