// Package provider implements the upstream LLM client.
//
// Complete is the single entry point for calling any supported provider
// (OpenAI-compatible, Anthropic, Bedrock). Non-OpenAI responses are
// converted to the OpenAI chat completion envelope so the rest of the
// gateway only ever sees one shape.
//
// The upstream call is always non-streaming: the hook chain needs the full
// response text before it can decide on enrichment, so client-side streaming
// is synthesized downstream from the buffered result.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/chartgate/chartgate/internal/api"
	"github.com/chartgate/chartgate/internal/config"
)

const (
	// DefaultTimeout for upstream calls.
	DefaultTimeout = 60 * time.Second

	// maxResponseSize prevents OOM on unexpectedly large API responses (10MB).
	maxResponseSize = 10 * 1024 * 1024

	// maxErrorBodyLen limits error body in error messages to avoid log bloat.
	maxErrorBodyLen = 500

	// anthropicVersion is the Anthropic API version header value.
	anthropicVersion = "2023-06-01"

	// defaultMaxTokens is used for Anthropic, which requires max_tokens.
	defaultMaxTokens = 1024
)

// Result carries the provider response in both forms the gateway needs:
// the parsed completion for the hook chain, and the raw OpenAI-shaped body
// so unknown upstream fields survive to the client.
type Result struct {
	Completion *api.ChatCompletion
	RawBody    []byte
	Provider   string
}

// Client is the upstream boundary consumed by the request handler.
type Client interface {
	// Complete forwards the request and returns the provider's answer.
	Complete(ctx context.Context, req *api.ChatCompletionRequest) (*Result, error)

	// Provider returns the resolved provider name.
	Provider() string
}

// UpstreamError is a provider failure surfaced to the caller. Not retried
// at this layer.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// HTTPClient is the production Client implementation.
type HTTPClient struct {
	cfg        config.UpstreamConfig
	provider   string
	httpClient *http.Client
}

// NewHTTPClient builds a client for the configured upstream. For Bedrock,
// the HTTP transport signs every request with SigV4.
func NewHTTPClient(cfg config.UpstreamConfig) (*HTTPClient, error) {
	prov := cfg.Provider
	if prov == "" {
		prov = DetectProvider(cfg.Endpoint)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &HTTPClient{
		cfg:        cfg,
		provider:   prov,
		httpClient: &http.Client{}, // timeout via context, not client
	}

	if prov == "bedrock" {
		transport, err := NewSigningTransport(cfg.Region, nil)
		if err != nil {
			return nil, fmt.Errorf("bedrock upstream requires AWS credentials: %w", err)
		}
		c.httpClient = &http.Client{Transport: transport}
	}

	return c, nil
}

// Provider returns the resolved provider name.
func (c *HTTPClient) Provider() string { return c.provider }

// DetectProvider infers the LLM provider from an endpoint URL.
// For proxy endpoints where the URL is not telling, set upstream.provider
// explicitly in the config.
func DetectProvider(endpoint string) string {
	switch {
	case strings.Contains(endpoint, "bedrock-runtime") || strings.Contains(endpoint, "bedrock"):
		return "bedrock"
	case strings.Contains(endpoint, "anthropic"):
		return "anthropic"
	default:
		return "openai"
	}
}

// Complete forwards the request to the upstream provider.
func (c *HTTPClient) Complete(ctx context.Context, req *api.ChatCompletionRequest) (*Result, error) {
	body, err := c.buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", c.provider, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", c.provider, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(respBody),
		}
	}

	return c.parseResponse(respBody)
}

func (c *HTTPClient) setAuthHeaders(req *http.Request) {
	switch c.provider {
	case "anthropic":
		req.Header.Set("x-api-key", c.cfg.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	case "bedrock":
		// Auth handled by the SigV4 signing transport.
	default: // openai
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

// buildRequestBody converts the inbound OpenAI-shaped request to whatever
// the upstream speaks. The stream flag is always dropped upstream.
func (c *HTTPClient) buildRequestBody(req *api.ChatCompletionRequest) ([]byte, error) {
	switch c.provider {
	case "anthropic", "bedrock":
		return json.Marshal(c.toAnthropicRequest(req))
	default: // openai passthrough
		forward := *req
		forward.Stream = false
		return json.Marshal(&forward)
	}
}

func (c *HTTPClient) toAnthropicRequest(req *api.ChatCompletionRequest) *AnthropicRequest {
	out := &AnthropicRequest{
		Model:     req.Model,
		MaxTokens: defaultMaxTokens,
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		out.MaxTokens = *req.MaxTokens
	} else if c.cfg.MaxTokens > 0 {
		out.MaxTokens = c.cfg.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = req.Temperature
	}
	// Bedrock with Anthropic models uses the same Messages API format with
	// a Bedrock-specific version field.
	if c.provider == "bedrock" {
		out.AnthropicVersion = "bedrock-2023-05-31"
	}

	for _, m := range req.Messages {
		text := m.Content.Text()
		if m.Role == "system" {
			if out.System != "" {
				out.System += "\n\n"
			}
			out.System += text
			continue
		}
		out.Messages = append(out.Messages, AnthropicMessage{Role: m.Role, Content: text})
	}
	return out
}

// parseResponse normalizes the upstream body to the OpenAI envelope.
func (c *HTTPClient) parseResponse(body []byte) (*Result, error) {
	switch c.provider {
	case "anthropic", "bedrock":
		var resp AnthropicResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", c.provider, err)
		}
		completion := resp.ToChatCompletion()
		raw, err := json.Marshal(completion)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode %s response: %w", c.provider, err)
		}
		return &Result{Completion: completion, RawBody: raw, Provider: c.provider}, nil

	default: // openai
		var completion api.ChatCompletion
		if err := json.Unmarshal(body, &completion); err != nil {
			return nil, fmt.Errorf("failed to parse openai response: %w", err)
		}
		return &Result{Completion: &completion, RawBody: body, Provider: c.provider}, nil
	}
}

// extractErrorMessage pulls the OpenAI-style error.message out of an error
// body, falling back to the (trimmed) body itself.
func extractErrorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyLen {
		s = s[:maxErrorBodyLen] + "... (truncated)"
	}
	return s
}
