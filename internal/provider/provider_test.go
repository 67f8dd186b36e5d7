package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartgate/chartgate/internal/api"
	"github.com/chartgate/chartgate/internal/config"
)

func userRequest(text string) *api.ChatCompletionRequest {
	return &api.ChatCompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []api.Message{{Role: "user", Content: api.Text(text)}},
	}
}

// TestDetectProvider checks endpoint-based provider inference.
func TestDetectProvider(t *testing.T) {
	assert.Equal(t, "openai", DetectProvider("https://api.openai.com/v1/chat/completions"))
	assert.Equal(t, "anthropic", DetectProvider("https://api.anthropic.com/v1/messages"))
	assert.Equal(t, "bedrock", DetectProvider("https://bedrock-runtime.us-east-1.amazonaws.com/model/x/invoke"))
	assert.Equal(t, "openai", DetectProvider("http://localhost:11434/v1/chat/completions"))
}

// TestCompleteOpenAI verifies auth headers, stream stripping, and raw body
// passthrough for an OpenAI upstream.
func TestCompleteOpenAI(t *testing.T) {
	upstreamBody := `{
		"id": "chatcmpl-abc",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o-mini",
		"system_fingerprint": "fp_44709d6fcb",
		"choices": [{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],
		"usage": {"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}
	}`

	var gotAuth string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstreamBody))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(config.UpstreamConfig{
		Provider: "openai",
		Endpoint: srv.URL,
		APIKey:   "sk-test",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)

	req := userRequest("hello")
	req.Stream = true
	result, err := client.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	_, streamed := gotReq["stream"]
	assert.False(t, streamed, "stream flag must not be forwarded upstream")

	assert.Equal(t, "chatcmpl-abc", result.Completion.ID)
	assert.Equal(t, "hi there", result.Completion.Text())
	assert.Equal(t, 7, result.Completion.Usage.TotalTokens)
	// Unknown upstream fields ride along in the raw body
	assert.Contains(t, string(result.RawBody), "fp_44709d6fcb")
}

// TestCompleteUpstreamError verifies a provider failure maps to
// UpstreamError with the extracted error message.
func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(config.UpstreamConfig{Provider: "openai", Endpoint: srv.URL, APIKey: "sk"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), userRequest("hello"))
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
	assert.Contains(t, upstreamErr.Message, "Rate limit reached")
}

// TestCompleteAnthropic verifies request conversion and response
// normalization to the OpenAI envelope.
func TestCompleteAnthropic(t *testing.T) {
	var gotReq AnthropicRequest
	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"model": "claude-sonnet-4-20250514",
			"role": "assistant",
			"content": [{"type":"text","text":"bonjour"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 3}
		}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(config.UpstreamConfig{
		Provider: "anthropic",
		Endpoint: srv.URL,
		APIKey:   "sk-ant",
	})
	require.NoError(t, err)

	req := &api.ChatCompletionRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []api.Message{
			{Role: "system", Content: api.Text("Reply in French.")},
			{Role: "user", Content: api.Text("hello")},
		},
	}
	result, err := client.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "sk-ant", gotKey)
	assert.Equal(t, anthropicVersion, gotVersion)
	assert.Equal(t, "Reply in French.", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, defaultMaxTokens, gotReq.MaxTokens)

	c := result.Completion
	assert.Equal(t, "chatcmpl-msg_01", c.ID)
	assert.Equal(t, "chat.completion", c.Object)
	assert.Equal(t, "bonjour", c.Text())
	assert.Equal(t, "stop", c.Choices[0].FinishReason)
	assert.Equal(t, 15, c.Usage.TotalTokens)

	// Raw body is OpenAI-shaped for downstream splicing
	var roundTrip api.ChatCompletion
	require.NoError(t, json.Unmarshal(result.RawBody, &roundTrip))
	assert.Equal(t, "bonjour", roundTrip.Text())
}

// TestAnthropicStopReasonMapping covers max_tokens → length.
func TestAnthropicStopReasonMapping(t *testing.T) {
	resp := &AnthropicResponse{
		ID:         "msg_02",
		Content:    []AnthropicContentBlock{{Type: "text", Text: "truncated"}},
		StopReason: "max_tokens",
	}
	c := resp.ToChatCompletion()
	assert.Equal(t, "length", c.Choices[0].FinishReason)
}

// TestSigningTransportRegion verifies explicit region configuration wins
// over the environment, with AWS_REGION as the fallback.
func TestSigningTransportRegion(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "testsecret")
	t.Setenv("AWS_REGION", "ap-southeast-2")

	tr, err := NewSigningTransport("eu-west-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", tr.region)

	tr, err = NewSigningTransport("", nil)
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", tr.region)
}

// TestBedrockClientUsesConfiguredRegion verifies upstream.region reaches the
// signing transport.
func TestBedrockClientUsesConfiguredRegion(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "testsecret")

	client, err := NewHTTPClient(config.UpstreamConfig{
		Provider: "bedrock",
		Endpoint: "https://bedrock-runtime.eu-central-1.amazonaws.com/model/x/invoke",
		Region:   "eu-central-1",
	})
	require.NoError(t, err)

	tr, ok := client.httpClient.Transport.(*SigningTransport)
	require.True(t, ok)
	assert.Equal(t, "eu-central-1", tr.region)
}
