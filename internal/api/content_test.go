package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContentScalarRoundTrip verifies plain string content survives
// unmarshal/marshal unchanged.
func TestContentScalarRoundTrip(t *testing.T) {
	var mc MessageContent
	require.NoError(t, json.Unmarshal([]byte(`"hello world"`), &mc))

	assert.False(t, mc.IsParts())
	assert.Equal(t, "hello world", mc.Text())

	out, err := json.Marshal(mc)
	require.NoError(t, err)
	assert.JSONEq(t, `"hello world"`, string(out))
}

// TestContentPartsRoundTrip verifies multipart content keeps its order and
// typed fields.
func TestContentPartsRoundTrip(t *testing.T) {
	wire := `[
		{"type":"text","text":"here is your chart"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}
	]`
	var mc MessageContent
	require.NoError(t, json.Unmarshal([]byte(wire), &mc))

	require.True(t, mc.IsParts())
	parts := mc.Parts()
	require.Len(t, parts, 2)
	assert.Equal(t, PartTypeText, parts[0].Type)
	assert.Equal(t, "here is your chart", mc.Text())
	assert.True(t, mc.HasImage())

	out, err := json.Marshal(mc)
	require.NoError(t, err)
	assert.JSONEq(t, wire, string(out))
}

// TestContentNullBecomesEmptyString matches upstream responses that return
// content: null.
func TestContentNullBecomesEmptyString(t *testing.T) {
	var mc MessageContent
	require.NoError(t, json.Unmarshal([]byte(`null`), &mc))
	assert.False(t, mc.IsParts())
	assert.Equal(t, "", mc.Text())
}

// TestContentNormalizedOrdersTextFirst verifies image parts are moved after
// text parts.
func TestContentNormalizedOrdersTextFirst(t *testing.T) {
	mc := Parts(ImagePart("data:image/png;base64,AAAA"), TextPart("answer"))
	norm := mc.Normalized().Parts()

	require.Len(t, norm, 2)
	assert.Equal(t, PartTypeText, norm[0].Type)
	assert.Equal(t, PartTypeImageURL, norm[1].Type)
}

// TestRequestValidate covers the cheap pre-upstream validation.
func TestRequestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		req     ChatCompletionRequest
		wantErr bool
	}{
		{
			name:    "missing messages",
			req:     ChatCompletionRequest{Model: "gpt-4o-mini"},
			wantErr: true,
		},
		{
			name: "message without role",
			req: ChatCompletionRequest{
				Messages: []Message{{Content: Text("hi")}},
			},
			wantErr: true,
		},
		{
			name: "model is optional",
			req: ChatCompletionRequest{
				Messages: []Message{{Role: "user", Content: Text("hi")}},
			},
			wantErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestCompletionValidateRejectsBadShapes verifies the structural check used
// against hook output.
func TestCompletionValidateRejectsBadShapes(t *testing.T) {
	valid := &ChatCompletion{
		Choices: []Choice{{
			Message: ResponseMessage{Role: "assistant", Content: Text("hi")},
		}},
	}
	assert.NoError(t, valid.Validate())

	noRole := &ChatCompletion{
		Choices: []Choice{{Message: ResponseMessage{Content: Text("hi")}}},
	}
	assert.Error(t, noRole.Validate())

	badPart := &ChatCompletion{
		Choices: []Choice{{
			Message: ResponseMessage{
				Role:    "assistant",
				Content: Parts(ContentPart{Type: "video"}),
			},
		}},
	}
	assert.Error(t, badPart.Validate())

	imageWithoutURL := &ChatCompletion{
		Choices: []Choice{{
			Message: ResponseMessage{
				Role:    "assistant",
				Content: Parts(ContentPart{Type: PartTypeImageURL}),
			},
		}},
	}
	assert.Error(t, imageWithoutURL.Validate())
}

// TestCloneIsDeep verifies mutations on a clone never reach the original.
func TestCloneIsDeep(t *testing.T) {
	original := &ChatCompletion{
		ID: "chatcmpl-1",
		Choices: []Choice{{
			Message: ResponseMessage{Role: "assistant", Content: Text("untouched")},
		}},
		Usage: &Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	}

	clone := original.Clone()
	clone.Choices[0].Message.Content = Parts(TextPart("mutated"), ImagePart("data:image/png;base64,AAAA"))
	clone.Usage.TotalTokens = 99

	assert.Equal(t, "untouched", original.Text())
	assert.False(t, original.Choices[0].Message.Content.IsParts())
	assert.Equal(t, 3, original.Usage.TotalTokens)
}
