// Envelope normalization.
//
// The upstream response is forwarded with the same top-level shape the
// client would have received from the provider directly. Hook-modified
// choices are spliced back into the upstream's raw JSON body rather than
// re-marshaled wholesale, so provider fields this gateway does not model
// (system_fingerprint and friends) pass through untouched. Missing fields
// required by strict OpenAI clients are backfilled.
package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/chartgate/chartgate/internal/api"
)

// finalizeResponse backfills required envelope fields on the enriched
// completion and splices the result into the raw upstream body. Used for
// non-streaming responses only; the streaming path calls backfill directly.
func (g *Gateway) finalizeResponse(raw []byte, c *api.ChatCompletion, req *api.ChatCompletionRequest) ([]byte, error) {
	g.backfill(c, req)

	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return json.Marshal(c)
	}

	choicesJSON, err := json.Marshal(c.Choices)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal choices: %w", err)
	}
	usageJSON, err := json.Marshal(c.Usage)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal usage: %w", err)
	}

	out := raw
	if out, err = sjson.SetRawBytes(out, "choices", choicesJSON); err != nil {
		return nil, err
	}
	if out, err = sjson.SetRawBytes(out, "usage", usageJSON); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "id", c.ID); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "object", c.Object); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "created", c.Created); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "model", c.Model); err != nil {
		return nil, err
	}
	return out, nil
}

// backfill fills in the envelope fields strict OpenAI-compatible clients
// insist on, and normalizes multipart content so text parts come first.
func (g *Gateway) backfill(c *api.ChatCompletion, req *api.ChatCompletionRequest) {
	if c.ID == "" {
		c.ID = "chatcmpl-" + uuid.NewString()
	}
	if c.Object == "" {
		c.Object = "chat.completion"
	}
	if c.Created == 0 {
		c.Created = time.Now().Unix()
	}
	if c.Model == "" {
		c.Model = req.Model
	}

	for i := range c.Choices {
		choice := &c.Choices[i]
		if choice.FinishReason == "" {
			choice.FinishReason = "stop"
		}
		if choice.Message.Role == "" {
			choice.Message.Role = "assistant"
		}
		choice.Message.Content = choice.Message.Content.Normalized()
	}

	if c.Usage == nil {
		c.Usage = g.estimateUsage(c.Model, req, c.Text())
	}
}
