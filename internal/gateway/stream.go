// Streaming responses.
//
// POLICY: buffer-then-enrich. The upstream is always called non-streaming
// because the chart hook needs the complete text before it can decide
// whether to draw. When the client asked for stream:true, the final
// enriched completion is re-chunked into OpenAI-style SSE: a role chunk,
// fixed-size text deltas, one full-content delta carrying the part array
// when an image was attached, a finish chunk, then [DONE]. Clients see a
// well-formed stream at the cost of time-to-first-token.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/chartgate/chartgate/internal/api"
)

// streamChunkSize is how many runes each synthesized content delta carries.
const streamChunkSize = 10

type streamChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamDelta struct {
	Role    string `json:"role,omitempty"`
	Content any    `json:"content,omitempty"`
}

// writeStream emits the enriched completion as an SSE stream.
func (g *Gateway) writeStream(w http.ResponseWriter, c *api.ChatCompletion) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	emit := func(chunk *streamChunk) {
		data, err := json.Marshal(chunk)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal stream chunk")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}
	base := func(delta streamDelta, finish *string) *streamChunk {
		return &streamChunk{
			ID:      c.ID,
			Object:  "chat.completion.chunk",
			Created: c.Created,
			Model:   c.Model,
			Choices: []chunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
		}
	}

	// Role establishment chunk
	emit(base(streamDelta{Role: "assistant", Content: ""}, nil))

	if len(c.Choices) > 0 {
		content := c.Choices[0].Message.Content

		// Stream the text in fixed-size deltas
		for _, piece := range chunkText(content.Text(), streamChunkSize) {
			emit(base(streamDelta{Content: piece}, nil))
		}

		// Multimodal content cannot be expressed as incremental string
		// deltas; send the full part array as one late delta.
		if content.IsParts() && content.HasImage() {
			emit(base(streamDelta{Content: content.Parts()}, nil))
		}
	}

	finish := "stop"
	if len(c.Choices) > 0 && c.Choices[0].FinishReason != "" {
		finish = c.Choices[0].FinishReason
	}
	emit(base(streamDelta{}, &finish))

	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

// chunkText splits s into rune-safe pieces of at most size runes.
func chunkText(s string, size int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	pieces := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
	}
	return pieces
}
