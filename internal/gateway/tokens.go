package gateway

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/chartgate/chartgate/internal/api"
)

// usageEstimator approximates token usage when the upstream omits the
// usage block.
type usageEstimator func(model string, req *api.ChatCompletionRequest, completionText string) *api.Usage

var (
	encoderOnce sync.Once
	encoderFor  func(model string) (*tiktoken.Tiktoken, bool)
)

// initEncoders builds a model→encoder lookup, falling back to cl100k_base
// for models tiktoken does not know. Loading BPE data is not free, so it
// happens once per process on first use.
func initEncoders() {
	var fallback *tiktoken.Tiktoken
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		fallback = enc
	} else {
		log.Warn().Err(err).Msg("tokenizer unavailable, usage estimation disabled")
	}

	cache := sync.Map{}
	encoderFor = func(model string) (*tiktoken.Tiktoken, bool) {
		if v, ok := cache.Load(model); ok {
			enc := v.(*tiktoken.Tiktoken)
			return enc, enc != nil
		}
		enc, err := tiktoken.EncodingForModel(model)
		if err != nil {
			enc = fallback
		}
		cache.Store(model, enc)
		return enc, enc != nil
	}
}

// tiktokenEstimator counts prompt and completion tokens with tiktoken.
// Message framing overhead is ignored; this is a best-effort estimate for
// upstreams that do not report usage themselves.
func tiktokenEstimator(model string, req *api.ChatCompletionRequest, completionText string) *api.Usage {
	encoderOnce.Do(initEncoders)

	enc, ok := encoderFor(model)
	if !ok {
		return &api.Usage{}
	}

	prompt := 0
	for _, m := range req.Messages {
		prompt += len(enc.Encode(m.Content.Text(), nil, nil))
	}
	completion := len(enc.Encode(completionText, nil, nil))

	return &api.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
