package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/chartgate/chartgate/internal/api"
	"github.com/chartgate/chartgate/internal/monitoring"
	"github.com/chartgate/chartgate/internal/provider"
)

// maxRequestBody caps inbound request size (10MB).
const maxRequestBody = 10 * 1024 * 1024

// handleChatCompletions orchestrates one request end to end:
// validate → provider call → hook chain → envelope normalization → respond.
// Validation happens before any upstream work so malformed requests are
// rejected cheaply.
func (g *Gateway) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.writeError(w, "method not allowed", "invalid_request_error", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		g.writeError(w, "failed to read request body", "invalid_request_error", http.StatusBadRequest)
		return
	}

	var req api.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		g.writeError(w, "invalid JSON: "+err.Error(), "invalid_request_error", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		g.writeError(w, err.Error(), "invalid_request_error", http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		req.Model = g.cfg.Upstream.DefaultModel
	}

	requestID := monitoring.RequestIDFromContext(r.Context())
	g.requestLogger.LogOutgoing(&monitoring.OutgoingRequestInfo{
		RequestID: requestID,
		Provider:  g.provider.Provider(),
		Model:     req.Model,
		Stream:    req.Stream,
	})

	result, err := g.provider.Complete(r.Context(), &req)
	if err != nil {
		g.metrics.RecordUpstreamError()
		var upstreamErr *provider.UpstreamError
		if errors.As(err, &upstreamErr) {
			log.Warn().Int("upstream_status", upstreamErr.StatusCode).Str("id", requestID).Msg("upstream error")
			g.writeError(w, upstreamErr.Error(), "upstream_error", http.StatusBadGateway)
			return
		}
		log.Error().Err(err).Str("id", requestID).Msg("provider call failed")
		g.writeError(w, "upstream request failed", "upstream_error", http.StatusBadGateway)
		return
	}

	// Post-hooks run on the parsed completion; failures inside the chain
	// are contained by the registry's fail-open policy.
	enriched := g.registry.Apply(r.Context(), result.Completion)

	// Streamed responses are synthesized from the completion itself, so the
	// raw-body splice is skipped; only the envelope backfill is needed.
	if req.Stream {
		g.backfill(enriched, &req)
		g.writeStream(w, enriched)
		return
	}

	final, err := g.finalizeResponse(result.RawBody, enriched, &req)
	if err != nil {
		log.Error().Err(err).Str("id", requestID).Msg("failed to finalize response")
		g.writeError(w, "internal error", "internal_error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(final); err != nil {
		log.Error().Err(err).Str("id", requestID).Msg("failed to write response")
	}
}
