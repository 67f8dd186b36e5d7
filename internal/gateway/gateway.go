// Package gateway is the HTTP surface of the chart gateway: an
// OpenAI-compatible chat completion endpoint that forwards to an upstream
// provider and runs the response hook chain before replying.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/chartgate/chartgate/internal/config"
	"github.com/chartgate/chartgate/internal/hooks"
	"github.com/chartgate/chartgate/internal/monitoring"
	"github.com/chartgate/chartgate/internal/provider"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// HeaderRequestID is echoed back on every response for request tracing.
const HeaderRequestID = "X-Request-ID"

// MaxRateLimitBuckets caps the per-IP rate limiter state.
const MaxRateLimitBuckets = 10000

// Gateway ties the HTTP server, middleware chain, provider client, and
// hook registry together.
type Gateway struct {
	cfg           *config.Config
	provider      provider.Client
	registry      *hooks.Registry
	metrics       *monitoring.MetricsCollector
	requestLogger *monitoring.RequestLogger
	rateLimiter   *rateLimiter
	server        *http.Server

	// estimateUsage backfills token usage when the upstream omits it.
	// Indirect so tests can avoid loading tokenizer data.
	estimateUsage usageEstimator
}

// New creates a gateway. The hook registry must be fully populated before
// Start; it is read-only once requests are being served.
func New(cfg *config.Config, client provider.Client, registry *hooks.Registry, metrics *monitoring.MetricsCollector) *Gateway {
	g := &Gateway{
		cfg:           cfg,
		provider:      client,
		registry:      registry,
		metrics:       metrics,
		requestLogger: monitoring.NewRequestLogger(monitoring.New(monitoring.LoggerConfig{Level: cfg.Monitoring.Level, Format: cfg.Monitoring.Format, Output: cfg.Monitoring.Output})),
		rateLimiter:   newRateLimiter(cfg.RateLimit.PerSecond),
		estimateUsage: tiktokenEstimator,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", g.handleChatCompletions)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/metrics", g.handleMetrics)
	mux.HandleFunc("/", g.handleRoot)

	handler := g.panicRecovery(g.rateLimit(g.loggingMiddleware(g.security(mux))))

	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return g
}

// Start runs the HTTP server until Shutdown is called.
func (g *Gateway) Start() error {
	log.Info().
		Int("port", g.cfg.Server.Port).
		Str("provider", g.provider.Provider()).
		Strs("hooks", g.registry.Names()).
		Msg("gateway listening")
	return g.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

// handleHealth is the liveness endpoint. No business logic.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleRoot describes the service.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		g.writeError(w, "not found", "not_found_error", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Chart Gateway",
		"version": Version,
		"endpoints": map[string]string{
			"chat_completions": "/v1/chat/completions",
			"health":           "/health",
			"metrics":          "/metrics",
		},
	})
}

// handleMetrics dumps the operational counters.
func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.metrics.Stats())
}

// writeError writes an OpenAI-style error envelope.
func (g *Gateway) writeError(w http.ResponseWriter, msg, errType string, status int) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
			"code":    nil,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
