package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  port: 8000
upstream:
  provider: openai
  endpoint: https://api.openai.com/v1/chat/completions
  api_key: ${TEST_CHARTGATE_KEY:-sk-default}
  default_model: gpt-4o-mini
hooks:
  chart:
    enabled: true
`

// TestLoadFromBytesAppliesDefaults verifies working defaults for ambient
// settings.
func TestLoadFromBytesAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, 50, cfg.RateLimit.PerSecond)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Monitoring.Level)
	assert.True(t, cfg.Hooks.Chart.Enabled)
}

// TestEnvExpansion covers ${VAR} and ${VAR:-default} syntax.
func TestEnvExpansion(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, "sk-default", cfg.Upstream.APIKey)

	t.Setenv("TEST_CHARTGATE_KEY", "sk-from-env")
	cfg, err = LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Upstream.APIKey)
}

// TestValidateRejectsBadConfigs covers required-field and range checks.
func TestValidateRejectsBadConfigs(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{
			name: "missing port",
			yaml: `
upstream: {endpoint: "http://x", default_model: m}
`,
		},
		{
			name: "port out of range",
			yaml: `
server: {port: 99999}
upstream: {endpoint: "http://x", default_model: m}
`,
		},
		{
			name: "missing endpoint",
			yaml: `
server: {port: 8000}
upstream: {default_model: m}
`,
		},
		{
			name: "missing default model",
			yaml: `
server: {port: 8000}
upstream: {endpoint: "http://x"}
`,
		},
		{
			name: "unknown provider",
			yaml: `
server: {port: 8000}
upstream: {provider: cohere, endpoint: "http://x", default_model: m}
`,
		},
		{
			name: "sqlite without path",
			yaml: `
server: {port: 8000}
upstream: {endpoint: "http://x", default_model: m}
store: {type: sqlite}
`,
		},
		{
			name: "unknown store type",
			yaml: `
server: {port: 8000}
upstream: {endpoint: "http://x", default_model: m}
store: {type: redis}
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

// TestLoadMissingFile returns a useful error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/chartgate.yaml")
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}
