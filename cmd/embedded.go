package main

import (
	"embed"
)

//go:embed configs/config.yaml
var configsFS embed.FS

// getEmbeddedConfig returns the raw bytes of the built-in default config.
// Used when no config file is found on disk, so the binary works out of the
// box with just OPENAI_API_KEY set.
func getEmbeddedConfig() ([]byte, error) {
	return configsFS.ReadFile("configs/config.yaml")
}
