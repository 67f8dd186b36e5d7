// Package main is the entry point for the chart gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/chartgate/chartgate/internal/config"
	"github.com/chartgate/chartgate/internal/gateway"
	"github.com/chartgate/chartgate/internal/hooks"
	chartHook "github.com/chartgate/chartgate/internal/hooks/chart"
	"github.com/chartgate/chartgate/internal/monitoring"
	"github.com/chartgate/chartgate/internal/provider"
	"github.com/chartgate/chartgate/internal/store"
)

const banner = `
  ┌─┐┬ ┬┌─┐┬─┐┌┬┐┌─┐┌─┐┌┬┐┌─┐
  │  ├─┤├─┤├┬┘ │ │ ┬├─┤ │ ├┤
  └─┘┴ ┴┴ ┴┴└─ ┴ └─┘┴ ┴ ┴ └─┘
`

// loadEnvFiles loads .env from standard locations.
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	configEnv := filepath.Join(homeDir, ".config", "chartgate", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Local .env can override
	_ = godotenv.Load()
}

// resolveConfig finds configuration: user flag → filesystem → embedded default.
// Returns raw bytes and a source description for logging.
func resolveConfig(userConfig string) ([]byte, string, error) {
	if userConfig != "" {
		data, err := os.ReadFile(userConfig)
		if err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", userConfig)
		}
		return data, userConfig, nil
	}

	searchPaths := []string{
		"chartgate.yaml",
		"configs/config.yaml",
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(homeDir, ".config", "chartgate", "config.yaml"),
		)
	}

	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			return data, path, nil
		}
	}

	data, err := getEmbeddedConfig()
	if err != nil {
		return nil, "", fmt.Errorf("no config file found. Specify --config path")
	}
	return data, "(embedded) config.yaml", nil
}

func main() {
	loadEnvFiles()

	configPath := flag.String("config", "", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	noBanner := flag.Bool("no-banner", false, "suppress startup banner")
	flag.Parse()

	if !*noBanner {
		fmt.Print(banner)
	}

	configData, configSource, err := resolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromBytes(configData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration (%s): %v\n", configSource, err)
		os.Exit(1)
	}
	if *debug {
		cfg.Monitoring.Level = "debug"
	}

	monitoring.Global(monitoring.LoggerConfig{
		Level:  cfg.Monitoring.Level,
		Format: cfg.Monitoring.Format,
		Output: cfg.Monitoring.Output,
	})

	log.Info().
		Str("version", gateway.Version).
		Str("config", configSource).
		Msg("chart gateway starting")

	client, err := provider.NewHTTPClient(cfg.Upstream)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure upstream provider")
	}

	cache, err := store.New(cfg.Store.Type, cfg.Store.Path, cfg.Store.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open chart cache")
	}
	defer cache.Close()

	metrics := monitoring.NewMetricsCollector()

	// Hook chain: registered once here, applied in registration order on
	// every response.
	registry := hooks.NewRegistry(metrics)
	if cfg.Hooks.Chart.Enabled {
		registry.Register(chartHook.New(&chartHook.Options{
			Title:     cfg.Hooks.Chart.Title,
			MaxPoints: cfg.Hooks.Chart.MaxPoints,
		}, cache, metrics))
	}

	log.Info().
		Int("port", cfg.Server.Port).
		Str("provider", client.Provider()).
		Strs("hooks", registry.Names()).
		Str("store", cfg.Store.Type).
		Msg("configuration loaded")

	gw := gateway.New(cfg, client, registry, metrics)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := gw.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("gateway shutdown error")
		}
	}()

	if err := gw.Start(); err != nil {
		if err.Error() != "http: Server closed" {
			log.Fatal().Err(err).Msg("gateway error")
		}
	}

	log.Info().Msg("chart gateway stopped")
}
