package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/repohealth/internal/cache"
	"github.com/panbanda/repohealth/internal/gateway"
	"github.com/panbanda/repohealth/internal/output"
	"github.com/panbanda/repohealth/pkg/analyzer/health"
	"github.com/panbanda/repohealth/pkg/config"
)

// newGateway is replaced in tests.
var newGateway = gateway.New

// setupLogging installs the default logger: warnings only, or everything
// with --verbose.
func setupLogging(c *cli.Context) {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads the config file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}

	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := result.Config

	if c.IsSet("gateway") {
		cfg.Gateway.Kind = c.String("gateway")
	}
	if c.IsSet("base-url") {
		cfg.Gateway.BaseURL = c.String("base-url")
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if result.Source != "" {
		slog.Debug("Loaded config", "component", "cli", "path", result.Source)
	}
	return cfg, nil
}

func openCache(cfg *config.Config) (*cache.Cache, error) {
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
}

func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	colored := cfg.Output.Color && !color.NoColor
	return output.NewFormatter(output.ParseFormat(cfg.Output.Format), c.String("output"), colored)
}

// engineOptions are shared by every command that builds reports.
func engineOptions(cfg *config.Config, store *cache.Cache) []health.Option {
	return []health.Option{
		health.WithConfig(cfg),
		health.WithLogger(slog.Default()),
		health.WithCache(store),
	}
}

// engineFactory builds one engine per credential, falling back to
// defaultCredential.
func engineFactory(cfg *config.Config, store *cache.Cache, defaultCredential string) func(string) (*health.Engine, error) {
	return func(credential string) (*health.Engine, error) {
		if credential == "" {
			credential = defaultCredential
		}
		gw, err := newGateway(cfg.Gateway, credential)
		if err != nil {
			return nil, err
		}
		return health.New(gw, engineOptions(cfg, store)...), nil
	}
}
