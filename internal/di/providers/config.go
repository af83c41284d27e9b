// Package providers contains dependency injection providers for the Katalog server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/katalogpart/katalog-server/internal/config"
	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/engine"
	"github.com/katalogpart/katalog-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Katalog Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"catalog_source", cfg.Catalog.Source,
	)

	return log, nil
}

// ProvideEngineOptions translates the engine config into figure session options.
func ProvideEngineOptions(i do.Injector) (engine.Options, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return engineOptions(cfg.Engine), nil
}

func engineOptions(c config.EngineConfig) engine.Options {
	opts := engine.DefaultOptions()
	opts.CaseSensitiveFigureMatch = c.CaseSensitiveFigureMatch
	if c.ScrollCenterMode != "" {
		opts.ScrollCenterMode = engine.ScrollCenterMode(c.ScrollCenterMode)
	}
	if c.FixedScrollOffset > 0 {
		opts.FixedScrollOffset = c.FixedScrollOffset
	}
	if c.CoordinateFormat != "" {
		opts.CoordinateFormat = domain.CoordinateFormat(c.CoordinateFormat)
	}
	if c.ResizeDebounce > 0 {
		opts.ResizeDebounce = c.ResizeDebounce
	}
	if c.RowHighlightDuration > 0 {
		opts.RowHighlightDuration = c.RowHighlightDuration
	}
	if c.MarkerGlowDuration > 0 {
		opts.MarkerGlowDuration = c.MarkerGlowDuration
	}
	return opts
}
