// Package app initializes and holds the long-lived services shared by CLI
// commands, acting as a small dependency container.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/config"
	"github.com/alertdigest/alertdigest/internal/logging"
)

// App holds the services every command needs: the parsed configuration and
// the process logger. It is built once at startup, stored in the command
// context, and closed after the command finishes.
type App struct {
	cfg    config.Config
	logger *zap.Logger
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// NewApp loads configuration and builds the logger. verbose forces debug
// logging over the configured level. Invalid configuration fails here, before
// any command logic runs.
func NewApp(cfgPath string, verbose bool) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(cfg.Log.Development, level)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &App{cfg: cfg, logger: logger}, nil
}

// Close flushes buffered log entries.
func (a *App) Close() {
	_ = a.logger.Sync()
}
