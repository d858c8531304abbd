package main

import (
	"fmt"
	"log/slog"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/config"
	"github.com/fentz26/commandcenter/internal/connectors/n8n"
	"github.com/fentz26/commandcenter/internal/dashboard"
	"github.com/fentz26/commandcenter/internal/health"
	"github.com/fentz26/commandcenter/internal/notion"
	"github.com/fentz26/commandcenter/internal/observability"
	"github.com/fentz26/commandcenter/internal/store"
)

// loadConfig reads the config file named by --config, the .env files in the
// working directory and the environment.
func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{File: configFile})
}

// newLogger builds the process logger from the config.
func newLogger(cfg *config.Config) (observability.Logger, error) {
	logger, err := observability.New(observability.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return logger, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// components is everything the dashboard service needs plus what must be
// closed on shutdown.
type components struct {
	deps  dashboard.Deps
	store *store.Store
	n8n   *n8n.Client
}

// buildComponents opens the history store and creates the backend clients.
func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	workflows := n8n.New(cfg.N8NBaseURL, 0, logger.With("component", "n8n"))
	return &components{
		store: st,
		n8n:   workflows,
		deps: dashboard.Deps{
			Store:     st,
			AI:        ai.New(cfg.AI, logger.With("component", "ai")),
			Workspace: notion.NewWorkspace(cfg.Notion),
			Workflows: workflows,
			Health:    health.NewChecker(cfg.Health, cfg.HealthTimeout),
			Logger:    logger,
		},
	}, nil
}

func (c *components) Close() error {
	return c.store.Close()
}
