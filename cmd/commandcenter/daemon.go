package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/auth"
	"github.com/fentz26/commandcenter/internal/dashboard"
	"github.com/fentz26/commandcenter/internal/scheduler"
)

var (
	listenAddr    string
	dbPath        string
	auditInterval time.Duration
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the Command Center daemon",
	Long: `Starts the daemon which serves the dashboard API (AI chat, Notion data,
workspace audits, n8n triggers and lead intake) and, when an audit interval is
set, audits the workspace periodically.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	daemonCmd.Flags().DurationVar(&auditInterval, "audit-interval", 0, "Audit the workspace on this interval, e.g. 1h (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cmd.Flags().Changed("audit-interval") {
		cfg.AuditInterval = auditInterval
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Logger

	provider, _ := cfg.AI.Provider()
	log.Info("starting Command Center daemon",
		"version", dashboard.Version,
		"listen", cfg.Listen,
		"db", cfg.DBPath,
		"ai_provider", provider,
		"notion", cfg.Notion.Configured(),
		"n8n", cfg.N8NBaseURL != "",
	)

	comps, err := buildComponents(cfg, log)
	if err != nil {
		return err
	}

	service := dashboard.NewService(comps.deps)
	guard := auth.NewGuard(cfg.AdminPassword, cfg.AdminSecret)
	server := dashboard.NewServer(service, guard, cfg.Listen, log.With("component", "http"))

	schedCfg := scheduler.DefaultConfig()
	schedCfg.Interval = cfg.AuditInterval
	if !cfg.Notion.Configured() {
		schedCfg.Interval = 0
	}
	sched := scheduler.New(service, comps.n8n, schedCfg, log.With("component", "scheduler"))
	sched.Start()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", "error", err)
			sched.Stop()
			comps.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", "error", err)
	}

	sched.Stop()

	log.Info("closing database")
	if err := comps.Close(); err != nil {
		log.Warn("database close error", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}
