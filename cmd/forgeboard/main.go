package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/forgeboard/internal/adapters/http/api"
	app "github.com/okian/forgeboard/internal/app"
	"github.com/okian/forgeboard/internal/config"
	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(log),
		app.WithAdmins(identities(cfg.Admins)...),
		app.WithOracles(identities(cfg.Oracles)...),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDispatcherWorkers(cfg.DispatcherWorkers),
		app.WithTipFeePercent(cfg.TipFeePercent),
		app.WithEndorsePricing(cfg.EndorseCost, cfg.EndorseCredit),
		app.WithSeasonDuration(time.Duration(cfg.SeasonDays)*24*time.Hour),
		app.WithSeasonAutoRoll(cfg.SeasonAutoRoll),
		app.WithLeaderboardSize(cfg.LeaderboardSize),
		app.WithVotingPeriod(time.Duration(cfg.VotingPeriodDays)*24*time.Hour),
		app.WithMinProposalReputation(cfg.MinProposalReputation),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Keep the service gauges fresh for Prometheus scrapes.
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(svc, cfg.MaxLeaderboardLimit).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

func identities(ids []string) []types.Identity {
	out := make([]types.Identity, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.Identity(id))
	}
	return out
}

// startServiceMetricsUpdater refreshes service-level gauges on a ticker.
// GetStats itself pushes the current counts into the metrics registry.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.GetStats()
		}
	}
}
