package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/AO-Miko/Discord-Bot/config"
	"github.com/AO-Miko/Discord-Bot/internal/faults"
	"github.com/AO-Miko/Discord-Bot/internal/health"
	"github.com/AO-Miko/Discord-Bot/internal/httpserver"
	"github.com/AO-Miko/Discord-Bot/internal/metrics"
	"github.com/AO-Miko/Discord-Bot/internal/prefstore"
	"github.com/AO-Miko/Discord-Bot/internal/ratelimit"
	"github.com/AO-Miko/Discord-Bot/internal/recovery"
	"github.com/AO-Miko/Discord-Bot/internal/status"
	"github.com/AO-Miko/Discord-Bot/internal/upstream"
	"github.com/AO-Miko/Discord-Bot/pkg/logger"
)

const (
	gatewayProbeTimeout  = 10 * time.Second
	limiterCleanupEvery  = time.Minute
	memoryDegradedRatio  = 0.75
	memoryUnhealthyRatio = 0.90
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(256, logger.Component(log, "metrics"))
	collector.Start(ctx)

	manager := upstream.NewManager(logger.Component(log, "upstream"), collector)
	if err := registerAPIs(manager, cfg); err != nil {
		log.Error("Failed to register APIs", slog.Any("err", err))
		os.Exit(1)
	}

	limiter := ratelimit.NewLimiter(logger.Component(log, "ratelimit"))
	if err := registerLimits(limiter, cfg); err != nil {
		log.Error("Failed to register rate limits", slog.Any("err", err))
		os.Exit(1)
	}
	go runLimiterCleanup(ctx, limiter)

	store := prefstore.New(cfg.Store.Path, logger.Component(log, "prefstore"))

	recoverer := recovery.NewManager(logger.Component(log, "recovery"))
	registerRecoveryActions(recoverer, manager, store)

	checker, err := buildChecker(log, cfg, manager)
	if err != nil {
		log.Error("Failed to build health checker", slog.Any("err", err))
		os.Exit(1)
	}
	checker.Notify = func(report health.Report) {
		for _, check := range report.Checks {
			if check.Status == health.StatusUnhealthy && check.Err != nil {
				recoverer.HandleError(ctx, check.Err)
			}
		}
	}
	checker.Start(ctx)

	statusHandler := status.NewHandler(logger.Component(log, "status"), checker, collector, manager, limiter)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(statusHandler))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Status server listening", slog.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting status server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func registerAPIs(manager *upstream.Manager, cfg *config.Config) error {
	for _, apiCfg := range cfg.APIs {
		timeout, breakerReset, err := apiCfg.ParseDurations()
		if err != nil {
			return err
		}

		err = manager.RegisterAPI(apiCfg.Name, upstream.APIConfig{
			BaseURL:          apiCfg.BaseURL,
			FallbackURLs:     apiCfg.FallbackURLs,
			Timeout:          timeout,
			MaxRetries:       apiCfg.MaxRetries,
			BreakerThreshold: apiCfg.BreakerThreshold,
			BreakerReset:     breakerReset,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func registerLimits(limiter *ratelimit.Limiter, cfg *config.Config) error {
	for _, limitCfg := range cfg.RateLimits {
		window, err := time.ParseDuration(limitCfg.Window)
		if err != nil {
			return err
		}
		limiter.RegisterLimit(limitCfg.Name, ratelimit.Policy{
			MaxRequests: limitCfg.MaxRequests,
			Window:      window,
		})
	}
	return nil
}

func buildChecker(log *slog.Logger, cfg *config.Config, manager *upstream.Manager) (*health.Checker, error) {
	interval, err := time.ParseDuration(cfg.Health.Interval)
	if err != nil {
		return nil, err
	}

	checker := health.NewChecker(logger.Component(log, "health"), interval)
	checker.Register(health.GatewayCheck(cfg.Health.GatewayURL, gatewayProbeTimeout))
	checker.Register(health.FilesystemCheck(cfg.Health.ScratchDir))
	checker.Register(health.BreakerCheck(manager))
	checker.Register(health.MemoryCheck(memoryDegradedRatio, memoryUnhealthyRatio))
	return checker, nil
}

func registerRecoveryActions(recoverer *recovery.Manager, manager *upstream.Manager, store *prefstore.Store) {
	recoverer.Register(recovery.Action{
		Name:     "clear-response-cache",
		Priority: 1,
		Kinds:    []faults.Kind{faults.KindUpstream},
		Run: func(ctx context.Context, cause error) error {
			manager.ClearCache()
			return nil
		},
	})

	recoverer.Register(recovery.Action{
		Name:     "reload-guild-prefs",
		Priority: 2,
		Kinds:    []faults.Kind{faults.KindFilesystem},
		Run: func(ctx context.Context, cause error) error {
			store.Reload()
			return nil
		},
	})

	recoverer.Register(recovery.Action{
		Name:     "free-memory",
		Priority: 3,
		Kinds:    []faults.Kind{faults.KindMemory},
		Run: func(ctx context.Context, cause error) error {
			debug.FreeOSMemory()
			return nil
		},
	})
}

func runLimiterCleanup(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}
