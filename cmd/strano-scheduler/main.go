// strano-scheduler выполняет задачи выкладки по расписаниям из конфигурации.
//
// Переменные окружения:
//
//	STRANO_CONFIG  путь к конфигурации (default: strano.yaml)
//	SCHED_PORT     порт HTTP: /healthz, /metrics, /api/v1 (default: 8081)
//
// Если настроена история, задачи выполняет только экземпляр,
// удерживающий pg_advisory_lock.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Strano/internal/api"
	"github.com/shaiso/Strano/internal/cli"
	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/repo"
	"github.com/shaiso/Strano/internal/scheduler"
	"github.com/shaiso/Strano/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := telemetry.SetupLogger()

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := config.DefaultConfigFile
	if v := os.Getenv("STRANO_CONFIG"); v != "" {
		configPath = v
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	app, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open connections", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	schedCfg := scheduler.Config{
		Deploy: cfg,
		Runner: app.Runner,
		Tasks:  app.Runner.Registry(),
		Logger: logger,
	}

	// Лидерство только при наличии БД
	if app.Pool != nil {
		leader := repo.NewLeader(app.Pool, repo.SchedulerLockKey)
		schedCfg.Locker = leader
		defer func() {
			if err := leader.Unlock(context.Background()); err != nil && !errors.Is(err, repo.ErrLockNotHeld) {
				logger.Warn("failed to release leader lock", "error", err)
			}
		}()
	} else {
		logger.Warn("history is not configured, running without leader election")
	}

	sched, err := scheduler.New(schedCfg)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()

	// HTTP mux: /healthz, /metrics, /api/v1/...
	apiCfg := api.Config{
		Schedules: sched,
		Logger:    logger,
	}
	if app.Pool != nil {
		apiCfg.Deployments = repo.NewDeploymentRepo(app.Pool)
	}

	mux := http.NewServeMux()
	api.NewHandler(apiCfg).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	srv := &http.Server{
		Addr:              port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("scheduler listening", "addr", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", "error", err)
	}
	sched.Stop(shutdownCtx)
}
