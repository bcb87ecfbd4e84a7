package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/pratik-mahalle/ratewatch/internal/api/handlers"
	"github.com/pratik-mahalle/ratewatch/internal/api/router"
	"github.com/pratik-mahalle/ratewatch/internal/config"
	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/validator"
	"github.com/pratik-mahalle/ratewatch/internal/queue"
	"github.com/pratik-mahalle/ratewatch/internal/repository/postgres"
	"github.com/pratik-mahalle/ratewatch/internal/services"
	"github.com/pratik-mahalle/ratewatch/internal/worker"
	"github.com/pratik-mahalle/ratewatch/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if err := run(cfg, log); err != nil {
		log.ErrorWithErr(err, "Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := postgres.New(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	migrationsFS, err := migrations.For(cfg.Database.Driver)
	if err != nil {
		return err
	}
	applied, err := postgres.RunMigrations(db.DB, migrationsFS, log)
	if err != nil {
		return err
	}
	log.With("applied", applied).Info("Database ready")

	clk := clock.Real()

	// Repositories
	alertRepo := postgres.NewAlertRepository(db)
	usageRepo := postgres.NewUsageRepository(db)

	// Work queue
	var (
		jobQueue job.Queue
		pinger   handlers.Pinger
	)
	switch cfg.Monitoring.QueueBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		rq := queue.NewRedisQueue(client, cfg.Redis.KeyPrefix, clk)
		jobQueue, pinger = rq, rq
	default:
		jobQueue = queue.NewMemoryQueue(clk)
	}
	log.With("backend", cfg.Monitoring.QueueBackend).Info("Job queue ready")

	// Services
	platforms := cfg.Monitoring.Platforms
	alertService := services.NewAlertService(alertRepo, cfg.Monitoring.NotificationUserIDs, clk, log)
	tracker := services.NewActivityTracker(alertService, clk, log)
	engine := services.NewComplianceEngine(platforms, alertService, clk, log)
	coordinator := services.NewMonitorCoordinator(platforms, tracker, engine, alertService, jobQueue, usageRepo, clk, log)

	scheduler := services.NewJobScheduler(services.SchedulerConfig{
		Platforms:                   platforms,
		EnableRateLimitMonitoring:   cfg.Monitoring.EnableRateLimitMonitoring,
		EnableCompliance:            cfg.Monitoring.EnableCompliance,
		EnablePolicyChangeDetection: cfg.Monitoring.EnablePolicyChangeDetection,
		ComplianceSchedule:          cfg.Monitoring.ComplianceSchedule(),
		TickInterval:                cfg.Monitoring.TickInterval,
	}, jobQueue, tracker, coordinator, clk, log)

	monitorWorker := worker.NewMonitorWorker(jobQueue, coordinator, engine, scheduler, worker.Config{
		Concurrency:         cfg.Monitoring.WorkerConcurrency,
		ExecutionsPerMinute: cfg.Monitoring.ExecutionsPerMinute,
	}, log)

	// HTTP
	val := validator.New()
	handler := router.New(cfg, log, &router.Handlers{
		Health:     handlers.NewHealthHandler(db.DB, pinger, log),
		Alert:      handlers.NewAlertHandler(alertService, log, val),
		Job:        handlers.NewJobHandler(jobQueue, log),
		Monitoring: handlers.NewMonitoringHandler(coordinator, engine, scheduler, log, val),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		monitorWorker.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.With("addr", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			stop()
			scheduler.StopAll()
			wg.Wait()
			return fmt.Errorf("http server: %w", err)
		}
	}

	scheduler.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "HTTP server shutdown failed")
	}

	wg.Wait()
	log.Info("Server stopped")
	return nil
}
