// Relay API — HTTP API сервер для approval-gates и инспекции
// очереди jobs.
//
// Endpoints:
//   - /api/v1/checkpoints — создание, список, approve/reject/sign
//   - /api/v1/jobs        — инспекция очереди
//   - /healthz, /metrics  — служебные
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmabbott81/relay-sub001/internal/api"
	"github.com/kmabbott81/relay-sub001/internal/checkpoint"
	"github.com/kmabbott81/relay-sub001/internal/config"
	"github.com/kmabbott81/relay-sub001/internal/events"
	"github.com/kmabbott81/relay-sub001/internal/mq"
	"github.com/kmabbott81/relay-sub001/internal/queue"
	"github.com/kmabbott81/relay-sub001/internal/repo"
	"github.com/kmabbott81/relay-sub001/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting relay-api")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.APIFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Журнал событий
	eventLog, err := events.Open(cfg.EventsPath)
	if err != nil {
		logger.Error("failed to open event log", "error", err)
		os.Exit(1)
	}
	defer eventLog.Close()

	var jobQueue queue.Queue
	var checkpointRepo checkpoint.Repo

	switch cfg.QueueBackend {
	case config.QueuePostgres:
		pool, err := repo.NewPool(ctx)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("database connected")

		pgQueue := queue.NewPostgres(pool)
		if err := pgQueue.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure jobs schema", "error", err)
			os.Exit(1)
		}
		jobQueue = pgQueue

		pgRepo := checkpoint.NewPostgresRepo(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure checkpoints schema", "error", err)
			os.Exit(1)
		}
		checkpointRepo = pgRepo

	default:
		jobQueue = queue.NewMemory()
		checkpointRepo = checkpoint.NewMemoryRepo()
	}

	// RabbitMQ (опционально)
	var publisher *mq.Publisher
	mqConn, err := mq.NewConnection(mq.URL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, notifications disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	store := checkpoint.New(checkpoint.Config{
		Repo:      checkpointRepo,
		Events:    eventLog,
		Publisher: publisher,
		Logger:    logger,
	})

	handler := api.NewHandler(api.Config{
		Store:  store,
		Queue:  jobQueue,
		Logger: logger,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("relay-api stopped")
}
