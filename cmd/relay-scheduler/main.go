// Relay Scheduler — хост-процесс планировщика.
//
// Отвечает за полный цикл:
//   - Тик: сопоставление расписаний с текущей минутой → enqueue jobs
//   - Истечение просроченных checkpoints
//   - Drain: выполнение claimable jobs через внешний движок
//
// Режимы:
//   - serve (по умолчанию) — бесконечный цикл тиков с graceful shutdown
//   - --once — ровно один тик и выход (для cron-обвязки и отладки)
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmabbott81/relay-sub001/internal/checkpoint"
	"github.com/kmabbott81/relay-sub001/internal/config"
	"github.com/kmabbott81/relay-sub001/internal/engine"
	"github.com/kmabbott81/relay-sub001/internal/events"
	"github.com/kmabbott81/relay-sub001/internal/executor"
	"github.com/kmabbott81/relay-sub001/internal/mq"
	"github.com/kmabbott81/relay-sub001/internal/queue"
	"github.com/kmabbott81/relay-sub001/internal/repo"
	"github.com/kmabbott81/relay-sub001/internal/scheduler"
	"github.com/kmabbott81/relay-sub001/internal/schedulefile"
	"github.com/kmabbott81/relay-sub001/internal/telemetry"
)

func main() {
	once := flag.Bool("once", false, "run a single tick and exit")
	dryRun := flag.Bool("dry-run", false, "pass dry-run flag to the engine")
	flag.Parse()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting relay-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.SchedulerFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Расписания read-only: читаются один раз при старте
	schedules, err := schedulefile.Load(cfg.SchedulesPath, logger)
	if err != nil {
		logger.Error("failed to load schedules", "error", err)
		os.Exit(1)
	}
	logger.Info("schedules loaded", "count", len(schedules), "path", cfg.SchedulesPath)

	// Журнал событий
	eventLog, err := events.Open(cfg.EventsPath)
	if err != nil {
		logger.Error("failed to open event log", "error", err)
		os.Exit(1)
	}
	defer eventLog.Close()

	// Очередь jobs и хранилище checkpoints
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

	coordinator := scheduler.New(scheduler.Config{
		Schedules: schedules,
		Queue:     jobQueue,
		Events:    eventLog,
		Logger:    logger,
	})

	exec := executor.New(executor.Config{
		Queue:       jobQueue,
		Engine:      engine.NewClient(cfg.EngineURL, 0),
		Events:      eventLog,
		Publisher:   publisher,
		MaxParallel: cfg.MaxParallel,
		MaxJobs:     cfg.MaxJobs,
		DryRun:      *dryRun,
		Logger:      logger,
	})

	tick := func(ctx context.Context, now time.Time) {
		start := time.Now()

		enqueued, err := coordinator.Tick(ctx, now)
		if err != nil {
			logger.Error("tick aborted", "error", err)
			return
		}

		expired, err := store.ExpirePending(ctx, now)
		if err != nil {
			logger.Error("checkpoint expiry failed", "error", err)
		}

		outcomes, err := exec.Drain(ctx)
		if err != nil {
			logger.Error("drain failed", "error", err)
		}

		telemetry.TickDuration.Observe(time.Since(start).Seconds())

		logger.Info("tick complete",
			"enqueued", enqueued,
			"expired", len(expired),
			"executed", len(outcomes),
			"duration", time.Since(start))
	}

	if *once {
		tick(ctx, time.Now())
		logger.Info("single tick done")
		return
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Цикл тиков
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	logger.Info("scheduler loop started", "interval", cfg.TickInterval)

	for {
		select {
		case now := <-ticker.C:
			tick(ctx, now)
		case <-ctx.Done():
			// Вычерпываем уже поставленные jobs перед выходом
			logger.Info("shutting down, draining remaining jobs")
			drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := exec.Drain(drainCtx); err != nil {
				logger.Error("final drain failed", "error", err)
			}
			drainCancel()

			logger.Info("relay-scheduler stopped")
			return
		}
	}
}
