package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kmabbott81/relay-sub001/internal/domain"
	"github.com/kmabbott81/relay-sub001/internal/events"
	"github.com/kmabbott81/relay-sub001/internal/mq"
	"github.com/kmabbott81/relay-sub001/internal/queue"
	"github.com/kmabbott81/relay-sub001/internal/telemetry"
)

// Default configuration values.
const (
	defaultMaxParallel = 4
	defaultMaxJobs     = 50
)

// Engine — внешний workflow-движок, выполняющий DAG.
type Engine interface {
	ExecuteWorkflow(ctx context.Context, dagPath, tenant string, dryRun bool) (map[string]any, error)
}

// Outcome — итог выполнения одного job.
type Outcome struct {
	JobID  string
	Status domain.JobStatus
	Error  string
}

// Executor вычерпывает очередь и выполняет jobs через Engine.
type Executor struct {
	queue     queue.Queue
	engine    Engine
	events    *events.Log
	publisher *mq.Publisher

	maxParallel int
	maxJobs     int
	dryRun      bool

	logger *slog.Logger
}

// Config — конфигурация Executor.
type Config struct {
	Queue     queue.Queue
	Engine    Engine
	Events    *events.Log
	Publisher *mq.Publisher // опционально; nil — деградация без MQ

	MaxParallel int  // одновременных jobs (default: 4)
	MaxJobs     int  // лимит jobs за один Drain (default: 50)
	DryRun      bool // передаётся движку как есть

	Logger *slog.Logger
}

// New создаёт Executor.
func New(cfg Config) *Executor {
	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}

	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = defaultMaxJobs
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		queue:       cfg.Queue,
		engine:      cfg.Engine,
		events:      cfg.Events,
		publisher:   cfg.Publisher,
		maxParallel: maxParallel,
		maxJobs:     maxJobs,
		dryRun:      cfg.DryRun,
		logger:      logger,
	}
}

// Drain забирает из очереди claimable jobs до лимита и выполняет их
// с ограничением параллелизма. Возвращает итоги всех обработанных jobs.
//
// Захват и выполнение разделены: сначала claim всей пачки, потом
// пул воркеров. Job, ушедший в retry во время выполнения пачки,
// будет подхвачен следующим Drain, а не этим же.
func (e *Executor) Drain(ctx context.Context) ([]Outcome, error) {
	var batch []*domain.Job
	for len(batch) < e.maxJobs {
		if err := ctx.Err(); err != nil {
			break
		}

		job, err := e.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				break
			}
			e.logger.Error("dequeue failed", "error", err)
			break
		}
		batch = append(batch, job)
	}

	if len(batch) == 0 {
		return nil, nil
	}

	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup

	outcomes := make([]Outcome, len(batch))
	for i, job := range batch {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, job *domain.Job) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[i] = e.execute(ctx, job)
		}(i, job)
	}

	wg.Wait()

	return outcomes, nil
}

// execute выполняет один job end-to-end: событие старта, вызов движка,
// фиксация статуса, событие и MQ-сообщение о завершении.
func (e *Executor) execute(ctx context.Context, job *domain.Job) Outcome {
	logger := telemetry.WithJobID(e.logger, job.ID.String())

	logger.Info("job started",
		slog.String("dag_path", job.WorkflowRef),
		slog.String("tenant", job.Tenant),
		slog.Int("attempt", job.Attempts))

	e.appendEvent(events.TypeRunStarted, map[string]any{
		"job_id":      job.ID.String(),
		"schedule_id": job.ScheduleID,
		"dag_path":    job.WorkflowRef,
		"tenant":      job.Tenant,
		"attempt":     job.Attempts,
	})

	start := time.Now()
	result, runErr := e.runEngine(ctx, job)
	duration := time.Since(start)

	status := domain.JobStatusSuccess
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if job.RetriesLeft() {
			status = domain.JobStatusRetry
		} else {
			status = domain.JobStatusFailed
		}
	}

	if err := e.queue.UpdateStatus(ctx, job.ID, status, result, errMsg); err != nil {
		logger.Error("failed to update job status",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
	}

	telemetry.JobsFinished.WithLabelValues(string(status)).Inc()

	logAttrs := []any{
		slog.String("status", string(status)),
	}
	if errMsg != "" {
		logAttrs = append(logAttrs, slog.String("error", errMsg))
	}
	if status == domain.JobStatusFailed {
		logger.Error("job failed", logAttrs...)
	} else {
		logger.Info("job finished", logAttrs...)
	}

	finished := map[string]any{
		"job_id":           job.ID.String(),
		"schedule_id":      job.ScheduleID,
		"dag_path":         job.WorkflowRef,
		"tenant":           job.Tenant,
		"status":           string(status),
		"duration_seconds": duration.Seconds(),
		"attempts":         job.Attempts,
	}
	if errMsg != "" {
		finished["error"] = errMsg
	}
	e.appendEvent(events.TypeRunFinished, finished)

	if e.publisher != nil {
		perr := e.publisher.PublishJobCompleted(ctx, mq.JobCompletedPayload{
			JobID:      job.ID,
			ScheduleID: job.ScheduleID,
			DagPath:    job.WorkflowRef,
			Tenant:     job.Tenant,
			Status:     string(status),
			Error:      errMsg,
			Attempts:   job.Attempts,
		})
		if perr != nil {
			logger.Warn("failed to publish job completion",
				slog.String("error", perr.Error()))
		}
	}

	return Outcome{JobID: job.ID.String(), Status: status, Error: errMsg}
}

// runEngine вызывает движок, превращая панику в обычную ошибку job.
func (e *Executor) runEngine(ctx context.Context, job *domain.Job) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()

	result, err = e.engine.ExecuteWorkflow(ctx, job.WorkflowRef, job.Tenant, e.dryRun)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

func (e *Executor) appendEvent(typ events.Type, fields map[string]any) {
	if e.events == nil {
		return
	}
	if err := e.events.Append(typ, fields); err != nil {
		e.logger.Warn("failed to append event", slog.String("error", err.Error()))
	}
}
