package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kmabbott81/relay-sub001/internal/cronspec"
	"github.com/kmabbott81/relay-sub001/internal/domain"
	"github.com/kmabbott81/relay-sub001/internal/events"
	"github.com/kmabbott81/relay-sub001/internal/queue"
	"github.com/kmabbott81/relay-sub001/internal/telemetry"
)

// Coordinator сопоставляет расписания с текущим моментом времени и
// ставит сработавшие jobs в очередь.
type Coordinator struct {
	schedules []domain.ScheduleDefinition
	queue     queue.Queue
	events    *events.Log
	logger    *slog.Logger

	mu    sync.Mutex
	dedup map[string]time.Time
}

// Config — параметры создания Coordinator.
type Config struct {
	Schedules []domain.ScheduleDefinition
	Queue     queue.Queue
	Events    *events.Log
	Logger    *slog.Logger
}

// New создаёт Coordinator.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		schedules: cfg.Schedules,
		queue:     cfg.Queue,
		events:    cfg.Events,
		logger:    logger,
		dedup:     make(map[string]time.Time),
	}
}

// Tick обрабатывает один момент времени: для каждого активного
// расписания проверяет совпадение cron-выражения с минутой now и при
// совпадении ставит job в очередь. Возвращает число поставленных jobs.
//
// Ошибки отдельных расписаний логируются и не прерывают тик; Tick
// возвращает ошибку только при отменённом контексте.
func (c *Coordinator) Tick(ctx context.Context, now time.Time) (int, error) {
	minute := now.Truncate(time.Minute)
	enqueued := 0

	for _, sched := range c.schedules {
		if err := ctx.Err(); err != nil {
			return enqueued, err
		}

		if !sched.Enabled {
			continue
		}

		ok, err := c.processSchedule(ctx, sched, minute)
		if err != nil {
			c.logger.Error("schedule processing failed",
				slog.String("schedule_id", sched.ID),
				slog.String("error", err.Error()))
			continue
		}
		if ok {
			enqueued++
		}
	}

	c.pruneDedup(minute)

	return enqueued, nil
}

// processSchedule обрабатывает одно расписание для минуты minute.
// Возвращает true, если job был поставлен в очередь.
func (c *Coordinator) processSchedule(ctx context.Context, sched domain.ScheduleDefinition, minute time.Time) (bool, error) {
	spec, err := cronspec.Parse(sched.CronExpr)
	if err != nil {
		return false, fmt.Errorf("parse cron %q: %w", sched.CronExpr, err)
	}

	if !spec.Matches(minute) {
		return false, nil
	}

	key := fmt.Sprintf("%s_%d", sched.ID, minute.Unix())

	c.mu.Lock()
	_, seen := c.dedup[key]
	c.mu.Unlock()
	if seen {
		return false, nil
	}

	job := &domain.Job{
		ID:             uuid.New(),
		WorkflowRef:    sched.WorkflowRef,
		Tenant:         sched.Tenant,
		ScheduleID:     sched.ID,
		Status:         domain.JobStatusPending,
		EnqueuedAt:     time.Now(),
		MaxRetries:     sched.MaxRetries,
		IdempotencyKey: key,
	}

	logger := telemetry.WithScheduleID(c.logger, sched.ID)

	// Ключ dedup фиксируется только после того, как очередь приняла
	// job: сбой backend'а оставляет расписание claimable на следующем
	// тике той же минуты.
	if err := c.queue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, queue.ErrDuplicate) {
			// Другой процесс уже поставил этот job за эту минуту.
			logger.Debug("duplicate job suppressed by queue",
				slog.String("idempotency_key", key))
			c.markSeen(key, minute)
			return false, nil
		}
		return false, fmt.Errorf("enqueue job: %w", err)
	}

	c.markSeen(key, minute)
	telemetry.JobsEnqueued.Inc()

	logger.Info("job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("dag_path", sched.WorkflowRef),
		slog.String("tenant", sched.Tenant))

	if c.events != nil {
		if err := c.events.Append(events.TypeScheduleEnqueued, map[string]any{
			"schedule_id": sched.ID,
			"job_id":      job.ID.String(),
			"dag_path":    sched.WorkflowRef,
			"tenant":      sched.Tenant,
			"minute":      minute.Format(time.RFC3339),
		}); err != nil {
			c.logger.Warn("failed to append event",
				slog.String("error", err.Error()))
		}
	}

	return true, nil
}

// markSeen фиксирует ключ dedup после успешной постановки в очередь.
func (c *Coordinator) markSeen(key string, minute time.Time) {
	c.mu.Lock()
	c.dedup[key] = minute
	c.mu.Unlock()
}

// pruneDedup удаляет ключи прошедших минут: повторное совпадение для
// них уже невозможно, держать их в памяти незачем.
func (c *Coordinator) pruneDedup(minute time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, m := range c.dedup {
		if m.Before(minute) {
			delete(c.dedup, key)
		}
	}
}
