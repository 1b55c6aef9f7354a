package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kmabbott81/relay-sub001/internal/domain"
	"github.com/kmabbott81/relay-sub001/internal/queue"
)

func testSchedule(id, cron string) domain.ScheduleDefinition {
	return domain.ScheduleDefinition{
		ID:          id,
		CronExpr:    cron,
		WorkflowRef: "dags/" + id + ".yaml",
		Tenant:      "acme",
		Enabled:     true,
		MaxRetries:  2,
	}
}

// minute строит момент времени внутри минуты.
func minute(hour, min, sec int) time.Time {
	return time.Date(2026, time.June, 1, hour, min, sec, 0, time.UTC)
}

func TestTick_EnqueuesMatchingSchedule(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()

	c := New(Config{
		Schedules: []domain.ScheduleDefinition{testSchedule("s1", "* * * * *")},
		Queue:     q,
	})

	n, err := c.Tick(ctx, minute(10, 0, 0))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", n)
	}

	job, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if job.ScheduleID != "s1" {
		t.Errorf("expected schedule s1, got %s", job.ScheduleID)
	}
	if job.WorkflowRef != "dags/s1.yaml" {
		t.Errorf("unexpected dag path %s", job.WorkflowRef)
	}
	if job.MaxRetries != 2 {
		t.Errorf("expected max_retries=2, got %d", job.MaxRetries)
	}
	if job.IdempotencyKey == "" {
		t.Error("job should carry an idempotency key")
	}
}

func TestTick_DedupWithinMinute(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()

	c := New(Config{
		Schedules: []domain.ScheduleDefinition{testSchedule("s1", "* * * * *")},
		Queue:     q,
	})

	// Несколько тиков внутри одной минуты — job ровно один
	for _, sec := range []int{0, 15, 30, 59} {
		if _, err := c.Tick(ctx, minute(10, 0, sec)); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}

	count, _ := q.Count(ctx, domain.JobStatusPending)
	if count != 1 {
		t.Fatalf("expected exactly 1 job for the minute, got %d", count)
	}
}

func TestTick_NextMinuteFiresAgain(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()

	c := New(Config{
		Schedules: []domain.ScheduleDefinition{testSchedule("s1", "* * * * *")},
		Queue:     q,
	})

	c.Tick(ctx, minute(10, 0, 30))
	c.Tick(ctx, minute(10, 1, 0))

	count, _ := q.Count(ctx, domain.JobStatusPending)
	if count != 2 {
		t.Fatalf("expected 2 jobs across two minutes, got %d", count)
	}
}

func TestTick_DisabledScheduleSkipped(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()

	disabled := testSchedule("s1", "* * * * *")
	disabled.Enabled = false

	c := New(Config{
		Schedules: []domain.ScheduleDefinition{disabled},
		Queue:     q,
	})

	n, err := c.Tick(ctx, minute(10, 0, 0))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 0 {
		t.Fatalf("disabled schedule should not enqueue, got %d", n)
	}
}

func TestTick_NonMatchingMinute(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()

	c := New(Config{
		Schedules: []domain.ScheduleDefinition{testSchedule("s1", "30 14 * * *")},
		Queue:     q,
	})

	n, _ := c.Tick(ctx, minute(14, 29, 0))
	if n != 0 {
		t.Fatalf("expected no jobs at 14:29, got %d", n)
	}

	n, _ = c.Tick(ctx, minute(14, 30, 0))
	if n != 1 {
		t.Fatalf("expected 1 job at 14:30, got %d", n)
	}
}

func TestTick_BadScheduleDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()

	c := New(Config{
		Schedules: []domain.ScheduleDefinition{
			testSchedule("bad", "not a cron"),
			testSchedule("good", "* * * * *"),
		},
		Queue: q,
	})

	n, err := c.Tick(ctx, minute(10, 0, 0))
	if err != nil {
		t.Fatalf("tick should not fail on a bad schedule: %v", err)
	}
	if n != 1 {
		t.Fatalf("good schedule should still fire, got %d", n)
	}
}

// flakyQueue отказывает первым failures вызовам Enqueue.
type flakyQueue struct {
	queue.Queue
	failures int
	calls    int
}

func (q *flakyQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	q.calls++
	if q.calls <= q.failures {
		return errors.New("backend temporarily unavailable")
	}
	return q.Queue.Enqueue(ctx, job)
}

func TestTick_EnqueueFailureRetriedWithinMinute(t *testing.T) {
	ctx := context.Background()
	mem := queue.NewMemory()
	q := &flakyQueue{Queue: mem, failures: 1}

	c := New(Config{
		Schedules: []domain.ScheduleDefinition{testSchedule("s1", "* * * * *")},
		Queue:     q,
	})

	n, err := c.Tick(ctx, minute(10, 0, 0))
	if err != nil {
		t.Fatalf("queue failure must not abort the tick: %v", err)
	}
	if n != 0 {
		t.Fatalf("failed enqueue must not count, got %d", n)
	}

	// Сбой не фиксирует минуту: следующий тик той же минуты повторяет
	// постановку.
	n, err = c.Tick(ctx, minute(10, 0, 30))
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the firing to be retried within the minute, got %d", n)
	}

	count, _ := mem.Count(ctx, domain.JobStatusPending)
	if count != 1 {
		t.Fatalf("expected exactly 1 job after retry, got %d", count)
	}

	// Успех зафиксировал минуту: третий тик уже дедуплицируется
	n, _ = c.Tick(ctx, minute(10, 0, 59))
	if n != 0 {
		t.Fatalf("successful firing must dedup later ticks, got %d", n)
	}
}

func TestTick_DedupPruning(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()

	c := New(Config{
		Schedules: []domain.ScheduleDefinition{testSchedule("s1", "* * * * *")},
		Queue:     q,
	})

	c.Tick(ctx, minute(10, 0, 0))
	c.Tick(ctx, minute(10, 1, 0))
	c.Tick(ctx, minute(10, 2, 0))

	// Прошлые минуты вычищаются, остаётся только текущая
	c.mu.Lock()
	size := len(c.dedup)
	c.mu.Unlock()

	if size != 1 {
		t.Fatalf("expected dedup cache to hold only the current minute, got %d entries", size)
	}
}
