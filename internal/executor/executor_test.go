package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kmabbott81/relay-sub001/internal/domain"
	"github.com/kmabbott81/relay-sub001/internal/queue"
)

// fakeEngine — управляемый Engine для тестов.
type fakeEngine struct {
	mu    sync.Mutex
	calls int

	fn func(dagPath string) (map[string]any, error)
}

func (f *fakeEngine) ExecuteWorkflow(ctx context.Context, dagPath, tenant string, dryRun bool) (map[string]any, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(dagPath)
	}
	return map[string]any{"ok": true}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func enqueueJob(t *testing.T, q queue.Queue, maxRetries int) *domain.Job {
	t.Helper()
	job := &domain.Job{
		ID:          uuid.New(),
		WorkflowRef: "dags/deploy.yaml",
		Tenant:      "acme",
		ScheduleID:  "nightly",
		MaxRetries:  maxRetries,
	}
	if err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return job
}

func TestDrain_Success(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()
	eng := &fakeEngine{}

	job := enqueueJob(t, q, 2)

	e := New(Config{Queue: q, Engine: eng})
	outcomes, err := e.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Status != domain.JobStatusSuccess {
		t.Errorf("expected success, got %s", outcomes[0].Status)
	}

	done, _ := q.List(ctx, domain.JobStatusSuccess, 0)
	if len(done) != 1 || done[0].ID != job.ID {
		t.Fatal("job should be in success status")
	}
	if done[0].FinishedAt == nil {
		t.Error("finished job should have finished_at")
	}
}

func TestDrain_RetryThenFail(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()
	eng := &fakeEngine{
		fn: func(string) (map[string]any, error) {
			return nil, errors.New("engine exploded")
		},
	}

	// max_retries=2: попытка 1 → retry, попытка 2 → failed
	job := enqueueJob(t, q, 2)
	e := New(Config{Queue: q, Engine: eng})

	first, err := e.Drain(ctx)
	if err != nil {
		t.Fatalf("first drain: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(first))
	}
	if first[0].Status != domain.JobStatusRetry {
		t.Errorf("first attempt should end in retry, got %s", first[0].Status)
	}

	// Retry снова claimable — его подхватывает следующий Drain
	second, err := e.Drain(ctx)
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(second))
	}
	if second[0].Status != domain.JobStatusFailed {
		t.Errorf("second attempt should end in failed, got %s", second[0].Status)
	}

	failed, _ := q.List(ctx, domain.JobStatusFailed, 0)
	if len(failed) != 1 || failed[0].ID != job.ID {
		t.Fatal("job should be failed after exhausting retries")
	}
	if failed[0].Error == "" {
		t.Error("failed job should carry the error message")
	}
	if eng.callCount() != 2 {
		t.Errorf("expected exactly 2 engine calls, got %d", eng.callCount())
	}
}

func TestDrain_ZeroRetriesFailsImmediately(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()
	eng := &fakeEngine{
		fn: func(string) (map[string]any, error) {
			return nil, errors.New("boom")
		},
	}

	enqueueJob(t, q, 0)
	e := New(Config{Queue: q, Engine: eng})

	outcomes, _ := e.Drain(ctx)
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Status != domain.JobStatusFailed {
		t.Errorf("expected immediate failure, got %s", outcomes[0].Status)
	}
}

func TestDrain_PanicIsolatedToJob(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()
	eng := &fakeEngine{
		fn: func(dagPath string) (map[string]any, error) {
			if dagPath == "dags/deploy.yaml" {
				panic("engine bug")
			}
			return map[string]any{"ok": true}, nil
		},
	}

	bad := enqueueJob(t, q, 0)
	good := &domain.Job{
		ID:          uuid.New(),
		WorkflowRef: "dags/other.yaml",
		Tenant:      "acme",
	}
	q.Enqueue(ctx, good)

	e := New(Config{Queue: q, Engine: eng, MaxParallel: 1})
	outcomes, err := e.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}

	byID := make(map[string]Outcome)
	for _, o := range outcomes {
		byID[o.JobID] = o
	}

	if byID[bad.ID.String()].Status != domain.JobStatusFailed {
		t.Errorf("panicking job should fail, got %s", byID[bad.ID.String()].Status)
	}
	if byID[good.ID.String()].Status != domain.JobStatusSuccess {
		t.Errorf("other job should succeed, got %s", byID[good.ID.String()].Status)
	}
}

func TestDrain_BoundedParallelism(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()

	var inflight atomic.Int32
	var peak atomic.Int32

	eng := &fakeEngine{
		fn: func(string) (map[string]any, error) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inflight.Add(-1)
			return nil, nil
		},
	}

	for i := 0; i < 10; i++ {
		enqueueJob(t, q, 0)
	}

	e := New(Config{Queue: q, Engine: eng, MaxParallel: 3})
	if _, err := e.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if peak.Load() > 3 {
		t.Errorf("parallelism exceeded limit: peak %d", peak.Load())
	}
	if eng.callCount() != 10 {
		t.Errorf("expected 10 engine calls, got %d", eng.callCount())
	}
}

func TestDrain_MaxJobsLimit(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()
	eng := &fakeEngine{}

	for i := 0; i < 5; i++ {
		enqueueJob(t, q, 0)
	}

	e := New(Config{Queue: q, Engine: eng, MaxJobs: 3})
	outcomes, _ := e.Drain(ctx)

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes with MaxJobs=3, got %d", len(outcomes))
	}

	pending, _ := q.Count(ctx, domain.JobStatusPending)
	if pending != 2 {
		t.Errorf("expected 2 jobs left pending, got %d", pending)
	}
}

func TestDrain_EmptyQueue(t *testing.T) {
	e := New(Config{Queue: queue.NewMemory(), Engine: &fakeEngine{}})

	outcomes, err := e.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
}
