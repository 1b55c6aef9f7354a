package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// Memory — volatile in-process реализация Queue.
//
// Состояние живёт в памяти процесса и теряется при рестарте.
// Подходит для single-tick режима, разработки и тестов.
type Memory struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*domain.Job
	order []uuid.UUID // FIFO-порядок постановки
}

// NewMemory создаёт пустую in-process очередь.
func NewMemory() *Memory {
	return &Memory{
		jobs: make(map[uuid.UUID]*domain.Job),
	}
}

// Enqueue сохраняет job в статусе pending.
func (m *Memory) Enqueue(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *job
	stored.Status = domain.JobStatusPending
	if stored.EnqueuedAt.IsZero() {
		stored.EnqueuedAt = time.Now()
	}

	m.jobs[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	return nil
}

// Dequeue захватывает первый claimable job в FIFO-порядке.
func (m *Memory) Dequeue(ctx context.Context) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		job := m.jobs[id]
		if job == nil || !job.Status.IsClaimable() {
			continue
		}

		now := time.Now()
		job.Status = domain.JobStatusRunning
		job.StartedAt = &now
		job.Attempts++

		claimed := *job
		return &claimed, nil
	}

	return nil, ErrEmpty
}

// UpdateStatus записывает результат выполнения.
func (m *Memory) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, result map[string]any, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}

	// Идемпотентность: повторное выставление того же статуса — no-op.
	if job.Status == status {
		return nil
	}

	if !validTransition(job.Status, status) {
		return ErrInvalidTransition
	}

	job.Status = status
	if status.IsTerminal() {
		now := time.Now()
		job.FinishedAt = &now
	}
	if result != nil {
		job.Result = result
	}
	if errMsg != "" {
		job.Error = errMsg
	}
	return nil
}

// Count возвращает количество jobs в статусе.
func (m *Memory) Count(ctx context.Context, status domain.JobStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, job := range m.jobs {
		if job.Status == status {
			count++
		}
	}
	return count, nil
}

// List возвращает jobs в статусе в порядке постановки.
func (m *Memory) List(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Job
	for _, id := range m.order {
		job := m.jobs[id]
		if job == nil {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, *job)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
