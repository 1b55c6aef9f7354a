package checkpoint

import (
	"context"
	"sort"
	"sync"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// MemoryRepo — in-process реализация Repo.
// Volatile; используется в memory-режиме ядра и в тестах.
type MemoryRepo struct {
	mu          sync.Mutex
	checkpoints map[string]*domain.Checkpoint
}

// NewMemoryRepo создаёт пустое in-process хранилище.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		checkpoints: make(map[string]*domain.Checkpoint),
	}
}

// Create сохраняет новый checkpoint.
func (r *MemoryRepo) Create(ctx context.Context, cp *domain.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checkpoints[cp.ID]; exists {
		return ErrAlreadyExists
	}

	stored := cloneCheckpoint(cp)
	r.checkpoints[cp.ID] = stored
	return nil
}

// Get возвращает checkpoint по ID.
func (r *MemoryRepo) Get(ctx context.Context, id string) (*domain.Checkpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp, ok := r.checkpoints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCheckpoint(cp), nil
}

// List возвращает checkpoints с фильтрацией, старые первыми.
func (r *MemoryRepo) List(ctx context.Context, tenant string, status domain.CheckpointStatus) ([]domain.Checkpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Checkpoint
	for _, cp := range r.checkpoints {
		if tenant != "" && cp.Tenant != tenant {
			continue
		}
		if status != "" && cp.Status != status {
			continue
		}
		out = append(out, *cloneCheckpoint(cp))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdatePending применяет мутацию по правилам optimistic locking.
func (r *MemoryRepo) UpdatePending(ctx context.Context, cp *domain.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.checkpoints[cp.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != domain.CheckpointStatusPending {
		return ErrNotPending
	}
	if current.Version != cp.Version {
		return ErrConflict
	}

	stored := cloneCheckpoint(cp)
	stored.Version = cp.Version + 1
	r.checkpoints[cp.ID] = stored
	return nil
}

// cloneCheckpoint делает глубокую копию, чтобы вызывающие не могли
// мутировать хранимое состояние в обход Repo.
func cloneCheckpoint(cp *domain.Checkpoint) *domain.Checkpoint {
	out := *cp
	if cp.RequiredSigners != nil {
		out.RequiredSigners = append([]string(nil), cp.RequiredSigners...)
	}
	if cp.Approvals != nil {
		out.Approvals = append([]domain.Approval(nil), cp.Approvals...)
	}
	if cp.ExpiresAt != nil {
		t := *cp.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}
