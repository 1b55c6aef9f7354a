package checkpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

func pendingCheckpoint(id string) *domain.Checkpoint {
	return &domain.Checkpoint{
		ID:           id,
		DagRunID:     "run-1",
		TaskID:       "task-1",
		Tenant:       "acme",
		RequiredRole: domain.RoleOperator,
		Status:       domain.CheckpointStatusPending,
	}
}

func TestMemoryRepo_VersionConflict(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	if err := r.Create(ctx, pendingCheckpoint("cp-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Два читателя берут одну и ту же версию
	first, _ := r.Get(ctx, "cp-1")
	second, _ := r.Get(ctx, "cp-1")

	first.Status = domain.CheckpointStatusApproved
	if err := r.UpdatePending(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Второй проигрывает гонку: статус уже не pending
	second.Status = domain.CheckpointStatusRejected
	err := r.UpdatePending(ctx, second)
	if !errors.Is(err, ErrNotPending) && !errors.Is(err, ErrConflict) {
		t.Fatalf("losing writer must get ErrNotPending or ErrConflict, got %v", err)
	}

	got, _ := r.Get(ctx, "cp-1")
	if got.Status != domain.CheckpointStatusApproved {
		t.Errorf("first decision must win, got %s", got.Status)
	}
}

func TestMemoryRepo_CloneIsolation(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	cp := pendingCheckpoint("cp-1")
	cp.RequiredSigners = []string{"u1", "u2"}
	r.Create(ctx, cp)

	// Мутация возвращённой копии не должна трогать хранимое состояние
	got, _ := r.Get(ctx, "cp-1")
	got.Status = domain.CheckpointStatusRejected
	got.RequiredSigners[0] = "mallory"

	fresh, _ := r.Get(ctx, "cp-1")
	if fresh.Status != domain.CheckpointStatusPending {
		t.Error("stored status mutated through a returned copy")
	}
	if fresh.RequiredSigners[0] != "u1" {
		t.Error("stored signers mutated through a returned copy")
	}
}
