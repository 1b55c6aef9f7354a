// Package checkpoint реализует approval state machine.
//
// Checkpoint — точка останова workflow, ожидающая решения человека.
// Store управляет полным жизненным циклом: создание, single-approval
// (approve/reject под контролем RBAC), multi-sign (кворум подписей),
// истечение по таймауту. Все переходы выполняются как per-checkpoint
// compare-and-set: конкурентные решения по одному checkpoint не могут
// выиграть гонку вдвоём.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kmabbott81/relay-sub001/internal/domain"
	"github.com/kmabbott81/relay-sub001/internal/events"
	"github.com/kmabbott81/relay-sub001/internal/mq"
	"github.com/kmabbott81/relay-sub001/internal/rbac"
	"github.com/kmabbott81/relay-sub001/internal/telemetry"
)

// Gate — внешний RBAC-коллаборатор.
// Отвечает на единственный вопрос: может ли роль userRole одобрить
// checkpoint, требующий роль requiredRole.
type Gate interface {
	CanApprove(userRole, requiredRole domain.Role) bool
}

// Store — approval state machine поверх Repo.
type Store struct {
	repo      Repo
	gate      Gate
	events    *events.Log
	publisher *mq.Publisher
	logger    *slog.Logger
}

// Config — конфигурация Store.
type Config struct {
	Repo Repo
	Gate Gate

	// Events — журнал аудита для решений по checkpoints.
	Events *events.Log

	// Publisher — опциональный MQ-нотификатор: решения публикуются,
	// чтобы внешний workflow-движок возобновлялся без polling.
	Publisher *mq.Publisher

	Logger *slog.Logger
}

// New создаёт Store.
func New(cfg Config) *Store {
	gate := cfg.Gate
	if gate == nil {
		gate = rbac.NewGate()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		repo:      cfg.Repo,
		gate:      gate,
		events:    cfg.Events,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}

// CreateParams — параметры создания checkpoint.
//
// Режим авторизации определяется заполненными полями: RequiredRole —
// single-approval, RequiredSigners — multi-sign. Ровно один из них
// должен быть задан.
type CreateParams struct {
	ID       string
	DagRunID string
	TaskID   string
	Tenant   string
	Prompt   string

	RequiredRole    domain.Role
	RequiredSigners []string
	MinSignatures   int

	ExpiresAt *time.Time
}

// Create создаёт новый pending checkpoint.
// ErrAlreadyExists, если checkpoint с таким ID уже есть.
func (s *Store) Create(ctx context.Context, p CreateParams) (*domain.Checkpoint, error) {
	if p.ID == "" || p.DagRunID == "" || p.TaskID == "" || p.Tenant == "" {
		return nil, fmt.Errorf("%w: id, dag_run_id, task_id and tenant are required", ErrInvalidParams)
	}

	multiSign := len(p.RequiredSigners) > 0
	if multiSign == (p.RequiredRole != "") {
		return nil, fmt.Errorf("%w: exactly one of required_role or required_signers must be set", ErrInvalidParams)
	}
	if !multiSign && !p.RequiredRole.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidParams, p.RequiredRole)
	}

	minSignatures := p.MinSignatures
	if minSignatures <= 0 {
		minSignatures = 1
	}
	if multiSign && minSignatures > len(p.RequiredSigners) {
		return nil, fmt.Errorf("%w: min_signatures %d exceeds %d listed signers",
			ErrInvalidParams, minSignatures, len(p.RequiredSigners))
	}

	cp := &domain.Checkpoint{
		ID:              p.ID,
		DagRunID:        p.DagRunID,
		TaskID:          p.TaskID,
		Tenant:          p.Tenant,
		Prompt:          p.Prompt,
		RequiredRole:    p.RequiredRole,
		RequiredSigners: p.RequiredSigners,
		MinSignatures:   minSignatures,
		Status:          domain.CheckpointStatusPending,
		CreatedAt:       time.Now(),
		ExpiresAt:       p.ExpiresAt,
	}

	if err := s.repo.Create(ctx, cp); err != nil {
		return nil, err
	}

	s.logger.Info("checkpoint created",
		"checkpoint_id", cp.ID,
		"dag_run_id", cp.DagRunID,
		"task_id", cp.TaskID,
		"tenant", cp.Tenant,
		"multi_sign", multiSign,
	)

	return cp, nil
}

// Approve одобряет single-approval checkpoint.
//
// Требует pending статус, single-approval режим и роль не ниже
// RequiredRole. Ошибка никогда не мутирует checkpoint.
func (s *Store) Approve(ctx context.Context, id, approvedBy string, role domain.Role, data map[string]any) (*domain.Checkpoint, error) {
	cp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp.Status != domain.CheckpointStatusPending {
		return nil, ErrNotPending
	}
	if cp.IsMultiSign() {
		return nil, fmt.Errorf("%w: use sign for multi-sign checkpoints", ErrWrongMode)
	}
	if !s.gate.CanApprove(role, cp.RequiredRole) {
		return nil, fmt.Errorf("%w: role %s cannot approve checkpoint requiring %s",
			ErrNotAuthorized, role, cp.RequiredRole)
	}

	cp.Approvals = append(cp.Approvals, domain.Approval{
		User: approvedBy,
		At:   time.Now(),
		Data: data,
	})
	cp.Status = domain.CheckpointStatusApproved

	if err := s.repo.UpdatePending(ctx, cp); err != nil {
		return nil, err
	}

	s.recordDecision(ctx, cp, events.TypeCheckpointApproved, map[string]any{
		"checkpoint_id": cp.ID,
		"approved_by":   approvedBy,
		"approval_data": data,
	}, approvedBy)

	return cp, nil
}

// Reject отклоняет single-approval checkpoint.
// Правило авторизации то же, что у Approve.
func (s *Store) Reject(ctx context.Context, id, rejectedBy string, role domain.Role, reason string) (*domain.Checkpoint, error) {
	cp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp.Status != domain.CheckpointStatusPending {
		return nil, ErrNotPending
	}
	if cp.IsMultiSign() {
		return nil, fmt.Errorf("%w: use sign for multi-sign checkpoints", ErrWrongMode)
	}
	if !s.gate.CanApprove(role, cp.RequiredRole) {
		return nil, fmt.Errorf("%w: role %s cannot reject checkpoint requiring %s",
			ErrNotAuthorized, role, cp.RequiredRole)
	}

	cp.Status = domain.CheckpointStatusRejected
	cp.RejectedBy = rejectedBy
	cp.RejectReason = reason

	if err := s.repo.UpdatePending(ctx, cp); err != nil {
		return nil, err
	}

	s.recordDecision(ctx, cp, events.TypeCheckpointRejected, map[string]any{
		"checkpoint_id": cp.ID,
		"rejected_by":   rejectedBy,
		"reason":        reason,
	}, rejectedBy)

	return cp, nil
}

// Sign добавляет подпись в multi-sign checkpoint.
//
// Подписывать могут только перечисленные в required_signers
// пользователи, каждый — один раз. Когда подписей набирается
// min_signatures, checkpoint автоматически переходит в approved.
func (s *Store) Sign(ctx context.Context, id, user string, data map[string]any) (*domain.Checkpoint, error) {
	cp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp.Status != domain.CheckpointStatusPending {
		return nil, ErrNotPending
	}
	if !cp.IsMultiSign() {
		return nil, fmt.Errorf("%w: use approve for single-approval checkpoints", ErrWrongMode)
	}
	if !cp.IsListedSigner(user) {
		return nil, fmt.Errorf("%w: %s", ErrNotASigner, user)
	}
	if cp.HasSigned(user) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadySigned, user)
	}

	cp.Approvals = append(cp.Approvals, domain.Approval{
		User: user,
		At:   time.Now(),
		Data: data,
	})

	satisfied := cp.IsSatisfied()
	if satisfied {
		cp.Status = domain.CheckpointStatusApproved
	}

	if err := s.repo.UpdatePending(ctx, cp); err != nil {
		return nil, err
	}

	s.logger.Info("checkpoint signed",
		"checkpoint_id", cp.ID,
		"user", user,
		"signatures", len(cp.Approvals),
		"min_signatures", cp.MinSignatures,
	)

	if satisfied {
		s.recordDecision(ctx, cp, events.TypeCheckpointApproved, map[string]any{
			"checkpoint_id": cp.ID,
			"approved_by":   user,
			"approval_data": data,
		}, user)
	}

	return cp, nil
}

// Get возвращает checkpoint по ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Checkpoint, error) {
	return s.repo.Get(ctx, id)
}

// List возвращает checkpoints с фильтрацией.
func (s *Store) List(ctx context.Context, tenant string, status domain.CheckpointStatus) ([]domain.Checkpoint, error) {
	return s.repo.List(ctx, tenant, status)
}

// ExpirePending переводит протухшие pending checkpoints в expired и
// возвращает их, чтобы вызывающий уведомил workflow-движок. Каждый
// checkpoint протухает не более одного раза: проигранный CAS означает,
// что решение успело прийти раньше, и такой checkpoint пропускается.
func (s *Store) ExpirePending(ctx context.Context, now time.Time) ([]domain.Checkpoint, error) {
	pending, err := s.repo.List(ctx, "", domain.CheckpointStatusPending)
	if err != nil {
		return nil, err
	}

	var expired []domain.Checkpoint
	for i := range pending {
		cp := &pending[i]
		if !cp.IsExpiredAt(now) {
			continue
		}

		cp.Status = domain.CheckpointStatusExpired
		if err := s.repo.UpdatePending(ctx, cp); err != nil {
			if errors.Is(err, ErrNotPending) || errors.Is(err, ErrConflict) {
				continue
			}
			return expired, err
		}

		s.recordDecision(ctx, cp, events.TypeCheckpointExpired, map[string]any{
			"checkpoint_id": cp.ID,
			"dag_run_id":    cp.DagRunID,
			"task_id":       cp.TaskID,
		}, "")

		expired = append(expired, *cp)
	}

	return expired, nil
}

// recordDecision пишет событие в журнал аудита, обновляет метрики и
// публикует уведомление в MQ. Сбои журнала и MQ не откатывают решение —
// оно уже durable в Repo.
func (s *Store) recordDecision(ctx context.Context, cp *domain.Checkpoint, typ events.Type, fields map[string]any, decidedBy string) {
	telemetry.CheckpointsDecided.WithLabelValues(string(cp.Status)).Inc()

	logger := telemetry.WithCheckpointID(s.logger, cp.ID)

	if s.events != nil {
		if err := s.events.Append(typ, fields); err != nil {
			logger.Warn("failed to append checkpoint event",
				"event", typ,
				"error", err,
			)
		}
	}

	if s.publisher != nil {
		payload := mq.CheckpointDecidedPayload{
			CheckpointID: cp.ID,
			DagRunID:     cp.DagRunID,
			TaskID:       cp.TaskID,
			Tenant:       cp.Tenant,
			Status:       string(cp.Status),
			DecidedBy:    decidedBy,
		}
		if err := s.publisher.PublishCheckpointDecided(ctx, payload); err != nil {
			logger.Warn("failed to publish checkpoint.decided",
				"error", err,
			)
		}
	}
}
