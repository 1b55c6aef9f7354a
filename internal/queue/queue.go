// Package queue реализует durable-очередь jobs.
//
// Очередь — единственный мутатор состояния Job. Контракт один, реализаций
// две: volatile in-process (Memory) и разделяемое remote-хранилище
// поверх Postgres (Postgres). Postgres-реализация переживает рестарт
// процесса; in-process — нет, и это документированное свойство.
//
// Захват job (Dequeue) атомарен: job достаётся ровно одному из
// конкурирующих потребителей и сразу переводится в running. Упавший
// между захватом и обновлением статуса исполнитель оставляет job
// видимым в running — возврат таких jobs в очередь лежит на внешнем
// runbook-процессе, не на этом ядре.
package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// Ошибки очереди.
var (
	// ErrEmpty — нет claimable jobs.
	ErrEmpty = errors.New("no claimable jobs")

	// ErrNotFound — job не найден.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidTransition — запрошенный переход статуса нарушает
	// жизненный цикл pending → running → {success|retry|failed}.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicate — job с таким idempotency key уже поставлен в очередь.
	ErrDuplicate = errors.New("duplicate job")
)

// Queue — контракт durable-очереди jobs.
//
// Все операции безопасны для конкурентного вызова из нескольких
// producers/workers.
type Queue interface {
	// Enqueue сохраняет новый job в статусе pending.
	// Possible: ErrDuplicate, если backend умеет durable dedup по
	// idempotency key и такой ключ уже есть.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue атомарно захватывает один claimable job (pending или
	// retry): переводит его в running, проставляет started_at,
	// увеличивает attempts и возвращает. ErrEmpty, если захватывать
	// нечего. Один и тот же job не возвращается двум вызывающим.
	Dequeue(ctx context.Context) (*domain.Job, error)

	// UpdateStatus записывает результат выполнения: терминальный или
	// retry статус, finished_at, result или error. Идемпотентна для
	// одинаковой пары (job_id, status).
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, result map[string]any, errMsg string) error

	// Count возвращает количество jobs в данном статусе.
	Count(ctx context.Context, status domain.JobStatus) (int, error)

	// List возвращает jobs в данном статусе (для API/инспекции).
	// Пустой status — все jobs; limit <= 0 — без ограничения.
	// Порядок: по enqueued_at.
	List(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error)
}

// validTransition проверяет переход статуса.
// Повторное выставление того же статуса легально (идемпотентность)
// и отфильтровывается реализациями до этой проверки.
func validTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusPending, domain.JobStatusRetry:
		return to == domain.JobStatusRunning
	case domain.JobStatusRunning:
		return to == domain.JobStatusSuccess || to == domain.JobStatusFailed || to == domain.JobStatusRetry
	default:
		// терминальные статусы неизменяемы
		return false
	}
}
