package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// Postgres — реализация Queue поверх разделяемого Postgres.
//
// Переживает рестарт процесса. Захват job атомарен за счёт
// SELECT ... FOR UPDATE SKIP LOCKED: конкурирующие consumers никогда
// не получают один и тот же job. Idempotency key защищён частичным
// уникальным индексом — durable dedup "enqueue only if absent".
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres создаёт очередь поверх пула.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema создаёт таблицу jobs, если её нет.
func (q *Postgres) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS jobs (
			id              UUID PRIMARY KEY,
			workflow_ref    TEXT NOT NULL,
			tenant          TEXT NOT NULL,
			schedule_id     TEXT,
			status          TEXT NOT NULL,
			enqueued_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			started_at      TIMESTAMPTZ,
			finished_at     TIMESTAMPTZ,
			attempts        INT NOT NULL DEFAULT 0,
			max_retries     INT NOT NULL DEFAULT 0,
			result          JSONB,
			error           TEXT,
			idempotency_key TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_claimable
			ON jobs (enqueued_at) WHERE status IN ('pending', 'retry');
		CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_idem
			ON jobs (idempotency_key) WHERE idempotency_key IS NOT NULL;
	`
	if _, err := q.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure jobs schema: %w", err)
	}
	return nil
}

// Enqueue сохраняет job в статусе pending.
// Конфликт по idempotency key возвращает ErrDuplicate.
func (q *Postgres) Enqueue(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (id, workflow_ref, tenant, schedule_id, status,
		                  enqueued_at, attempts, max_retries, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.pool.Exec(ctx, query,
		job.ID,
		job.WorkflowRef,
		job.Tenant,
		nullString(job.ScheduleID),
		domain.JobStatusPending,
		job.EnqueuedAt,
		job.Attempts,
		job.MaxRetries,
		nullString(job.IdempotencyKey),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Dequeue атомарно захватывает один claimable job.
//
// SKIP LOCKED гарантирует, что параллельные вызовы не заблокируются
// друг на друге и не захватят один job дважды; упавший после захвата
// процесс оставляет job в running (без автоматического возврата).
func (q *Postgres) Dequeue(ctx context.Context) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = 'running', started_at = now(), attempts = attempts + 1
		WHERE id = (
			SELECT id FROM jobs
			WHERE status IN ('pending', 'retry')
			ORDER BY enqueued_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, workflow_ref, tenant, schedule_id, status, enqueued_at,
		          started_at, finished_at, attempts, max_retries, result, error,
		          idempotency_key
	`
	job, err := scanJob(q.pool.QueryRow(ctx, query))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateStatus записывает результат выполнения.
// Идемпотентна для одинаковой пары (job_id, status).
func (q *Postgres) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, result map[string]any, errMsg string) error {
	var resultJSON []byte
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = data
	}

	// CAS: переход разрешён только из running.
	query := `
		UPDATE jobs
		SET status = $2,
		    finished_at = CASE WHEN $2 IN ('success', 'failed') THEN now() ELSE finished_at END,
		    result = COALESCE($3, result),
		    error = COALESCE($4, error)
		WHERE id = $1 AND status = 'running'
	`
	tag, err := q.pool.Exec(ctx, query, id, status, resultJSON, nullString(errMsg))
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// CAS не сошёлся: либо job нет, либо статус уже выставлен
	// (идемпотентный повтор), либо переход нелегален.
	var current domain.JobStatus
	err = q.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	if current == status {
		return nil
	}
	return ErrInvalidTransition
}

// Count возвращает количество jobs в статусе.
func (q *Postgres) Count(ctx context.Context, status domain.JobStatus) (int, error) {
	var count int
	err := q.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// List возвращает jobs в статусе в порядке постановки.
// limit <= 0 — без ограничения (LIMIT NULL).
func (q *Postgres) List(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	query := `
		SELECT id, workflow_ref, tenant, schedule_id, status, enqueued_at,
		       started_at, finished_at, attempts, max_retries, result, error,
		       idempotency_key
		FROM jobs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY enqueued_at ASC
		LIMIT $2
	`
	rows, err := q.pool.Query(ctx, query, nullString(string(status)), lim)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// --- Helpers ---

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var scheduleID, jobError, idemKey *string
	var resultJSON []byte

	err := row.Scan(
		&job.ID,
		&job.WorkflowRef,
		&job.Tenant,
		&scheduleID,
		&job.Status,
		&job.EnqueuedAt,
		&job.StartedAt,
		&job.FinishedAt,
		&job.Attempts,
		&job.MaxRetries,
		&resultJSON,
		&jobError,
		&idemKey,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if scheduleID != nil {
		job.ScheduleID = *scheduleID
	}
	if jobError != nil {
		job.Error = *jobError
	}
	if idemKey != nil {
		job.IdempotencyKey = *idemKey
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return &job, nil
}

func scanJobFromRows(rows pgx.Rows) (*domain.Job, error) {
	return scanJob(rows)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
