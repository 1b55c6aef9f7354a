package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// PostgresRepo — реализация Repo поверх разделяемого Postgres.
//
// Optimistic locking выражен в SQL: UPDATE с предикатом по статусу и
// версии. RowsAffected() == 0 и последующее чтение различают
// ErrNotFound / ErrNotPending / ErrConflict.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo создаёт хранилище поверх пула.
func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// EnsureSchema создаёт таблицу checkpoints, если её нет.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id               TEXT PRIMARY KEY,
			dag_run_id       TEXT NOT NULL,
			task_id          TEXT NOT NULL,
			tenant           TEXT NOT NULL,
			prompt           TEXT,
			required_role    TEXT,
			required_signers JSONB,
			min_signatures   INT NOT NULL DEFAULT 1,
			status           TEXT NOT NULL,
			approvals        JSONB NOT NULL DEFAULT '[]',
			rejected_by      TEXT,
			reject_reason    TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at       TIMESTAMPTZ,
			version          INT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_pending
			ON checkpoints (tenant, created_at) WHERE status = 'pending';
	`
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure checkpoints schema: %w", err)
	}
	return nil
}

// Create сохраняет новый checkpoint.
func (r *PostgresRepo) Create(ctx context.Context, cp *domain.Checkpoint) error {
	signersJSON, approvalsJSON, err := marshalLists(cp)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkpoints (id, dag_run_id, task_id, tenant, prompt,
		                         required_role, required_signers, min_signatures,
		                         status, approvals, created_at, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0)
	`
	_, err = r.pool.Exec(ctx, query,
		cp.ID,
		cp.DagRunID,
		cp.TaskID,
		cp.Tenant,
		nullString(cp.Prompt),
		nullString(string(cp.RequiredRole)),
		signersJSON,
		cp.MinSignatures,
		cp.Status,
		approvalsJSON,
		cp.CreatedAt,
		cp.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// Get возвращает checkpoint по ID.
func (r *PostgresRepo) Get(ctx context.Context, id string) (*domain.Checkpoint, error) {
	query := selectCheckpoint + ` WHERE id = $1`
	return scanCheckpoint(r.pool.QueryRow(ctx, query, id))
}

// List возвращает checkpoints с фильтрацией, старые первыми.
func (r *PostgresRepo) List(ctx context.Context, tenant string, status domain.CheckpointStatus) ([]domain.Checkpoint, error) {
	query := selectCheckpoint + `
		WHERE ($1::text IS NULL OR tenant = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, nullString(tenant), nullString(string(status)))
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []domain.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cp)
	}
	return out, rows.Err()
}

// UpdatePending применяет мутацию по правилам optimistic locking.
func (r *PostgresRepo) UpdatePending(ctx context.Context, cp *domain.Checkpoint) error {
	_, approvalsJSON, err := marshalLists(cp)
	if err != nil {
		return err
	}

	query := `
		UPDATE checkpoints
		SET status = $2, approvals = $3, rejected_by = $4, reject_reason = $5,
		    version = version + 1
		WHERE id = $1 AND status = 'pending' AND version = $6
	`
	tag, err := r.pool.Exec(ctx, query,
		cp.ID,
		cp.Status,
		approvalsJSON,
		nullString(cp.RejectedBy),
		nullString(cp.RejectReason),
		cp.Version,
	)
	if err != nil {
		return fmt.Errorf("update checkpoint: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	current, err := r.Get(ctx, cp.ID)
	if err != nil {
		return err
	}
	if current.Status != domain.CheckpointStatusPending {
		return ErrNotPending
	}
	return ErrConflict
}

// --- Helpers ---

const selectCheckpoint = `
	SELECT id, dag_run_id, task_id, tenant, prompt, required_role,
	       required_signers, min_signatures, status, approvals,
	       rejected_by, reject_reason, created_at, expires_at, version
	FROM checkpoints
`

func scanCheckpoint(row pgx.Row) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	var prompt, requiredRole, rejectedBy, rejectReason *string
	var signersJSON, approvalsJSON []byte

	err := row.Scan(
		&cp.ID,
		&cp.DagRunID,
		&cp.TaskID,
		&cp.Tenant,
		&prompt,
		&requiredRole,
		&signersJSON,
		&cp.MinSignatures,
		&cp.Status,
		&approvalsJSON,
		&rejectedBy,
		&rejectReason,
		&cp.CreatedAt,
		&cp.ExpiresAt,
		&cp.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}

	if prompt != nil {
		cp.Prompt = *prompt
	}
	if requiredRole != nil {
		cp.RequiredRole = domain.Role(*requiredRole)
	}
	if rejectedBy != nil {
		cp.RejectedBy = *rejectedBy
	}
	if rejectReason != nil {
		cp.RejectReason = *rejectReason
	}
	if signersJSON != nil {
		if err := json.Unmarshal(signersJSON, &cp.RequiredSigners); err != nil {
			return nil, fmt.Errorf("unmarshal signers: %w", err)
		}
	}
	if approvalsJSON != nil {
		if err := json.Unmarshal(approvalsJSON, &cp.Approvals); err != nil {
			return nil, fmt.Errorf("unmarshal approvals: %w", err)
		}
	}

	return &cp, nil
}

func marshalLists(cp *domain.Checkpoint) (signers, approvals []byte, err error) {
	if cp.RequiredSigners != nil {
		signers, err = json.Marshal(cp.RequiredSigners)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal signers: %w", err)
		}
	}

	if cp.Approvals == nil {
		approvals = []byte("[]")
	} else {
		approvals, err = json.Marshal(cp.Approvals)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal approvals: %w", err)
		}
	}
	return signers, approvals, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
