package checkpoint

import (
	"context"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// Repo — хранилище checkpoints.
//
// Контракт мутаций — optimistic locking: UpdatePending применяет новое
// состояние только если checkpoint всё ещё pending и его версия не
// изменилась с момента чтения. Так два оператора, одновременно решающие
// один checkpoint, не могут оба выиграть гонку pending → terminal.
type Repo interface {
	// Create сохраняет новый checkpoint.
	// ErrAlreadyExists при конфликте ID.
	Create(ctx context.Context, cp *domain.Checkpoint) error

	// Get возвращает checkpoint по ID. ErrNotFound, если нет.
	Get(ctx context.Context, id string) (*domain.Checkpoint, error)

	// List возвращает checkpoints с фильтрацией.
	// Пустой tenant — все tenants; пустой status — все статусы.
	List(ctx context.Context, tenant string, status domain.CheckpointStatus) ([]domain.Checkpoint, error)

	// UpdatePending применяет мутацию cp, при условии что хранимая
	// запись всё ещё pending и имеет версию cp.Version (версию
	// до мутации). Успешное применение увеличивает версию.
	// ErrNotPending — запись уже terminal; ErrConflict — версия ушла;
	// ErrNotFound — записи нет.
	UpdatePending(ctx context.Context, cp *domain.Checkpoint) error
}
