package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job — одна попытка выполнения workflow.
//
// Job создаётся когда:
// - Scheduler находит due schedule (scheduled job)
// - Пользователь запускает workflow вручную через API (ad-hoc job)
//
// Единственный мутатор состояния job — очередь (queue.Queue);
// все остальные компоненты работают с job только через её операции.
type Job struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// WorkflowRef — путь к workflow (DAG), который нужно выполнить.
	WorkflowRef string `json:"workflow_ref"`

	// Tenant — tenant, от имени которого выполняется job.
	Tenant string `json:"tenant"`

	// ScheduleID — ID расписания, породившего job.
	// Пустая строка для ad-hoc jobs.
	ScheduleID string `json:"schedule_id,omitempty"`

	// Status — текущий статус выполнения.
	Status JobStatus `json:"status"`

	// EnqueuedAt — время постановки в очередь.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// StartedAt — время последнего захвата исполнителем.
	// Nil, если job ещё не выполнялся.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время финального завершения (success или failed).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Attempts — количество начатых выполнений.
	// Увеличивается очередью при каждом захвате (Dequeue).
	Attempts int `json:"attempts"`

	// MaxRetries — сколько раз job можно перезапустить после неудачи.
	MaxRetries int `json:"max_retries"`

	// Result — результат движка при успешном выполнении.
	Result map[string]any `json:"result,omitempty"`

	// Error — текст последней ошибки выполнения.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности "{schedule_id}_{minute_unix}".
	// Пустая строка для ad-hoc jobs.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Duration возвращает продолжительность последнего выполнения.
// Возвращает 0, если job не завершён.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// RetriesLeft возвращает true, если после неудачи job имеет право на retry.
// Attempts считает уже начатые выполнения, поэтому сравнение строгое.
func (j *Job) RetriesLeft() bool {
	return j.Attempts < j.MaxRetries
}
