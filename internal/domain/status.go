package domain

// JobStatus — статус выполнения job.
//
// Жизненный цикл:
//
//	pending → running → success
//	                  ↘ retry (→ снова running при следующем claim)
//	                  ↘ failed
type JobStatus string

const (
	// JobStatusPending — job создан и ждёт выполнения.
	JobStatusPending JobStatus = "pending"

	// JobStatusRunning — job захвачен исполнителем.
	JobStatusRunning JobStatus = "running"

	// JobStatusSuccess — job успешно завершён.
	JobStatusSuccess JobStatus = "success"

	// JobStatusFailed — job завершился с ошибкой после всех попыток.
	JobStatusFailed JobStatus = "failed"

	// JobStatusRetry — job упал, но попытки ещё не исчерпаны.
	// Такой job снова доступен для claim.
	JobStatusRetry JobStatus = "retry"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsClaimable возвращает true, если job в этом статусе можно захватить.
func (s JobStatus) IsClaimable() bool {
	return s == JobStatusPending || s == JobStatusRetry
}

// ParseJobStatus парсит строку в JobStatus.
// Неизвестная строка возвращает пустой статус.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(s) {
	case JobStatusPending, JobStatusRunning, JobStatusSuccess, JobStatusFailed, JobStatusRetry:
		return JobStatus(s)
	default:
		return ""
	}
}

// CheckpointStatus — статус checkpoint'а.
//
// Жизненный цикл:
//
//	pending → approved
//	        ↘ rejected
//	        ↘ expired
//
// Все статусы кроме pending — финальные и неизменяемые.
type CheckpointStatus string

const (
	// CheckpointStatusPending — checkpoint ждёт решения.
	CheckpointStatusPending CheckpointStatus = "pending"

	// CheckpointStatusApproved — checkpoint одобрен.
	CheckpointStatusApproved CheckpointStatus = "approved"

	// CheckpointStatusRejected — checkpoint отклонён.
	CheckpointStatusRejected CheckpointStatus = "rejected"

	// CheckpointStatusExpired — время ожидания решения истекло.
	CheckpointStatusExpired CheckpointStatus = "expired"
)

// IsTerminal возвращает true, если статус финальный.
func (s CheckpointStatus) IsTerminal() bool {
	return s != CheckpointStatusPending && s != ""
}

// ParseCheckpointStatus парсит строку в CheckpointStatus.
func ParseCheckpointStatus(s string) CheckpointStatus {
	switch CheckpointStatus(s) {
	case CheckpointStatusPending, CheckpointStatusApproved, CheckpointStatusRejected, CheckpointStatusExpired:
		return CheckpointStatus(s)
	default:
		return ""
	}
}
