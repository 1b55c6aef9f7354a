package domain

// ScheduleDefinition — определение расписания запуска workflow.
//
// Определения загружаются из внешнего конфигурационного файла один
// раз за жизнь процесса и для ядра являются read-only: scheduler их
// читает, но никогда не мутирует.
type ScheduleDefinition struct {
	// ID — уникальный идентификатор расписания.
	ID string `json:"id" yaml:"id"`

	// CronExpr — cron-выражение из 5 полей:
	// "минута час день_месяца месяц день_недели".
	// Поддерживается ограниченная грамматика (см. internal/cronspec).
	CronExpr string `json:"cron" yaml:"cron"`

	// WorkflowRef — путь к workflow (DAG), который нужно запускать.
	WorkflowRef string `json:"dag" yaml:"dag"`

	// Tenant — tenant, от имени которого создаются jobs.
	Tenant string `json:"tenant" yaml:"tenant"`

	// Enabled — флаг активности. Выключенные расписания
	// scheduler пропускает.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxRetries — сколько раз перезапускать упавший job.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}
