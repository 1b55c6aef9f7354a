package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Метрики ядра. Экспонируются через /metrics (promhttp) в каждом
// долгоживущем процессе.
var (
	// JobsEnqueued — количество jobs, поставленных в очередь scheduler'ом.
	JobsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_jobs_enqueued_total",
		Help: "Number of jobs enqueued by the scheduler.",
	})

	// JobsFinished — количество завершённых выполнений по статусам.
	JobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_jobs_finished_total",
		Help: "Number of finished job executions by resulting status.",
	}, []string{"status"})

	// CheckpointsDecided — количество решённых checkpoints по статусам.
	CheckpointsDecided = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_checkpoints_decided_total",
		Help: "Number of checkpoints that left pending, by final status.",
	}, []string{"status"})

	// TickDuration — длительность одного тика host-цикла.
	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_tick_duration_seconds",
		Help:    "Duration of one evaluate-then-drain tick.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		JobsEnqueued,
		JobsFinished,
		CheckpointsDecided,
		TickDuration,
	)
}
