// Package config — конфигурация из переменных окружения.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Queue backend names.
const (
	QueueMemory   = "memory"
	QueuePostgres = "postgres"
)

// Scheduler — конфигурация relay-scheduler.
type Scheduler struct {
	TickInterval  time.Duration // RELAY_TICK_INTERVAL_MS (default: 1000ms)
	MaxParallel   int           // RELAY_MAX_PARALLEL (default: 4)
	MaxJobs       int           // RELAY_MAX_JOBS (default: 50)
	QueueBackend  string        // RELAY_QUEUE: memory | postgres (default: memory)
	SchedulesPath string        // RELAY_SCHEDULES (default: schedules.yaml)
	EventsPath    string        // RELAY_EVENTS (default: relay-events.jsonl)
	EngineURL     string        // RELAY_ENGINE_URL (default: http://localhost:8090)
	Port          string        // SCHED_PORT (default: 8081)
}

// API — конфигурация relay-api.
type API struct {
	QueueBackend string // RELAY_QUEUE: memory | postgres (default: postgres)
	EventsPath   string // RELAY_EVENTS (default: relay-events.jsonl)
	Port         string // API_PORT (default: 8080)
}

// SchedulerFromEnv читает конфигурацию планировщика из окружения.
func SchedulerFromEnv() (Scheduler, error) {
	cfg := Scheduler{
		TickInterval:  time.Second,
		MaxParallel:   4,
		MaxJobs:       50,
		QueueBackend:  QueueMemory,
		SchedulesPath: getEnv("RELAY_SCHEDULES", "schedules.yaml"),
		EventsPath:    getEnv("RELAY_EVENTS", "relay-events.jsonl"),
		EngineURL:     getEnv("RELAY_ENGINE_URL", "http://localhost:8090"),
		Port:          getEnv("SCHED_PORT", "8081"),
	}

	if v := os.Getenv("RELAY_TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return cfg, fmt.Errorf("invalid RELAY_TICK_INTERVAL_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("RELAY_MAX_PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid RELAY_MAX_PARALLEL: %q", v)
		}
		cfg.MaxParallel = n
	}

	if v := os.Getenv("RELAY_MAX_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid RELAY_MAX_JOBS: %q", v)
		}
		cfg.MaxJobs = n
	}

	backend, err := queueBackend(QueueMemory)
	if err != nil {
		return cfg, err
	}
	cfg.QueueBackend = backend

	return cfg, nil
}

// APIFromEnv читает конфигурацию API-сервера из окружения.
func APIFromEnv() (API, error) {
	cfg := API{
		QueueBackend: QueuePostgres,
		EventsPath:   getEnv("RELAY_EVENTS", "relay-events.jsonl"),
		Port:         getEnv("API_PORT", "8080"),
	}

	backend, err := queueBackend(QueuePostgres)
	if err != nil {
		return cfg, err
	}
	cfg.QueueBackend = backend

	return cfg, nil
}

func queueBackend(fallback string) (string, error) {
	v := os.Getenv("RELAY_QUEUE")
	switch v {
	case "":
		return fallback, nil
	case QueueMemory, QueuePostgres:
		return v, nil
	default:
		return "", fmt.Errorf("invalid RELAY_QUEUE: %q (expected memory or postgres)", v)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
