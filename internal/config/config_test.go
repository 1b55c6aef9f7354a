package config

import (
	"testing"
	"time"
)

func TestSchedulerFromEnv_Defaults(t *testing.T) {
	cfg, err := SchedulerFromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}

	if cfg.TickInterval != time.Second {
		t.Errorf("expected default tick interval 1s, got %v", cfg.TickInterval)
	}
	if cfg.MaxParallel != 4 {
		t.Errorf("expected default max_parallel 4, got %d", cfg.MaxParallel)
	}
	if cfg.MaxJobs != 50 {
		t.Errorf("expected default max_jobs 50, got %d", cfg.MaxJobs)
	}
	if cfg.QueueBackend != QueueMemory {
		t.Errorf("expected default backend memory, got %s", cfg.QueueBackend)
	}
}

func TestSchedulerFromEnv_TickIntervalOverride(t *testing.T) {
	t.Setenv("RELAY_TICK_INTERVAL_MS", "250")

	cfg, err := SchedulerFromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.TickInterval)
	}
}

func TestSchedulerFromEnv_InvalidValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"RELAY_TICK_INTERVAL_MS", "zero"},
		{"RELAY_TICK_INTERVAL_MS", "-5"},
		{"RELAY_MAX_PARALLEL", "0"},
		{"RELAY_MAX_JOBS", "lots"},
		{"RELAY_QUEUE", "redis"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := SchedulerFromEnv(); err == nil {
				t.Errorf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}
