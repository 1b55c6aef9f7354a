// Package schedulefile — загрузка расписаний из YAML-файла.
//
// Файл расписаний read-only для ядра: планировщик читает его при
// старте и никогда не пишет обратно.
package schedulefile

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kmabbott81/relay-sub001/internal/cronspec"
	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// file — корень YAML-файла расписаний.
type file struct {
	Schedules []entry `yaml:"schedules"`
}

// entry — одна запись расписания в файле.
type entry struct {
	ID         string `yaml:"id"`
	Cron       string `yaml:"cron"`
	Dag        string `yaml:"dag"`
	Tenant     string `yaml:"tenant"`
	Enabled    *bool  `yaml:"enabled"`
	MaxRetries int    `yaml:"max_retries"`
}

// Load читает и валидирует расписания из path.
//
// Некорректные записи (пустые обязательные поля, кривой cron)
// логируются и пропускаются: одна битая запись не должна ронять
// планировщик целиком. Ошибка возвращается только если файл
// нечитаем или это не валидный YAML.
func Load(path string, logger *slog.Logger) ([]domain.ScheduleDefinition, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schedules file: %w", err)
	}

	schedules := make([]domain.ScheduleDefinition, 0, len(f.Schedules))
	seen := make(map[string]bool)

	for i, e := range f.Schedules {
		if err := validate(e); err != nil {
			logger.Warn("skipping invalid schedule",
				slog.Int("index", i),
				slog.String("schedule_id", e.ID),
				slog.String("error", err.Error()))
			continue
		}

		if seen[e.ID] {
			logger.Warn("skipping duplicate schedule id",
				slog.Int("index", i),
				slog.String("schedule_id", e.ID))
			continue
		}
		seen[e.ID] = true

		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}

		schedules = append(schedules, domain.ScheduleDefinition{
			ID:          e.ID,
			CronExpr:    e.Cron,
			WorkflowRef: e.Dag,
			Tenant:      e.Tenant,
			Enabled:     enabled,
			MaxRetries:  e.MaxRetries,
		})
	}

	return schedules, nil
}

func validate(e entry) error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if e.Cron == "" {
		return fmt.Errorf("cron is required")
	}
	if e.Dag == "" {
		return fmt.Errorf("dag is required")
	}
	if e.Tenant == "" {
		return fmt.Errorf("tenant is required")
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if _, err := cronspec.Parse(e.Cron); err != nil {
		return fmt.Errorf("invalid cron: %w", err)
	}
	return nil
}
