// Package events реализует append-only журнал аудита.
//
// Журнал — event-sourced боковой канал ядра: каждое значимое событие
// (постановка job в очередь, старт/финиш выполнения, решения по
// checkpoints) дописывается одной JSON-строкой. Запись потокобезопасна,
// чтение назад — построчное.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Type — тип события в журнале.
type Type string

// Типы событий.
const (
	TypeScheduleEnqueued   Type = "schedule_enqueued"
	TypeRunStarted         Type = "run_started"
	TypeRunFinished        Type = "run_finished"
	TypeCheckpointApproved Type = "checkpoint_approved"
	TypeCheckpointRejected Type = "checkpoint_rejected"
	TypeCheckpointExpired  Type = "checkpoint_expired"
)

// Log — append-only журнал событий.
//
// Конкурентные Append сериализуются мьютексом; каждая запись —
// законченная JSON-строка с переводом строки.
type Log struct {
	mu sync.Mutex
	w  io.Writer
}

// New создаёт журнал поверх произвольного writer'а (для тестов).
func New(w io.Writer) *Log {
	return &Log{w: w}
}

// Open открывает журнал в файле path (append, создаётся при отсутствии).
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Log{w: f}, nil
}

// Append дописывает событие в журнал.
// Поля fields дополняются ключами "event" и "at".
func (l *Log) Append(typ Type, fields map[string]any) error {
	record := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		record[k] = v
	}
	record["event"] = string(typ)
	record["at"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.w.Write(data); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Close закрывает журнал, если writer поддерживает закрытие.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
