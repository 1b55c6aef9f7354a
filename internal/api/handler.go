package api

import (
	"log/slog"

	"github.com/kmabbott81/relay-sub001/internal/checkpoint"
	"github.com/kmabbott81/relay-sub001/internal/queue"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store  *checkpoint.Store
	queue  queue.Queue
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store  *checkpoint.Store
	Queue  queue.Queue
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		store:  cfg.Store,
		queue:  cfg.Queue,
		logger: logger,
	}
}
