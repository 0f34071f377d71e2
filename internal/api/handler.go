package api

import (
	"log/slog"

	"github.com/shaiso/Hestia/internal/flow"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	engine *flow.Engine
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Engine *flow.Engine
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		engine: cfg.Engine,
		logger: cfg.Logger,
	}
}
