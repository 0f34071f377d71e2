package stage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Hestia/internal/collab"
	"github.com/shaiso/Hestia/internal/domain"
	"github.com/shaiso/Hestia/internal/telemetry"
)

// Inputs — вход фазы, собранный движком из состояния run.
type Inputs struct {
	// Query — поисковый запрос для DISCOVERY (критерии + поправки).
	Query string

	// Listings — объявления для SCORING и DESIGN. После шлюза обратной
	// связи движок сужает список до выбранных пользователем.
	Listings []domain.Listing

	// Styles — стиль интерьера по ID объявления (DESIGN).
	Styles map[string]string

	// DefaultStyle — стиль для объявлений без индивидуального выбора.
	DefaultStyle string
}

// Executor выполняет фазы pipeline, обращаясь к collaborator'ам.
// Потокобезопасен: один экземпляр обслуживает все runs.
type Executor struct {
	discovery collab.DiscoveryClient
	geo       collab.GeoClient
	render    collab.RenderClient
	pool      *Pool
	retry     RetryConfig
	logger    *slog.Logger
}

// NewExecutor создаёт Executor.
func NewExecutor(
	discovery collab.DiscoveryClient,
	geo collab.GeoClient,
	render collab.RenderClient,
	pool *Pool,
	retry RetryConfig,
	logger *slog.Logger,
) *Executor {
	if pool == nil {
		pool = NewPool(DefaultPoolWidth)
	}
	return &Executor{
		discovery: discovery,
		geo:       geo,
		render:    render,
		pool:      pool,
		retry:     retry,
		logger:    logger,
	}
}

// Execute выполняет фазу и возвращает сырой payload для валидации
// guardrail-правилами. Ошибка означает инфраструктурный сбой фазы
// целиком; частичные сбои sub-task'ов записываются в payload.
func (e *Executor) Execute(ctx context.Context, phase domain.Phase, in Inputs) (*domain.Payload, error) {
	start := time.Now()
	defer func() {
		telemetry.PhaseDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())
	}()

	switch phase {
	case domain.PhaseDiscovery:
		return e.executeDiscovery(ctx, in)
	case domain.PhaseScoring:
		return e.executeScoring(ctx, in)
	case domain.PhaseDesign:
		return e.executeDesign(ctx, in)
	default:
		return nil, fmt.Errorf("unknown phase: %s", phase)
	}
}
