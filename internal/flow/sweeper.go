package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Hestia/internal/domain"
	"github.com/shaiso/Hestia/internal/store"
)

// cronParser — парсер cron-выражений расписания sweeper'а.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Sweeper периодически проваливает runs, слишком долго ожидающие
// решения в AWAITING_FEEDBACK. По умолчанию run ждёт решения
// неограниченно; sweeper включается явно через конфигурацию.
type Sweeper struct {
	engine   *Engine
	store    store.RunStore
	schedule cron.Schedule
	ttl      time.Duration
	logger   *slog.Logger
}

// SweeperConfig — конфигурация Sweeper.
type SweeperConfig struct {
	Engine *Engine
	Store  store.RunStore

	// CronExpr — расписание проверок (стандартный 5-полевый cron).
	CronExpr string

	// TTL — максимальное время ожидания решения.
	TTL time.Duration

	Logger *slog.Logger
}

// NewSweeper создаёт Sweeper.
func NewSweeper(cfg SweeperConfig) (*Sweeper, error) {
	schedule, err := cronParser.Parse(cfg.CronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse sweep cron expression %q: %w", cfg.CronExpr, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		engine:   cfg.Engine,
		store:    cfg.Store,
		schedule: schedule,
		ttl:      cfg.TTL,
		logger:   logger,
	}, nil
}

// Run выполняет цикл sweeper'а до отмены context.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		next := s.schedule.Next(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("feedback sweep failed", "error", err)
			}
		}
	}
}

// Sweep выполняет одну проверку: проваливает runs, чей feedback-запрос
// старше TTL. Ошибка одного run'а не блокирует обработку остальных.
func (s *Sweeper) Sweep(ctx context.Context) error {
	runs, err := s.store.ListRuns(ctx, store.RunFilter{Status: domain.RunStatusAwaitingFeedback})
	if err != nil {
		return fmt.Errorf("list awaiting runs: %w", err)
	}

	deadline := time.Now().Add(-s.ttl)
	var swept int
	for i := range runs {
		run := &runs[i]

		req, err := s.store.GetOpenFeedback(ctx, run.ID)
		if err != nil {
			continue
		}
		if req.CreatedAt.After(deadline) {
			continue
		}

		if _, err := s.engine.CancelStale(ctx, run.ID); err != nil {
			s.logger.Error("failed to sweep stale run",
				"run_id", run.ID,
				"error", err,
			)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("feedback sweep completed", "swept", swept)
	}
	return nil
}
