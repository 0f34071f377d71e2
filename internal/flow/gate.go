package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Hestia/internal/domain"
	"github.com/shaiso/Hestia/internal/store"
	"github.com/shaiso/Hestia/internal/telemetry"
)

// OpenFeedback возвращает открытый feedback-запрос по run'у.
// ErrNoPendingFeedback, если run не ожидает решения; ErrAlreadyDecided,
// если решение по запросу уже потреблено.
func (e *Engine) OpenFeedback(ctx context.Context, runID uuid.UUID) (*domain.FeedbackRequest, error) {
	req, err := e.store.GetOpenFeedback(ctx, runID)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	run, rerr := e.store.GetRun(ctx, runID)
	if rerr != nil {
		return nil, rerr
	}
	if run.Decisions > 0 {
		return nil, ErrAlreadyDecided
	}
	return nil, ErrNoPendingFeedback
}

// SubmitFeedback потребляет решение пользователя по открытому запросу.
//
// Контракт шлюза:
//   - на run открыт не более чем один запрос;
//   - решение потребляется ровно один раз (повтор — ErrAlreadyDecided);
//   - advance с ID вне набора кандидатов — ErrInvalidSelection,
//     состояние run'а не меняется (никакого частичного применения);
//   - тип решения задаётся явно и никогда не угадывается по тексту.
func (e *Engine) SubmitFeedback(ctx context.Context, runID uuid.UUID, decision domain.FeedbackDecision) (*domain.Run, error) {
	handle := e.handle(runID)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	req, err := e.store.GetOpenFeedback(ctx, runID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if run.Decisions > 0 {
			return nil, ErrAlreadyDecided
		}
		return nil, ErrNoPendingFeedback
	}

	if run.Status != domain.RunStatusAwaitingFeedback {
		// Запрос есть, но run уже сдвинулся или завершён (например, отменён
		// между чтениями) — решение потреблять нельзя.
		return nil, ErrNoPendingFeedback
	}

	// Валидация до каких-либо мутаций.
	switch decision.Type {
	case domain.DecisionAdvance:
		if len(decision.ListingIDs) == 0 {
			return nil, fmt.Errorf("%w: empty selection", ErrInvalidSelection)
		}
		for _, id := range decision.ListingIDs {
			if !req.HasCandidate(id) {
				return nil, fmt.Errorf("%w: unknown listing %s", ErrInvalidSelection, id)
			}
		}
	case domain.DecisionRewind:
		// Свободный текст, пустое уточнение допустимо.
	default:
		return nil, fmt.Errorf("%w: unknown decision type %q", ErrInvalidSelection, decision.Type)
	}

	run.Decisions++

	// Сначала персистим решение вместе с новым статусом, и только потом
	// потребляем запрос. Если UpdateRun упал, запрос остаётся открытым и
	// клиент может повторить решение; обратный порядок оставил бы run в
	// AWAITING_FEEDBACK без запроса — навсегда нерешаемым.
	var updated *domain.Run
	switch decision.Type {
	case domain.DecisionAdvance:
		updated, err = e.advance(ctx, run, decision)
	default:
		updated, err = e.rewind(ctx, run, decision)
	}
	if err != nil {
		return nil, err
	}

	if err := e.store.DeleteFeedback(ctx, runID); err != nil && !errors.Is(err, store.ErrNotFound) {
		// Run уже сдвинулся; осиротевший запрос подчистит повторный
		// проход DISCOVERY либо терминальное завершение run'а.
		e.logger.Warn("delete consumed feedback request", "run_id", runID, "error", err)
	}

	telemetry.FeedbackDecisions.WithLabelValues(string(decision.Type)).Inc()
	return updated, nil
}

// advance сужает принятый результат DISCOVERY до выбранных объявлений
// и возобновляет run с фазы SCORING. Фильтр append-only: ID, которых
// не было в результате DISCOVERY, появиться не могут.
func (e *Engine) advance(ctx context.Context, run *domain.Run, decision domain.FeedbackDecision) (*domain.Run, error) {
	run.SelectedIDs = decision.ListingIDs
	if decision.Style != "" {
		run.DesignStyle = decision.Style
	}
	for id, style := range decision.Styles {
		if run.Styles == nil {
			run.Styles = make(map[string]string)
		}
		run.Styles[id] = style
	}

	run.SetStatus(domain.RunStatusScoringRunning)
	if err := e.store.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("update run: %w", err)
	}

	e.logger.Info("feedback advance accepted",
		"run_id", run.ID,
		"selected", len(run.SelectedIDs),
	)

	e.launch(run.ID, domain.PhaseScoring)
	return run, nil
}

// rewind возвращает run на повторный DISCOVERY с уточнением критериев.
// Превышение бюджета rewind'ов — терминальный FAILED.
func (e *Engine) rewind(ctx context.Context, run *domain.Run, decision domain.FeedbackDecision) (*domain.Run, error) {
	run.Rewinds++
	run.IncrementRetry(domain.PhaseDiscovery)

	if run.Rewinds > e.maxRewinds {
		run.MarkFailed(fmt.Sprintf("rewind budget exceeded (%d allowed)", e.maxRewinds))
		if err := e.store.UpdateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("update run: %w", err)
		}
		telemetry.RunsFailed.Inc()
		e.publish(EventRunFailed, run)
		e.release(run.ID)
		e.logger.Info("rewind budget exceeded", "run_id", run.ID, "rewinds", run.Rewinds)
		return run, nil
	}

	if decision.Amendment != "" {
		run.Amendments = append(run.Amendments, decision.Amendment)
	}
	run.SelectedIDs = nil
	run.SetStatus(domain.RunStatusDiscoveryRunning)
	if err := e.store.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("update run: %w", err)
	}

	e.logger.Info("feedback rewind accepted",
		"run_id", run.ID,
		"rewinds", run.Rewinds,
		"amendment", decision.Amendment,
	)

	e.launch(run.ID, domain.PhaseDiscovery)
	return run, nil
}
