package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Hestia/internal/domain"
	"github.com/shaiso/Hestia/internal/guardrail"
	"github.com/shaiso/Hestia/internal/stage"
	"github.com/shaiso/Hestia/internal/store"
	"github.com/shaiso/Hestia/internal/telemetry"
)

// Default configuration values.
const (
	// defaultMaxRetries — guardrail-retry фазы сверх первой попытки.
	defaultMaxRetries = 2

	// defaultMaxRewinds — максимум rewind-решений на run.
	defaultMaxRewinds = 3
)

// EventPublisher публикует события жизненного цикла run'ов.
// Движок работает и без publisher'а (nil) — события best-effort.
type EventPublisher interface {
	PublishRunEvent(ctx context.Context, event string, run *domain.Run) error
}

// События жизненного цикла.
const (
	EventRunCreated       = "run.created"
	EventPhaseCompleted   = "run.phase_completed"
	EventAwaitingFeedback = "run.awaiting_feedback"
	EventRunCompleted     = "run.completed"
	EventRunFailed        = "run.failed"
)

// runHandle сериализует переходы одного run'а.
type runHandle struct {
	mu sync.Mutex
}

// Engine — машина состояний run'ов.
type Engine struct {
	store     store.RunStore
	executor  *stage.Executor
	validator *guardrail.Validator
	publisher EventPublisher

	maxRetries int
	maxRewinds int

	// handles — per-run мьютексы активных run'ов (runID → handle).
	handles map[uuid.UUID]*runHandle
	mu      sync.Mutex

	// Lifecycle
	logger     *slog.Logger
	baseCtx    context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Engine.
type Config struct {
	Store     store.RunStore
	Executor  *stage.Executor
	Validator *guardrail.Validator
	Publisher EventPublisher // опционально

	// MaxRetries — guardrail-retry на фазу сверх первой попытки (default: 2).
	MaxRetries int

	// MaxRewinds — максимум rewind-решений на run (default: 3).
	MaxRewinds int

	Logger *slog.Logger
}

// New создаёт Engine.
func New(cfg Config) *Engine {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	maxRewinds := cfg.MaxRewinds
	if maxRewinds <= 0 {
		maxRewinds = defaultMaxRewinds
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store:      cfg.Store,
		executor:   cfg.Executor,
		validator:  cfg.Validator,
		publisher:  cfg.Publisher,
		maxRetries: maxRetries,
		maxRewinds: maxRewinds,
		handles:    make(map[uuid.UUID]*runHandle),
		logger:     logger,
	}
}

// Start запускает Engine. Runs, застрявшие в *_RUNNING после рестарта
// процесса, помечаются FAILED: их фазы выполнялись in-process и
// потеряны вместе с процессом. Runs в AWAITING_FEEDBACK рестарт
// переживают — они возобновятся при поступлении решения.
func (e *Engine) Start(ctx context.Context) error {
	e.baseCtx, e.cancelFunc = context.WithCancel(ctx)

	for _, status := range []domain.RunStatus{
		domain.RunStatusInit,
		domain.RunStatusDiscoveryRunning,
		domain.RunStatusScoringRunning,
		domain.RunStatusDesignRunning,
	} {
		runs, err := e.store.ListRuns(ctx, store.RunFilter{Status: status})
		if err != nil {
			return fmt.Errorf("list interrupted runs: %w", err)
		}
		for i := range runs {
			run := &runs[i]
			run.MarkFailed("interrupted by restart")
			if err := e.store.UpdateRun(ctx, run); err != nil {
				return fmt.Errorf("fail interrupted run %s: %w", run.ID, err)
			}
			e.logger.Warn("marked interrupted run as failed", "run_id", run.ID)
		}
	}

	e.logger.Info("flow engine started",
		"max_retries", e.maxRetries,
		"max_rewinds", e.maxRewinds,
	)
	return nil
}

// Stop останавливает Engine: отменяет выполняющиеся фазы и ждёт
// завершения горутин.
func (e *Engine) Stop() {
	e.logger.Info("stopping flow engine...")

	if e.cancelFunc != nil {
		e.cancelFunc()
	}
	e.wg.Wait()

	e.logger.Info("flow engine stopped")
}

// StartRun создаёт run и немедленно запускает фазу DISCOVERY.
func (e *Engine) StartRun(ctx context.Context, criteria domain.Criteria, designStyle string) (*domain.Run, error) {
	criteria.Normalize()
	if violations := criteria.Validate(); len(violations) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCriteria, strings.Join(violations, "; "))
	}

	run := domain.NewRun(criteria, designStyle)
	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	telemetry.RunsStarted.Inc()
	e.publish(EventRunCreated, run)

	e.logger.Info("run started",
		"run_id", run.ID,
		"location", criteria.Location,
		"property_type", criteria.PropertyType,
	)

	e.launch(run.ID, domain.PhaseDiscovery)
	return run, nil
}

// GetRun возвращает run по ID.
func (e *Engine) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return e.store.GetRun(ctx, id)
}

// ListRuns возвращает runs по фильтру.
func (e *Engine) ListRuns(ctx context.Context, filter store.RunFilter) ([]domain.Run, error) {
	return e.store.ListRuns(ctx, filter)
}

// CancelRun помечает run FAILED по запросу клиента. Отмена
// кооперативная: начатый вызов collaborator'а не прерывается, его
// результат будет отброшен при коммите. Открытый feedback-запрос
// удаляется.
func (e *Engine) CancelRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return e.terminate(ctx, id, "cancelled by client")
}

// CancelStale проваливает run, чей feedback-запрос просрочен
// (используется sweeper'ом).
func (e *Engine) CancelStale(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return e.terminate(ctx, id, "feedback wait timed out")
}

// terminate переводит run в FAILED с причиной.
func (e *Engine) terminate(ctx context.Context, id uuid.UUID, reason string) (*domain.Run, error) {
	handle := e.handle(id)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	run, err := e.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.IsFinished() {
		return nil, ErrRunFinished
	}

	if err := e.store.DeleteFeedback(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("delete open feedback: %w", err)
	}

	run.MarkFailed(reason)
	if err := e.store.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("update run: %w", err)
	}

	telemetry.RunsFailed.Inc()
	e.publish(EventRunFailed, run)
	e.release(id)
	e.logger.Info("run terminated", "run_id", id, "reason", reason)

	return run, nil
}

// handle возвращает (создавая при необходимости) per-run мьютекс.
func (e *Engine) handle(runID uuid.UUID) *runHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[runID]
	if !ok {
		h = &runHandle{}
		e.handles[runID] = h
	}
	return h
}

// release удаляет handle завершённого run'а.
func (e *Engine) release(runID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handles, runID)
}

// launch запускает выполнение фазы в отдельной горутине.
func (e *Engine) launch(runID uuid.UUID, phase domain.Phase) {
	ctx := e.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runPhase(ctx, runID, phase)
	}()
}

// runPhase выполняет одну фазу с guardrail-retry и коммитит результат.
func (e *Engine) runPhase(ctx context.Context, runID uuid.UUID, phase domain.Phase) {
	logger := telemetry.WithPhase(telemetry.WithRunID(e.logger, runID.String()), string(phase))

	inputs, ok := e.beginPhase(ctx, runID, phase, logger)
	if !ok {
		return
	}

	// Guardrail-retry: та же фаза, те же входы, свежий вызов collaborator'а.
	for attempt := 1; attempt <= e.maxRetries+1; attempt++ {
		payload, err := e.executor.Execute(ctx, phase, inputs)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("phase abandoned, context cancelled")
				return
			}
			e.failRun(ctx, runID, fmt.Sprintf("collaborator failure in %s: %v", phase, err))
			return
		}

		accepted, verdict := e.validator.Validate(phase, payload)
		if verdict.Passed {
			e.commitPhase(ctx, runID, &domain.PhaseOutput{
				Phase:   phase,
				Attempt: attempt,
				Payload: *accepted,
				Verdict: verdict,
			}, logger)
			return
		}

		telemetry.GuardrailFailures.WithLabelValues(string(phase)).Inc()
		logger.Warn("guardrail verdict failed",
			"attempt", attempt,
			"violations", strings.Join(verdict.Violations, "; "),
		)

		if attempt == e.maxRetries+1 {
			e.failRun(ctx, runID, fmt.Sprintf(
				"guardrail budget exceeded in %s: %s", phase, strings.Join(verdict.Violations, "; ")))
			return
		}

		if !e.recordRetry(ctx, runID, phase) {
			return
		}
	}
}

// beginPhase переводит run в running-статус фазы и собирает её входы.
// Возвращает ok=false, если переход невозможен (run завершён или
// store недоступен).
func (e *Engine) beginPhase(ctx context.Context, runID uuid.UUID, phase domain.Phase, logger *slog.Logger) (stage.Inputs, bool) {
	handle := e.handle(runID)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		logger.Error("failed to load run", "error", err)
		return stage.Inputs{}, false
	}
	if run.IsFinished() {
		logger.Info("skipping phase, run already finished", "status", run.Status)
		return stage.Inputs{}, false
	}

	run.SetStatus(phase.RunningStatus())
	if err := e.store.UpdateRun(ctx, run); err != nil {
		logger.Error("failed to update run status", "error", err)
		return stage.Inputs{}, false
	}

	logger.Info("phase started", "attempt", run.Retries[phase]+1)

	return e.phaseInputs(run, phase), true
}

// phaseInputs собирает входы фазы из состояния run'а.
func (e *Engine) phaseInputs(run *domain.Run, phase domain.Phase) stage.Inputs {
	switch phase {
	case domain.PhaseDiscovery:
		return stage.Inputs{Query: run.Criteria.SearchQuery(run.Amendments)}

	case domain.PhaseScoring:
		return stage.Inputs{Listings: run.SelectedListings()}

	case domain.PhaseDesign:
		// Дизайн генерируется только для объявлений, переживших SCORING:
		// отброшенные completeness-правилом не рендерятся.
		survived := make(map[string]bool)
		if out, ok := run.Outputs[domain.PhaseScoring]; ok {
			for _, loc := range out.Payload.Locations {
				survived[loc.ListingID] = true
			}
		}
		var listings []domain.Listing
		for _, l := range run.SelectedListings() {
			if survived[l.ID] {
				listings = append(listings, l)
			}
		}
		return stage.Inputs{
			Listings:     listings,
			Styles:       run.Styles,
			DefaultStyle: run.DesignStyle,
		}

	default:
		return stage.Inputs{}
	}
}

// recordRetry инкрементирует счётчик retry фазы. Возвращает false,
// если run тем временем завершён и retry не имеет смысла.
func (e *Engine) recordRetry(ctx context.Context, runID uuid.UUID, phase domain.Phase) bool {
	handle := e.handle(runID)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	run, err := e.store.GetRun(ctx, runID)
	if err != nil || run.IsFinished() {
		return false
	}
	run.IncrementRetry(phase)
	if err := e.store.UpdateRun(ctx, run); err != nil {
		e.logger.Error("failed to record retry", "run_id", runID, "error", err)
		return false
	}
	return true
}

// commitPhase коммитит принятый результат фазы и выполняет следующий
// переход. Поздний результат (run тем временем завершён или отменён)
// отбрасывается.
func (e *Engine) commitPhase(ctx context.Context, runID uuid.UUID, out *domain.PhaseOutput, logger *slog.Logger) {
	handle := e.handle(runID)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		logger.Error("failed to load run for commit", "error", err)
		return
	}
	if run.IsFinished() || run.Status != out.Phase.RunningStatus() {
		logger.Info("discarding late phase result", "status", run.Status)
		return
	}

	run.AcceptOutput(out)

	var next domain.Phase
	switch out.Phase {
	case domain.PhaseDiscovery:
		// Граница обратной связи: run приостанавливается до решения.
		// Осиротевший запрос прошлого прохода (решение применено, но его
		// удаление не прошло) замещается свежими кандидатами.
		if err := e.store.DeleteFeedback(ctx, runID); err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Warn("failed to clear stale feedback request", "error", err)
		}
		req := &domain.FeedbackRequest{
			RunID:      runID,
			AfterPhase: out.Phase,
			Candidates: out.Payload.Listings,
			CreatedAt:  run.UpdatedAt,
		}
		if err := e.store.CreateFeedback(ctx, req); err != nil {
			logger.Error("failed to open feedback request", "error", err)
			run.MarkFailed(fmt.Sprintf("cannot open feedback request: %v", err))
			telemetry.RunsFailed.Inc()
		} else {
			run.SetStatus(domain.RunStatusAwaitingFeedback)
		}

	case domain.PhaseScoring:
		next = domain.PhaseDesign

	case domain.PhaseDesign:
		report, err := assembleReport(run)
		if err != nil {
			run.MarkFailed(fmt.Sprintf("report assembly failed: %v", err))
			telemetry.RunsFailed.Inc()
		} else {
			run.Report = report
			run.SetStatus(domain.RunStatusCompleted)
			telemetry.RunsCompleted.Inc()
		}
	}

	if err := e.store.UpdateRun(ctx, run); err != nil {
		logger.Error("failed to commit phase result", "error", err)
		return
	}

	logger.Info("phase committed",
		"attempt", out.Attempt,
		"score", out.Verdict.Score,
		"status", run.Status,
	)

	e.publish(EventPhaseCompleted, run)
	switch run.Status {
	case domain.RunStatusAwaitingFeedback:
		e.publish(EventAwaitingFeedback, run)
	case domain.RunStatusCompleted:
		e.publish(EventRunCompleted, run)
		e.release(runID)
	case domain.RunStatusFailed:
		e.publish(EventRunFailed, run)
		e.release(runID)
	}

	if next != "" {
		e.launch(runID, next)
	}
}

// failRun помечает run FAILED с причиной.
func (e *Engine) failRun(ctx context.Context, runID uuid.UUID, reason string) {
	handle := e.handle(runID)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		e.logger.Error("failed to load run for failure", "run_id", runID, "error", err)
		return
	}
	if run.IsFinished() {
		return
	}

	run.MarkFailed(reason)
	if err := e.store.UpdateRun(ctx, run); err != nil {
		e.logger.Error("failed to mark run as failed", "run_id", runID, "error", err)
		return
	}

	telemetry.RunsFailed.Inc()
	e.publish(EventRunFailed, run)
	e.release(runID)

	e.logger.Error("run failed", "run_id", runID, "reason", reason)
}

// publish отправляет событие жизненного цикла (best-effort).
func (e *Engine) publish(event string, run *domain.Run) {
	if e.publisher == nil {
		return
	}
	ctx := e.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.publisher.PublishRunEvent(ctx, event, run); err != nil {
		e.logger.Warn("failed to publish run event",
			"run_id", run.ID,
			"event", event,
			"error", err,
		)
	}
}
