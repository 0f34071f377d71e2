package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	INIT → DISCOVERY_RUNNING → AWAITING_FEEDBACK → SCORING_RUNNING → DESIGN_RUNNING → COMPLETED
//	                         ↖ (rewind) ↙
//	FAILED достижим из любого нетерминального статуса.
type RunStatus string

const (
	// RunStatusInit — run создан, но первая фаза ещё не запущена.
	RunStatusInit RunStatus = "INIT"

	// RunStatusDiscoveryRunning — выполняется фаза поиска объявлений.
	RunStatusDiscoveryRunning RunStatus = "DISCOVERY_RUNNING"

	// RunStatusAwaitingFeedback — run приостановлен, ожидает решения пользователя.
	RunStatusAwaitingFeedback RunStatus = "AWAITING_FEEDBACK"

	// RunStatusScoringRunning — выполняется фаза гео-анализа.
	RunStatusScoringRunning RunStatus = "SCORING_RUNNING"

	// RunStatusDesignRunning — выполняется фаза генерации дизайна.
	RunStatusDesignRunning RunStatus = "DESIGN_RUNNING"

	// RunStatusCompleted — run успешно завершён, итоговый отчёт собран.
	RunStatusCompleted RunStatus = "COMPLETED"

	// RunStatusFailed — run завершился с ошибкой.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Phase — фаза pipeline.
//
// Фазы — закрытое перечисление: каждая фаза несёт свой набор guardrail-правил
// и свой контракт внешнего collaborator'а. Диспетчеризация по фазе
// происходит в одной точке (stage.Executor).
type Phase string

const (
	// PhaseDiscovery — поиск и извлечение объявлений.
	PhaseDiscovery Phase = "DISCOVERY"

	// PhaseScoring — гео-анализ окружения по категориям.
	PhaseScoring Phase = "SCORING"

	// PhaseDesign — генерация редизайна интерьера.
	PhaseDesign Phase = "DESIGN"
)

// Phases возвращает фазы в порядке выполнения.
func Phases() []Phase {
	return []Phase{PhaseDiscovery, PhaseScoring, PhaseDesign}
}

// RunningStatus возвращает статус run, соответствующий выполнению фазы.
func (p Phase) RunningStatus() RunStatus {
	switch p {
	case PhaseDiscovery:
		return RunStatusDiscoveryRunning
	case PhaseScoring:
		return RunStatusScoringRunning
	case PhaseDesign:
		return RunStatusDesignRunning
	default:
		return RunStatusFailed
	}
}

// CurrentPhase возвращает фазу, которой соответствует статус.
// Для AWAITING_FEEDBACK возвращает PhaseDiscovery (run стоит на её границе).
// Для терминальных статусов и INIT возвращает пустую фазу.
func (s RunStatus) CurrentPhase() Phase {
	switch s {
	case RunStatusDiscoveryRunning, RunStatusAwaitingFeedback:
		return PhaseDiscovery
	case RunStatusScoringRunning:
		return PhaseScoring
	case RunStatusDesignRunning:
		return PhaseDesign
	default:
		return ""
	}
}

// DecisionType — тип решения пользователя на границе AWAITING_FEEDBACK.
//
// Тип всегда указывается явно: свободный текст никогда не классифицируется
// как advance или rewind по содержимому.
type DecisionType string

const (
	// DecisionAdvance — продолжить с выбранным подмножеством объявлений.
	DecisionAdvance DecisionType = "advance"

	// DecisionRewind — вернуть run на повторный поиск с уточнением критериев.
	DecisionRewind DecisionType = "rewind"
)
