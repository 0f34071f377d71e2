package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один сквозной проход pipeline для одного набора критериев.
//
// Run создаётся при запросе пользователя через API или CLI. Состояние run'а
// принадлежит исключительно flow-движку и мутируется только через его
// переходы; записи никогда не удаляются, только помечаются терминальными.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Criteria — критерии поиска. Неизменяемы после создания.
	Criteria Criteria `json:"criteria"`

	// DesignStyle — стиль редизайна по умолчанию для фазы DESIGN.
	DesignStyle string `json:"design_style,omitempty"`

	// Amendments — уточнения критериев от rewind-решений,
	// в порядке поступления.
	Amendments []string `json:"amendments,omitempty"`

	// Outputs — принятые результаты фаз. Один слот на фазу;
	// при retry слот замещается целиком.
	Outputs map[Phase]*PhaseOutput `json:"outputs,omitempty"`

	// Retries — счётчики guardrail-retry по фазам.
	Retries map[Phase]int `json:"retries,omitempty"`

	// Rewinds — количество потреблённых rewind-решений.
	Rewinds int `json:"rewinds"`

	// Decisions — количество потреблённых решений (advance + rewind).
	Decisions int `json:"decisions"`

	// SelectedIDs — ID объявлений, выбранных advance-решением.
	SelectedIDs []string `json:"selected_ids,omitempty"`

	// Styles — стиль редизайна по объявлениям (из advance-решения).
	Styles map[string]string `json:"styles,omitempty"`

	// Report — итоговый отчёт. Заполняется при COMPLETED.
	Report *Report `json:"report,omitempty"`

	// Error — причина FAILED для отображения клиенту.
	Error string `json:"error,omitempty"`

	// CreatedAt, UpdatedAt — временные метки.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRun создаёт run в статусе INIT.
func NewRun(criteria Criteria, designStyle string) *Run {
	if designStyle == "" {
		designStyle = DefaultDesignStyle
	}
	now := time.Now().UTC()
	return &Run{
		ID:          uuid.New(),
		Status:      RunStatusInit,
		Criteria:    criteria,
		DesignStyle: designStyle,
		Outputs:     make(map[Phase]*PhaseOutput),
		Retries:     make(map[Phase]int),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsFinished возвращает true, если run завершён.
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// SetStatus переводит run в новый статус и обновляет метку времени.
func (r *Run) SetStatus(status RunStatus) {
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
}

// MarkFailed переводит run в FAILED с причиной.
func (r *Run) MarkFailed(reason string) {
	r.Error = reason
	r.SetStatus(RunStatusFailed)
}

// AcceptOutput записывает принятый результат фазы.
func (r *Run) AcceptOutput(out *PhaseOutput) {
	if r.Outputs == nil {
		r.Outputs = make(map[Phase]*PhaseOutput)
	}
	r.Outputs[out.Phase] = out
	r.UpdatedAt = time.Now().UTC()
}

// IncrementRetry увеличивает счётчик retry фазы и возвращает новое значение.
func (r *Run) IncrementRetry(phase Phase) int {
	if r.Retries == nil {
		r.Retries = make(map[Phase]int)
	}
	r.Retries[phase]++
	r.UpdatedAt = time.Now().UTC()
	return r.Retries[phase]
}

// StyleFor возвращает стиль редизайна для объявления:
// индивидуальный из advance-решения или стиль по умолчанию.
func (r *Run) StyleFor(listingID string) string {
	if s, ok := r.Styles[listingID]; ok && s != "" {
		return s
	}
	if r.DesignStyle != "" {
		return r.DesignStyle
	}
	return DefaultDesignStyle
}

// SelectedListings возвращает объявления из принятого результата DISCOVERY,
// выбранные advance-решением, в порядке обнаружения.
func (r *Run) SelectedListings() []Listing {
	out, ok := r.Outputs[PhaseDiscovery]
	if !ok {
		return nil
	}
	if len(r.SelectedIDs) == 0 {
		return out.Payload.Listings
	}

	selected := make(map[string]bool, len(r.SelectedIDs))
	for _, id := range r.SelectedIDs {
		selected[id] = true
	}

	var listings []Listing
	for _, l := range out.Payload.Listings {
		if selected[l.ID] {
			listings = append(listings, l)
		}
	}
	return listings
}
