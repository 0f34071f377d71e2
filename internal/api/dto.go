package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Hestia/internal/domain"
)

// Run DTOs

// StartRunRequest — запрос на создание run.
type StartRunRequest struct {
	Criteria    domain.Criteria `json:"criteria"`
	DesignStyle string          `json:"design_style,omitempty"`
}

// RunResponse — ответ со статусом run'а. Отдаётся polling-клиентам,
// поэтому включает всё, что нужно для следующего шага: открытый
// feedback-запрос в AWAITING_FEEDBACK и итоговый отчёт в COMPLETED.
type RunResponse struct {
	ID          uuid.UUID        `json:"id"`
	Status      domain.RunStatus `json:"status"`
	Phase       domain.Phase     `json:"phase,omitempty"`
	Criteria    domain.Criteria  `json:"criteria"`
	DesignStyle string           `json:"design_style,omitempty"`
	Amendments  []string         `json:"amendments,omitempty"`
	SelectedIDs []string         `json:"selected_ids,omitempty"`
	Rewinds     int              `json:"rewinds"`

	PendingFeedback *FeedbackResponse `json:"pending_feedback,omitempty"`
	Report          *domain.Report    `json:"report,omitempty"`
	Error           string            `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(run domain.Run) RunResponse {
	return RunResponse{
		ID:          run.ID,
		Status:      run.Status,
		Phase:       run.Status.CurrentPhase(),
		Criteria:    run.Criteria,
		DesignStyle: run.DesignStyle,
		Amendments:  run.Amendments,
		SelectedIDs: run.SelectedIDs,
		Rewinds:     run.Rewinds,
		Report:      run.Report,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
		UpdatedAt:   run.UpdatedAt,
	}
}

// Feedback DTOs

// FeedbackResponse — открытый feedback-запрос.
type FeedbackResponse struct {
	RunID      uuid.UUID        `json:"run_id"`
	AfterPhase domain.Phase     `json:"after_phase"`
	Candidates []domain.Listing `json:"candidates"`
	CreatedAt  time.Time        `json:"created_at"`
}

// FeedbackFromDomain конвертирует domain.FeedbackRequest в FeedbackResponse.
func FeedbackFromDomain(req domain.FeedbackRequest) FeedbackResponse {
	return FeedbackResponse{
		RunID:      req.RunID,
		AfterPhase: req.AfterPhase,
		Candidates: req.Candidates,
		CreatedAt:  req.CreatedAt,
	}
}

// SubmitFeedbackRequest — решение пользователя. Тип указывается явно:
// содержимое никогда не классифицируется как advance или rewind по тексту.
type SubmitFeedbackRequest struct {
	Type       domain.DecisionType `json:"type"`
	ListingIDs []string            `json:"listing_ids,omitempty"`
	Style      string              `json:"style,omitempty"`
	Styles     map[string]string   `json:"styles,omitempty"`
	Amendment  string              `json:"amendment,omitempty"`
}

// ToDecision конвертирует запрос в domain.FeedbackDecision.
func (r SubmitFeedbackRequest) ToDecision() domain.FeedbackDecision {
	return domain.FeedbackDecision{
		Type:       r.Type,
		ListingIDs: r.ListingIDs,
		Style:      r.Style,
		Styles:     r.Styles,
		Amendment:  r.Amendment,
	}
}
