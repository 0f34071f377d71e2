package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackRequest — запрос решения пользователя.
//
// Создаётся при переходе run'а в AWAITING_FEEDBACK. На run в любой момент
// открыт не более чем один запрос; запись удаляется при потреблении решения.
type FeedbackRequest struct {
	// RunID — run, ожидающий решения.
	RunID uuid.UUID `json:"run_id"`

	// AfterPhase — фаза, за которой следует запрос.
	AfterPhase Phase `json:"after_phase"`

	// Candidates — объявления, предложенные на выбор.
	Candidates []Listing `json:"candidates"`

	// CreatedAt — время создания запроса.
	CreatedAt time.Time `json:"created_at"`
}

// HasCandidate проверяет, есть ли объявление в наборе кандидатов.
func (f *FeedbackRequest) HasCandidate(listingID string) bool {
	for _, c := range f.Candidates {
		if c.ID == listingID {
			return true
		}
	}
	return false
}

// FeedbackDecision — решение пользователя по открытому запросу.
//
// Ровно одно решение потребляется на запрос. Тип решения обязателен.
type FeedbackDecision struct {
	// Type — advance или rewind.
	Type DecisionType `json:"type"`

	// ListingIDs — выбранные объявления (только для advance).
	// Должны быть подмножеством кандидатов открытого запроса.
	ListingIDs []string `json:"listing_ids,omitempty"`

	// Style — общий стиль редизайна для выбранных объявлений (advance).
	Style string `json:"style,omitempty"`

	// Styles — индивидуальные стили по объявлениям (advance).
	// Имеют приоритет над Style.
	Styles map[string]string `json:"styles,omitempty"`

	// Amendment — свободное уточнение критериев (только для rewind).
	Amendment string `json:"amendment,omitempty"`
}
