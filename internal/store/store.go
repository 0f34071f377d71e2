package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Hestia/internal/domain"
)

// RunFilter — параметры фильтрации при листинге runs.
type RunFilter struct {
	Status domain.RunStatus
	Limit  int
	Offset int
}

// RunStore — хранилище runs и открытых feedback-запросов.
type RunStore interface {
	// CreateRun сохраняет новый run.
	CreateRun(ctx context.Context, run *domain.Run) error

	// GetRun возвращает run по ID. ErrNotFound, если run не существует.
	GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// UpdateRun перезаписывает состояние run'а.
	// ErrNotFound, если run не существует.
	UpdateRun(ctx context.Context, run *domain.Run) error

	// ListRuns возвращает runs по фильтру, новые первыми.
	ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error)

	// CreateFeedback сохраняет открытый feedback-запрос.
	// ErrAlreadyExists, если по run'у уже открыт запрос.
	CreateFeedback(ctx context.Context, req *domain.FeedbackRequest) error

	// GetOpenFeedback возвращает открытый запрос по run'у.
	// ErrNotFound, если открытого запроса нет.
	GetOpenFeedback(ctx context.Context, runID uuid.UUID) (*domain.FeedbackRequest, error)

	// DeleteFeedback удаляет открытый запрос (решение потреблено).
	DeleteFeedback(ctx context.Context, runID uuid.UUID) error
}
