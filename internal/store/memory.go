package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Hestia/internal/domain"
)

// Memory — in-memory реализация RunStore.
//
// Записи хранятся глубокими копиями: чтение никогда не отдаёт
// alias на внутреннее состояние хранилища.
type Memory struct {
	mu       sync.RWMutex
	runs     map[uuid.UUID]*domain.Run
	feedback map[uuid.UUID]*domain.FeedbackRequest
}

// NewMemory создаёт пустое in-memory хранилище.
func NewMemory() *Memory {
	return &Memory{
		runs:     make(map[uuid.UUID]*domain.Run),
		feedback: make(map[uuid.UUID]*domain.FeedbackRequest),
	}
}

// CreateRun сохраняет новый run.
func (m *Memory) CreateRun(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; ok {
		return fmt.Errorf("%w: run %s", ErrAlreadyExists, run.ID)
	}

	clone, err := cloneRun(run)
	if err != nil {
		return err
	}
	m.runs[run.ID] = clone
	return nil
}

// GetRun возвращает run по ID.
func (m *Memory) GetRun(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	return cloneRun(run)
}

// UpdateRun перезаписывает состояние run'а.
func (m *Memory) UpdateRun(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; !ok {
		return fmt.Errorf("%w: run %s", ErrNotFound, run.ID)
	}

	clone, err := cloneRun(run)
	if err != nil {
		return err
	}
	m.runs[run.ID] = clone
	return nil
}

// ListRuns возвращает runs по фильтру, новые первыми.
func (m *Memory) ListRuns(_ context.Context, filter RunFilter) ([]domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var runs []domain.Run
	for _, run := range m.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		clone, err := cloneRun(run)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *clone)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(runs) {
			return nil, nil
		}
		runs = runs[filter.Offset:]
	}
	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}

	return runs, nil
}

// CreateFeedback сохраняет открытый feedback-запрос.
func (m *Memory) CreateFeedback(_ context.Context, req *domain.FeedbackRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.feedback[req.RunID]; ok {
		return fmt.Errorf("%w: feedback for run %s", ErrAlreadyExists, req.RunID)
	}

	clone, err := cloneFeedback(req)
	if err != nil {
		return err
	}
	m.feedback[req.RunID] = clone
	return nil
}

// GetOpenFeedback возвращает открытый запрос по run'у.
func (m *Memory) GetOpenFeedback(_ context.Context, runID uuid.UUID) (*domain.FeedbackRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.feedback[runID]
	if !ok {
		return nil, fmt.Errorf("%w: feedback for run %s", ErrNotFound, runID)
	}
	return cloneFeedback(req)
}

// DeleteFeedback удаляет открытый запрос.
func (m *Memory) DeleteFeedback(_ context.Context, runID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.feedback, runID)
	return nil
}

// --- Helpers ---

func cloneRun(run *domain.Run) (*domain.Run, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("clone run: %w", err)
	}
	var clone domain.Run
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("clone run: %w", err)
	}
	return &clone, nil
}

func cloneFeedback(req *domain.FeedbackRequest) (*domain.FeedbackRequest, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("clone feedback: %w", err)
	}
	var clone domain.FeedbackRequest
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("clone feedback: %w", err)
	}
	return &clone, nil
}
