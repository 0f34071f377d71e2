package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Hestia/internal/domain"
)

func testRun() *domain.Run {
	return domain.NewRun(domain.Criteria{
		Location:     "Lekki Phase 1",
		PropertyType: "apartment",
		Bedrooms:     2,
		MaxPrice:     3_000_000,
	}, "")
}

// --- Runs ---

func TestMemory_CreateAndGetRun(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run := testRun()
	if err := m.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := m.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != run.ID || got.Status != domain.RunStatusInit {
		t.Errorf("unexpected run: id=%s status=%s", got.ID, got.Status)
	}
	if got.Criteria.Location != "Lekki Phase 1" {
		t.Errorf("unexpected criteria location %q", got.Criteria.Location)
	}
}

func TestMemory_CreateRun_Duplicate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run := testRun()
	if err := m.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := m.CreateRun(ctx, run); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemory_GetRun_NotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.GetRun(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_UpdateRun(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run := testRun()
	if err := m.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	run.SetStatus(domain.RunStatusDiscoveryRunning)
	if err := m.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err := m.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != domain.RunStatusDiscoveryRunning {
		t.Errorf("expected DISCOVERY_RUNNING, got %s", got.Status)
	}
}

func TestMemory_UpdateRun_NotFound(t *testing.T) {
	m := NewMemory()

	if err := m.UpdateRun(context.Background(), testRun()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ReadsReturnCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run := testRun()
	if err := m.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := m.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	got.Status = domain.RunStatusFailed
	got.Amendments = append(got.Amendments, "mutated")

	again, err := m.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if again.Status != domain.RunStatusInit || len(again.Amendments) != 0 {
		t.Error("mutating a read result leaked into the store")
	}
}

func TestMemory_ListRuns_FilterAndPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		run := testRun()
		run.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if i%2 == 0 {
			run.SetStatus(domain.RunStatusFailed)
		}
		if err := m.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
		ids = append(ids, run.ID)
	}

	all, err := m.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 runs, got %d", len(all))
	}
	// Новые первыми.
	if all[0].ID != ids[4] || all[4].ID != ids[0] {
		t.Error("expected runs ordered newest first")
	}

	failed, err := m.ListRuns(ctx, RunFilter{Status: domain.RunStatusFailed})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(failed) != 3 {
		t.Errorf("expected 3 failed runs, got %d", len(failed))
	}

	page, err := m.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[3] {
		t.Errorf("unexpected page: len=%d", len(page))
	}

	empty, err := m.ListRuns(ctx, RunFilter{Offset: 10})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(empty))
	}
}

// --- Feedback ---

func TestMemory_FeedbackLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	runID := uuid.New()
	req := &domain.FeedbackRequest{
		RunID:      runID,
		AfterPhase: domain.PhaseDiscovery,
		Candidates: []domain.Listing{{ID: "listing-0"}},
		CreatedAt:  time.Now().UTC(),
	}

	if err := m.CreateFeedback(ctx, req); err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}
	if err := m.CreateFeedback(ctx, req); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists on second open request, got %v", err)
	}

	got, err := m.GetOpenFeedback(ctx, runID)
	if err != nil {
		t.Fatalf("GetOpenFeedback: %v", err)
	}
	if got.AfterPhase != domain.PhaseDiscovery || len(got.Candidates) != 1 {
		t.Errorf("unexpected request: phase=%s candidates=%d", got.AfterPhase, len(got.Candidates))
	}

	if err := m.DeleteFeedback(ctx, runID); err != nil {
		t.Fatalf("DeleteFeedback: %v", err)
	}
	if _, err := m.GetOpenFeedback(ctx, runID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Повторное удаление — no-op.
	if err := m.DeleteFeedback(ctx, runID); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestMemory_GetOpenFeedback_NotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.GetOpenFeedback(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
