package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Hestia/internal/collab"
	"github.com/shaiso/Hestia/internal/domain"
	"github.com/shaiso/Hestia/internal/guardrail"
	"github.com/shaiso/Hestia/internal/stage"
	"github.com/shaiso/Hestia/internal/store"
)

func testCriteria() domain.Criteria {
	return domain.Criteria{
		Location:     "Lekki Phase 1",
		PropertyType: "apartment",
		Bedrooms:     2,
		MaxPrice:     3_000_000,
	}
}

func newTestEngine(t *testing.T, discoveryCount int) (*Engine, store.RunStore) {
	t.Helper()

	mem := store.NewMemory()
	return newEngineWith(t, mem, &collab.StubDiscovery{Count: discoveryCount}), mem
}

// newEngineWith собирает Engine поверх заданного store и
// discovery-collaborator'а.
func newEngineWith(t *testing.T, s store.RunStore, discovery collab.DiscoveryClient) *Engine {
	t.Helper()

	executor := stage.NewExecutor(
		discovery,
		&collab.StubGeo{},
		&collab.StubRender{},
		stage.NewPool(4),
		stage.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		slog.Default(),
	)

	engine := New(Config{
		Store:     s,
		Executor:  executor,
		Validator: guardrail.New(guardrail.Config{}),
		Logger:    slog.Default(),
	})

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(engine.Stop)

	return engine
}

// lowQualityDiscovery возвращает структурно валидные объявления с
// оценкой качества ниже порога confidence-правила и считает вызовы.
type lowQualityDiscovery struct {
	calls atomic.Int32
}

func (d *lowQualityDiscovery) FindListings(_ context.Context, _ string) ([]collab.ListingRecord, error) {
	d.calls.Add(1)

	records := make([]collab.ListingRecord, 3)
	for i := range records {
		n := i + 1
		records[i] = collab.ListingRecord{
			URL:          fmt.Sprintf("https://listings.example.com/low/%d", n),
			Address:      fmt.Sprintf("%d Example Street", n),
			Price:        1500,
			Images:       []string{fmt.Sprintf("https://img.example.com/low/%d.jpg", n)},
			Contact:      domain.Contact{Name: "Agent", Phone: fmt.Sprintf("+100000001%02d", n)},
			QualityScore: 2,
		}
	}
	return records, nil
}

// blockingDiscovery держит вызов открытым до закрытия release.
type blockingDiscovery struct {
	release chan struct{}
}

func (d *blockingDiscovery) FindListings(ctx context.Context, query string) ([]collab.ListingRecord, error) {
	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return (&collab.StubDiscovery{Count: 8}).FindListings(ctx, query)
}

// flakyRunStore инжектирует одну ошибку UpdateRun по требованию.
type flakyRunStore struct {
	store.RunStore
	failNext atomic.Bool
}

func (s *flakyRunStore) UpdateRun(ctx context.Context, run *domain.Run) error {
	if s.failNext.CompareAndSwap(true, false) {
		return errors.New("transient store failure")
	}
	return s.RunStore.UpdateRun(ctx, run)
}

// waitForStatus ждёт, пока run не перейдёт в ожидаемый статус.
func waitForStatus(t *testing.T, s store.RunStore, id uuid.UUID, want domain.RunStatus) *domain.Run {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := s.GetRun(context.Background(), id)
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if run.Status == want {
			return run
		}
		if run.Status.IsTerminal() && !want.IsTerminal() {
			t.Fatalf("run reached terminal status %s (error: %q) while waiting for %s",
				run.Status, run.Error, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s", want)
	return nil
}

// --- Start Tests ---

func TestStartRun_InvalidCriteria(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	_, err := engine.StartRun(context.Background(), domain.Criteria{PropertyType: "apartment"}, "")
	if !errors.Is(err, ErrInvalidCriteria) {
		t.Fatalf("expected ErrInvalidCriteria, got %v", err)
	}

	// Run не создаётся.
	runs, err := mem.ListRuns(context.Background(), store.RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestStartRun_ReachesFeedbackGateWithTruncatedCandidates(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, err := engine.StartRun(context.Background(), testCriteria(), "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.Status != domain.RunStatusInit {
		t.Errorf("expected INIT right after start, got %s", run.Status)
	}

	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)

	req, err := engine.OpenFeedback(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("OpenFeedback: %v", err)
	}
	// Collaborator вернул 8 кандидатов, cap-правило усекло до 6.
	if len(req.Candidates) != 6 {
		t.Fatalf("expected 6 candidates after truncation, got %d", len(req.Candidates))
	}

	stored, _ := mem.GetRun(context.Background(), run.ID)
	out := stored.Outputs[domain.PhaseDiscovery]
	if out == nil {
		t.Fatal("discovery output should be accepted")
	}
	if out.Verdict.TruncatedCount != 2 {
		t.Errorf("expected truncated count 2, got %d", out.Verdict.TruncatedCount)
	}
}

func TestRun_GuardrailBudgetExceeded(t *testing.T) {
	mem := store.NewMemory()
	discovery := &lowQualityDiscovery{}
	engine := newEngineWith(t, mem, discovery)

	run, err := engine.StartRun(context.Background(), testCriteria(), "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	failed := waitForStatus(t, mem, run.ID, domain.RunStatusFailed)

	if !strings.Contains(failed.Error, "guardrail budget exceeded") {
		t.Errorf("unexpected failure reason %q", failed.Error)
	}
	// Первая попытка + два retry, затем бюджет исчерпан.
	if got := discovery.calls.Load(); got != 3 {
		t.Errorf("expected 3 discovery attempts, got %d", got)
	}
	if failed.Retries[domain.PhaseDiscovery] != 2 {
		t.Errorf("expected discovery retry counter 2, got %d", failed.Retries[domain.PhaseDiscovery])
	}

	// До gate run не дошёл: ни принятого результата, ни запроса.
	if out := failed.Outputs[domain.PhaseDiscovery]; out != nil {
		t.Error("failed discovery output should not be accepted")
	}
	if _, err := mem.GetOpenFeedback(context.Background(), run.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("no feedback request expected, got %v", err)
	}
}

// --- End-to-End ---

func TestRun_EndToEnd_AdvanceSelection(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, err := engine.StartRun(context.Background(), testCriteria(), "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)

	req, err := engine.OpenFeedback(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("OpenFeedback: %v", err)
	}

	selected := []string{req.Candidates[0].ID, req.Candidates[2].ID, req.Candidates[4].ID}
	if _, err := engine.SubmitFeedback(context.Background(), run.ID, domain.FeedbackDecision{
		Type:       domain.DecisionAdvance,
		ListingIDs: selected,
		Style:      "scandinavian",
	}); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}

	final := waitForStatus(t, mem, run.ID, domain.RunStatusCompleted)

	if final.Report == nil {
		t.Fatal("completed run should carry a report")
	}
	if len(final.Report.Items) != 3 {
		t.Fatalf("expected 3 report items, got %d", len(final.Report.Items))
	}

	// В отчёте ровно выбранные ID — никакой инъекции между фазами.
	want := make(map[string]bool)
	for _, id := range selected {
		want[id] = true
	}
	for _, item := range final.Report.Items {
		if !want[item.Listing.ID] {
			t.Errorf("unexpected listing %s in report", item.Listing.ID)
		}
		if item.Design.Style != "scandinavian" {
			t.Errorf("expected style from decision, got %q", item.Design.Style)
		}
		if len(item.Location.Amenities) != len(domain.AmenityCategories()) {
			t.Errorf("listing %s: incomplete amenity coverage", item.Listing.ID)
		}
		for _, room := range item.Design.Rooms {
			if room.BeforeURL == "" || room.AfterURL == "" {
				t.Errorf("listing %s: room %s missing before/after pair", item.Listing.ID, room.Room)
			}
		}
	}

	if final.Report.Metadata.PropertiesFound != 6 {
		t.Errorf("expected 6 properties found, got %d", final.Report.Metadata.PropertiesFound)
	}
	if final.Report.Metadata.PropertiesAnalyzed != 3 {
		t.Errorf("expected 3 properties analyzed, got %d", final.Report.Metadata.PropertiesAnalyzed)
	}
}

// --- Feedback Gate Tests ---

func TestSubmitFeedback_NoPendingRequest(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, _ := engine.StartRun(context.Background(), testCriteria(), "")
	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)

	// Открытый запрос есть, но на другом run'е.
	other := domain.NewRun(testCriteria(), "")
	if err := mem.CreateRun(context.Background(), other); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	_, err := engine.SubmitFeedback(context.Background(), other.ID, domain.FeedbackDecision{
		Type: domain.DecisionAdvance, ListingIDs: []string{"x"},
	})
	if !errors.Is(err, ErrNoPendingFeedback) {
		t.Fatalf("expected ErrNoPendingFeedback, got %v", err)
	}
}

func TestSubmitFeedback_InvalidSelectionLeavesRunUnchanged(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, _ := engine.StartRun(context.Background(), testCriteria(), "")
	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)

	req, _ := engine.OpenFeedback(context.Background(), run.ID)

	_, err := engine.SubmitFeedback(context.Background(), run.ID, domain.FeedbackDecision{
		Type:       domain.DecisionAdvance,
		ListingIDs: []string{req.Candidates[0].ID, "not-a-candidate"},
	})
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}

	// Никакого частичного применения: run стоит, запрос открыт.
	stored, _ := mem.GetRun(context.Background(), run.ID)
	if stored.Status != domain.RunStatusAwaitingFeedback {
		t.Errorf("run status changed to %s", stored.Status)
	}
	if len(stored.SelectedIDs) != 0 {
		t.Errorf("selection partially applied: %v", stored.SelectedIDs)
	}
	if _, err := engine.OpenFeedback(context.Background(), run.ID); err != nil {
		t.Errorf("request should remain open, got %v", err)
	}

	// Пустой список — тоже невалидный выбор.
	_, err = engine.SubmitFeedback(context.Background(), run.ID, domain.FeedbackDecision{
		Type: domain.DecisionAdvance,
	})
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection for empty selection, got %v", err)
	}
}

func TestSubmitFeedback_SecondDecisionRejected(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, _ := engine.StartRun(context.Background(), testCriteria(), "")
	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)

	req, _ := engine.OpenFeedback(context.Background(), run.ID)
	decision := domain.FeedbackDecision{
		Type:       domain.DecisionAdvance,
		ListingIDs: []string{req.Candidates[0].ID},
	}

	if _, err := engine.SubmitFeedback(context.Background(), run.ID, decision); err != nil {
		t.Fatalf("first SubmitFeedback: %v", err)
	}

	_, err := engine.SubmitFeedback(context.Background(), run.ID, decision)
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}

	_, err = engine.OpenFeedback(context.Background(), run.ID)
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided from OpenFeedback, got %v", err)
	}
}

func TestSubmitFeedback_StoreFailureLeavesRequestOpen(t *testing.T) {
	flaky := &flakyRunStore{RunStore: store.NewMemory()}
	engine := newEngineWith(t, flaky, &collab.StubDiscovery{Count: 8})

	run, err := engine.StartRun(context.Background(), testCriteria(), "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitForStatus(t, flaky, run.ID, domain.RunStatusAwaitingFeedback)

	req, err := engine.OpenFeedback(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("OpenFeedback: %v", err)
	}
	decision := domain.FeedbackDecision{
		Type:       domain.DecisionAdvance,
		ListingIDs: []string{req.Candidates[0].ID},
	}

	flaky.failNext.Store(true)
	if _, err := engine.SubmitFeedback(context.Background(), run.ID, decision); err == nil {
		t.Fatal("expected error when run update fails")
	}

	// Решение не персистилось — запрос остаётся открытым, а не потреблён,
	// иначе run завис бы в AWAITING_FEEDBACK без возможности решения.
	stored, _ := flaky.GetRun(context.Background(), run.ID)
	if stored.Status != domain.RunStatusAwaitingFeedback {
		t.Fatalf("run status changed to %s", stored.Status)
	}
	if stored.Decisions != 0 {
		t.Errorf("decision partially recorded: %d", stored.Decisions)
	}
	if _, err := flaky.GetOpenFeedback(context.Background(), run.ID); err != nil {
		t.Fatalf("request should remain open, got %v", err)
	}

	// Повтор того же решения проходит и доводит run до конца.
	if _, err := engine.SubmitFeedback(context.Background(), run.ID, decision); err != nil {
		t.Fatalf("retried SubmitFeedback: %v", err)
	}
	waitForStatus(t, flaky, run.ID, domain.RunStatusCompleted)
	if _, err := flaky.GetOpenFeedback(context.Background(), run.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("consumed request should be deleted, got %v", err)
	}
}

// --- Rewind Tests ---

func TestSubmitFeedback_RewindMergesAmendment(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, _ := engine.StartRun(context.Background(), testCriteria(), "")
	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)

	if _, err := engine.SubmitFeedback(context.Background(), run.ID, domain.FeedbackDecision{
		Type:      domain.DecisionRewind,
		Amendment: "try a quieter area",
	}); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}

	// Run возвращается на повторный DISCOVERY и снова выходит на gate.
	stored := waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)
	if stored.Rewinds != 1 {
		t.Errorf("expected 1 rewind, got %d", stored.Rewinds)
	}
	if stored.Retries[domain.PhaseDiscovery] != 1 {
		t.Errorf("expected discovery retry counter 1, got %d", stored.Retries[domain.PhaseDiscovery])
	}
	if len(stored.Amendments) != 1 || stored.Amendments[0] != "try a quieter area" {
		t.Errorf("amendment not merged: %v", stored.Amendments)
	}
}

func TestSubmitFeedback_RewindBudgetExceeded(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, _ := engine.StartRun(context.Background(), testCriteria(), "")

	for i := 1; i <= 3; i++ {
		waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)
		if _, err := engine.SubmitFeedback(context.Background(), run.ID, domain.FeedbackDecision{
			Type:      domain.DecisionRewind,
			Amendment: "another area",
		}); err != nil {
			t.Fatalf("rewind %d: %v", i, err)
		}
	}

	// Четвёртый rewind превышает бюджет и проваливает run.
	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)
	failed, err := engine.SubmitFeedback(context.Background(), run.ID, domain.FeedbackDecision{
		Type: domain.DecisionRewind,
	})
	if err != nil {
		t.Fatalf("fourth rewind: %v", err)
	}
	if failed.Status != domain.RunStatusFailed {
		t.Fatalf("expected FAILED, got %s", failed.Status)
	}
	if failed.Error == "" {
		t.Error("failure reason should be recorded for client display")
	}
}

// --- Cancellation ---

func TestCancelRun(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, _ := engine.StartRun(context.Background(), testCriteria(), "")
	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)

	cancelled, err := engine.CancelRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
	if cancelled.Status != domain.RunStatusFailed {
		t.Fatalf("expected FAILED, got %s", cancelled.Status)
	}

	// Открытый запрос удалён, повторная отмена — ошибка.
	if _, err := mem.GetOpenFeedback(context.Background(), run.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("feedback request should be deleted, got %v", err)
	}
	if _, err := engine.CancelRun(context.Background(), run.ID); !errors.Is(err, ErrRunFinished) {
		t.Errorf("expected ErrRunFinished, got %v", err)
	}
}

func TestCancelRun_MidPhaseResultDiscarded(t *testing.T) {
	mem := store.NewMemory()
	discovery := &blockingDiscovery{release: make(chan struct{})}
	engine := newEngineWith(t, mem, discovery)

	run, err := engine.StartRun(context.Background(), testCriteria(), "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitForStatus(t, mem, run.ID, domain.RunStatusDiscoveryRunning)

	// Отмена пока collaborator ещё работает: вызов не прерывается.
	cancelled, err := engine.CancelRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
	if cancelled.Status != domain.RunStatusFailed {
		t.Fatalf("expected FAILED, got %s", cancelled.Status)
	}

	// Collaborator доезжает до результата — коммит обязан его отбросить.
	close(discovery.release)
	time.Sleep(50 * time.Millisecond)

	got, _ := mem.GetRun(context.Background(), run.ID)
	if got.Status != domain.RunStatusFailed {
		t.Fatalf("late result resurrected the run: %s", got.Status)
	}
	if got.Error != "cancelled by client" {
		t.Errorf("failure reason overwritten: %q", got.Error)
	}
	if len(got.Outputs) != 0 {
		t.Errorf("late phase output accepted: %v", got.Outputs)
	}
	if _, err := mem.GetOpenFeedback(context.Background(), run.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("no feedback request expected after cancel, got %v", err)
	}
}

// --- Restart Recovery ---

func TestStart_FailsInterruptedRuns(t *testing.T) {
	mem := store.NewMemory()

	interrupted := domain.NewRun(testCriteria(), "")
	interrupted.SetStatus(domain.RunStatusScoringRunning)
	if err := mem.CreateRun(context.Background(), interrupted); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	waiting := domain.NewRun(testCriteria(), "")
	waiting.SetStatus(domain.RunStatusAwaitingFeedback)
	if err := mem.CreateRun(context.Background(), waiting); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	engine := New(Config{
		Store:     mem,
		Executor:  stage.NewExecutor(&collab.StubDiscovery{}, &collab.StubGeo{}, &collab.StubRender{}, nil, stage.DefaultRetryConfig(), slog.Default()),
		Validator: guardrail.New(guardrail.Config{}),
		Logger:    slog.Default(),
	})
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	got, _ := mem.GetRun(context.Background(), interrupted.ID)
	if got.Status != domain.RunStatusFailed {
		t.Errorf("interrupted run should be FAILED, got %s", got.Status)
	}

	// AWAITING_FEEDBACK переживает рестарт.
	got, _ = mem.GetRun(context.Background(), waiting.ID)
	if got.Status != domain.RunStatusAwaitingFeedback {
		t.Errorf("waiting run should survive restart, got %s", got.Status)
	}
}

// --- Sweeper ---

func TestSweeper_FailsStaleRuns(t *testing.T) {
	engine, mem := newTestEngine(t, 8)

	run, _ := engine.StartRun(context.Background(), testCriteria(), "")
	waitForStatus(t, mem, run.ID, domain.RunStatusAwaitingFeedback)

	sweeper, err := NewSweeper(SweeperConfig{
		Engine:   engine,
		Store:    mem,
		CronExpr: "* * * * *",
		TTL:      time.Millisecond,
		Logger:   slog.Default(),
	})
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	got, _ := mem.GetRun(context.Background(), run.ID)
	if got.Status != domain.RunStatusFailed {
		t.Fatalf("stale run should be FAILED, got %s", got.Status)
	}
	if got.Error != "feedback wait timed out" {
		t.Errorf("unexpected failure reason %q", got.Error)
	}
}

func TestNewSweeper_InvalidCron(t *testing.T) {
	_, err := NewSweeper(SweeperConfig{CronExpr: "not a cron"})
	if err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}
