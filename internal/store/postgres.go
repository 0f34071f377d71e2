package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Hestia/internal/domain"
)

// Postgres — реализация RunStore поверх pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres создаёт Postgres-хранилище.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const runColumns = `
	id, status, criteria, design_style, amendments, outputs, retries,
	rewinds, decisions, selected_ids, styles, report, error, created_at, updated_at
`

// CreateRun сохраняет новый run.
func (p *Postgres) CreateRun(ctx context.Context, run *domain.Run) error {
	cols, err := marshalRun(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = p.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		cols.criteria,
		run.DesignStyle,
		cols.amendments,
		cols.outputs,
		cols.retries,
		run.Rewinds,
		run.Decisions,
		cols.selectedIDs,
		cols.styles,
		cols.report,
		nullString(run.Error),
		run.CreatedAt,
		run.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: run %s", ErrAlreadyExists, run.ID)
	}
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun возвращает run по ID.
func (p *Postgres) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(p.pool.QueryRow(ctx, query, id))
}

// UpdateRun перезаписывает состояние run'а.
func (p *Postgres) UpdateRun(ctx context.Context, run *domain.Run) error {
	cols, err := marshalRun(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE runs
		SET status = $2, amendments = $3, outputs = $4, retries = $5,
		    rewinds = $6, decisions = $7, selected_ids = $8, styles = $9,
		    report = $10, error = $11, updated_at = $12
		WHERE id = $1
	`
	result, err := p.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		cols.amendments,
		cols.outputs,
		cols.retries,
		run.Rewinds,
		run.Decisions,
		cols.selectedIDs,
		cols.styles,
		cols.report,
		nullString(run.Error),
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: run %s", ErrNotFound, run.ID)
	}
	return nil
}

// ListRuns возвращает runs по фильтру, новые первыми.
func (p *Postgres) ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := p.pool.Query(ctx, query, nullString(string(filter.Status)), limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CreateFeedback сохраняет открытый feedback-запрос.
func (p *Postgres) CreateFeedback(ctx context.Context, req *domain.FeedbackRequest) error {
	candidates, err := json.Marshal(req.Candidates)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}

	query := `
		INSERT INTO feedback_requests (run_id, after_phase, candidates, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = p.pool.Exec(ctx, query, req.RunID, req.AfterPhase, candidates, req.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: feedback for run %s", ErrAlreadyExists, req.RunID)
	}
	if err != nil {
		return fmt.Errorf("insert feedback request: %w", err)
	}
	return nil
}

// GetOpenFeedback возвращает открытый запрос по run'у.
func (p *Postgres) GetOpenFeedback(ctx context.Context, runID uuid.UUID) (*domain.FeedbackRequest, error) {
	query := `
		SELECT run_id, after_phase, candidates, created_at
		FROM feedback_requests
		WHERE run_id = $1
	`

	var req domain.FeedbackRequest
	var candidates []byte

	err := p.pool.QueryRow(ctx, query, runID).Scan(
		&req.RunID,
		&req.AfterPhase,
		&candidates,
		&req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: feedback for run %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan feedback request: %w", err)
	}

	if err := json.Unmarshal(candidates, &req.Candidates); err != nil {
		return nil, fmt.Errorf("unmarshal candidates: %w", err)
	}
	return &req, nil
}

// DeleteFeedback удаляет открытый запрос.
func (p *Postgres) DeleteFeedback(ctx context.Context, runID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM feedback_requests WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("delete feedback request: %w", err)
	}
	return nil
}

// --- Helpers ---

// runJSON — сериализованные JSONB-колонки run'а.
type runJSON struct {
	criteria    []byte
	amendments  []byte
	outputs     []byte
	retries     []byte
	selectedIDs []byte
	styles      []byte
	report      []byte
}

func marshalRun(run *domain.Run) (*runJSON, error) {
	var cols runJSON
	var err error

	marshal := func(name string, v any) []byte {
		if err != nil || v == nil {
			return nil
		}
		var data []byte
		data, err = json.Marshal(v)
		if err != nil {
			err = fmt.Errorf("marshal %s: %w", name, err)
		}
		return data
	}

	cols.criteria = marshal("criteria", run.Criteria)
	if len(run.Amendments) > 0 {
		cols.amendments = marshal("amendments", run.Amendments)
	}
	if len(run.Outputs) > 0 {
		cols.outputs = marshal("outputs", run.Outputs)
	}
	if len(run.Retries) > 0 {
		cols.retries = marshal("retries", run.Retries)
	}
	if len(run.SelectedIDs) > 0 {
		cols.selectedIDs = marshal("selected_ids", run.SelectedIDs)
	}
	if len(run.Styles) > 0 {
		cols.styles = marshal("styles", run.Styles)
	}
	if run.Report != nil {
		cols.report = marshal("report", run.Report)
	}

	if err != nil {
		return nil, err
	}
	return &cols, nil
}

// scanRun сканирует одну строку в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var criteria, amendments, outputs, retries, selectedIDs, styles, report []byte
	var runError *string

	err := row.Scan(
		&run.ID,
		&run.Status,
		&criteria,
		&run.DesignStyle,
		&amendments,
		&outputs,
		&retries,
		&run.Rewinds,
		&run.Decisions,
		&selectedIDs,
		&styles,
		&report,
		&runError,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: run", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	unmarshal := func(name string, data []byte, v any) {
		if err != nil || data == nil {
			return
		}
		if uerr := json.Unmarshal(data, v); uerr != nil {
			err = fmt.Errorf("unmarshal %s: %w", name, uerr)
		}
	}

	unmarshal("criteria", criteria, &run.Criteria)
	unmarshal("amendments", amendments, &run.Amendments)
	unmarshal("outputs", outputs, &run.Outputs)
	unmarshal("retries", retries, &run.Retries)
	unmarshal("selected_ids", selectedIDs, &run.SelectedIDs)
	unmarshal("styles", styles, &run.Styles)
	if report != nil {
		run.Report = &domain.Report{}
		unmarshal("report", report, run.Report)
	}
	if err != nil {
		return nil, err
	}

	if runError != nil {
		run.Error = *runError
	}
	if run.Outputs == nil {
		run.Outputs = make(map[domain.Phase]*domain.PhaseOutput)
	}
	if run.Retries == nil {
		run.Retries = make(map[domain.Phase]int)
	}

	return &run, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
