package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Hestia/internal/domain"
	"github.com/shaiso/Hestia/internal/store"
)

// StartRun создаёт run и немедленно запускает поиск.
// POST /api/v1/runs
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	run, err := h.engine.StartRun(r.Context(), req.Criteria, req.DesignStyle)
	if HandleFlowError(w, h.logger, err, "") {
		return
	}

	Created(w, RunFromDomain(*run))
}

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: domain.RunStatus(r.URL.Query().Get("status")),
		Limit:  parseIntOr(r.URL.Query().Get("limit"), 50),
		Offset: parseIntOr(r.URL.Query().Get("offset"), 0),
	}

	runs, err := h.engine.ListRuns(r.Context(), filter)
	if HandleFlowError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// GetRun возвращает статус run'а. В AWAITING_FEEDBACK ответ включает
// открытый feedback-запрос, в COMPLETED — итоговый отчёт.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	run, err := h.engine.GetRun(r.Context(), id)
	if HandleFlowError(w, h.logger, err, "run not found") {
		return
	}

	resp := RunFromDomain(*run)
	if run.Status == domain.RunStatusAwaitingFeedback {
		if req, err := h.engine.OpenFeedback(r.Context(), id); err == nil {
			fb := FeedbackFromDomain(*req)
			resp.PendingFeedback = &fb
		}
	}

	Success(w, resp)
}

// GetReport возвращает итоговый отчёт завершённого run'а.
// GET /api/v1/runs/{id}/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	run, err := h.engine.GetRun(r.Context(), id)
	if HandleFlowError(w, h.logger, err, "run not found") {
		return
	}

	if run.Status != domain.RunStatusCompleted || run.Report == nil {
		InvalidState(w, "run is not completed")
		return
	}

	Success(w, run.Report)
}

// CancelRun отменяет выполняющийся run.
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	run, err := h.engine.CancelRun(r.Context(), id)
	if HandleFlowError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// GetFeedback возвращает открытый feedback-запрос run'а.
// GET /api/v1/runs/{id}/feedback
func (h *Handler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	req, err := h.engine.OpenFeedback(r.Context(), id)
	if HandleFlowError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, FeedbackFromDomain(*req))
}

// SubmitFeedback потребляет решение пользователя.
// POST /api/v1/runs/{id}/feedback
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	var req SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Type == "" {
		BadRequest(w, "decision type is required")
		return
	}

	run, err := h.engine.SubmitFeedback(r.Context(), id, req.ToDecision())
	if HandleFlowError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// --- Helpers ---

// parseRunID извлекает и валидирует {id} из пути.
func parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return uuid.Nil, false
	}
	return id, true
}

// parseIntOr парсит строку в int с дефолтным значением.
func parseIntOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
