package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/errors"
	"github.com/nahidhasan98/perfbudget/internal/models"
	"github.com/nahidhasan98/perfbudget/internal/storage"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
	"github.com/nahidhasan98/perfbudget/internal/validation"
)

const (
	defaultListLimit  = 20
	defaultTrendLimit = 30
)

// ListRuns handles GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := map[string]string{
		"limit":  query.Get("limit"),
		"offset": query.Get("offset"),
		"branch": query.Get("branch"),
	}
	if appErr := h.validator.ValidateQueryParams(params); appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	opts := storage.ListOptions{
		Branch: params["branch"],
		Limit:  validation.IntParam(params["limit"], defaultListLimit),
		Offset: validation.IntParam(params["offset"], 0),
	}

	runs, err := h.store.ListRuns(r.Context(), opts)
	if err != nil {
		h.writeAppError(w, errors.DatabaseError(err))
		return
	}

	summaries := make([]models.RunSummary, 0, len(runs))
	for i := range runs {
		summaries = append(summaries, models.NewRunSummary(&runs[i]))
	}

	h.writeJSON(w, &models.RunListResponse{
		Runs:   summaries,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}, http.StatusOK)
}

// GetRun handles GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, appErr := h.loadRun(r, r.PathValue("id"))
	if appErr != nil {
		h.writeAppError(w, appErr)
		return
	}
	h.writeJSON(w, run, http.StatusOK)
}

// GetRunAnalysis handles GET /api/runs/{id}/analysis
func (h *Handler) GetRunAnalysis(w http.ResponseWriter, r *http.Request) {
	run, appErr := h.loadRun(r, r.PathValue("id"))
	if appErr != nil {
		h.writeAppError(w, appErr)
		return
	}
	h.writeJSON(w, analyzer.New(h.log).AnalyzeChunks(run.Chunks), http.StatusOK)
}

// Diff handles GET /api/diff?base=&head=
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	baseID, headID := query.Get("base"), query.Get("head")
	if baseID == "" || headID == "" {
		h.writeAppError(w, errors.ValidationError("'base' and 'head' parameters are required"))
		return
	}

	base, appErr := h.loadRun(r, baseID)
	if appErr != nil {
		h.writeAppError(w, appErr)
		return
	}
	head, appErr := h.loadRun(r, headID)
	if appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	diff := analyzer.New(h.log).CompareBundles(head.Chunks, base.Chunks)
	result := threshold.Engine{}.CompareBundleSize(
		float64(head.TotalSize),
		float64(base.TotalSize),
		h.thresholds.Regression,
		h.thresholds.Warning,
	)

	h.writeJSON(w, &models.DiffResponse{
		Base:   models.NewRunSummary(base),
		Head:   models.NewRunSummary(head),
		Diff:   diff,
		Result: result,
	}, http.StatusOK)
}

// Trends handles GET /api/trends?metric=&branch=&limit=
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	metric := query.Get("metric")
	if appErr := h.validator.ValidateMetric(metric); appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	params := map[string]string{
		"limit":  query.Get("limit"),
		"branch": query.Get("branch"),
	}
	if appErr := h.validator.ValidateQueryParams(params); appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	points, err := h.store.Trend(r.Context(), metric, params["branch"], validation.IntParam(params["limit"], defaultTrendLimit))
	if err != nil {
		h.writeAppError(w, errors.DatabaseError(err))
		return
	}
	if points == nil {
		points = []storage.TrendPoint{}
	}

	h.writeJSON(w, &models.TrendResponse{
		Metric: metric,
		Branch: params["branch"],
		Points: points,
	}, http.StatusOK)
}

// loadRun fetches a run by id, mapping storage errors to API errors
func (h *Handler) loadRun(r *http.Request, id string) (*storage.Run, *errors.AppError) {
	if !h.validator.IsValidRunID(id) {
		return nil, errors.ValidationError("Invalid run id")
	}

	run, err := h.store.GetRun(r.Context(), id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.RunNotFound(id)
	}
	if err != nil {
		return nil, errors.DatabaseError(err)
	}
	return run, nil
}
