package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/engine"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

const defaultRunListLimit = 20

// RunHandlers covers run generation and run history.
type RunHandlers struct {
	engine *engine.Engine
	runs   *store.RunStore
}

func NewRunHandlers(eng *engine.Engine, runs *store.RunStore) *RunHandlers {
	return &RunHandlers{engine: eng, runs: runs}
}

// CreateRunRequest is the request body for triggering a run. Week accepts
// any date and is normalized to its Monday; empty targets the week after
// the current one.
type CreateRunRequest struct {
	Week         string   `json:"week,omitempty"`
	WeeklyTarget int      `json:"weekly_target,omitempty"`
	Exclusions   []string `json:"exclusions,omitempty"`
	DryRun       bool     `json:"dry_run,omitempty"`
}

// Create handles POST /api/runs.
func (h *RunHandlers) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Invalid JSON body: "+err.Error())
		return
	}

	if req.WeeklyTarget < 0 {
		BadRequest(w, "weekly_target must be non-negative")
		return
	}

	week := pm.WeekStart(time.Now()).AddDate(0, 0, 7)
	if req.Week != "" {
		day, err := pm.ParseDate(req.Week)
		if err != nil {
			BadRequest(w, "Invalid week: "+err.Error())
			return
		}
		week = pm.WeekStart(day)
	}

	result, err := h.engine.Generate(ctx, engine.Request{
		Week:         week,
		WeeklyTarget: req.WeeklyTarget,
		Exclusions:   req.Exclusions,
		DryRun:       req.DryRun,
	})
	switch {
	case errors.Is(err, engine.ErrWeekBusy):
		Conflict(w, err.Error())
		return
	case errors.Is(err, engine.ErrInvalidWeek):
		BadRequest(w, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("week", pm.FormatDate(week)).Msg("Generation failed")
		InternalError(w, "Generation failed: "+err.Error())
		return
	}

	JSON(w, http.StatusOK, result)
}

// List handles GET /api/runs.
func (h *RunHandlers) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var week *time.Time
	if raw := r.URL.Query().Get("week"); raw != "" {
		day, err := pm.ParseDate(raw)
		if err != nil {
			BadRequest(w, "Invalid week: "+err.Error())
			return
		}
		monday := pm.WeekStart(day)
		week = &monday
	}

	runs, err := h.runs.List(ctx, week, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list runs")
		InternalError(w, "Failed to list runs")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// Get handles GET /api/runs/{id}.
func (h *RunHandlers) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	run, err := h.runs.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		NotFound(w, "Run not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to get run")
		InternalError(w, "Failed to get run")
		return
	}

	JSON(w, http.StatusOK, run)
}
