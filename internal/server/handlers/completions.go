package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/completion"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

// CompletionHandlers records performed maintenance.
type CompletionHandlers struct {
	svc *completion.Service
}

func NewCompletionHandlers(svc *completion.Service) *CompletionHandlers {
	return &CompletionHandlers{svc: svc}
}

// CreateCompletionRequest is the request body for recording a completion.
// CompletedOn is a plain date; empty means today.
type CreateCompletionRequest struct {
	Equipment    string `json:"equipment"`
	Category     string `json:"category"`
	Technician   string `json:"technician"`
	CompletedOn  string `json:"completed_on,omitempty"`
	LaborMinutes int    `json:"labor_minutes,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Create handles POST /api/completions.
func (h *CompletionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Invalid JSON body: "+err.Error())
		return
	}

	in := completion.Input{
		Equipment:    req.Equipment,
		Category:     req.Category,
		Technician:   req.Technician,
		LaborMinutes: req.LaborMinutes,
		Notes:        req.Notes,
	}
	if req.CompletedOn != "" {
		day, err := pm.ParseDate(req.CompletedOn)
		if err != nil {
			BadRequest(w, "Invalid completed_on: "+err.Error())
			return
		}
		in.CompletedOn = day
	}

	rec, err := h.svc.Record(ctx, in)
	if err != nil {
		var verr *completion.ValidationError
		switch {
		case errors.As(err, &verr):
			ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_FAILED", verr.Message, map[string]string{
				"field": verr.Field,
			})
		case errors.Is(err, store.ErrNotFound):
			NotFound(w, "Equipment not found")
		default:
			log.Error().Err(err).Str("equipment", req.Equipment).Msg("Failed to record completion")
			InternalError(w, "Failed to record completion")
		}
		return
	}

	JSON(w, http.StatusCreated, rec)
}
