package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

// TechnicianHandlers manages the assignment roster.
type TechnicianHandlers struct {
	technicians *store.TechnicianStore
}

func NewTechnicianHandlers(technicians *store.TechnicianStore) *TechnicianHandlers {
	return &TechnicianHandlers{technicians: technicians}
}

// UpsertTechnicianRequest creates or updates a roster member, keyed by
// name. Active defaults to true when omitted.
type UpsertTechnicianRequest struct {
	Name      string `json:"name"`
	Active    *bool  `json:"active,omitempty"`
	SortOrder int    `json:"sort_order,omitempty"`
}

// List handles GET /api/technicians. The active roster by default; ?all=1
// includes deactivated members.
func (h *TechnicianHandlers) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activeOnly := r.URL.Query().Get("all") == ""
	technicians, err := h.technicians.List(ctx, activeOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list technicians")
		InternalError(w, "Failed to list technicians")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"technicians": technicians,
		"count":       len(technicians),
	})
}

// Upsert handles POST /api/technicians.
func (h *TechnicianHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpsertTechnicianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Invalid JSON body: "+err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		BadRequest(w, "Name is required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	technician := &pm.Technician{
		Name:      name,
		Active:    active,
		SortOrder: req.SortOrder,
	}
	if err := h.technicians.Upsert(ctx, technician); err != nil {
		log.Error().Err(err).Str("name", name).Msg("Failed to upsert technician")
		InternalError(w, "Failed to save technician")
		return
	}

	JSON(w, http.StatusOK, technician)
}
