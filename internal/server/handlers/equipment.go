package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/store"
)

// EquipmentHandlers serves the equipment registry.
type EquipmentHandlers struct {
	equipment   *store.EquipmentStore
	completions *store.CompletionStore
}

func NewEquipmentHandlers(equipment *store.EquipmentStore, completions *store.CompletionStore) *EquipmentHandlers {
	return &EquipmentHandlers{equipment: equipment, completions: completions}
}

// List handles GET /api/equipment.
func (h *EquipmentHandlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.equipment.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list equipment")
		InternalError(w, "Failed to list equipment")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"equipment": items,
		"count":     len(items),
	})
}

// Get handles GET /api/equipment/{number}.
func (h *EquipmentHandlers) Get(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("number")

	eq, err := h.equipment.Get(r.Context(), number)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(w, "Equipment not found")
			return
		}
		log.Error().Err(err).Str("equipment", number).Msg("Failed to get equipment")
		InternalError(w, "Failed to get equipment")
		return
	}

	JSON(w, http.StatusOK, eq)
}

// History handles GET /api/equipment/{number}/completions.
func (h *EquipmentHandlers) History(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("number")

	if _, err := h.equipment.Get(r.Context(), number); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(w, "Equipment not found")
			return
		}
		log.Error().Err(err).Str("equipment", number).Msg("Failed to get equipment")
		InternalError(w, "Failed to get equipment")
		return
	}

	history, err := h.completions.ListForEquipment(r.Context(), number)
	if err != nil {
		log.Error().Err(err).Str("equipment", number).Msg("Failed to list completions")
		InternalError(w, "Failed to list completions")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"equipment":   number,
		"completions": history,
		"count":       len(history),
	})
}
