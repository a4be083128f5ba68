package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

// ScheduleHandlers serves committed weekly schedules.
type ScheduleHandlers struct {
	schedules *store.ScheduleStore
}

func NewScheduleHandlers(schedules *store.ScheduleStore) *ScheduleHandlers {
	return &ScheduleHandlers{schedules: schedules}
}

// GetWeek handles GET /api/schedule/{week}. Any date within the week
// works; it is normalized to the Monday.
func (h *ScheduleHandlers) GetWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	day, err := pm.ParseDate(r.PathValue("week"))
	if err != nil {
		BadRequest(w, "Invalid week: "+err.Error())
		return
	}
	week := pm.WeekStart(day)

	entries, err := h.schedules.ListWeek(ctx, week)
	if err != nil {
		log.Error().Err(err).Str("week", pm.FormatDate(week)).Msg("Failed to list schedule")
		InternalError(w, "Failed to list schedule")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"week":    pm.FormatDate(week),
		"entries": entries,
		"count":   len(entries),
	})
}
