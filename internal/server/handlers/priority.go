package handlers

import (
	"net/http"

	"github.com/plantops/pmsched/internal/priority"
)

// PriorityHandlers exposes the loaded priority lists. Registered only when
// a priority directory is configured.
type PriorityHandlers struct {
	watcher *priority.Watcher
}

func NewPriorityHandlers(watcher *priority.Watcher) *PriorityHandlers {
	return &PriorityHandlers{watcher: watcher}
}

// Get handles GET /api/priority.
func (h *PriorityHandlers) Get(w http.ResponseWriter, r *http.Request) {
	lists := h.watcher.Current()

	JSON(w, http.StatusOK, map[string]any{
		"files": lists.Files,
		"count": len(lists.Tiers),
		"tiers": lists.Tiers,
	})
}
