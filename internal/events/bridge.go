package events

import (
	"context"

	"github.com/plantops/pmsched/internal/engine"
	"github.com/plantops/pmsched/internal/pm"
)

// RunEventPayload is the body of a run.completed event. Entries stay out
// of the feed; clients fetch the schedule over the API when they need it.
type RunEventPayload struct {
	RunID         string         `json:"run_id"`
	Week          string         `json:"week"`
	Status        string         `json:"status"`
	Created       int            `json:"created"`
	Candidates    int            `json:"candidates"`
	Overflow      int            `json:"overflow"`
	PerTechnician map[string]int `json:"per_technician,omitempty"`
}

// RunBridge forwards committed generation runs onto the bus.
type RunBridge struct {
	bus *Bus
}

func NewRunBridge(bus *Bus) *RunBridge {
	return &RunBridge{bus: bus}
}

func (b *RunBridge) RunCompleted(ctx context.Context, result *engine.Result) {
	b.bus.Publish(ctx, TopicRunCompleted, RunEventPayload{
		RunID:         result.RunID,
		Week:          pm.FormatDate(result.Week),
		Status:        result.Status,
		Created:       result.Created,
		Candidates:    result.Summary.Candidates,
		Overflow:      len(result.Summary.Overflow),
		PerTechnician: result.Summary.PerTechnician,
	})
}
