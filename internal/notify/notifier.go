// Package notify posts run outcomes to configured webhook endpoints so
// planners hear about fresh schedules, and about empty-roster weeks,
// without polling the API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/engine"
	"github.com/plantops/pmsched/internal/metrics"
	"github.com/plantops/pmsched/internal/pm"
)

// runNotification is the webhook body, one POST per configured URL per
// run. Entries stay out; consumers fetch the schedule over the API.
type runNotification struct {
	Event         string         `json:"event"`
	RunID         string         `json:"run_id"`
	Week          string         `json:"week"`
	Status        string         `json:"status"`
	Created       int            `json:"created"`
	Candidates    int            `json:"candidates"`
	Overflow      int            `json:"overflow"`
	PerTechnician map[string]int `json:"per_technician,omitempty"`
	FinishedAt    time.Time      `json:"finished_at"`
}

// Notifier delivers run notifications with exponential backoff. Deliveries
// run on goroutines tied to the notifier's lifetime, not to the generation
// request, so a canceled API call does not lose the alert.
type Notifier struct {
	cfg    config.NotifyConfig
	client *http.Client
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.NotifyConfig) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Stop cancels pending deliveries and waits for the workers to drain.
func (n *Notifier) Stop() {
	n.cancel()
	n.wg.Wait()
}

// RunCompleted implements the engine run hook. It fires for diagnostic
// no_technicians runs too; an empty week is exactly what a planner wants
// to hear about.
func (n *Notifier) RunCompleted(_ context.Context, result *engine.Result) {
	if !n.cfg.Enabled || len(n.cfg.URLs) == 0 {
		return
	}

	payload, err := json.Marshal(runNotification{
		Event:         "run.completed",
		RunID:         result.RunID,
		Week:          pm.FormatDate(result.Week),
		Status:        result.Status,
		Created:       result.Created,
		Candidates:    result.Summary.Candidates,
		Overflow:      len(result.Summary.Overflow),
		PerTechnician: result.Summary.PerTechnician,
		FinishedAt:    result.FinishedAt,
	})
	if err != nil {
		log.Error().Err(err).Str("run_id", result.RunID).Msg("Failed to encode run notification")
		return
	}

	for _, url := range n.cfg.URLs {
		n.wg.Add(1)
		go n.deliver(url, payload, result.RunID)
	}
}

func (n *Notifier) deliver(url string, payload []byte, runID string) {
	defer n.wg.Done()

	for attempt := 1; ; attempt++ {
		err := n.post(url, payload)
		if err == nil {
			metrics.RecordWebhookDelivery("delivered")
			log.Info().
				Str("run_id", runID).
				Str("endpoint", url).
				Int("attempt", attempt).
				Msg("Run notification delivered")
			return
		}

		if attempt >= n.cfg.MaxAttempts {
			metrics.RecordWebhookDelivery("failed")
			log.Warn().
				Err(err).
				Str("run_id", runID).
				Str("endpoint", url).
				Int("attempts", attempt).
				Msg("Run notification dropped after max attempts")
			return
		}

		metrics.RecordWebhookDelivery("retried")
		log.Debug().
			Err(err).
			Str("run_id", runID).
			Str("endpoint", url).
			Int("attempt", attempt).
			Msg("Run notification failed, backing off")

		select {
		case <-n.ctx.Done():
			return
		case <-time.After(n.backoff(attempt)):
		}
	}
}

func (n *Notifier) post(url string, payload []byte) error {
	req, err := http.NewRequestWithContext(n.ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

func (n *Notifier) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}
	return n.cfg.RetryDelay * time.Duration(1<<(attempt-1))
}
