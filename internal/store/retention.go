package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// sweepInterval is how often the retention sweep runs. The first sweep
// fires shortly after start so a long-stopped server trims promptly.
const (
	sweepInterval   = time.Hour
	firstSweepDelay = time.Minute
)

// RunRetention trims old run records in the background. Runs older than
// the retention window disappear; the archived snapshots, when enabled,
// remain the long-term record.
type RunRetention struct {
	runs      *RunStore
	retention time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewRunRetention builds the sweeper. retentionDays <= 0 disables it;
// Start and Stop on a disabled sweeper are no-ops.
func NewRunRetention(runs *RunStore, retentionDays int) *RunRetention {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RunRetention{
		runs:   runs,
		ctx:    ctx,
		cancel: cancel,
	}
	if retentionDays > 0 {
		r.retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return r
}

// Start begins the background sweep.
func (r *RunRetention) Start() {
	if r.retention == 0 {
		return
	}
	r.wg.Add(1)
	go r.sweepLoop()
	log.Info().
		Dur("retention", r.retention).
		Msg("Run retention sweep started")
}

// Stop halts the sweep and waits for an in-flight pass to finish.
func (r *RunRetention) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *RunRetention) sweepLoop() {
	defer r.wg.Done()

	timer := time.NewTimer(firstSweepDelay)
	defer timer.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
			r.sweep()
			timer.Reset(sweepInterval)
		}
	}
}

func (r *RunRetention) sweep() {
	cutoff := time.Now().Add(-r.retention)
	n, err := r.runs.DeleteOlderThan(r.ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Run retention sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Trimmed old run records")
	}
}
