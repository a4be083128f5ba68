// Package scheduler runs weekly generation on a cron spec, typically late
// Friday so the coming week's schedule is ready before Monday.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/engine"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

// runTimeout bounds one scheduled generation.
const runTimeout = 5 * time.Minute

// Generator is the engine surface the scheduler drives.
type Generator interface {
	Generate(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Scheduler fires one generation per cron tick, always targeting the week
// after the current one.
type Scheduler struct {
	gen       Generator
	schedules *store.ScheduleStore
	cfg       config.AutoGenerateConfig
	cron      *cron.Cron
	now       func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New builds the scheduler. The cron spec uses the standard five fields
// plus descriptors like @weekly.
func New(gen Generator, schedules *store.ScheduleStore, cfg config.AutoGenerateConfig, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		gen:       gen,
		schedules: schedules,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	s.cron = cron.New(cron.WithParser(parser))
	if _, err := s.cron.AddFunc(cfg.Cron, s.tick); err != nil {
		return nil, fmt.Errorf("parsing cron spec %q: %w", cfg.Cron, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().
		Str("cron", s.cfg.Cron).
		Bool("regenerate", s.cfg.Regenerate).
		Msg("Auto-generation scheduler started")
}

// Stop halts the cron loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Auto-generation scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.runOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled generation failed")
	}
}

// runOnce targets the Monday after the current week. Weeks that already
// carry entries are left alone unless regeneration is configured; a manual
// run or an earlier tick has done the work.
func (s *Scheduler) runOnce(ctx context.Context) error {
	week := pm.WeekStart(s.now()).AddDate(0, 0, 7)

	if !s.cfg.Regenerate {
		existing, err := s.schedules.ListWeek(ctx, week)
		if err != nil {
			return fmt.Errorf("checking week %s: %w", pm.FormatDate(week), err)
		}
		if len(existing) > 0 {
			log.Info().
				Str("week", pm.FormatDate(week)).
				Int("entries", len(existing)).
				Msg("Week already scheduled, skipping auto-generation")
			return nil
		}
	}

	result, err := s.gen.Generate(ctx, engine.Request{Week: week})
	if err != nil {
		return fmt.Errorf("generating week %s: %w", pm.FormatDate(week), err)
	}

	log.Info().
		Str("run_id", result.RunID).
		Str("week", pm.FormatDate(week)).
		Str("status", result.Status).
		Int("created", result.Created).
		Msg("Scheduled generation finished")
	return nil
}
