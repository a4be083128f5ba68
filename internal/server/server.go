package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/plantops/pmsched/internal/archive"
	"github.com/plantops/pmsched/internal/completion"
	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/database"
	"github.com/plantops/pmsched/internal/engine"
	"github.com/plantops/pmsched/internal/events"
	"github.com/plantops/pmsched/internal/notify"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/priority"
	"github.com/plantops/pmsched/internal/scheduler"
	"github.com/plantops/pmsched/internal/store"
)

type Server struct {
	cfg         *config.Config
	db          *database.DB
	stores      *store.Stores
	engine      *engine.Engine
	completions *completion.Service
	bus         *events.Bus
	hub         *events.Hub
	archiver    *archive.Archiver
	notifier    *notify.Notifier
	watcher     *priority.Watcher
	scheduler   *scheduler.Scheduler
	retention   *store.RunRetention
	httpServer  *http.Server
	router      *Router
	version     string
}

type Option func(*Server)

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New wires the scheduling engine and its subsystems onto an HTTP server.
// Optional subsystems that fail to come up are disabled with a warning.
// A filter that does not compile or a bad auto-generate cron spec fails
// construction; both would silently change what gets scheduled.
func New(cfg *config.Config, db *database.DB, opts ...Option) (*Server, error) {
	srv := &Server{
		cfg:     cfg,
		db:      db,
		stores:  store.New(db),
		version: "dev",
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.bus = events.NewBus()
	srv.hub = events.NewHub(srv.bus)

	hooks := []engine.RunHook{events.NewRunBridge(srv.bus)}

	if cfg.Archive.Enabled {
		archiver, err := archive.NewArchiver(context.Background(), &cfg.Archive)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create archiver, snapshots disabled")
		} else {
			srv.archiver = archiver
			hooks = append(hooks, archiver)
		}
	}

	if cfg.Notify.Enabled {
		srv.notifier = notify.New(cfg.Notify)
		hooks = append(hooks, srv.notifier)
	}

	engineOpts := []engine.Option{engine.WithHooks(hooks...)}

	if cfg.Priority.Dir != "" {
		if ts := srv.setupTiers(); ts != nil {
			engineOpts = append(engineOpts, engine.WithTierSource(ts))
		}
	}

	if len(cfg.Filters.Expressions) > 0 {
		filters, err := pm.CompileFilters(cfg.Filters.Expressions)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, engine.WithFilters(filters))
	}

	srv.engine = engine.New(srv.stores, cfg.Scheduling, engineOpts...)
	srv.completions = completion.NewService(db, srv.stores, completion.WithBus(srv.bus))
	srv.retention = store.NewRunRetention(srv.stores.Runs, cfg.Scheduling.RunRetentionDays)

	if cfg.Scheduling.AutoGenerate.Enabled {
		sched, err := scheduler.New(srv.engine, srv.stores.Schedules, cfg.Scheduling.AutoGenerate)
		if err != nil {
			return nil, fmt.Errorf("configuring auto-generation: %w", err)
		}
		srv.scheduler = sched
	}

	srv.router = NewRouter(srv)
	srv.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return srv, nil
}

// setupTiers builds the engine's tier source from the priority directory.
// A broken directory disables tiers rather than blocking startup; every
// asset then falls back to the default tier.
func (s *Server) setupTiers() engine.TierSource {
	cfg := s.cfg.Priority

	if cfg.Watch {
		watcher, err := priority.NewWatcher(cfg.Dir, cfg.Pattern, cfg.Debounce)
		if err == nil {
			watcher.OnReload = func(lists *priority.Lists) {
				s.bus.Publish(context.Background(), events.TopicPriorityReloaded, map[string]any{
					"files":  lists.Files,
					"assets": len(lists.Tiers),
				})
			}
			s.watcher = watcher
			return watcher
		}
		log.Warn().Err(err).Str("dir", cfg.Dir).Msg("Priority watching unavailable, loading once")
	}

	lists, err := priority.Load(cfg.Dir, cfg.Pattern)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.Dir).Msg("Priority lists unavailable, using default tier")
		return nil
	}

	return engine.StaticTiers(lists.Tiers)
}

func (s *Server) Start(ctx context.Context) error {
	log.Info().
		Str("addr", s.cfg.Server.Address()).
		Msg("Starting server")

	if s.watcher != nil {
		s.watcher.Start()
	}

	if s.scheduler != nil {
		s.scheduler.Start()
	}

	s.retention.Start()

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			log.Warn().Err(err).Msg("Error stopping priority watcher")
		}
	}

	if s.notifier != nil {
		s.notifier.Stop()
	}

	s.retention.Stop()
	s.hub.Stop()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) DB() *database.DB {
	return s.db
}

func (s *Server) Stores() *store.Stores {
	return s.stores
}

func (s *Server) Engine() *engine.Engine {
	return s.engine
}

func (s *Server) Config() *config.Config {
	return s.cfg
}
