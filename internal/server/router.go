package server

import (
	"net/http"

	"github.com/plantops/pmsched/internal/metrics"
	"github.com/plantops/pmsched/internal/server/handlers"
)

type Router struct {
	server      *Server
	mux         *http.ServeMux
	middlewares []Middleware
}

type Middleware func(http.Handler) http.Handler

func NewRouter(srv *Server) *Router {
	r := &Router{
		server: srv,
		mux:    http.NewServeMux(),
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

func (r *Router) setupMiddleware() {
	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	if r.server.cfg.Server.CORS.Enabled {
		r.Use(CORSMiddleware(r.server.cfg.Server.CORS))
	}
	if r.server.cfg.Server.MaxBodySize > 0 {
		r.Use(MaxBodySizeMiddleware(r.server.cfg.Server.MaxBodySize))
	}
	r.Use(MetricsMiddleware)
}

func (r *Router) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *Router) setupRoutes() {
	health := handlers.NewHealthHandlers(r.server.db, r.server.archiver, r.server.hub, r.server.version)
	r.mux.HandleFunc("GET /health", health.Health)
	r.mux.HandleFunc("GET /health/live", health.Liveness)
	r.mux.HandleFunc("GET /health/ready", health.Readiness)
	r.mux.HandleFunc("GET /health/stats", health.Stats)

	r.mux.Handle("GET /metrics", metrics.Handler())

	runs := handlers.NewRunHandlers(r.server.engine, r.server.stores.Runs)
	r.mux.HandleFunc("POST /api/runs", runs.Create)
	r.mux.HandleFunc("GET /api/runs", runs.List)
	r.mux.HandleFunc("GET /api/runs/{id}", runs.Get)

	schedule := handlers.NewScheduleHandlers(r.server.stores.Schedules)
	r.mux.HandleFunc("GET /api/schedule/{week}", schedule.GetWeek)

	technicians := handlers.NewTechnicianHandlers(r.server.stores.Technicians)
	r.mux.HandleFunc("GET /api/technicians", technicians.List)
	r.mux.HandleFunc("POST /api/technicians", technicians.Upsert)

	equipment := handlers.NewEquipmentHandlers(r.server.stores.Equipment, r.server.stores.Completions)
	r.mux.HandleFunc("GET /api/equipment", equipment.List)
	r.mux.HandleFunc("GET /api/equipment/{number}", equipment.Get)
	r.mux.HandleFunc("GET /api/equipment/{number}/completions", equipment.History)

	completions := handlers.NewCompletionHandlers(r.server.completions)
	r.mux.HandleFunc("POST /api/completions", completions.Create)

	stream := handlers.NewEventHandlers(r.server.hub)
	r.mux.HandleFunc("GET /api/events", stream.Stream)

	if r.server.watcher != nil {
		prio := handlers.NewPriorityHandlers(r.server.watcher)
		r.mux.HandleFunc("GET /api/priority", prio.Get)
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(r.mux)

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	handler.ServeHTTP(w, req)
}
