package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/database"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 0
	cfg.Server.CORS.Enabled = false
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")

	return cfg
}

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := testConfig(t)

	db, err := database.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv, err := New(cfg, db, WithVersion("test"))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	return srv
}

func TestServer_New(t *testing.T) {
	srv := setupTestServer(t)

	if srv.stores == nil {
		t.Error("expected stores to be initialized")
	}
	if srv.engine == nil {
		t.Error("expected engine to be initialized")
	}
	if srv.completions == nil {
		t.Error("expected completion service to be initialized")
	}
	if srv.bus == nil || srv.hub == nil {
		t.Error("expected event bus and hub to be initialized")
	}
	if srv.retention == nil {
		t.Error("expected run retention sweeper to be initialized")
	}
	if srv.router == nil {
		t.Error("expected router to be initialized")
	}
	if srv.httpServer == nil {
		t.Error("expected http server to be initialized")
	}

	if srv.archiver != nil {
		t.Error("expected no archiver when archiving is disabled")
	}
	if srv.notifier != nil {
		t.Error("expected no notifier when notifications are disabled")
	}
	if srv.watcher != nil {
		t.Error("expected no priority watcher without a priority dir")
	}
	if srv.scheduler != nil {
		t.Error("expected no scheduler when auto-generation is disabled")
	}
}

func TestServer_RejectsBadFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filters.Expressions = []string{`equipment.number ==`}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := New(cfg, db); err == nil {
		t.Error("expected error for an invalid filter expression")
	}
}

func TestServer_RejectsBadCron(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduling.AutoGenerate.Enabled = true
	cfg.Scheduling.AutoGenerate.Cron = "every friday"

	db, err := database.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := New(cfg, db); err == nil {
		t.Error("expected error for an invalid cron spec")
	}
}

func TestServer_Routes(t *testing.T) {
	srv := setupTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"liveness", http.MethodGet, "/health/live", "", http.StatusOK},
		{"readiness", http.MethodGet, "/health/ready", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"technicians", http.MethodGet, "/api/technicians", "", http.StatusOK},
		{"equipment", http.MethodGet, "/api/equipment", "", http.StatusOK},
		{"schedule week", http.MethodGet, "/api/schedule/2026-08-24", "", http.StatusOK},
		{"runs list", http.MethodGet, "/api/runs", "", http.StatusOK},
		{"bad run body", http.MethodPost, "/api/runs", `{"week": `, http.StatusBadRequest},
		{"priority unregistered", http.MethodGet, "/api/priority", "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/nothing", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			} else {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			}
			w := httptest.NewRecorder()

			srv.router.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Errorf("%s %s: expected status %d, got %d: %s", tc.method, tc.path, tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestServer_RequestIDHeader(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()

	srv.router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header on responses")
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := setupTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	time.Sleep(200 * time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("unexpected server error: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Error("server did not shut down in time")
	}
}
