package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/plantops/pmsched/internal/config"
	"github.com/plantops/pmsched/internal/engine"
	"github.com/plantops/pmsched/internal/metrics"
	"github.com/plantops/pmsched/internal/pm"
	"github.com/plantops/pmsched/internal/store"
)

// Manifest describes one archived snapshot.
type Manifest struct {
	RunID       string    `yaml:"run_id"`
	Week        string    `yaml:"week"`
	Status      string    `yaml:"status"`
	Entries     int       `yaml:"entries"`
	Candidates  int       `yaml:"candidates"`
	Overflow    int       `yaml:"overflow"`
	GeneratedAt time.Time `yaml:"generated_at"`
	File        string    `yaml:"file"`
}

// Archiver snapshots committed schedules after each generation run. The
// CSV goes through the compression wrapper; the manifest stays plain so it
// is greppable in place.
type Archiver struct {
	manifests Backend
	snapshots Backend
	ext       string
}

// NewArchiver builds an archiver from configuration.
func NewArchiver(ctx context.Context, cfg *config.ArchiveConfig) (*Archiver, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewArchiverWithBackend(backend, cfg.Compression), nil
}

// NewArchiverWithBackend wraps an existing backend, compressing snapshots
// with the named algorithm ("gzip", "zstd", or "none").
func NewArchiverWithBackend(backend Backend, compression string) *Archiver {
	return &Archiver{
		manifests: backend,
		snapshots: NewCompressedBackend(backend, compression),
		ext:       Ext(compression),
	}
}

// RunCompleted archives the run's schedule. Only committed runs produce a
// snapshot; failures are logged and counted, never propagated.
func (a *Archiver) RunCompleted(ctx context.Context, result *engine.Result) {
	if result.DryRun || result.Status != store.RunCompleted {
		return
	}

	week := pm.FormatDate(result.Week)
	csvKey := fmt.Sprintf("weeks/%s/%s.csv%s", week, result.RunID, a.ext)
	manifestKey := fmt.Sprintf("weeks/%s/%s.yaml", week, result.RunID)

	if err := a.snapshots.Put(ctx, csvKey, bytes.NewReader(snapshotCSV(result.Entries))); err != nil {
		metrics.RecordArchiveWrite(err)
		log.Error().Err(err).Str("key", csvKey).Msg("Failed to archive schedule snapshot")
		return
	}

	manifest := Manifest{
		RunID:       result.RunID,
		Week:        week,
		Status:      result.Status,
		Entries:     result.Created,
		Candidates:  result.Summary.Candidates,
		Overflow:    len(result.Summary.Overflow),
		GeneratedAt: result.FinishedAt.UTC(),
		File:        csvKey,
	}
	data, err := yaml.Marshal(manifest)
	if err == nil {
		err = a.manifests.Put(ctx, manifestKey, bytes.NewReader(data))
	}
	if err != nil {
		metrics.RecordArchiveWrite(err)
		log.Error().Err(err).Str("key", manifestKey).Msg("Failed to archive run manifest")
		return
	}

	metrics.RecordArchiveWrite(nil)
	log.Info().
		Str("run_id", result.RunID).
		Str("key", csvKey).
		Int("entries", result.Created).
		Msg("Schedule archived")
}

// Ping probes the backend for health checks. The key is never written, so
// only connectivity errors surface.
func (a *Archiver) Ping(ctx context.Context) error {
	_, err := a.manifests.Exists(ctx, "probe")
	return err
}

// ReadManifest loads one archived run's manifest.
func (a *Archiver) ReadManifest(ctx context.Context, week, runID string) (*Manifest, error) {
	key := fmt.Sprintf("weeks/%s/%s.yaml", week, runID)
	rc, err := a.manifests.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var m Manifest
	if err := yaml.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", key, err)
	}

	return &m, nil
}

// snapshotCSV renders schedule entries in a fixed column order.
func snapshotCSV(entries []pm.ScheduleEntry) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"week_start", "equipment_no", "category", "technician", "scheduled_on", "status"})
	for _, e := range entries {
		w.Write([]string{
			pm.FormatDate(e.WeekStart),
			e.Equipment,
			string(e.Category),
			e.Technician,
			pm.FormatDate(e.ScheduledOn),
			string(e.Status),
		})
	}
	w.Flush()

	return buf.Bytes()
}
