package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parallaxdata/transcript-ingester/internal/models"
	"github.com/parallaxdata/transcript-ingester/internal/store"
)

// Defaults for the manifest producer identity.
const (
	DefaultIngesterName    = "parallax-ingester"
	DefaultIngesterVersion = "0.1.0"
)

// ManifestConfig holds configuration for manifest emission.
type ManifestConfig struct {
	// ManifestPrefix is the key prefix for manifest objects.
	// Defaults to "manifests".
	ManifestPrefix string

	// Ingester identifies the producer recorded in each manifest.
	Ingester models.IngesterInfo
}

// ManifestWriter aggregates the entries of one run into a dated audit
// manifest and persists it under a date-partitioned key. A manifest is
// written exactly once and never mutated.
type ManifestWriter struct {
	store  store.ObjectStore
	config ManifestConfig
	logger *slog.Logger

	// Overridable for tests.
	now   func() time.Time
	newID func() string
}

// NewManifestWriter creates a ManifestWriter persisting through st.
func NewManifestWriter(st store.ObjectStore, config ManifestConfig, logger *slog.Logger) *ManifestWriter {
	if config.ManifestPrefix == "" {
		config.ManifestPrefix = "manifests"
	}
	if config.Ingester.Name == "" {
		config.Ingester.Name = DefaultIngesterName
	}
	if config.Ingester.Version == "" {
		config.Ingester.Version = DefaultIngesterVersion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestWriter{
		store:  st,
		config: config,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:8] },
	}
}

// Write persists one manifest covering entries and returns its key. The
// batch ID combines the current UTC time at nanosecond resolution with a
// run-local random component, so concurrent runs in the same instant
// still produce distinct manifests. A store failure is reported to the
// caller; nothing already written is rolled back.
func (w *ManifestWriter) Write(ctx context.Context, entries []models.ManifestEntry, sourcePrefix string) (string, error) {
	now := w.now().UTC()
	dt := now.Format("2006-01-02")
	batchID := fmt.Sprintf("ingest-%s-%s", now.Format(time.RFC3339Nano), w.newID())

	manifest := models.Manifest{
		SchemaVersion: models.SchemaVersion,
		BatchID:       batchID,
		Date:          dt,
		SourceBucket:  w.store.Bucket(),
		SourcePrefix:  sourcePrefix,
		Ingester:      w.config.Ingester,
		Entries:       entries,
	}

	content, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	key := fmt.Sprintf("%s/dt=%s/%s.json", w.config.ManifestPrefix, dt, batchID)
	if err := w.store.Put(ctx, key, content, "application/json", nil); err != nil {
		w.logger.Error("Failed to write manifest", "key", key, "error", err)
		return "", fmt.Errorf("failed to write manifest %s: %w", key, err)
	}

	w.logger.Info("Manifest written.", "key", key, "batchId", batchID, "entryCount", len(entries))
	return key, nil
}
