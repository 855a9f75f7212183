package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/parallaxdata/transcript-ingester/internal/models"
	"github.com/parallaxdata/transcript-ingester/internal/store"
)

const curatedContentType = "text/plain; charset=utf-8"

// CuratorConfig holds configuration for the curation step.
type CuratorConfig struct {
	// CuratedPrefix is the key prefix for normalized copies.
	// Defaults to "curated".
	CuratedPrefix string

	// Tags are attached to every curated write. Tagging is best-effort:
	// a store that rejects them gets one untagged retry.
	Tags map[string]string
}

// Curator writes the normalized copy of a pair's text member under a
// deterministic derived key. Writes are content-addressed: when the key
// already holds the same normalized bytes, the existing object is
// returned untouched, so repeated runs over unchanged source issue no
// redundant writes.
type Curator struct {
	store  store.ObjectStore
	config CuratorConfig
	logger *slog.Logger
}

// NewCurator creates a Curator writing through st.
func NewCurator(st store.ObjectStore, config CuratorConfig, logger *slog.Logger) *Curator {
	if config.CuratedPrefix == "" {
		config.CuratedPrefix = "curated"
	}
	if config.Tags == nil {
		config.Tags = map[string]string{
			"project":        "come-near",
			"source":         "transcribe",
			"schema_version": "1",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Curator{store: st, config: config, logger: logger}
}

// CuratedKey derives the destination key for a pair's text member:
// <curated-prefix>/<base-name>.norm.<ext>.
func (c *Curator) CuratedKey(pair models.Pair) string {
	return fmt.Sprintf("%s/%s.norm%s", c.config.CuratedPrefix, path.Base(pair.BaseKey), path.Ext(pair.TextKey))
}

// Curate normalizes the fetched text object and ensures the curated key
// holds the normalized bytes. The returned result is derived solely from
// the normalized content, so byte-identical sources always produce an
// identical CurationResult. A failure here is fatal for the pair only;
// the caller moves on to the next one.
func (c *Curator) Curate(ctx context.Context, pair models.Pair, text models.StoredObject) (*models.CurationResult, error) {
	normalized := []byte(Normalize(text.RawBytes))
	checksum := models.Checksum(normalized)
	curatedKey := c.CuratedKey(pair)
	logCtx := c.logger.With("baseKey", pair.BaseKey, "curatedKey", curatedKey)

	result := &models.CurationResult{
		CuratedKey:       curatedKey,
		CuratedSizeBytes: int64(len(normalized)),
		CuratedChecksum:  checksum,
	}

	existing, err := c.store.Get(ctx, curatedKey)
	switch {
	case err == nil:
		if models.Checksum(existing.Data) == checksum {
			logCtx.Info("Curated file already up to date; skipping write.")
			return result, nil
		}
	case store.KindOf(err) == store.KindNotFound:
		// First curation of this base key.
	default:
		logCtx.Error("Failed to read existing curated object", "error", err)
		return nil, fmt.Errorf("failed to read existing curated object %s: %w", curatedKey, err)
	}

	if err := c.store.Put(ctx, curatedKey, normalized, curatedContentType, c.config.Tags); err != nil {
		if store.KindOf(err) != store.KindAccessDenied || len(c.config.Tags) == 0 {
			logCtx.Error("Failed to write curated object", "error", err)
			return nil, fmt.Errorf("failed to write curated object %s: %w", curatedKey, err)
		}
		logCtx.Warn("Tagging rejected for curated object; retrying without tags", "error", err)
		if err := c.store.Put(ctx, curatedKey, normalized, curatedContentType, nil); err != nil {
			logCtx.Error("Untagged retry failed for curated object", "error", err)
			return nil, fmt.Errorf("failed to write curated object %s: %w", curatedKey, err)
		}
	}

	logCtx.Info("Curated file written.", "sizeBytes", len(normalized))
	return result, nil
}
