package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parallaxdata/transcript-ingester/internal/models"
	"github.com/parallaxdata/transcript-ingester/internal/store"
)

// States of a single ingestion run. MANIFESTED, EMPTY_SUCCESS and
// ABORTED are terminal.
const (
	StateInit          = "INIT"
	StateHealthChecked = "HEALTH_CHECKED"
	StateDiscovered    = "DISCOVERED"
	StateManifested    = "MANIFESTED"
	StateEmptySuccess  = "EMPTY_SUCCESS"
	StateAborted       = "ABORTED"
)

// DefaultHealthKey is the well-known liveness marker location.
const DefaultHealthKey = "parallax/health/healthcheck.txt"

// PipelineConfig holds configuration for one ingestion pipeline.
type PipelineConfig struct {
	// HealthKey is where the liveness record is written.
	// Defaults to DefaultHealthKey.
	HealthKey string

	// SensitivityTag is recorded on every manifest entry.
	// Defaults to "low".
	SensitivityTag string
}

// Summary reports the aggregate outcome of one run.
type Summary struct {
	State           string
	PairsDiscovered int
	PairsProcessed  int
	EntriesWritten  int
	ManifestKey     string
	ManifestWritten bool
}

// Success reports whether the run reached a successful terminal state.
// An empty prefix is a successful run.
func (s Summary) Success() bool {
	return s.State == StateManifested || s.State == StateEmptySuccess
}

// Pipeline composes discovery, curation and manifest emission into one
// ingestion run. Execution is strictly sequential: pairs are processed
// one at a time, in discovery order, so manifest ordering stays
// deterministic and store-call volume stays auditable. Safety across
// repeated or concurrent runs comes from the Curator's checksum
// short-circuit, not from locking.
type Pipeline struct {
	store     store.ObjectStore
	discovery *Discovery
	curator   *Curator
	manifests *ManifestWriter
	recorder  RunRecorder
	config    PipelineConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline creates an ingestion pipeline. recorder may be nil, in
// which case no run ledger is kept.
func NewPipeline(
	st store.ObjectStore,
	discovery *Discovery,
	curator *Curator,
	manifests *ManifestWriter,
	recorder RunRecorder,
	config PipelineConfig,
	logger *slog.Logger,
) (*Pipeline, error) {
	if st == nil {
		return nil, ErrStoreRequired
	}
	if discovery == nil {
		return nil, ErrDiscoveryRequired
	}
	if curator == nil {
		return nil, ErrCuratorRequired
	}
	if manifests == nil {
		return nil, ErrManifestWriterRequired
	}
	if recorder == nil {
		recorder = NoopRunRecorder{}
	}
	if config.HealthKey == "" {
		config.HealthKey = DefaultHealthKey
	}
	if config.SensitivityTag == "" {
		config.SensitivityTag = "low"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     st,
		discovery: discovery,
		curator:   curator,
		manifests: manifests,
		recorder:  recorder,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Run executes one ingestion over prefix. It aborts wholesale only at
// the pre-flight stage; from discovery on, a failing pair is dropped and
// the run continues with the next one. The returned Summary is valid
// even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context, prefix string) (Summary, error) {
	summary := Summary{State: StateInit}
	logCtx := p.logger.With("bucket", p.store.Bucket(), "prefix", prefix)
	logCtx.Info("Starting ingestion run.")

	recorder := p.recorder
	if err := recorder.Start(ctx, p.store.Bucket(), prefix); err != nil {
		logCtx.Warn("Run recorder unavailable; continuing without run ledger", "error", err)
		recorder = NoopRunRecorder{}
	}

	// --- 1. Pre-flight: prove the store is reachable before writing ---
	if _, err := p.store.Head(ctx, p.config.HealthKey); err != nil && store.KindOf(err) != store.KindNotFound {
		logCtx.Error("Pre-flight store check failed", "key", p.config.HealthKey, "error", err)
		return p.abort(ctx, recorder, summary, fmt.Errorf("pre-flight store check failed: %w", err))
	}

	// --- 2. Liveness write, doubling as the write-access check ---
	body := fmt.Sprintf("Health check at %s\n", p.now().UTC().Format(time.RFC3339))
	if err := p.store.Put(ctx, p.config.HealthKey, []byte(body), "text/plain", nil); err != nil {
		logCtx.Error("Health check write failed", "key", p.config.HealthKey, "error", err)
		return p.abort(ctx, recorder, summary, fmt.Errorf("health check write failed: %w", err))
	}
	summary.State = StateHealthChecked
	p.transition(ctx, recorder, StateHealthChecked)
	logCtx.Info("Health check written.", "key", p.config.HealthKey)

	// --- 3. Discovery ---
	pairs, err := p.discovery.Discover(ctx, prefix)
	if err != nil {
		return p.abort(ctx, recorder, summary, err)
	}
	summary.State = StateDiscovered
	summary.PairsDiscovered = len(pairs)
	p.transition(ctx, recorder, StateDiscovered)

	// --- 4. Per-pair processing, strictly sequential ---
	var entries []models.ManifestEntry
	for _, pair := range pairs {
		pairEntries, err := p.processPair(ctx, pair)
		if err != nil {
			logCtx.Warn("Skipping pair after processing failure", "baseKey", pair.BaseKey, "error", err)
			continue
		}
		entries = append(entries, pairEntries...)
		summary.PairsProcessed++
	}
	summary.EntriesWritten = len(entries)

	// --- 5. Manifest, only when at least one pair survived ---
	if len(entries) == 0 {
		summary.State = StateEmptySuccess
		p.finish(ctx, recorder, summary, "")
		logCtx.Info("Nothing to ingest; no manifest written.", "pairsDiscovered", summary.PairsDiscovered)
		return summary, nil
	}

	manifestKey, err := p.manifests.Write(ctx, entries, prefix)
	if err != nil {
		// Curated files already written stay durable; re-running is
		// safe per the Curator's checksum short-circuit.
		return p.abort(ctx, recorder, summary, err)
	}
	summary.ManifestKey = manifestKey
	summary.ManifestWritten = true
	summary.State = StateManifested
	p.finish(ctx, recorder, summary, "")

	logCtx.Info("Ingestion run complete.",
		"pairsDiscovered", summary.PairsDiscovered,
		"pairsProcessed", summary.PairsProcessed,
		"entriesWritten", summary.EntriesWritten,
		"manifestKey", summary.ManifestKey,
	)
	return summary, nil
}

// processPair fetches both members of a pair, curates the text member
// and assembles the pair's two manifest entries. Any failure drops the
// whole pair: a pair never contributes a partial entry set.
func (p *Pipeline) processPair(ctx context.Context, pair models.Pair) ([]models.ManifestEntry, error) {
	structured, err := p.fetchObject(ctx, pair.StructuredKey)
	if err != nil {
		return nil, err
	}
	text, err := p.fetchObject(ctx, pair.TextKey)
	if err != nil {
		return nil, err
	}

	result, err := p.curator.Curate(ctx, pair, text)
	if err != nil {
		return nil, err
	}

	return []models.ManifestEntry{
		{
			Key:            structured.Key,
			Type:           models.TypeStructuredTranscript,
			SizeBytes:      structured.SizeBytes,
			Checksum:       structured.Checksum,
			ContentType:    structured.ContentType,
			SensitivityTag: p.config.SensitivityTag,
			Status:         models.StatusIngested,
		},
		{
			Key:              text.Key,
			Type:             models.TypeMinutesText,
			SizeBytes:        text.SizeBytes,
			Checksum:         text.Checksum,
			ContentType:      text.ContentType,
			SensitivityTag:   p.config.SensitivityTag,
			Status:           models.StatusIngested,
			CuratedKey:       result.CuratedKey,
			CuratedChecksum:  result.CuratedChecksum,
			CuratedSizeBytes: result.CuratedSizeBytes,
		},
	}, nil
}

// fetchObject snapshots one source object: metadata, content and a
// checksum over the bytes actually fetched.
func (p *Pipeline) fetchObject(ctx context.Context, key string) (models.StoredObject, error) {
	obj, err := p.store.Get(ctx, key)
	if err != nil {
		p.logger.Error("Failed to fetch source object", "key", key, "error", err)
		return models.StoredObject{}, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return models.StoredObject{
		Key:         key,
		SizeBytes:   obj.SizeBytes,
		ContentType: contentType,
		Checksum:    models.Checksum(obj.Data),
		RawBytes:    obj.Data,
	}, nil
}

func (p *Pipeline) transition(ctx context.Context, recorder RunRecorder, status string) {
	if err := recorder.Transition(ctx, status); err != nil {
		p.logger.Warn("Failed to record run transition", "status", status, "error", err)
	}
}

func (p *Pipeline) finish(ctx context.Context, recorder RunRecorder, summary Summary, errDetails string) {
	if err := recorder.Finish(ctx, summary, errDetails); err != nil {
		p.logger.Warn("Failed to finalize run record", "error", err)
	}
}

func (p *Pipeline) abort(ctx context.Context, recorder RunRecorder, summary Summary, err error) (Summary, error) {
	summary.State = StateAborted
	p.finish(ctx, recorder, summary, err.Error())
	return summary, err
}
