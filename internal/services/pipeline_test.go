package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/parallaxdata/transcript-ingester/internal/models"
	"github.com/parallaxdata/transcript-ingester/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunRecorder captures recorder calls for assertions.
type recordingRunRecorder struct {
	started     bool
	transitions []string
	finished    bool
	finalState  string
	errDetails  string
}

func (r *recordingRunRecorder) Start(ctx context.Context, bucket, prefix string) error {
	r.started = true
	return nil
}

func (r *recordingRunRecorder) Transition(ctx context.Context, status string) error {
	r.transitions = append(r.transitions, status)
	return nil
}

func (r *recordingRunRecorder) Finish(ctx context.Context, summary Summary, errDetails string) error {
	r.finished = true
	r.finalState = summary.State
	r.errDetails = errDetails
	return nil
}

func newTestPipeline(t *testing.T, st *store.MemoryStore, recorder RunRecorder) *Pipeline {
	t.Helper()
	manifests := NewManifestWriter(st, ManifestConfig{}, nil)
	manifests.now = func() time.Time {
		return time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)
	}
	manifests.newID = func() string { return "ab12cd34" }

	p, err := NewPipeline(
		st,
		NewDiscovery(st, nil),
		NewCurator(st, CuratorConfig{}, nil),
		manifests,
		recorder,
		PipelineConfig{},
		nil,
	)
	require.NoError(t, err)
	return p
}

func TestRunEndToEnd(t *testing.T) {
	st := store.NewMemoryStore("lake-bucket")
	st.PageSize = 2
	st.Seed("uploads/m1.json", []byte(`{"v":1234}`), "application/json")
	st.Seed("uploads/m1.txt", []byte("Hello   world\r\n\r\n\r\nBye"), "text/plain")

	recorder := &recordingRunRecorder{}
	p := newTestPipeline(t, st, recorder)

	summary, err := p.Run(context.Background(), "uploads/")
	require.NoError(t, err)

	assert.Equal(t, StateManifested, summary.State)
	assert.True(t, summary.Success())
	assert.Equal(t, 1, summary.PairsDiscovered)
	assert.Equal(t, 1, summary.PairsProcessed)
	assert.Equal(t, 2, summary.EntriesWritten)
	assert.True(t, summary.ManifestWritten)

	// Liveness record.
	health, ok := st.Data(DefaultHealthKey)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(health), "Health check at "))

	// Curated copy.
	curated, ok := st.Data("curated/m1.norm.txt")
	require.True(t, ok)
	assert.Equal(t, "Hello world\n\nBye", string(curated))

	// Manifest: exactly two entries per pair, structured member first.
	raw, ok := st.Data(summary.ManifestKey)
	require.True(t, ok)
	manifest := decodeManifest(t, raw)
	require.Len(t, manifest.Entries, 2)

	structured := manifest.Entries[0]
	assert.Equal(t, "uploads/m1.json", structured.Key)
	assert.Equal(t, models.TypeStructuredTranscript, structured.Type)
	assert.Equal(t, int64(10), structured.SizeBytes)
	assert.Equal(t, models.StatusIngested, structured.Status)
	assert.Equal(t, "low", structured.SensitivityTag)
	assert.Empty(t, structured.CuratedKey)

	text := manifest.Entries[1]
	assert.Equal(t, "uploads/m1.txt", text.Key)
	assert.Equal(t, models.TypeMinutesText, text.Type)
	assert.Equal(t, "curated/m1.norm.txt", text.CuratedKey)
	assert.Equal(t, models.Checksum(curated), text.CuratedChecksum)
	assert.Equal(t, int64(len(curated)), text.CuratedSizeBytes)

	assert.True(t, recorder.started)
	assert.Equal(t, []string{StateHealthChecked, StateDiscovered}, recorder.transitions)
	assert.Equal(t, StateManifested, recorder.finalState)
}

func TestRunEmptyPrefixIsSuccessWithoutManifest(t *testing.T) {
	st := store.NewMemoryStore("lake-bucket")
	recorder := &recordingRunRecorder{}
	p := newTestPipeline(t, st, recorder)

	summary, err := p.Run(context.Background(), "uploads/")
	require.NoError(t, err)

	assert.Equal(t, StateEmptySuccess, summary.State)
	assert.True(t, summary.Success())
	assert.Zero(t, summary.PairsDiscovered)
	assert.Zero(t, summary.EntriesWritten)
	assert.False(t, summary.ManifestWritten)
	// The only write of the whole run is the liveness record.
	assert.Equal(t, 1, st.PutCalls)
	assert.Equal(t, StateEmptySuccess, recorder.finalState)
}

func TestRunIsolatesFailingPair(t *testing.T) {
	st := store.NewMemoryStore("lake-bucket")
	st.Seed("uploads/bad.json", []byte("{}"), "application/json")
	st.Seed("uploads/bad.txt", []byte("minutes"), "text/plain")
	st.Seed("uploads/good.json", []byte("{}"), "application/json")
	st.Seed("uploads/good.txt", []byte("minutes"), "text/plain")
	st.GetErr = func(key string) error {
		if key == "uploads/bad.txt" {
			return &store.Error{Kind: store.KindTransient, Op: "get", Key: key}
		}
		return nil
	}

	p := newTestPipeline(t, st, nil)
	summary, err := p.Run(context.Background(), "uploads/")
	require.NoError(t, err)

	assert.Equal(t, StateManifested, summary.State)
	assert.Equal(t, 2, summary.PairsDiscovered)
	assert.Equal(t, 1, summary.PairsProcessed)
	assert.Equal(t, 2, summary.EntriesWritten)

	raw, ok := st.Data(summary.ManifestKey)
	require.True(t, ok)
	manifest := decodeManifest(t, raw)
	require.Len(t, manifest.Entries, 2)
	// The failed pair contributes zero entries, not one.
	assert.Equal(t, "uploads/good.json", manifest.Entries[0].Key)
	assert.Equal(t, "uploads/good.txt", manifest.Entries[1].Key)
}

func TestRunAllPairsFailedSkipsManifest(t *testing.T) {
	st := store.NewMemoryStore("lake-bucket")
	st.Seed("uploads/bad.json", []byte("{}"), "application/json")
	st.Seed("uploads/bad.txt", []byte("minutes"), "text/plain")
	st.GetErr = func(key string) error {
		if strings.HasPrefix(key, "uploads/") {
			return &store.Error{Kind: store.KindTransient, Op: "get", Key: key}
		}
		return nil
	}

	p := newTestPipeline(t, st, nil)
	summary, err := p.Run(context.Background(), "uploads/")
	require.NoError(t, err)

	assert.Equal(t, StateEmptySuccess, summary.State)
	assert.Equal(t, 1, summary.PairsDiscovered)
	assert.Zero(t, summary.PairsProcessed)
	assert.False(t, summary.ManifestWritten)
}

func TestRunAbortsWhenPreFlightFails(t *testing.T) {
	st := store.NewMemoryStore("lake-bucket")
	st.Seed("uploads/m1.json", []byte("{}"), "application/json")
	st.Seed("uploads/m1.txt", []byte("minutes"), "text/plain")
	st.HeadErr = func(key string) error {
		return &store.Error{Kind: store.KindAccessDenied, Op: "head", Key: key}
	}

	recorder := &recordingRunRecorder{}
	p := newTestPipeline(t, st, recorder)
	summary, err := p.Run(context.Background(), "uploads/")
	require.Error(t, err)

	assert.Equal(t, StateAborted, summary.State)
	assert.False(t, summary.Success())
	assert.Zero(t, st.PutCalls, "an aborted pre-flight must not write anything")
	assert.Equal(t, StateAborted, recorder.finalState)
	assert.NotEmpty(t, recorder.errDetails)
}

func TestRunAbortsWhenDiscoveryFails(t *testing.T) {
	st := store.NewMemoryStore("lake-bucket")
	st.ListErr = &store.Error{Kind: store.KindTransient, Op: "list", Key: "uploads/"}

	p := newTestPipeline(t, st, nil)
	summary, err := p.Run(context.Background(), "uploads/")
	require.Error(t, err)
	assert.Equal(t, StateAborted, summary.State)
}

func TestRunManifestFailureFailsRunWithoutRollback(t *testing.T) {
	st := store.NewMemoryStore("lake-bucket")
	st.Seed("uploads/m1.json", []byte("{}"), "application/json")
	st.Seed("uploads/m1.txt", []byte("minutes"), "text/plain")
	st.PutErr = func(key string, tagged bool) error {
		if strings.HasPrefix(key, "manifests/") {
			return &store.Error{Kind: store.KindTransient, Op: "put", Key: key}
		}
		return nil
	}

	recorder := &recordingRunRecorder{}
	p := newTestPipeline(t, st, recorder)
	summary, err := p.Run(context.Background(), "uploads/")
	require.Error(t, err)

	assert.Equal(t, StateAborted, summary.State)
	assert.False(t, summary.ManifestWritten)
	assert.Equal(t, 1, summary.PairsProcessed)

	// The curated file written before the manifest failure stays durable.
	curated, ok := st.Data("curated/m1.norm.txt")
	require.True(t, ok)
	assert.Equal(t, "minutes", string(curated))
	assert.Equal(t, StateAborted, recorder.finalState)
}

func decodeManifest(t *testing.T, raw []byte) models.Manifest {
	t.Helper()
	var manifest models.Manifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	return manifest
}
