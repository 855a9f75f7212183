package services

import "context"

// RunRecorder persists the lifecycle of one ingestion run for operators:
// an initial record, status transitions as the run advances, and the
// final state with counts. Recorder failures are observability-only and
// never fail a run.
type RunRecorder interface {
	Start(ctx context.Context, bucket, prefix string) error
	Transition(ctx context.Context, status string) error
	Finish(ctx context.Context, summary Summary, errDetails string) error
}

// NoopRunRecorder is the recorder used when no run ledger is configured.
type NoopRunRecorder struct{}

func (NoopRunRecorder) Start(ctx context.Context, bucket, prefix string) error {
	return nil
}

func (NoopRunRecorder) Transition(ctx context.Context, status string) error {
	return nil
}

func (NoopRunRecorder) Finish(ctx context.Context, summary Summary, errDetails string) error {
	return nil
}
