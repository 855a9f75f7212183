package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/parallaxdata/transcript-ingester/internal/models"
	"github.com/parallaxdata/transcript-ingester/internal/services"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreRunRecorder persists one RunRecord document per ingestion run
// and keeps its status field in step with the pipeline state machine.
// Recorder failures are reported to the caller, which treats them as
// observability-only and never fails a run over them.
type FirestoreRunRecorder struct {
	client     *firestore.Client
	collection string
	docRef     *firestore.DocumentRef
}

// NewFirestoreRunRecorder returns a recorder writing into the given
// collection.
func NewFirestoreRunRecorder(client *firestore.Client, collection string) *FirestoreRunRecorder {
	return &FirestoreRunRecorder{client: client, collection: collection}
}

func (r *FirestoreRunRecorder) Start(ctx context.Context, bucket, prefix string) error {
	record := models.RunRecord{
		SourceBucket: bucket,
		SourcePrefix: prefix,
		Status:       services.StateInit,
		CreatedAt:    time.Now(),
	}
	docRef, _, err := r.client.Collection(r.collection).Add(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}
	r.docRef = docRef
	return nil
}

func (r *FirestoreRunRecorder) Transition(ctx context.Context, status string) error {
	if r.docRef == nil {
		return fmt.Errorf("run record was never started")
	}
	_, err := r.docRef.Update(ctx, []firestore.Update{
		{Path: "status", Value: status},
	})
	if err != nil {
		return fmt.Errorf("failed to update run status to %s: %w", status, err)
	}
	return nil
}

func (r *FirestoreRunRecorder) Finish(ctx context.Context, summary services.Summary, errDetails string) error {
	if r.docRef == nil {
		return fmt.Errorf("run record was never started")
	}
	updates := []firestore.Update{
		{Path: "status", Value: summary.State},
		{Path: "pairsDiscovered", Value: summary.PairsDiscovered},
		{Path: "pairsProcessed", Value: summary.PairsProcessed},
		{Path: "entriesWritten", Value: summary.EntriesWritten},
	}
	if summary.ManifestKey != "" {
		updates = append(updates, firestore.Update{Path: "manifestKey", Value: summary.ManifestKey})
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	if _, err := r.docRef.Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to finalize run record: %w", err)
	}
	return nil
}
