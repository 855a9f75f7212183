package models

import "time"

// RunRecord is the Firestore document tracking one ingestion run.
// It mirrors the pipeline's state machine so an operator can see where
// a run stopped without digging through logs.
type RunRecord struct {
	SourceBucket    string    `firestore:"sourceBucket,omitempty"`
	SourcePrefix    string    `firestore:"sourcePrefix,omitempty"`
	Status          string    `firestore:"status,omitempty"`
	ErrorDetails    string    `firestore:"errorDetails,omitempty"`
	PairsDiscovered int       `firestore:"pairsDiscovered,omitempty"`
	PairsProcessed  int       `firestore:"pairsProcessed,omitempty"`
	EntriesWritten  int       `firestore:"entriesWritten,omitempty"`
	ManifestKey     string    `firestore:"manifestKey,omitempty"`
	CreatedAt       time.Time `firestore:"createdAt,omitempty"`
}
