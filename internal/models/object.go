package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// StoredObject is a read-only snapshot of one object fetched from the
// data lake: metadata plus the raw bytes as they were at fetch time.
type StoredObject struct {
	Key         string
	SizeBytes   int64
	ContentType string
	Checksum    string // "sha256:<hex>" over RawBytes
	RawBytes    []byte
}

// Pair is a structured transcript and its companion minutes file sharing
// a base key. Both members must exist under the same scan for the pair
// to be valid.
type Pair struct {
	BaseKey       string
	StructuredKey string
	TextKey       string
}

// CurationResult describes the normalized copy of a pair's text member.
// It is derived deterministically from the normalized content: identical
// source bytes always yield an identical result.
type CurationResult struct {
	CuratedKey       string `json:"curated_key"`
	CuratedSizeBytes int64  `json:"curated_size_bytes"`
	CuratedChecksum  string `json:"curated_checksum"`
}

// Checksum returns the checksum of content in the manifest's
// "sha256:<hex>" form.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("sha256:%s", hex.EncodeToString(sum[:]))
}
