package models

// These structs define the JSON encoding of the audit manifest written
// once per ingestion run. A manifest is never mutated after it is
// persisted; a new run produces a new manifest object.

// SchemaVersion is the manifest schema version emitted by this ingester.
const SchemaVersion = 1

// Entry types for the two members of a transcript pair.
const (
	TypeStructuredTranscript = "structured_transcript"
	TypeMinutesText          = "minutes_text"
)

// StatusIngested marks an entry whose source object was fully processed.
const StatusIngested = "ingested"

// IngesterInfo identifies the producer of a manifest.
type IngesterInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ManifestEntry is the audit record for one source object. Text entries
// additionally carry the curated_* fields pointing at the normalized
// copy.
type ManifestEntry struct {
	Key            string `json:"key"`
	Type           string `json:"type"`
	SizeBytes      int64  `json:"size_bytes"`
	Checksum       string `json:"checksum"`
	ContentType    string `json:"content_type"`
	SensitivityTag string `json:"sensitivity_tag"`
	Status         string `json:"status"`

	CuratedKey       string `json:"curated_key,omitempty"`
	CuratedChecksum  string `json:"curated_checksum,omitempty"`
	CuratedSizeBytes int64  `json:"curated_size_bytes,omitempty"`
}

// Manifest is the dated audit record of one ingestion run. Entries are
// ordered: two per processed pair, structured member first.
type Manifest struct {
	SchemaVersion int             `json:"schema_version"`
	BatchID       string          `json:"batch_id"`
	Date          string          `json:"dt"`
	SourceBucket  string          `json:"source_bucket"`
	SourcePrefix  string          `json:"source_prefix"`
	Ingester      IngesterInfo    `json:"ingester"`
	Entries       []ManifestEntry `json:"entries"`
}
