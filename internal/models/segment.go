package models

import "time"

// Translation provenance tags.
const (
	TranslationSourceProvider = "provider"    // arrived attached to the final transcription event
	TranslationSourceFetched  = "independent" // fetched by this viewer through the fallback path
)

// CaptionSegment is a finalized piece of source-language transcription held
// by the reconciliation engine. Segments are append-only except for
// enhancement replacement, which removes the segments named in
// ReplacesChunkIDs and appends the replacement in one step.
type CaptionSegment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	IsContextEnhanced bool     `json:"is_context_enhanced,omitempty"`
	ChunkIDs          []string `json:"chunk_ids,omitempty"`
	ReplacesChunkIDs  []string `json:"replaces_chunk_ids,omitempty"`
}

// TranslationSegment is a finalized translated piece of text. It is parallel
// to the caption stream but not required to line up 1:1 with caption ids.
type TranslationSegment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Language  string    `json:"language"` // base target code
	Timestamp time.Time `json:"timestamp"`

	Source           string `json:"source"` // provenance tag
	ProcessingTimeMS int64  `json:"processing_time_ms,omitempty"`
}
