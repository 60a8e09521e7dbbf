package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"
)

// TranscriptChunk is the rolling realtime buffer document (Mongo). It holds
// one finalized caption with its translations and expires via TTL index, so
// long broadcasts stay bounded server-side the same way the viewer's
// retention sweep bounds them client-side.
type TranscriptChunk struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID string             `bson:"event_id" json:"event_id"`
	ChunkID string             `bson:"chunk_id" json:"chunk_id"`

	Text           string            `bson:"text" json:"text"`
	SourceLanguage string            `bson:"source_language" json:"source_language"`
	Translations   map[string]string `bson:"translations,omitempty" json:"translations,omitempty"`

	ContextEnhanced bool `bson:"context_enhanced,omitempty" json:"context_enhanced,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}

// TranscriptEntry is the durable archive row (Postgres), written only when
// the event has recording enabled. Translations are stored as JSONB; the
// embedding column is optional and caller-supplied.
type TranscriptEntry struct {
	ID      string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventID string `gorm:"column:event_id;type:uuid;index" json:"event_id"`

	Text           string         `gorm:"column:text;type:text" json:"text"`
	SourceLanguage string         `gorm:"column:source_language;type:text" json:"source_language"`
	Translations   datatypes.JSON `gorm:"column:translations;type:jsonb" json:"translations"`

	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"embedding"`

	Timestamp time.Time `gorm:"column:timestamp;type:timestamptz" json:"timestamp"`
}

func (TranscriptEntry) TableName() string { return "transcript_entries" }
