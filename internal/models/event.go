package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Event statuses as stored and broadcast to viewers.
const (
	EventStatusScheduled = "Scheduled"
	EventStatusLive      = "Live"
	EventStatusPaused    = "Paused"
	EventStatusCompleted = "Completed"
)

type Event struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;type:text" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Location    string    `gorm:"column:location;type:text" json:"location"`
	Timestamp   time.Time `gorm:"column:timestamp;type:timestamptz" json:"timestamp"`
	Type        string    `gorm:"column:type;type:text" json:"type"`
	Status      string    `gorm:"column:status;type:text" json:"status"`

	SourceLanguages pq.StringArray `gorm:"column:source_languages;type:text[]" json:"sourceLanguages"`
	TargetLanguages pq.StringArray `gorm:"column:target_languages;type:text[]" json:"targetLanguages"`

	RecordEvent bool   `gorm:"column:record_event" json:"recordEvent"`
	TTSVoice    string `gorm:"column:tts_voice;type:text" json:"ttsVoice"` // "female"|"male"

	// Free-form settings the dashboard may attach (phrase lists etc).
	Settings datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Event) TableName() string { return "events" }

func ValidEventStatus(s string) bool {
	switch s {
	case EventStatusScheduled, EventStatusLive, EventStatusPaused, EventStatusCompleted:
		return true
	}
	return false
}
