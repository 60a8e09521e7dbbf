// Package transport carries the realtime wire protocol between capture
// clients, the relay, and broadcast viewers. Messages travel as JSON over
// WebSocket and are fanned out across instances via Redis pub/sub, one
// channel pair per event room.
package transport

import (
	"encoding/json"
	"errors"
)

// Wire message types.
const (
	TypeTranscription = "realtime_transcription"
	TypeStatusUpdate  = "event_status_update"
)

// Envelope is the raw wire shape. Fields beyond Type are populated
// depending on the message type.
type Envelope struct {
	Type string `json:"type"`

	RoomID string `json:"room_id"`

	// realtime_transcription fields
	Text              string            `json:"text,omitempty"`
	IsFinal           bool              `json:"is_final,omitempty"`
	SourceLanguage    string            `json:"source_language,omitempty"`
	Translations      map[string]string `json:"translations,omitempty"`
	ChunkIDs          []string          `json:"chunk_ids,omitempty"`
	ReplacesChunkIDs  []string          `json:"replaces_chunk_ids,omitempty"`
	IsContextEnhanced bool              `json:"is_context_enhanced,omitempty"`
	ProcessingTimeMS  int64             `json:"processing_time,omitempty"`

	// event_status_update fields
	Status string `json:"status,omitempty"`
}

// Event is the decoded, typed form handed to the reconciliation engine.
// Exactly one of the three variants below implements it.
type Event interface{ isEvent() }

// Interim is a not-yet-final transcription update. The interim slot is
// overwritten on every one of these; translations are display-only and only
// ever come attached (never fetched).
type Interim struct {
	Text           string
	SourceLanguage string
	Translations   map[string]string
}

// Final is a finalized transcription. An empty Text still acts as a flush
// of the interim slot. ContextEnhanced finals atomically replace the
// segments named in ReplacesChunkIDs.
type Final struct {
	Text             string
	SourceLanguage   string
	Translations     map[string]string
	ChunkIDs         []string
	ReplacesChunkIDs []string
	ContextEnhanced  bool
	ProcessingTimeMS int64
}

// StatusUpdate switches the room display mode; it is independent of the
// caption flow.
type StatusUpdate struct {
	Status string
}

func (Interim) isEvent()      {}
func (Final) isEvent()        {}
func (StatusUpdate) isEvent() {}

var ErrUnknownType = errors.New("transport: unknown message type")

// Decode parses a wire payload into its typed variant. Unknown types and
// invalid JSON return an error; callers drop such messages and keep going.
func Decode(raw []byte) (roomID string, ev Event, err error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}
	return env.RoomID, env.Event(), envErr(env.Type)
}

func envErr(typ string) error {
	switch typ {
	case TypeTranscription, TypeStatusUpdate:
		return nil
	default:
		return ErrUnknownType
	}
}

// Event converts an already-parsed envelope to its typed variant, or nil
// for unknown types.
func (e Envelope) Event() Event {
	switch e.Type {
	case TypeTranscription:
		if e.IsFinal {
			return Final{
				Text:             e.Text,
				SourceLanguage:   e.SourceLanguage,
				Translations:     e.Translations,
				ChunkIDs:         e.ChunkIDs,
				ReplacesChunkIDs: e.ReplacesChunkIDs,
				ContextEnhanced:  e.IsContextEnhanced,
				ProcessingTimeMS: e.ProcessingTimeMS,
			}
		}
		return Interim{
			Text:           e.Text,
			SourceLanguage: e.SourceLanguage,
			Translations:   e.Translations,
		}
	case TypeStatusUpdate:
		return StatusUpdate{Status: e.Status}
	default:
		return nil
	}
}

// EncodeTranscription builds the wire payload for a transcription event.
func EncodeTranscription(roomID string, ev Event) ([]byte, error) {
	env := Envelope{Type: TypeTranscription, RoomID: roomID}
	switch v := ev.(type) {
	case Interim:
		env.Text = v.Text
		env.SourceLanguage = v.SourceLanguage
		env.Translations = v.Translations
	case Final:
		env.Text = v.Text
		env.IsFinal = true
		env.SourceLanguage = v.SourceLanguage
		env.Translations = v.Translations
		env.ChunkIDs = v.ChunkIDs
		env.ReplacesChunkIDs = v.ReplacesChunkIDs
		env.IsContextEnhanced = v.ContextEnhanced
		env.ProcessingTimeMS = v.ProcessingTimeMS
	case StatusUpdate:
		return EncodeStatus(roomID, v.Status)
	default:
		return nil, ErrUnknownType
	}
	return json.Marshal(env)
}

// EncodeStatus builds the wire payload for an event status change.
func EncodeStatus(roomID, status string) ([]byte, error) {
	return json.Marshal(Envelope{Type: TypeStatusUpdate, RoomID: roomID, Status: status})
}

// CaptionChannel and StatusChannel name the Redis pub/sub channels for a
// room. Delivery order per channel is preserved by Redis per connection.
func CaptionChannel(roomID string) string { return "event:" + roomID + ":caption" }
func StatusChannel(roomID string) string  { return "event:" + roomID + ":status" }
