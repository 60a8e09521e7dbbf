package transport

import (
	"encoding/json"
	"testing"
)

func TestDecodeInterim(t *testing.T) {
	raw := []byte(`{"type":"realtime_transcription","room_id":"ev1","text":"Hel","is_final":false,"source_language":"en-US"}`)
	roomID, ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if roomID != "ev1" {
		t.Fatalf("room_id = %q", roomID)
	}
	in, ok := ev.(Interim)
	if !ok {
		t.Fatalf("expected Interim, got %T", ev)
	}
	if in.Text != "Hel" || in.SourceLanguage != "en-US" {
		t.Fatalf("unexpected interim: %+v", in)
	}
}

func TestDecodeFinalWithReplacement(t *testing.T) {
	raw := []byte(`{
		"type":"realtime_transcription","room_id":"ev1",
		"text":"Hello world","is_final":true,"source_language":"en-US",
		"translations":{"es":"Hola mundo"},
		"chunk_ids":["c1","c2"],"replaces_chunk_ids":["c0"],
		"is_context_enhanced":true,"processing_time":840
	}`)
	_, ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	fin, ok := ev.(Final)
	if !ok {
		t.Fatalf("expected Final, got %T", ev)
	}
	if !fin.ContextEnhanced || len(fin.ReplacesChunkIDs) != 1 || fin.ReplacesChunkIDs[0] != "c0" {
		t.Fatalf("replacement fields lost: %+v", fin)
	}
	if fin.Translations["es"] != "Hola mundo" {
		t.Fatalf("translations lost: %+v", fin.Translations)
	}
	if fin.ProcessingTimeMS != 840 {
		t.Fatalf("processing time = %d", fin.ProcessingTimeMS)
	}
}

func TestDecodeStatusUpdate(t *testing.T) {
	raw := []byte(`{"type":"event_status_update","room_id":"ev1","status":"Paused"}`)
	_, ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	st, ok := ev.(StatusUpdate)
	if !ok || st.Status != "Paused" {
		t.Fatalf("expected StatusUpdate Paused, got %#v", ev)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := Decode([]byte(`{not json`)); err == nil {
		t.Fatal("invalid JSON should error")
	}
	if _, _, err := Decode([]byte(`{"type":"ping"}`)); err != ErrUnknownType {
		t.Fatalf("unknown type should return ErrUnknownType, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fin := Final{
		Text:           "done",
		SourceLanguage: "de-DE",
		Translations:   map[string]string{"en": "done"},
		ChunkIDs:       []string{"a"},
	}
	b, err := EncodeTranscription("ev9", fin)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	roomID, ev, err := Decode(b)
	if err != nil || roomID != "ev9" {
		t.Fatalf("decode back: %v room=%q", err, roomID)
	}
	got, ok := ev.(Final)
	if !ok || got.Text != "done" || got.Translations["en"] != "done" {
		t.Fatalf("round trip mismatch: %#v", ev)
	}
}

func TestEncodeStatusShape(t *testing.T) {
	b, err := EncodeStatus("ev1", "Live")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != TypeStatusUpdate || m["status"] != "Live" || m["room_id"] != "ev1" {
		t.Fatalf("unexpected shape: %v", m)
	}
}
