package caption

import (
	"testing"
	"time"

	"github.com/interpretd/speechrelay/internal/models"
	"github.com/interpretd/speechrelay/internal/transport"
)

func TestInterimOverwrite(t *testing.T) {
	e := NewEngine("es")
	e.Apply(transport.Interim{Text: "Hel", SourceLanguage: "en-US"})
	e.Apply(transport.Interim{Text: "Hello wor", SourceLanguage: "en-US"})

	if got := e.SourceText(); got != "Hello wor" {
		t.Fatalf("only the latest interim should render, got %q", got)
	}
	if got := e.SourceLanguage(); got != "en-US" {
		t.Fatalf("source language = %q", got)
	}
}

func TestFinalClearsInterimThenAppends(t *testing.T) {
	e := NewEngine("es")
	e.Apply(transport.Interim{Text: "Hello wor"})
	e.Apply(transport.Final{Text: "Hello world", ChunkIDs: []string{"c1"}})

	if got := e.SourceText(); got != "Hello world" {
		t.Fatalf("finalized text = %q", got)
	}
	segs := e.Segments()
	if len(segs) != 1 || segs[0].Text != "Hello world" || segs[0].ID != "c1" {
		t.Fatalf("unexpected segments: %+v", segs)
	}
}

func TestEmptyFinalFlushesInterim(t *testing.T) {
	e := NewEngine("es")
	e.Apply(transport.Interim{Text: "trailing words", Translations: map[string]string{"es": "palabras"}})
	e.Apply(transport.Final{Text: ""})

	if got := e.SourceText(); got != "" {
		t.Fatalf("empty final should flush interim, got %q", got)
	}
	if got := e.TranslationText("es"); got != "" {
		t.Fatalf("interim translation should flush too, got %q", got)
	}
	if len(e.Segments()) != 0 {
		t.Fatal("empty final must not create a segment")
	}
}

func TestEnhancedReplacementIsAtomic(t *testing.T) {
	e := NewEngine("es")
	e.Apply(transport.Final{Text: "alpha", ChunkIDs: []string{"a"}})
	e.Apply(transport.Final{Text: "beta", ChunkIDs: []string{"b"}})
	e.Apply(transport.Final{Text: "gamma", ChunkIDs: []string{"c"}})

	e.Apply(transport.Final{
		Text:             "beta, corrected",
		ChunkIDs:         []string{"d"},
		ReplacesChunkIDs: []string{"b"},
		ContextEnhanced:  true,
	})

	segs := e.Segments()
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments after replacement, got %d", len(segs))
	}
	want := []string{"alpha", "gamma", "beta, corrected"}
	for i, w := range want {
		if segs[i].Text != w {
			t.Fatalf("segment %d = %q, want %q", i, segs[i].Text, w)
		}
	}
	if !segs[2].IsContextEnhanced {
		t.Fatal("replacement segment should be marked enhanced")
	}
}

func TestEnhancedFinalSkipsResolution(t *testing.T) {
	e := NewEngine("es")
	calls := 0
	e.SetResolver(func(segmentID, text string, attached map[string]string) { calls++ })

	e.Apply(transport.Final{Text: "plain", ChunkIDs: []string{"a"}})
	e.Apply(transport.Final{
		Text: "plain, enhanced", ChunkIDs: []string{"b"},
		ReplacesChunkIDs: []string{"a"}, ContextEnhanced: true,
	})

	if calls != 1 {
		t.Fatalf("resolver should run once (non-enhanced only), ran %d times", calls)
	}
}

func TestInterimTranslationAttachedOnly(t *testing.T) {
	e := NewEngine("es-ES")

	e.Apply(transport.Interim{Text: "Hola", Translations: map[string]string{"es": "Hola"}})
	if got := e.TranslationText("es"); got != "Hola" {
		t.Fatalf("attached interim translation = %q", got)
	}

	// next interim without a usable translation clears the slot
	e.Apply(transport.Interim{Text: "Hola que", Translations: map[string]string{"fr": "Salut"}})
	if got := e.TranslationText("es"); got != "" {
		t.Fatalf("slot should be cleared, got %q", got)
	}

	// an interim carrying no translations at all clears it too
	e.Apply(transport.Interim{Text: "Hola de", Translations: map[string]string{"es": "Hola"}})
	e.Apply(transport.Interim{Text: "Hola de nuevo"})
	if got := e.TranslationText("es"); got != "" {
		t.Fatalf("slot must not outlive an update without translations, got %q", got)
	}
}

func TestTranslationTextAppendAndInterimSuppression(t *testing.T) {
	e := NewEngine("es")
	e.AppendTranslation(models.TranslationSegment{ID: "t1", Text: "Hola mundo", Language: "es"})
	e.AppendTranslation(models.TranslationSegment{ID: "t2", Text: "adios", Language: "es-ES"})

	if got := e.TranslationText("es"); got != "Hola mundo adios" {
		t.Fatalf("translation text = %q", got)
	}

	// interim already contained in finalized text is not repeated
	e.Apply(transport.Interim{Text: "x", Translations: map[string]string{"es": "adios"}})
	if got := e.TranslationText("es"); got != "Hola mundo adios" {
		t.Fatalf("contained interim should be suppressed, got %q", got)
	}
}

func TestInterimPrefixOverlapSuppressed(t *testing.T) {
	e := NewEngine("es")
	e.Apply(transport.Final{Text: "Hello world today", ChunkIDs: []string{"a"}})

	// straggler interim repeating the finalized tail
	e.Apply(transport.Interim{Text: "world today"})
	if got := e.SourceText(); got != "Hello world today" {
		t.Fatalf("overlapping interim should be hidden, got %q", got)
	}

	// genuinely new interim still renders
	e.Apply(transport.Interim{Text: "and tomorrow"})
	if got := e.SourceText(); got != "Hello world today and tomorrow" {
		t.Fatalf("fresh interim should render, got %q", got)
	}
}

func TestRetentionSweep(t *testing.T) {
	e := NewEngine("es")
	now := time.Now()
	e.now = func() time.Time { return now }

	e.Apply(transport.Final{Text: "old", ChunkIDs: []string{"a"}})
	e.AppendTranslation(models.TranslationSegment{ID: "t1", Text: "viejo", Language: "es"})

	now = now.Add(29 * time.Second)
	e.Sweep()
	if len(e.Segments()) != 1 || len(e.Translations("es")) != 1 {
		t.Fatal("segments inside the window must survive the sweep")
	}

	now = now.Add(2 * time.Second)
	e.Apply(transport.Final{Text: "fresh", ChunkIDs: []string{"b"}})
	e.Sweep()

	segs := e.Segments()
	if len(segs) != 1 || segs[0].Text != "fresh" {
		t.Fatalf("expected only the fresh segment, got %+v", segs)
	}
	if len(e.Translations("es")) != 0 {
		t.Fatal("expired translation segments should be evicted")
	}
}

func TestSweepKeepsInterimAndStatus(t *testing.T) {
	e := NewEngine("es")
	now := time.Now()
	e.now = func() time.Time { return now }

	e.Apply(transport.StatusUpdate{Status: models.EventStatusPaused})
	e.Apply(transport.Interim{Text: "still talking"})

	now = now.Add(60 * time.Second)
	e.Sweep()

	if got := e.SourceText(); got != "still talking" {
		t.Fatalf("interim must outlive the sweep, got %q", got)
	}
	if got := e.Status(); got != models.EventStatusPaused {
		t.Fatalf("status = %q", got)
	}
}

func TestInvalidStatusIgnored(t *testing.T) {
	e := NewEngine("es")
	e.Apply(transport.StatusUpdate{Status: "Exploded"})
	if got := e.Status(); got != models.EventStatusLive {
		t.Fatalf("invalid status should be dropped, got %q", got)
	}
}

func TestEndToEndInterimThenFinalWithTranslation(t *testing.T) {
	e := NewEngine("es")
	resolved := map[string]string{}
	var resolvedSegID string
	e.SetResolver(func(segmentID, text string, attached map[string]string) {
		if v, ok := attached["es"]; ok {
			resolved[text] = v
			resolvedSegID = segmentID
			e.AppendTranslation(models.TranslationSegment{
				ID: "r1", Text: v, Language: "es",
				Source: models.TranslationSourceProvider,
			})
		}
	})

	e.Apply(transport.Interim{Text: "Hel", SourceLanguage: "en-US"})
	e.Apply(transport.Final{
		Text:           "Hello world",
		SourceLanguage: "en-US",
		Translations:   map[string]string{"es": "Hola mundo"},
		ChunkIDs:       []string{"c1"},
	})

	if got := e.SourceText(); got != "Hello world" {
		t.Fatalf("source text = %q", got)
	}
	if got := e.TranslationText("es"); got != "Hola mundo" {
		t.Fatalf("translation text = %q", got)
	}
	if resolved["Hello world"] != "Hola mundo" {
		t.Fatalf("resolver saw %v", resolved)
	}
	if resolvedSegID != "c1" {
		t.Fatalf("resolver should receive the segment id, got %q", resolvedSegID)
	}
	segs := e.Translations("es")
	if len(segs) != 1 || segs[0].Source != models.TranslationSourceProvider {
		t.Fatalf("provenance lost: %+v", segs)
	}
}
