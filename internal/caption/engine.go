// Package caption reconciles the realtime transcription stream into the
// text a broadcast viewer actually sees: an ordered window of finalized
// segments plus a single interim slot per stream, with enhancement
// replacement and age-based retention.
package caption

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/models"
	"github.com/interpretd/speechrelay/internal/transport"
)

const (
	// RetentionWindow bounds how long finalized segments stay renderable.
	RetentionWindow = 30 * time.Second
	// SweepInterval is how often expired segments are evicted.
	SweepInterval = 10 * time.Second

	// interimPrefixLen is the best-effort overlap heuristic: if this many
	// leading characters of the interim already appear near the end of the
	// finalized text, the interim is stale and not rendered. Tunable
	// policy, not a contract.
	interimPrefixLen = 10
	// interimTailSlack widens the finalized-tail window the prefix is
	// searched in, so small divergence in punctuation does not defeat it.
	interimTailSlack = 20
)

// ResolveFunc is invoked synchronously after a non-enhanced final segment
// is appended, with the segment id, the finalized text, and any
// provider-attached translations. Implementations append resulting
// TranslationSegments back through AppendTranslation.
type ResolveFunc func(segmentID, text string, attached map[string]string)

// Engine holds the reconciliation state for one mounted broadcast view.
// Safe for concurrent use; transport callbacks, the sweeper, and renders
// may interleave.
type Engine struct {
	mu sync.Mutex

	segments     []models.CaptionSegment
	translations map[string][]models.TranslationSegment // keyed by base lang

	interimCaption   string
	interimTranslate map[string]string // base lang -> latest interim translation

	targetLang string // base code of the active target language
	sourceLang string // independent live display field
	status     string

	resolve ResolveFunc
	now     func() time.Time
}

func NewEngine(targetLang string) *Engine {
	return &Engine{
		translations:     map[string][]models.TranslationSegment{},
		interimTranslate: map[string]string{},
		targetLang:       language.Normalize(targetLang),
		status:           models.EventStatusLive,
		now:              time.Now,
	}
}

// SetResolver installs the translation resolution hook.
func (e *Engine) SetResolver(fn ResolveFunc) {
	e.mu.Lock()
	e.resolve = fn
	e.mu.Unlock()
}

// SetTargetLanguage switches the active translation target and drops the
// interim translation slot for the previous one.
func (e *Engine) SetTargetLanguage(lang string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targetLang = language.Normalize(lang)
	e.interimTranslate = map[string]string{}
}

func (e *Engine) TargetLanguage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.targetLang
}

// Apply feeds one decoded transport event through the reconciliation rules.
func (e *Engine) Apply(ev transport.Event) {
	switch v := ev.(type) {
	case transport.Interim:
		e.applyInterim(v)
	case transport.Final:
		e.applyFinal(v)
	case transport.StatusUpdate:
		e.applyStatus(v)
	}
}

func (e *Engine) applyInterim(v transport.Interim) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v.SourceLanguage != "" {
		e.sourceLang = v.SourceLanguage
	}
	if strings.TrimSpace(v.Text) != "" {
		e.interimCaption = v.Text
	}

	// Interim translations are opportunistic: use an attached one when the
	// provider sent it, otherwise clear the slot. The slot is fully replaced
	// on every update, so an interim arriving without any translations still
	// drops the previous one. Never fetched.
	if e.targetLang != "" {
		if txt, ok := lookupLang(v.Translations, e.targetLang); ok && strings.TrimSpace(txt) != "" {
			e.interimTranslate[e.targetLang] = txt
		} else {
			delete(e.interimTranslate, e.targetLang)
		}
	}
}

func (e *Engine) applyFinal(v transport.Final) {
	e.mu.Lock()

	if v.SourceLanguage != "" {
		e.sourceLang = v.SourceLanguage
	}

	// A final always flushes interim state, even with empty text.
	e.interimCaption = ""
	e.interimTranslate = map[string]string{}

	text := strings.TrimSpace(v.Text)
	if text == "" {
		e.mu.Unlock()
		return
	}

	seg := models.CaptionSegment{
		ID:                segmentID(v.ChunkIDs),
		Text:              text,
		Timestamp:         e.now(),
		IsContextEnhanced: v.ContextEnhanced,
		ChunkIDs:          v.ChunkIDs,
		ReplacesChunkIDs:  v.ReplacesChunkIDs,
	}

	if v.ContextEnhanced && len(v.ReplacesChunkIDs) > 0 {
		e.removeSegments(v.ReplacesChunkIDs)
	}
	e.segments = append(e.segments, seg)

	resolve := e.resolve
	e.mu.Unlock()

	// Enhanced finals correct already-translated content; only fresh finals
	// go through translation resolution. State is settled before the
	// resolver runs, so the flush above is never interleaved with it.
	if !v.ContextEnhanced && resolve != nil {
		resolve(seg.ID, text, v.Translations)
	}
}

func (e *Engine) applyStatus(v transport.StatusUpdate) {
	if !models.ValidEventStatus(v.Status) {
		return
	}
	e.mu.Lock()
	e.status = v.Status
	e.mu.Unlock()
}

// AppendTranslation records a resolved translation segment. Empty text is
// dropped here as a last line of defense; resolution should already have
// filtered it.
func (e *Engine) AppendTranslation(seg models.TranslationSegment) {
	if strings.TrimSpace(seg.Text) == "" {
		return
	}
	seg.Language = language.Normalize(seg.Language)
	if seg.Timestamp.IsZero() {
		seg.Timestamp = e.now()
	}
	e.mu.Lock()
	e.translations[seg.Language] = append(e.translations[seg.Language], seg)
	e.mu.Unlock()
}

// SourceText renders the finalized caption window plus the interim slot,
// suppressing an interim that merely repeats the just-finalized tail.
func (e *Engine) SourceText() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	parts := make([]string, 0, len(e.segments)+1)
	for _, s := range e.segments {
		parts = append(parts, s.Text)
	}
	final := strings.Join(parts, " ")

	if e.interimCaption != "" && !interimDuplicatesFinal(final, e.interimCaption) {
		if final == "" {
			return e.interimCaption
		}
		return final + " " + e.interimCaption
	}
	return final
}

// TranslationText renders the finalized translation window for a language
// plus its interim slot when the interim adds anything new.
func (e *Engine) TranslationText(lang string) string {
	base := language.Normalize(lang)

	e.mu.Lock()
	defer e.mu.Unlock()

	segs := e.translations[base]
	parts := make([]string, 0, len(segs)+1)
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	final := strings.Join(parts, " ")

	if interim := e.interimTranslate[base]; interim != "" && !strings.Contains(final, interim) {
		if final == "" {
			return interim
		}
		return final + " " + interim
	}
	return final
}

// Segments returns a copy of the live caption window in display order.
func (e *Engine) Segments() []models.CaptionSegment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.CaptionSegment, len(e.segments))
	copy(out, e.segments)
	return out
}

// Translations returns a copy of the finalized translation window for a
// language.
func (e *Engine) Translations(lang string) []models.TranslationSegment {
	base := language.Normalize(lang)
	e.mu.Lock()
	defer e.mu.Unlock()
	segs := e.translations[base]
	out := make([]models.TranslationSegment, len(segs))
	copy(out, segs)
	return out
}

func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SourceLanguage is the live transcription language display field; it
// updates even for events that carry no usable text.
func (e *Engine) SourceLanguage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sourceLang
}

// Sweep evicts caption and translation segments older than the retention
// window. Interim state and status are never touched.
func (e *Engine) Sweep() {
	cutoff := e.now().Add(-RetentionWindow)

	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.segments[:0]
	for _, s := range e.segments {
		if s.Timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	e.segments = kept

	for lang, segs := range e.translations {
		keptT := segs[:0]
		for _, s := range segs {
			if s.Timestamp.After(cutoff) {
				keptT = append(keptT, s)
			}
		}
		if len(keptT) == 0 {
			delete(e.translations, lang)
		} else {
			e.translations[lang] = keptT
		}
	}
}

// Run drives the sweeper until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	t := time.NewTicker(SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Sweep()
		}
	}
}

func (e *Engine) removeSegments(ids []string) {
	drop := map[string]struct{}{}
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := e.segments[:0]
	for _, s := range e.segments {
		if segmentMatches(s, drop) {
			continue
		}
		kept = append(kept, s)
	}
	e.segments = kept
}

func segmentMatches(s models.CaptionSegment, drop map[string]struct{}) bool {
	if _, ok := drop[s.ID]; ok {
		return true
	}
	for _, cid := range s.ChunkIDs {
		if _, ok := drop[cid]; ok {
			return true
		}
	}
	return false
}

func segmentID(chunkIDs []string) string {
	if len(chunkIDs) > 0 {
		return chunkIDs[0]
	}
	return uuid.NewString()
}

// lookupLang probes attached translations for a base code and its common
// qualified spellings (fr, FR, fr-FR).
func lookupLang(m map[string]string, base string) (string, bool) {
	if v, ok := m[base]; ok {
		return v, true
	}
	if v, ok := m[strings.ToUpper(base)]; ok {
		return v, true
	}
	for k, v := range m {
		if language.Normalize(k) == base {
			return v, true
		}
	}
	return "", false
}

func interimDuplicatesFinal(final, interim string) bool {
	if final == "" || interim == "" {
		return false
	}
	prefix := interim
	if len(prefix) > interimPrefixLen {
		prefix = prefix[:interimPrefixLen]
	}
	tail := final
	if n := len(interim) + interimTailSlack; len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	return strings.Contains(tail, prefix)
}
