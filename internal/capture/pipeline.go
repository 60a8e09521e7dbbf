package capture

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/interpretd/speechrelay/internal/providers/llm"
	"github.com/interpretd/speechrelay/internal/transport"
)

// flushPoll is how often the pipeline re-checks the chunk buffer's timing
// conditions between finals.
const flushPoll = 250 * time.Millisecond

// Publisher pushes transcription events into the room fan-out.
type Publisher interface {
	PublishTranscription(ctx context.Context, roomID string, ev transport.Event) error
}

// Recorder persists finalized chunks; wired to the transcript service. An
// enhanced record carries the chunk ids it supersedes.
type Recorder interface {
	Record(ctx context.Context, eventID, chunkID, text, sourceLang string, enhanced bool, replaces []string) error
}

// Pipeline is the per-event capture path: interims pass straight through,
// finals get a chunk id, go out immediately, and feed the enhancement
// buffer. When the buffer flushes, the batch goes through the LLM and the
// corrected text replaces the original chunks atomically downstream.
type Pipeline struct {
	eventID    string
	sourceLang string

	pub      Publisher
	enhancer llm.Provider
	rec      Recorder
	log      *logrus.Entry

	buf *ChunkBuffer
}

func NewPipeline(eventID, sourceLang string, pub Publisher, enhancer llm.Provider, rec Recorder, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Pipeline{
		eventID:    eventID,
		sourceLang: sourceLang,
		pub:        pub,
		enhancer:   enhancer,
		rec:        rec,
		log:        log.WithField("event_id", eventID),
		buf:        NewChunkBuffer(),
	}
}

// HandleInterim forwards a not-yet-final recognizer update to viewers.
func (p *Pipeline) HandleInterim(ctx context.Context, text string, translations map[string]string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	ev := transport.Interim{Text: text, SourceLanguage: p.sourceLang, Translations: translations}
	if err := p.pub.PublishTranscription(ctx, p.eventID, ev); err != nil {
		p.log.WithError(err).Warn("interim publish failed")
	}
}

// HandleFinal publishes a finalized chunk immediately and queues it for
// enhancement. Returns the assigned chunk id.
func (p *Pipeline) HandleFinal(ctx context.Context, text string, translations map[string]string) string {
	text = strings.TrimSpace(text)
	chunkID := uuid.NewString()

	ev := transport.Final{
		Text:           text,
		SourceLanguage: p.sourceLang,
		Translations:   translations,
		ChunkIDs:       []string{chunkID},
	}
	if err := p.pub.PublishTranscription(ctx, p.eventID, ev); err != nil {
		p.log.WithError(err).Warn("final publish failed")
	}
	if text == "" {
		return chunkID
	}

	if p.rec != nil {
		if err := p.rec.Record(ctx, p.eventID, chunkID, text, p.sourceLang, false, nil); err != nil {
			p.log.WithError(err).Warn("chunk record failed")
		}
	}

	p.buf.Add(chunkID, text)
	p.maybeEnhance(ctx)
	return chunkID
}

// Run re-checks the buffer timing between finals and drains it on shutdown.
func (p *Pipeline) Run(ctx context.Context) {
	t := time.NewTicker(flushPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if p.buf.Pending() > 0 {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				p.enhanceNow(flushCtx)
				cancel()
			}
			return
		case <-t.C:
			p.maybeEnhance(ctx)
		}
	}
}

func (p *Pipeline) maybeEnhance(ctx context.Context) {
	if !p.buf.ShouldFlush() {
		return
	}
	p.enhanceNow(ctx)
}

func (p *Pipeline) enhanceNow(ctx context.Context) {
	text, ids := p.buf.Flush()
	if len(ids) == 0 {
		return
	}
	if p.enhancer == nil || !WorthEnhancing(text) {
		return
	}

	start := time.Now()
	enhanced, err := p.enhance(ctx, text)
	if err != nil {
		// original chunks are already on screen; enhancement is best effort
		p.log.WithError(err).Warn("enhancement failed, keeping raw chunks")
		return
	}
	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		return
	}

	chunkID := uuid.NewString()
	ev := transport.Final{
		Text:             enhanced,
		SourceLanguage:   p.sourceLang,
		ChunkIDs:         []string{chunkID},
		ReplacesChunkIDs: ids,
		ContextEnhanced:  true,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	if err := p.pub.PublishTranscription(ctx, p.eventID, ev); err != nil {
		p.log.WithError(err).Warn("enhanced publish failed")
		return
	}
	if p.rec != nil {
		if err := p.rec.Record(ctx, p.eventID, chunkID, enhanced, p.sourceLang, true, ids); err != nil {
			p.log.WithError(err).Warn("enhanced chunk record failed")
		}
	}
}

const enhancePrompt = "You are a realtime transcription corrector. Fix recognition errors, " +
	"punctuation and casing in the following live speech transcript using its own context. " +
	"Reply with the corrected transcript only, no commentary.\n\nTranscript:\n"

func (p *Pipeline) enhance(ctx context.Context, text string) (string, error) {
	chunks, errs := p.enhancer.StreamAnswer(ctx, enhancePrompt+text)

	var full strings.Builder
	for c := range chunks {
		full.WriteString(c)
	}
	select {
	case err := <-errs:
		if err != nil {
			return "", err
		}
	default:
	}
	return full.String(), nil
}
