// Package capture turns the raw recognizer output of a live event into the
// transcription stream viewers subscribe to: finalized chunks go out
// immediately, and a rolling buffer batches them for context enhancement.
package capture

import (
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Flush tuning. Short buffers wait longer for a sentence to complete;
// once the text passes optimalLength the minimum wait applies.
const (
	minWait       = 800 * time.Millisecond
	maxWait       = 4 * time.Second
	optimalLength = 150
	forceFlushLen = 300

	// minEnhanceLen gates the LLM pass: fragments below this add latency
	// without giving the model anything to correct.
	minEnhanceLen = 10
)

var (
	sentenceEnd   = regexp.MustCompile(`[.!?]["')\]]*$`)
	abbreviation  = regexp.MustCompile(`(?i)\b(?:mr|mrs|ms|dr|prof|sr|jr|st|vs|etc|approx|e\.g|i\.e)\.$`)
	trailingDigit = regexp.MustCompile(`\d\.$`)
)

// Chunk is one finalized recognizer result awaiting enhancement.
type Chunk struct {
	ID   string
	Text string
}

// ChunkBuffer accumulates finalized chunks and decides when the batch is
// ready for a context-enhancement pass. Safe for concurrent use.
type ChunkBuffer struct {
	mu      sync.Mutex
	chunks  []Chunk
	firstAt time.Time

	now func() time.Time
}

func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{now: time.Now}
}

// Add appends a finalized chunk. Empty text is dropped.
func (b *ChunkBuffer) Add(id, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.chunks) == 0 {
		b.firstAt = b.now()
	}
	b.chunks = append(b.chunks, Chunk{ID: id, Text: text})
}

func (b *ChunkBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// ShouldFlush reports whether the buffered text is ready for enhancement.
func (b *ChunkBuffer) ShouldFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := b.joined()
	if text == "" {
		return false
	}
	if len(text) > forceFlushLen {
		return true
	}

	elapsed := b.now().Sub(b.firstAt)
	if elapsed >= maxWait {
		return true
	}
	return endsSentence(text) && elapsed >= adaptiveWait(len(text))
}

// Flush drains the buffer, returning the combined text and the chunk ids
// that produced it.
func (b *ChunkBuffer) Flush() (string, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := b.joined()
	ids := make([]string, len(b.chunks))
	for i, c := range b.chunks {
		ids[i] = c.ID
	}
	b.chunks = nil
	return text, ids
}

func (b *ChunkBuffer) joined() string {
	parts := make([]string, len(b.chunks))
	for i, c := range b.chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

// adaptiveWait scales the boundary wait down as the buffer grows: a lone
// short phrase waits toward maxWait for more context, a near-optimal batch
// only waits minWait.
func adaptiveWait(n int) time.Duration {
	if n >= optimalLength {
		return minWait
	}
	frac := float64(optimalLength-n) / float64(optimalLength)
	return minWait + time.Duration(frac*float64(maxWait-minWait))
}

// endsSentence detects a real sentence boundary, excluding the usual false
// positives: abbreviations, trailing numerals ("item 3."), and ellipses.
func endsSentence(t string) bool {
	t = strings.TrimSpace(t)
	if !sentenceEnd.MatchString(t) {
		return false
	}
	if strings.HasSuffix(t, "...") {
		return false
	}
	if abbreviation.MatchString(t) {
		return false
	}
	if trailingDigit.MatchString(t) {
		return false
	}
	return true
}

// WorthEnhancing gates the LLM pass on text quality.
func WorthEnhancing(t string) bool {
	t = strings.TrimSpace(t)
	if len(t) < minEnhanceLen {
		return false
	}
	for _, r := range t {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
