// Package speech drives spoken playback of translated captions: a single
// FIFO queue of utterances, at most one synthesis in flight, and a spoken
// set so the same text is never voiced twice in one session.
package speech

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/providers/tts"
)

// resyncInterval is how often the output route is re-asserted while
// auto-speak is active. Mobile browsers silently reroute audio when the
// page is backgrounded or a headset disconnects.
const resyncInterval = 10 * time.Second

// Sink is where synthesized audio goes. Play blocks until playback
// finishes or ctx is cancelled. Resync re-asserts the configured output
// route (speaker vs earpiece).
type Sink interface {
	Play(ctx context.Context, audio []byte) error
	Resync(ctx context.Context) error
}

type utterance struct {
	id   string
	text string
	lang string
}

// Engine is the playback singleton for one listening session. All methods
// are safe for concurrent use.
type Engine struct {
	provider tts.Provider
	sink     Sink
	log      *logrus.Entry

	mu      sync.Mutex
	queue   []utterance
	spoken  map[string]struct{}
	enabled bool
	gender  string
	speed   float64
	playing bool
	cancel  context.CancelFunc // cancels the in-flight synthesis+playback

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func New(provider tts.Provider, sink Sink, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	e := &Engine{
		provider: provider,
		sink:     sink,
		log:      log,
		spoken:   map[string]struct{}{},
		gender:   language.GenderFemale,
		speed:    1.0,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	e.wg.Add(2)
	go e.run()
	go e.resyncLoop()
	return e
}

// Close stops the worker goroutines. Pending utterances are dropped.
func (e *Engine) Close() {
	e.Stop()
	close(e.done)
	e.wg.Wait()
}

// SetAutoSpeak toggles playback. Enabling clears the spoken set so the
// currently visible text is eligible again, and re-asserts the output
// route; disabling is a hard stop.
func (e *Engine) SetAutoSpeak(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	if enabled {
		e.spoken = map[string]struct{}{}
	}
	e.mu.Unlock()

	if enabled {
		e.resync()
	} else {
		e.Stop()
	}
}

func (e *Engine) AutoSpeak() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// SetVoiceGender selects between the female and male voice column for
// whatever language each utterance carries.
func (e *Engine) SetVoiceGender(gender string) {
	e.mu.Lock()
	e.gender = gender
	e.mu.Unlock()
}

// SetSpeed sets the playback rate (1.0 = normal).
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// LanguageChanged flushes playback state for a target-language switch:
// stop what is playing, drop the queue, and forget what was spoken.
func (e *Engine) LanguageChanged() {
	e.Stop()
	e.mu.Lock()
	e.spoken = map[string]struct{}{}
	e.mu.Unlock()
}

// Enqueue offers one translated segment for playback. Disabled engines and
// already-spoken text are ignored; segments get fresh ids on every
// resolution, so dedup keys on the exact text (the id is kept for logging).
// The text enters the spoken set here, before synthesis starts, so the same
// utterance re-delivered while in flight stays unique.
func (e *Engine) Enqueue(id, text, lang string) {
	e.mu.Lock()
	if !e.enabled || text == "" {
		e.mu.Unlock()
		return
	}
	if _, seen := e.spoken[text]; seen {
		e.mu.Unlock()
		return
	}
	e.spoken[text] = struct{}{}
	e.queue = append(e.queue, utterance{id: id, text: text, lang: lang})
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Stop hard-cancels playback: the in-flight synthesis is aborted, the
// queue is dropped, and the in-flight lock is released. The spoken set is
// left intact so stopped segments are not re-voiced.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.queue = nil
	e.playing = false
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Playing reports whether an utterance is being synthesized or voiced.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// QueueLen reports pending utterances not yet in flight.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// NotifyVisible is the foreground/visibility hook; it re-asserts the output
// route immediately instead of waiting for the next tick.
func (e *Engine) NotifyVisible() {
	e.mu.Lock()
	enabled := e.enabled
	e.mu.Unlock()
	if enabled {
		e.resync()
	}
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
		}
		for e.playNext() {
		}
	}
}

// playNext pops and voices one utterance; false when the queue is empty.
func (e *Engine) playNext() bool {
	e.mu.Lock()
	if len(e.queue) == 0 || e.playing {
		e.mu.Unlock()
		return false
	}
	u := e.queue[0]
	e.queue = e.queue[1:]
	ctx, cancel := context.WithCancel(context.Background())
	e.playing = true
	e.cancel = cancel
	voice := language.VoiceFor(u.lang, e.gender)
	speed := e.speed
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		e.playing = false
		if e.cancel != nil {
			e.cancel = nil
		}
		e.mu.Unlock()
	}()

	audio, err := e.provider.Synthesize(ctx, u.text, voice, speed)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		// no retry: the queue keeps moving past a failed segment
		e.log.WithError(err).WithField("segment_id", u.id).Warn("synthesis failed, skipping segment")
		return true
	}
	if len(audio) == 0 {
		return true
	}
	if err := e.sink.Play(ctx, audio); err != nil && ctx.Err() == nil {
		e.log.WithError(err).WithField("segment_id", u.id).Warn("playback failed")
	}
	return true
}

func (e *Engine) resyncLoop() {
	defer e.wg.Done()
	t := time.NewTicker(resyncInterval)
	defer t.Stop()
	for {
		select {
		case <-e.done:
			return
		case <-t.C:
			e.mu.Lock()
			enabled := e.enabled
			e.mu.Unlock()
			if enabled {
				e.resync()
			}
		}
	}
}

func (e *Engine) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.sink.Resync(ctx); err != nil {
		e.log.WithError(err).Debug("output route resync failed")
	}
}
