package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	block chan struct{} // when set, Synthesize waits for ctx or close
}

func (f *fakeProvider) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	block := f.block
	fail := f.fail[text]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if fail {
		return nil, errors.New("synthesis refused")
	}
	return []byte("audio:" + text + ":" + voice), nil
}

func (f *fakeProvider) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeSink struct {
	mu      sync.Mutex
	played  []string
	resyncs int
	notify  chan struct{}
}

func (s *fakeSink) Play(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	s.played = append(s.played, string(audio))
	n := s.notify
	s.mu.Unlock()
	if n != nil {
		n <- struct{}{}
	}
	return nil
}

func (s *fakeSink) Resync(ctx context.Context) error {
	s.mu.Lock()
	s.resyncs++
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) playedTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.played))
	copy(out, s.played)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPlaybackOrderAndDedup(t *testing.T) {
	p := &fakeProvider{}
	s := &fakeSink{}
	e := New(p, s, nil)
	defer e.Close()

	e.SetAutoSpeak(true)
	e.Enqueue("s1", "Hola", "es")
	e.Enqueue("s2", "mundo", "es")
	// every resolution mints a fresh segment id, so the same text arriving
	// under a new id must still count as already spoken
	e.Enqueue("s3", "Hola", "es")

	waitFor(t, func() bool { return len(s.playedTexts()) == 2 })

	got := s.playedTexts()
	if got[0] != "audio:Hola:es-ES-ElviraNeural" || got[1] != "audio:mundo:es-ES-ElviraNeural" {
		t.Fatalf("playback order/voice wrong: %v", got)
	}
	if len(p.texts()) != 2 {
		t.Fatalf("duplicate text reached synthesis: %v", p.texts())
	}
}

func TestDuplicateTextWhileInFlightSynthesizedOnce(t *testing.T) {
	block := make(chan struct{})
	p := &fakeProvider{block: block}
	s := &fakeSink{}
	e := New(p, s, nil)
	defer e.Close()

	e.SetAutoSpeak(true)
	e.Enqueue("s1", "Hola mundo", "es")
	waitFor(t, func() bool { return len(p.texts()) == 1 })
	e.Enqueue("s2", "Hola mundo", "es") // in flight under another id
	close(block)

	waitFor(t, func() bool { return len(s.playedTexts()) == 1 && !e.Playing() })
	time.Sleep(50 * time.Millisecond)
	if len(p.texts()) != 1 {
		t.Fatalf("identical text synthesized %d times", len(p.texts()))
	}
}

func TestDisabledEngineIgnoresSegments(t *testing.T) {
	p := &fakeProvider{}
	e := New(p, &fakeSink{}, nil)
	defer e.Close()

	e.Enqueue("s1", "Hola", "es")
	time.Sleep(50 * time.Millisecond)
	if len(p.texts()) != 0 {
		t.Fatal("disabled engine must not synthesize")
	}
}

func TestFailureSkipsWithoutRetry(t *testing.T) {
	p := &fakeProvider{fail: map[string]bool{"bad": true}}
	s := &fakeSink{}
	e := New(p, s, nil)
	defer e.Close()

	e.SetAutoSpeak(true)
	e.Enqueue("s1", "bad", "es")
	e.Enqueue("s2", "good", "es")

	waitFor(t, func() bool { return len(s.playedTexts()) == 1 })
	if got := s.playedTexts()[0]; got != "audio:good:es-ES-ElviraNeural" {
		t.Fatalf("queue should continue past the failure, got %v", got)
	}
	// exactly one attempt for the failed segment
	attempts := 0
	for _, c := range p.texts() {
		if c == "bad" {
			attempts++
		}
	}
	if attempts != 1 {
		t.Fatalf("failed segment retried %d times", attempts)
	}
}

func TestStopDropsQueueAndCancelsInFlight(t *testing.T) {
	block := make(chan struct{})
	p := &fakeProvider{block: block}
	s := &fakeSink{}
	e := New(p, s, nil)
	defer e.Close()

	e.SetAutoSpeak(true)
	e.Enqueue("s1", "first", "es")
	waitFor(t, func() bool { return len(p.texts()) == 1 })
	e.Enqueue("s2", "second", "es")
	e.Enqueue("s3", "third", "es")

	e.Stop()
	close(block)

	waitFor(t, func() bool { return !e.Playing() && e.QueueLen() == 0 })
	time.Sleep(50 * time.Millisecond)
	if len(s.playedTexts()) != 0 {
		t.Fatalf("nothing should have played after stop, got %v", s.playedTexts())
	}

	// stopped segments stay in the spoken set
	e.Enqueue("s4", "second", "es")
	time.Sleep(50 * time.Millisecond)
	if len(p.texts()) != 1 {
		t.Fatalf("stopped text was re-voiced: %v", p.texts())
	}
}

func TestEnableClearsSpokenSet(t *testing.T) {
	p := &fakeProvider{}
	s := &fakeSink{notify: make(chan struct{}, 8)}
	e := New(p, s, nil)
	defer e.Close()

	e.SetAutoSpeak(true)
	e.Enqueue("s1", "Hola", "es")
	<-s.notify

	e.SetAutoSpeak(false)
	e.SetAutoSpeak(true)
	e.Enqueue("s2", "Hola", "es")
	<-s.notify

	if len(s.playedTexts()) != 2 {
		t.Fatalf("re-enable should allow the text again, played %v", s.playedTexts())
	}
}

func TestLanguageChangeClearsState(t *testing.T) {
	p := &fakeProvider{}
	s := &fakeSink{notify: make(chan struct{}, 8)}
	e := New(p, s, nil)
	defer e.Close()

	e.SetAutoSpeak(true)
	e.Enqueue("s1", "Hola", "es")
	<-s.notify

	e.LanguageChanged()
	e.Enqueue("s1", "Bonjour", "fr")
	<-s.notify

	got := s.playedTexts()
	if len(got) != 2 || got[1] != "audio:Bonjour:fr-FR-DeniseNeural" {
		t.Fatalf("language switch should reset spoken set, played %v", got)
	}
}

func TestVoiceGenderSelection(t *testing.T) {
	p := &fakeProvider{}
	s := &fakeSink{notify: make(chan struct{}, 8)}
	e := New(p, s, nil)
	defer e.Close()

	e.SetAutoSpeak(true)
	e.SetVoiceGender("male")
	e.Enqueue("s1", "Hallo", "de")
	<-s.notify

	if got := s.playedTexts()[0]; got != "audio:Hallo:de-DE-ConradNeural" {
		t.Fatalf("male voice not selected: %v", got)
	}
}

func TestVisibilityResync(t *testing.T) {
	p := &fakeProvider{}
	s := &fakeSink{}
	e := New(p, s, nil)
	defer e.Close()

	e.SetAutoSpeak(true) // one resync on enable
	e.NotifyVisible()    // one more

	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.resyncs >= 2
	})
}
