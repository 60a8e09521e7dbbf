package capture

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/interpretd/speechrelay/internal/transport"
)

type fakePub struct {
	mu     sync.Mutex
	events []transport.Event
}

func (f *fakePub) PublishTranscription(ctx context.Context, roomID string, ev transport.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePub) all() []transport.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Event, len(f.events))
	copy(out, f.events)
	return out
}

type fakeEnhancer struct {
	reply string
	fail  bool
}

func (f *fakeEnhancer) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, 4)
	errs := make(chan error, 1)
	if f.fail {
		errs <- errors.New("model unavailable")
	} else {
		out <- f.reply
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeEnhancer) Close() error { return nil }

func TestFinalGoesOutImmediately(t *testing.T) {
	pub := &fakePub{}
	p := NewPipeline("ev1", "en-US", pub, nil, nil, nil)

	id := p.HandleFinal(context.Background(), "Hello world.", map[string]string{"es": "Hola mundo."})

	evs := pub.all()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	fin, ok := evs[0].(transport.Final)
	if !ok || fin.Text != "Hello world." || fin.ContextEnhanced {
		t.Fatalf("unexpected final: %#v", evs[0])
	}
	if len(fin.ChunkIDs) != 1 || fin.ChunkIDs[0] != id {
		t.Fatalf("chunk id mismatch: %v vs %s", fin.ChunkIDs, id)
	}
	if fin.Translations["es"] != "Hola mundo." {
		t.Fatalf("translations dropped: %v", fin.Translations)
	}
}

func TestEnhancedFinalReplacesBufferedChunks(t *testing.T) {
	pub := &fakePub{}
	p := NewPipeline("ev1", "en-US", pub, &fakeEnhancer{reply: "Hello world, it is a pleasure to be here."}, nil, nil)

	id1 := p.HandleFinal(context.Background(), "hello world", nil)
	id2 := p.HandleFinal(context.Background(), "it is a pleasure to be here", nil)

	// force the batch out regardless of timing
	p.enhanceNow(context.Background())

	evs := pub.all()
	if len(evs) != 3 {
		t.Fatalf("expected 2 raw + 1 enhanced, got %d", len(evs))
	}
	enh, ok := evs[2].(transport.Final)
	if !ok || !enh.ContextEnhanced {
		t.Fatalf("last event should be enhanced: %#v", evs[2])
	}
	if enh.Text != "Hello world, it is a pleasure to be here." {
		t.Fatalf("enhanced text = %q", enh.Text)
	}
	if len(enh.ReplacesChunkIDs) != 2 || enh.ReplacesChunkIDs[0] != id1 || enh.ReplacesChunkIDs[1] != id2 {
		t.Fatalf("replaces = %v, want [%s %s]", enh.ReplacesChunkIDs, id1, id2)
	}
	if len(enh.ChunkIDs) != 1 || enh.ChunkIDs[0] == id1 || enh.ChunkIDs[0] == id2 {
		t.Fatalf("enhanced chunk needs a fresh id: %v", enh.ChunkIDs)
	}
}

func TestEnhancementFailureKeepsRawChunks(t *testing.T) {
	pub := &fakePub{}
	p := NewPipeline("ev1", "en-US", pub, &fakeEnhancer{fail: true}, nil, nil)

	p.HandleFinal(context.Background(), "hello world out there", nil)
	p.enhanceNow(context.Background())

	for _, ev := range pub.all() {
		if fin, ok := ev.(transport.Final); ok && fin.ContextEnhanced {
			t.Fatal("failed enhancement must not publish")
		}
	}
	if p.buf.Pending() != 0 {
		t.Fatal("buffer should still drain on failure")
	}
}

func TestTinyBatchSkipsEnhancement(t *testing.T) {
	pub := &fakePub{}
	p := NewPipeline("ev1", "en-US", pub, &fakeEnhancer{reply: "Ok."}, nil, nil)

	p.HandleFinal(context.Background(), "ok", nil)
	p.enhanceNow(context.Background())

	if len(pub.all()) != 1 {
		t.Fatalf("short fragments skip the model, got %d events", len(pub.all()))
	}
}

func TestRestartGate(t *testing.T) {
	transient := errors.New("stream reset by peer")

	g := &RestartGate{}
	for i := 0; i < MaxRestarts; i++ {
		if !g.Allow(transient) {
			t.Fatalf("restart %d should be allowed", i+1)
		}
	}
	if g.Allow(transient) {
		t.Fatal("budget exhausted, restart must be refused")
	}

	g.Reset()
	if !g.Allow(transient) {
		t.Fatal("reset should restore the budget")
	}
}

func TestFatalErrorsNeverRestart(t *testing.T) {
	g := &RestartGate{}
	for _, err := range []error{
		errors.New("rpc error: code = Unauthenticated desc = invalid API key"),
		errors.New("403 Forbidden"),
		errors.New("unsupported language: xx-XX"),
	} {
		if g.Allow(err) {
			t.Errorf("fatal error restarted: %v", err)
		}
	}
	if g.Restarts() != 0 {
		t.Fatal("fatal errors must not consume the restart budget")
	}
}
