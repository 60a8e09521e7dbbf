package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/interpretd/speechrelay/internal/models"
)

type fakeTranslator struct {
	mu    sync.Mutex
	calls int
	reply string
	fail  bool
}

func (f *fakeTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return "", errors.New("translator down")
	}
	return f.reply, nil
}

func (f *fakeTranslator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	*(dst.(*string)) = v
	return true, nil
}

func (c *memCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val.(string)
	return nil
}

func (c *memCache) Del(ctx context.Context, keys ...string) error { return nil }

func TestResolveAttachedFastPath(t *testing.T) {
	tr := &fakeTranslator{reply: "should not be used"}
	s := NewTranslationService(tr, nil)

	seg, err := s.Resolve(context.Background(), "Hello", map[string]string{"fr": "Bonjour"}, "fr-FR")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if seg == nil || seg.Text != "Bonjour" {
		t.Fatalf("attached translation should win: %+v", seg)
	}
	if seg.Source != models.TranslationSourceProvider {
		t.Fatalf("provenance = %q", seg.Source)
	}
	if seg.Language != "fr" {
		t.Fatalf("language should normalize to base code, got %q", seg.Language)
	}
	if tr.count() != 0 {
		t.Fatal("fast path must not fetch")
	}
}

func TestResolveAttachedVariantSpellings(t *testing.T) {
	s := NewTranslationService(&fakeTranslator{}, nil)

	for _, attached := range []map[string]string{
		{"DE": "Hallo"},
		{"de-DE": "Hallo"},
		{"de": "Hallo"},
	} {
		seg, err := s.Resolve(context.Background(), "Hello", attached, "de")
		if err != nil || seg == nil || seg.Text != "Hallo" {
			t.Fatalf("variant %v not matched: %+v err=%v", attached, seg, err)
		}
	}
}

func TestResolveIndependentFetch(t *testing.T) {
	tr := &fakeTranslator{reply: "Hola mundo"}
	s := NewTranslationService(tr, nil)

	seg, err := s.Resolve(context.Background(), "Hello world", nil, "es")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if seg == nil || seg.Text != "Hola mundo" {
		t.Fatalf("fetched translation missing: %+v", seg)
	}
	if seg.Source != models.TranslationSourceFetched {
		t.Fatalf("provenance = %q", seg.Source)
	}
	if tr.count() != 1 {
		t.Fatalf("expected one fetch, got %d", tr.count())
	}
}

func TestResolveCacheHitSkipsFetch(t *testing.T) {
	tr := &fakeTranslator{reply: "Hallo Welt"}
	s := NewTranslationService(tr, newMemCache())

	for i := 0; i < 3; i++ {
		seg, err := s.Resolve(context.Background(), "Hello world", nil, "de")
		if err != nil || seg == nil || seg.Text != "Hallo Welt" {
			t.Fatalf("resolve %d: %+v err=%v", i, seg, err)
		}
	}
	if tr.count() != 1 {
		t.Fatalf("cache should absorb repeats, fetched %d times", tr.count())
	}
}

func TestResolveEmptyMeansNothing(t *testing.T) {
	tr := &fakeTranslator{reply: ""}
	s := NewTranslationService(tr, nil)

	seg, err := s.Resolve(context.Background(), "Hello", nil, "es")
	if err != nil || seg != nil {
		t.Fatalf("empty provider result should yield nil segment, got %+v err=%v", seg, err)
	}

	seg, err = s.Resolve(context.Background(), "   ", nil, "es")
	if err != nil || seg != nil {
		t.Fatalf("empty text should yield nil segment, got %+v err=%v", seg, err)
	}
}

func TestResolveFetchFailure(t *testing.T) {
	s := NewTranslationService(&fakeTranslator{fail: true}, nil)

	if _, err := s.Resolve(context.Background(), "Hello", nil, "es"); err == nil {
		t.Fatal("provider failure should surface")
	}
}

func TestResolveNoProviderNoAttached(t *testing.T) {
	s := NewTranslationService(nil, nil)
	seg, err := s.Resolve(context.Background(), "Hello", nil, "es")
	if err != nil || seg != nil {
		t.Fatalf("no provider should mean nothing to display, got %+v err=%v", seg, err)
	}
}
