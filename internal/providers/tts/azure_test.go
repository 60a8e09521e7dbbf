package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAzureSynthesize(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cognitiveservices/v1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "k" {
			t.Errorf("key header = %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte("mp3bytes"))
	}))
	defer srv.Close()

	a := NewAzureWithBaseURL("k", srv.URL)
	audio, err := a.Synthesize(context.Background(), "Bonjour & salut", "fr-FR-DeniseNeural", 1.0)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio) != "mp3bytes" {
		t.Fatalf("audio = %q", audio)
	}
	for _, want := range []string{
		`xml:lang="fr-FR"`,
		`voice name="fr-FR-DeniseNeural"`,
		`rate="+0%"`,
		"Bonjour &amp; salut",
	} {
		if !strings.Contains(gotBody, want) {
			t.Fatalf("ssml missing %q:\n%s", want, gotBody)
		}
	}
}

func TestAzureSpeedRate(t *testing.T) {
	if got := ssml("hi", "en-US-JennyNeural", 1.2); !strings.Contains(got, `rate="+20%"`) {
		t.Fatalf("rate not applied: %s", got)
	}
	if got := ssml("hi", "en-US-JennyNeural", 0); !strings.Contains(got, `rate="+0%"`) {
		t.Fatalf("zero speed should mean normal rate: %s", got)
	}
}

func TestAzureDefaultVoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), "en-US-JennyNeural") {
			t.Errorf("empty voice should fall back to the default, got:\n%s", b)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	a := NewAzureWithBaseURL("k", srv.URL)
	if _, err := a.Synthesize(context.Background(), "hello", "", 1.0); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
}

func TestAzureErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	a := NewAzureWithBaseURL("k", srv.URL)
	if _, err := a.Synthesize(context.Background(), "hello", "nope", 1.0); err == nil {
		t.Fatal("non-200 should surface an error")
	}
}
