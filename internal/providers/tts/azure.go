package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/interpretd/speechrelay/internal/language"
)

const (
	// outputFormat keeps payloads small enough for phone playback over
	// conference wifi while staying broadly decodable.
	outputFormat = "audio-24khz-48kbitrate-mono-mp3"

	// synthesisTimeout caps one request; a hung synthesis must not stall
	// the playback queue behind it.
	synthesisTimeout = 10 * time.Second
)

// Azure synthesizes speech through the Azure Cognitive Services neural TTS
// REST endpoint. One POST per utterance, SSML in, MP3 bytes out.
type Azure struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewAzure(apiKey, region string) *Azure {
	return &Azure{
		apiKey:  apiKey,
		baseURL: fmt.Sprintf("https://%s.tts.speech.microsoft.com", region),
		http:    &http.Client{Timeout: synthesisTimeout},
	}
}

// NewAzureWithBaseURL overrides the regional endpoint, for tests.
func NewAzureWithBaseURL(apiKey, baseURL string) *Azure {
	return &Azure{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: synthesisTimeout},
	}
}

func (a *Azure) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if voice == "" {
		voice = language.DefaultVoice
	}

	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/cognitiveservices/v1", strings.NewReader(ssml(text, voice, speed)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.apiKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("azure tts status=%d body=%s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

// ssml builds the synthesis document. The voice locale is derived from the
// voice name itself (ex: "fr-FR-DeniseNeural" -> "fr-FR"); rate is relative
// percent off 1.0.
func ssml(text, voice string, speed float64) string {
	if speed <= 0 {
		speed = 1.0
	}
	rate := fmt.Sprintf("%+.0f%%", (speed-1.0)*100)

	locale := voice
	if parts := strings.SplitN(voice, "-", 3); len(parts) == 3 {
		locale = parts[0] + "-" + parts[1]
	}

	var b strings.Builder
	b.WriteString(`<speak version="1.0" xml:lang="`)
	b.WriteString(locale)
	b.WriteString(`"><voice name="`)
	b.WriteString(voice)
	b.WriteString(`"><prosody rate="`)
	b.WriteString(rate)
	b.WriteString(`">`)
	xmlEscape(&b, text)
	b.WriteString(`</prosody></voice></speak>`)
	return b.String()
}

func xmlEscape(b *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
}
