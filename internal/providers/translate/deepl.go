package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/interpretd/speechrelay/internal/language"
)

const defaultDeepLBaseURL = "https://api-free.deepl.com"

// DeepL translates via the DeepL REST API. Target codes are sent as
// uppercased base codes ("fr-CA" -> "FR"), which is the form the API
// accepts for every language in the catalogue.
type DeepL struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewDeepL(apiKey string) *DeepL {
	return &DeepL{
		apiKey:  apiKey,
		baseURL: defaultDeepLBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewDeepLWithBaseURL points the client at a non-default endpoint (the paid
// API host, or a test server).
func NewDeepLWithBaseURL(apiKey, baseURL string) *DeepL {
	d := NewDeepL(apiKey)
	d.baseURL = strings.TrimRight(baseURL, "/")
	return d
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func (d *DeepL) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", strings.ToUpper(language.Normalize(targetLang)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("deepl status=%d body=%s", resp.StatusCode, string(b))
	}

	var out deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("deepl decode: %w", err)
	}
	if len(out.Translations) == 0 {
		return "", fmt.Errorf("deepl: empty translations array")
	}
	return out.Translations[0].Text, nil
}
