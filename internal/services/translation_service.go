package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/interpretd/speechrelay/internal/cache"
	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/metrics"
	"github.com/interpretd/speechrelay/internal/models"
	"github.com/interpretd/speechrelay/internal/providers/translate"
	"github.com/interpretd/speechrelay/internal/utils"
)

// translationTTL caches independent fetches; live speech rarely repeats
// verbatim, but reconnecting viewers replay the same finals.
const translationTTL = time.Hour

type TranslationService interface {
	// Resolve produces the translation segment for one finalized caption.
	// Attached translations from the capture side win; otherwise the text
	// is fetched independently. A nil segment with nil error means there
	// is nothing to display.
	Resolve(ctx context.Context, text string, attached map[string]string, targetLang string) (*models.TranslationSegment, error)
}

type translationService struct {
	provider translate.Provider
	cache    cache.Cache
}

func NewTranslationService(provider translate.Provider, c cache.Cache) TranslationService {
	return &translationService{provider: provider, cache: c}
}

func (s *translationService) Resolve(ctx context.Context, text string, attached map[string]string, targetLang string) (*models.TranslationSegment, error) {
	const op = "TranslationService.Resolve"

	text = strings.TrimSpace(text)
	base := language.Normalize(targetLang)
	if text == "" || base == "" {
		return nil, nil
	}

	// Fast path: the capture pipeline already translated this final.
	if t, ok := attachedFor(attached, base); ok {
		metrics.TranslationResolutions.WithLabelValues(models.TranslationSourceProvider).Inc()
		return &models.TranslationSegment{
			ID:        uuid.NewString(),
			Text:      t,
			Language:  base,
			Timestamp: time.Now().UTC(),
			Source:    models.TranslationSourceProvider,
		}, nil
	}

	if s.provider == nil {
		return nil, nil
	}

	key := translationKey(base, text)
	if s.cache != nil {
		var cached string
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit && cached != "" {
			metrics.TranslationResolutions.WithLabelValues(models.TranslationSourceFetched).Inc()
			return &models.TranslationSegment{
				ID:        uuid.NewString(),
				Text:      cached,
				Language:  base,
				Timestamp: time.Now().UTC(),
				Source:    models.TranslationSourceFetched,
			}, nil
		}
	}

	start := time.Now()
	out, err := s.provider.Translate(ctx, text, base)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "translation fetch failed", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, out, translationTTL)
	}

	metrics.TranslationResolutions.WithLabelValues(models.TranslationSourceFetched).Inc()
	return &models.TranslationSegment{
		ID:               uuid.NewString(),
		Text:             out,
		Language:         base,
		Timestamp:        time.Now().UTC(),
		Source:           models.TranslationSourceFetched,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

// attachedFor probes the attached map in precedence order: exact base code,
// uppercased base, then any region-qualified spelling of the same language.
func attachedFor(attached map[string]string, base string) (string, bool) {
	if len(attached) == 0 {
		return "", false
	}
	if t := strings.TrimSpace(attached[base]); t != "" {
		return t, true
	}
	if t := strings.TrimSpace(attached[strings.ToUpper(base)]); t != "" {
		return t, true
	}
	for k, v := range attached {
		if language.Normalize(k) == base {
			if t := strings.TrimSpace(v); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

func translationKey(lang, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "translate:" + lang + ":" + hex.EncodeToString(sum[:8])
}
