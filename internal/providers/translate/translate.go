package translate

import "context"

type Provider interface {
	// Translate returns the text rendered in the target language. The target
	// may arrive in any form (base code, region-qualified, display name);
	// implementations normalize it themselves.
	Translate(ctx context.Context, text, targetLang string) (string, error)
}
