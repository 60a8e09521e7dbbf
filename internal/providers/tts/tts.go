package tts

import "context"

type Provider interface {
	// Synthesize renders text with the given provider voice identifier and
	// playback rate (1.0 = normal) and returns encoded audio bytes.
	Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}
