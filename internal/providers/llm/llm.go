package llm

import "context"

// Provider streams model output for a prompt. The capture pipeline uses it
// for context enhancement of buffered transcript batches.
type Provider interface {
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, prompt string) (chunks <-chan string, errs <-chan error)
	Close() error
}
