package ai

import "context"

// Prompt is one completion request; System carries the output schema.
type Prompt struct {
	System string
	User   string
}

// Client returns raw completion text, expected but not guaranteed to be JSON.
type Client interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}
