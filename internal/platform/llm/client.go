package llm

import (
	"context"
	"errors"
)

// Message is a minimal chat message passed to the generation backend.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Client is the generation backend used by the chat pipeline. Chat accepts
// the full message sequence (system prompt + rendered conversation) and
// returns the raw completion text. An empty string with a nil error means
// the backend produced no usable output.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Unavailable is the backend used when no API key is configured. Every call
// fails, which the chat pipeline turns into its static apology reply.
type Unavailable struct{}

func (Unavailable) Chat(context.Context, []Message) (string, error) {
	return "", errors.New("llm backend not configured")
}
