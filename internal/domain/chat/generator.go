package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/medichat/medichat/internal/platform/llm"
)

// Generator produces patient-safe chat responses. It issues the model
// request with the fixed prompt template and guarantees the disclaimer is
// present verbatim in every reply carrying generated text.
type Generator struct {
	backend llm.Client
}

func NewGenerator(backend llm.Client) *Generator {
	return &Generator{backend: backend}
}

// Generate runs one conversation turn. The returned Response always
// contains the Disclaimer, except when the backend yields no usable output,
// in which case it is exactly FallbackMessage.
//
// A transport failure from the backend is returned as an error; the caller
// substitutes its own static apology text in that case.
func (g *Generator) Generate(ctx context.Context, req Request) (Response, error) {
	messages := []llm.Message{
		{Role: "system", Content: SystemPrompt(req.PatientName)},
		{Role: "user", Content: UserPrompt(req)},
	}

	text, err := g.backend.Chat(ctx, messages)
	if err != nil {
		return Response{}, fmt.Errorf("generation backend: %w", err)
	}

	if text == "" {
		return Response{Response: FallbackMessage}, nil
	}

	return Response{Response: EnsureDisclaimer(text)}, nil
}

// EnsureDisclaimer enforces the disclaimer invariant on generated text. If
// the exact disclaimer is already present anywhere, the text is returned
// byte-identical; otherwise the disclaimer is appended after a blank line,
// with trailing whitespace trimmed from the model's text first.
func EnsureDisclaimer(text string) string {
	if strings.Contains(text, Disclaimer) {
		return text
	}
	return strings.TrimSpace(text) + "\n\n" + Disclaimer
}
