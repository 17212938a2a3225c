// Package provider implements the model-adapter layer: a common interface
// over the chat-completion style, message-completion style and simulated
// backends that generate persona replies.
package provider

import (
	"context"

	"colloquy/internal/persona"
	"colloquy/internal/transcript"
)

// Request carries everything a provider needs to generate one reply.
type Request struct {
	// Persona is the speaker whose reply is being generated.
	Persona *persona.Persona
	// History is the non-system conversation so far, in order.
	History []transcript.Message
	// MaxWords bounds the reply length; zero means the default budget.
	MaxWords int
}

// Provider generates replies for personas backed by one model vendor.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// GenerateReply produces a reply for the persona given the
	// conversation history. Network providers return *ProviderError on a
	// non-success upstream response.
	GenerateReply(ctx context.Context, req Request) (string, error)
}

// CredentialSource resolves per-provider secrets. The secret is used for a
// single outbound call chain and never persisted here.
type CredentialSource interface {
	// Get returns the secret for a provider, with ok=false when no secret
	// is configured.
	Get(provider string) (secret string, ok bool, err error)
}

// DefaultMaxWords is used when a request carries no word budget.
const DefaultMaxWords = 200

// maxTokens derives a provider token limit from a word budget.
func maxTokens(words int) int {
	if words <= 0 {
		words = DefaultMaxWords
	}
	tokens := words * 2
	if tokens < 64 {
		tokens = 64
	}
	return tokens
}
