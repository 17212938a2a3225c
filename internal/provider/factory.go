package provider

import (
	"fmt"
	"os"
	"time"

	"colloquy/internal/persona"
)

// Factory resolves the provider variant and credential for a persona once,
// up front, instead of re-checking the model selector on every call.
type Factory struct {
	creds         CredentialSource
	openAIBase    string
	anthropicBase string
	seed          int64
}

// NewFactory creates a provider factory. Base URLs honor the
// OPENAI_BASE_URL and ANTHROPIC_BASE_URL environment overrides.
func NewFactory(creds CredentialSource) *Factory {
	return &Factory{
		creds:         creds,
		openAIBase:    os.Getenv("OPENAI_BASE_URL"),
		anthropicBase: os.Getenv("ANTHROPIC_BASE_URL"),
		seed:          time.Now().UnixNano(),
	}
}

// WithSeed fixes the simulated provider's random seed.
func (f *Factory) WithSeed(seed int64) *Factory {
	f.seed = seed
	return f
}

// ForPersona resolves the provider backing a persona's model selector.
// Network providers fail with ErrCredentialMissing when no secret is
// configured; no network call is attempted during resolution.
func (f *Factory) ForPersona(p *persona.Persona) (Provider, error) {
	switch p.Model {
	case persona.ModelOpenAI:
		secret, err := f.secret(string(persona.ModelOpenAI))
		if err != nil {
			return nil, err
		}
		return NewOpenAIProvider(secret, f.openAIBase), nil

	case persona.ModelAnthropic:
		secret, err := f.secret(string(persona.ModelAnthropic))
		if err != nil {
			return nil, err
		}
		return NewAnthropicProvider(secret, f.anthropicBase), nil

	case persona.ModelSimulated:
		return NewSimulatedProvider(f.seed), nil

	default:
		return nil, fmt.Errorf("unknown model selector: %q", p.Model)
	}
}

func (f *Factory) secret(providerName string) (string, error) {
	secret, ok, err := f.creds.Get(providerName)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s credential: %w", providerName, err)
	}
	if !ok || secret == "" {
		return "", fmt.Errorf("%s: %w", providerName, ErrCredentialMissing)
	}
	return secret, nil
}
