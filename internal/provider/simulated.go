package provider

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"colloquy/internal/persona"
)

// fillerTemplates are generic in-character responses. The exact wording is
// a placeholder, not a contract: each references the persona's name or role.
var fillerTemplates = []string{
	"As %[2]s, I'd say that's worth a closer look before anyone rushes ahead.",
	"Speaking as %[1]s, I see this a little differently than the rest of you.",
	"That raises a fair point. From where I stand as %[2]s, the tradeoffs matter.",
	"I, %[1]s, have seen situations like this before, and they rarely go as planned.",
	"Let me put it plainly: %[2]s or not, I think we should keep talking this through.",
	"Interesting. %[1]s here. I'd want to hear what the others think first.",
}

// SimulatedProvider generates offline replies with no network I/O. It backs
// the "simulated" model selector and the engine's degraded-reply path.
type SimulatedProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedProvider creates a simulated provider. The seed makes reply
// selection reproducible for a given session.
func NewSimulatedProvider(seed int64) *SimulatedProvider {
	return &SimulatedProvider{rng: rand.New(rand.NewSource(seed))}
}

// Name returns the provider name.
func (p *SimulatedProvider) Name() string {
	return string(persona.ModelSimulated)
}

// GenerateReply picks one of the filler templates. Never fails.
func (p *SimulatedProvider) GenerateReply(_ context.Context, req Request) (string, error) {
	p.mu.Lock()
	tmpl := fillerTemplates[p.rng.Intn(len(fillerTemplates))]
	p.mu.Unlock()

	return fmt.Sprintf(tmpl, req.Persona.Name, strings.ToLower(req.Persona.Role)), nil
}
