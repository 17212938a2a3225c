package persona

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt renders a persona into the system instruction sent to a
// model provider. Pure and deterministic; sections without content are
// omitted entirely.
func BuildSystemPrompt(p *Persona) string {
	sections := []string{fmt.Sprintf("You are %s, %s.", p.Name, p.Role)}

	if len(p.Traits) > 0 {
		var b strings.Builder
		b.WriteString("Your personality:")
		for _, t := range p.Traits {
			fmt.Fprintf(&b, "\n- %s %s", t.Intensity.Adverb(), strings.ToLower(t.Name))
		}
		sections = append(sections, b.String())
	}

	if p.Knowledge != "" {
		sections = append(sections, "What you know:\n"+p.Knowledge)
	}

	sections = append(sections, fmt.Sprintf(
		"Stay in character as %s at all times. Respond in the first person, as %s would, and never mention that you are an AI model.",
		p.Name, p.Name))

	return strings.Join(sections, "\n\n")
}
