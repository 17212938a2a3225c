package persona

import "fmt"

// ValidationError describes a malformed persona field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid persona: %s %s", e.Field, e.Reason)
}

// Validate checks the mandatory-field and taxonomy invariants. Name, model
// and role are required; traits must come from the taxonomy with at most one
// intensity per (category, name) pair; knowledge is length-bounded.
func (p *Persona) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.Model == "" {
		return &ValidationError{Field: "model", Reason: "is required"}
	}
	if !KnownModel(p.Model) {
		return &ValidationError{Field: "model", Reason: fmt.Sprintf("%q is not a supported selector", p.Model)}
	}
	if p.Role == "" {
		return &ValidationError{Field: "role", Reason: "is required"}
	}
	if len(p.Knowledge) > MaxKnowledgeLen {
		return &ValidationError{Field: "knowledge", Reason: fmt.Sprintf("exceeds %d characters", MaxKnowledgeLen)}
	}

	seen := make(map[[2]string]bool, len(p.Traits))
	for _, t := range p.Traits {
		if !KnownTrait(t.Category, t.Name) {
			return &ValidationError{Field: "traits", Reason: fmt.Sprintf("unknown trait %s/%s", t.Category, t.Name)}
		}
		key := [2]string{t.Category, t.Name}
		if seen[key] {
			return &ValidationError{Field: "traits", Reason: fmt.Sprintf("duplicate trait %s/%s", t.Category, t.Name)}
		}
		seen[key] = true
	}
	return nil
}
