// Package environment models a named group of personas plus the policy for
// how a simulation among them runs.
package environment

import (
	"fmt"

	"colloquy/internal/persona"
)

// Mode is the interaction policy for a simulation.
type Mode string

const (
	// ModeAuto advances turns automatically in round-robin order.
	ModeAuto Mode = "auto"
	// ModeManual only speaks when a participant is explicitly triggered.
	ModeManual Mode = "manual"
	// ModeMixed supports both the auto loop and manual triggers.
	ModeMixed Mode = "mixed"
)

// KnownMode reports whether m is a supported interaction mode.
func KnownMode(m Mode) bool {
	switch m {
	case ModeAuto, ModeManual, ModeMixed:
		return true
	}
	return false
}

// Response word-budget bounds.
const (
	MinResponseWords     = 50
	MaxResponseWords     = 500
	DefaultResponseWords = 200
)

// ClampResponseWords forces a word budget into the supported range,
// substituting the default when unset.
func ClampResponseWords(words int) int {
	switch {
	case words <= 0:
		return DefaultResponseWords
	case words < MinResponseWords:
		return MinResponseWords
	case words > MaxResponseWords:
		return MaxResponseWords
	}
	return words
}

// Environment groups an ordered set of participant personas with an
// interaction policy. Read-only from the engine's point of view.
type Environment struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Participants  []persona.Persona `json:"participants"`
	Mode          Mode              `json:"mode"`
	ResponseWords int               `json:"response_words"`
	SeedPrompt    string            `json:"seed_prompt,omitempty"`
	Moderated     bool              `json:"moderated,omitempty"`
}

// ValidationError describes a malformed environment field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid environment: %s %s", e.Field, e.Reason)
}

// Validate checks the invariants required to run a simulation: a name, at
// least one participant, and a known mode. Participant personas must be
// individually valid.
func (e *Environment) Validate() error {
	if e.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if len(e.Participants) == 0 {
		return &ValidationError{Field: "participants", Reason: "must not be empty"}
	}
	if !KnownMode(e.Mode) {
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("%q is not a supported mode", e.Mode)}
	}
	for i := range e.Participants {
		if err := e.Participants[i].Validate(); err != nil {
			return &ValidationError{Field: "participants", Reason: err.Error()}
		}
	}
	return nil
}

// WordBudget returns the clamped response word budget for this environment.
func (e *Environment) WordBudget() int {
	return ClampResponseWords(e.ResponseWords)
}
