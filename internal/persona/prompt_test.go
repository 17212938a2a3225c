package persona

import (
	"strings"
	"testing"
)

func TestBuildSystemPrompt(t *testing.T) {
	p := &Persona{
		ID:    "p1",
		Name:  "Ada",
		Model: ModelSimulated,
		Role:  "a meticulous systems engineer",
		Traits: []TraitAssignment{
			{Category: "cognition", Name: "analytical", Intensity: IntensityStrong},
			{Category: "social", Name: "Blunt", Intensity: IntensityWeak},
			{Category: "temperament", Name: "calm", Intensity: IntensityNeutral},
		},
		Knowledge: "Worked on avionics software for a decade.",
	}

	prompt := BuildSystemPrompt(p)

	if !strings.Contains(prompt, "You are Ada, a meticulous systems engineer.") {
		t.Errorf("Prompt missing identity line: %q", prompt)
	}
	for _, want := range []string{"very analytical", "slightly blunt", "moderately calm"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing trait rendering %q", want)
		}
	}
	if !strings.Contains(prompt, "Worked on avionics software for a decade.") {
		t.Error("Prompt missing knowledge block")
	}
	if !strings.Contains(prompt, "Stay in character as Ada") {
		t.Error("Prompt missing character-adherence instruction")
	}
}

func TestBuildSystemPromptOmitsEmptySections(t *testing.T) {
	p := &Persona{Name: "Bo", Model: ModelSimulated, Role: "a poet"}

	prompt := BuildSystemPrompt(p)

	if strings.Contains(prompt, "Your personality") {
		t.Error("Trait header rendered with no traits")
	}
	if strings.Contains(prompt, "What you know") {
		t.Error("Knowledge header rendered with no knowledge")
	}
	if strings.Contains(prompt, "\n\n\n") {
		t.Errorf("Dangling blank section in prompt: %q", prompt)
	}
}

func TestBuildSystemPromptUnknownIntensity(t *testing.T) {
	p := &Persona{
		Name:  "Cy",
		Model: ModelSimulated,
		Role:  "a critic",
		Traits: []TraitAssignment{
			{Category: "values", Name: "honest", Intensity: "blazing"},
		},
	}

	if prompt := BuildSystemPrompt(p); !strings.Contains(prompt, "moderately honest") {
		t.Errorf("Unknown intensity should render as moderately, got %q", prompt)
	}
}

func TestBuildSystemPromptDeterministic(t *testing.T) {
	p := &Persona{
		Name:  "Ada",
		Model: ModelOpenAI,
		Role:  "an engineer",
		Traits: []TraitAssignment{
			{Category: "cognition", Name: "curious", Intensity: IntensityStrong},
		},
	}

	if BuildSystemPrompt(p) != BuildSystemPrompt(p) {
		t.Error("Prompt builder is not deterministic")
	}
}
