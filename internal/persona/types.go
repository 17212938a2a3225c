package persona

// Model selects which backing provider generates replies for a persona.
type Model string

const (
	ModelOpenAI    Model = "openai"
	ModelAnthropic Model = "anthropic"
	ModelSimulated Model = "simulated"
)

// KnownModel reports whether m is one of the supported model selectors.
func KnownModel(m Model) bool {
	switch m {
	case ModelOpenAI, ModelAnthropic, ModelSimulated:
		return true
	}
	return false
}

// Intensity grades how strongly a trait applies to a persona.
type Intensity string

const (
	IntensityWeak    Intensity = "weak"
	IntensityNeutral Intensity = "neutral"
	IntensityStrong  Intensity = "strong"
)

// Adverb maps an intensity to the adverb used when rendering prompts.
// Unknown intensities read as "moderately".
func (i Intensity) Adverb() string {
	switch i {
	case IntensityWeak:
		return "slightly"
	case IntensityStrong:
		return "very"
	default:
		return "moderately"
	}
}

// TraitAssignment attaches one trait from the fixed taxonomy to a persona.
type TraitAssignment struct {
	Category  string    `json:"category"`
	Name      string    `json:"name"`
	Intensity Intensity `json:"intensity"`
}

// FileRef records an attached file by name and size. Contents are not
// modeled here.
type FileRef struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// MaxKnowledgeLen bounds the free-text knowledge blob.
const MaxKnowledgeLen = 2500

// Persona is an LLM-backed character profile. The simulation engine only
// reads personas; authoring happens through the persona store.
type Persona struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Model     Model             `json:"model"`
	Role      string            `json:"role"`
	Traits    []TraitAssignment `json:"traits,omitempty"`
	Knowledge string            `json:"knowledge,omitempty"`
	Files     []FileRef         `json:"files,omitempty"`
}
