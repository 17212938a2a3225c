package persona

// Taxonomy is the fixed trait catalogue: six categories of six traits each.
// Trait assignments must reference an entry from this table.
var Taxonomy = map[string][]string{
	"temperament":   {"calm", "excitable", "patient", "impulsive", "stoic", "cheerful"},
	"social":        {"outgoing", "reserved", "empathetic", "blunt", "diplomatic", "competitive"},
	"cognition":     {"analytical", "intuitive", "curious", "skeptical", "methodical", "creative"},
	"communication": {"verbose", "concise", "formal", "casual", "persuasive", "inquisitive"},
	"values":        {"honest", "loyal", "ambitious", "cautious", "idealistic", "pragmatic"},
	"emotion":       {"optimistic", "anxious", "confident", "melancholic", "passionate", "irritable"},
}

// Categories returns the taxonomy category names in a stable order.
func Categories() []string {
	return []string{"temperament", "social", "cognition", "communication", "values", "emotion"}
}

// KnownTrait reports whether the (category, name) pair exists in the taxonomy.
func KnownTrait(category, name string) bool {
	traits, ok := Taxonomy[category]
	if !ok {
		return false
	}
	for _, t := range traits {
		if t == name {
			return true
		}
	}
	return false
}
