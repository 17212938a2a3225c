package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"colloquy/internal/persona"
	"colloquy/internal/store"
)

var personaCreateFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "name",
		Usage:    "Display name",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "model",
		Usage: "Backing model: openai, anthropic, simulated",
		Value: "simulated",
	},
	&cli.StringFlag{
		Name:     "role",
		Usage:    "Role or function description",
		Required: true,
	},
	&cli.StringSliceFlag{
		Name:  "trait",
		Usage: "Trait assignment as category:name:intensity (repeatable)",
	},
	&cli.StringFlag{
		Name:  "knowledge",
		Usage: "Free-text background knowledge",
	},
}

func handlePersonaList(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}

	personas, err := s.Personas.List()
	if err != nil {
		return err
	}
	if len(personas) == 0 {
		fmt.Println("No personas found. Create one with 'colloquy persona create'")
		return nil
	}

	fmt.Println("Available personas:")
	for _, p := range personas {
		fmt.Printf("  %s  %s (%s) - %s\n", p.ID[:8], color.CyanString(p.Name), p.Model, p.Role)
	}
	return nil
}

func handlePersonaCreate(ctx context.Context, c *cli.Command) error {
	traits, err := parseTraits(c.StringSlice("trait"))
	if err != nil {
		return err
	}

	p := persona.Persona{
		Name:      c.String("name"),
		Model:     persona.Model(c.String("model")),
		Role:      c.String("role"),
		Traits:    traits,
		Knowledge: c.String("knowledge"),
	}

	s, err := openStore(c)
	if err != nil {
		return err
	}
	created, err := s.Personas.Create(p)
	if err != nil {
		return err
	}

	fmt.Printf("Created persona %s (%s)\n", color.CyanString(created.Name), created.ID)
	return nil
}

func handlePersonaShow(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	p, err := findPersona(s, c.Args().Get(0))
	if err != nil {
		return err
	}

	title := cases.Title(language.English)
	fmt.Printf("%s (%s)\n", color.New(color.Bold).Sprint(p.Name), p.ID)
	fmt.Printf("Model: %s\n", p.Model)
	fmt.Printf("Role:  %s\n", p.Role)
	if len(p.Traits) > 0 {
		fmt.Println("Traits:")
		for _, t := range p.Traits {
			fmt.Printf("  %-15s %s %s\n", title.String(t.Category)+":", t.Intensity.Adverb(), strings.ToLower(t.Name))
		}
	}
	if p.Knowledge != "" {
		fmt.Printf("Knowledge:\n  %s\n", strings.ReplaceAll(p.Knowledge, "\n", "\n  "))
	}

	fmt.Println()
	fmt.Println(color.New(color.Faint).Sprint("--- system prompt ---"))
	fmt.Println(persona.BuildSystemPrompt(&p))
	return nil
}

func handlePersonaDelete(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	p, err := findPersona(s, c.Args().Get(0))
	if err != nil {
		return err
	}
	if err := s.Personas.Delete(p.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted persona %s\n", p.Name)
	return nil
}

func handlePersonaTraits(ctx context.Context, c *cli.Command) error {
	title := cases.Title(language.English)
	for _, category := range persona.Categories() {
		fmt.Printf("%s\n", color.New(color.Bold).Sprint(title.String(category)))
		fmt.Printf("  %s\n", strings.Join(persona.Taxonomy[category], ", "))
	}
	fmt.Println("\nIntensities: weak (slightly), neutral (moderately), strong (very)")
	return nil
}

// parseTraits parses repeated category:name:intensity flags. The intensity
// may be omitted and defaults to neutral.
func parseTraits(specs []string) ([]persona.TraitAssignment, error) {
	traits := make([]persona.TraitAssignment, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid trait %q, expected category:name[:intensity]", spec)
		}
		t := persona.TraitAssignment{
			Category:  strings.ToLower(strings.TrimSpace(parts[0])),
			Name:      strings.ToLower(strings.TrimSpace(parts[1])),
			Intensity: persona.IntensityNeutral,
		}
		if len(parts) == 3 {
			t.Intensity = persona.Intensity(strings.ToLower(strings.TrimSpace(parts[2])))
		}
		traits = append(traits, t)
	}
	return traits, nil
}

// findPersona looks a persona up by ID, ID prefix or exact name.
func findPersona(s *store.FileStore, ref string) (persona.Persona, error) {
	if ref == "" {
		return persona.Persona{}, fmt.Errorf("persona name or id is required")
	}
	personas, err := s.Personas.List()
	if err != nil {
		return persona.Persona{}, err
	}
	for _, p := range personas {
		if p.ID == ref || strings.HasPrefix(p.ID, ref) || strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return persona.Persona{}, fmt.Errorf("persona %q not found", ref)
}
