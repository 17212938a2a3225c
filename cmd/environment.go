package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"colloquy/internal/environment"
	"colloquy/internal/persona"
	"colloquy/internal/store"
)

var envCreateFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "name",
		Usage:    "Environment name",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "description",
		Usage: "Optional description",
	},
	&cli.StringSliceFlag{
		Name:     "participant",
		Aliases:  []string{"p"},
		Usage:    "Participant persona name or id, in speaking order (repeatable)",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "mode",
		Usage: "Interaction mode: auto, manual, mixed",
		Value: "auto",
	},
	&cli.IntFlag{
		Name:  "words",
		Usage: "Response word budget (50-500)",
		Value: environment.DefaultResponseWords,
	},
	&cli.StringFlag{
		Name:  "seed",
		Usage: "Seed/starting prompt",
	},
	&cli.BoolFlag{
		Name:  "moderated",
		Usage: "Mark the environment as human-moderated",
	},
}

func handleEnvList(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}

	envs, err := s.Environments.List()
	if err != nil {
		return err
	}
	if len(envs) == 0 {
		fmt.Println("No environments found. Create one with 'colloquy env create'")
		return nil
	}

	fmt.Println("Available environments:")
	for _, env := range envs {
		names := make([]string, len(env.Participants))
		for i, p := range env.Participants {
			names[i] = p.Name
		}
		fmt.Printf("  %s  %s [%s] - %s\n", env.ID[:8], color.GreenString(env.Name), env.Mode, strings.Join(names, ", "))
	}
	return nil
}

func handleEnvCreate(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}

	participants := make([]persona.Persona, 0, len(c.StringSlice("participant")))
	for _, ref := range c.StringSlice("participant") {
		p, err := findPersona(s, ref)
		if err != nil {
			return err
		}
		participants = append(participants, p)
	}

	env := environment.Environment{
		Name:          c.String("name"),
		Description:   c.String("description"),
		Participants:  participants,
		Mode:          environment.Mode(c.String("mode")),
		ResponseWords: int(c.Int("words")),
		SeedPrompt:    c.String("seed"),
		Moderated:     c.Bool("moderated"),
	}

	created, err := s.Environments.Create(env)
	if err != nil {
		return err
	}
	fmt.Printf("Created environment %s (%s)\n", color.GreenString(created.Name), created.ID)
	return nil
}

func handleEnvShow(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	env, err := findEnvironment(s, c.Args().Get(0))
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", color.New(color.Bold).Sprint(env.Name), env.ID)
	if env.Description != "" {
		fmt.Printf("Description: %s\n", env.Description)
	}
	fmt.Printf("Mode: %s   Word budget: %d   Moderated: %v\n", env.Mode, env.WordBudget(), env.Moderated)
	if env.SeedPrompt != "" {
		fmt.Printf("Seed prompt: %s\n", env.SeedPrompt)
	}
	fmt.Println("Participants (speaking order):")
	for i, p := range env.Participants {
		fmt.Printf("  %d. %s (%s) - %s\n", i+1, color.CyanString(p.Name), p.Model, p.Role)
	}
	return nil
}

func handleEnvDelete(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	env, err := findEnvironment(s, c.Args().Get(0))
	if err != nil {
		return err
	}
	if err := s.Environments.Delete(env.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted environment %s\n", env.Name)
	return nil
}

// findEnvironment looks an environment up by ID, ID prefix or exact name.
func findEnvironment(s *store.FileStore, ref string) (environment.Environment, error) {
	if ref == "" {
		return environment.Environment{}, fmt.Errorf("environment name or id is required")
	}
	envs, err := s.Environments.List()
	if err != nil {
		return environment.Environment{}, err
	}
	for _, env := range envs {
		if env.ID == ref || strings.HasPrefix(env.ID, ref) || strings.EqualFold(env.Name, ref) {
			return env, nil
		}
	}
	return environment.Environment{}, fmt.Errorf("environment %q not found", ref)
}
