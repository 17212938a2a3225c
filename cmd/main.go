package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"colloquy/internal/store"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "colloquy",
		Usage: "Author personas and run turn-based conversations among them",
		Description: `colloquy lets you author LLM-backed character profiles ("personas"),
group them into environments, and run turn-based conversational
simulations among them with pluggable model providers.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Data directory (default: $COLLOQUY_HOME or ~/.colloquy)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "persona",
				Usage:   "Manage personas",
				Aliases: []string{"p"},
				Commands: []*cli.Command{
					{
						Name:    "list",
						Usage:   "List personas",
						Action:  handlePersonaList,
						Aliases: []string{"ls", "l"},
					},
					{
						Name:   "create",
						Usage:  "Create a new persona",
						Action: handlePersonaCreate,
						Flags:  personaCreateFlags,
					},
					{
						Name:      "show",
						Usage:     "Show a persona's profile and system prompt",
						Action:    handlePersonaShow,
						ArgsUsage: "<name-or-id>",
					},
					{
						Name:      "delete",
						Usage:     "Delete a persona",
						Action:    handlePersonaDelete,
						ArgsUsage: "<name-or-id>",
						Aliases:   []string{"rm"},
					},
					{
						Name:   "traits",
						Usage:  "Show the trait taxonomy",
						Action: handlePersonaTraits,
					},
				},
			},
			{
				Name:    "env",
				Usage:   "Manage environments",
				Aliases: []string{"e"},
				Commands: []*cli.Command{
					{
						Name:    "list",
						Usage:   "List environments",
						Action:  handleEnvList,
						Aliases: []string{"ls", "l"},
					},
					{
						Name:   "create",
						Usage:  "Create a new environment",
						Action: handleEnvCreate,
						Flags:  envCreateFlags,
					},
					{
						Name:      "show",
						Usage:     "Show an environment",
						Action:    handleEnvShow,
						ArgsUsage: "<name-or-id>",
					},
					{
						Name:      "delete",
						Usage:     "Delete an environment",
						Action:    handleEnvDelete,
						ArgsUsage: "<name-or-id>",
						Aliases:   []string{"rm"},
					},
				},
			},
			{
				Name:  "creds",
				Usage: "Manage provider credentials",
				Commands: []*cli.Command{
					{
						Name:    "list",
						Usage:   "List configured providers (secrets are never shown)",
						Action:  handleCredsList,
						Aliases: []string{"ls", "l"},
					},
					{
						Name:      "set",
						Usage:     "Store a provider API key",
						Action:    handleCredsSet,
						ArgsUsage: "<provider> <secret>",
					},
					{
						Name:      "delete",
						Usage:     "Remove a provider API key",
						Action:    handleCredsDelete,
						ArgsUsage: "<provider>",
						Aliases:   []string{"rm"},
					},
				},
			},
			{
				Name:  "auth",
				Usage: "Manage the local profile",
				Commands: []*cli.Command{
					{
						Name:      "login",
						Usage:     "Sign in",
						Action:    handleAuthLogin,
						ArgsUsage: "<name> [email]",
					},
					{
						Name:   "logout",
						Usage:  "Sign out",
						Action: handleAuthLogout,
					},
					{
						Name:   "whoami",
						Usage:  "Show the current user",
						Action: handleAuthWhoami,
					},
				},
			},
			{
				Name:      "simulate",
				Usage:     "Run a simulation in an environment",
				Action:    handleSimulate,
				Aliases:   []string{"sim", "run"},
				ArgsUsage: "<environment-name-or-id>",
				Flags:     simulateFlags,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}

// openStore opens the file store honoring the --data-dir flag.
func openStore(c *cli.Command) (*store.FileStore, error) {
	root := c.String("data-dir")
	if root == "" {
		var err error
		root, err = store.DefaultRoot()
		if err != nil {
			return nil, err
		}
	}
	return store.NewFileStore(root)
}

func handleCredsList(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}

	infos, err := s.Credentials.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No credentials configured. Add one with 'colloquy creds set <provider> <secret>'")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("  %-12s configured %s\n", info.Provider, info.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func handleCredsSet(ctx context.Context, c *cli.Command) error {
	provider := c.Args().Get(0)
	secret := c.Args().Get(1)
	if provider == "" || secret == "" {
		return fmt.Errorf("usage: colloquy creds set <provider> <secret>")
	}

	s, err := openStore(c)
	if err != nil {
		return err
	}
	if err := s.Credentials.Set(provider, secret); err != nil {
		return err
	}
	fmt.Printf("Stored credential for %s\n", provider)
	return nil
}

func handleCredsDelete(ctx context.Context, c *cli.Command) error {
	provider := c.Args().Get(0)
	if provider == "" {
		return fmt.Errorf("provider name is required")
	}

	s, err := openStore(c)
	if err != nil {
		return err
	}
	if err := s.Credentials.Delete(provider); err != nil {
		return err
	}
	fmt.Printf("Removed credential for %s\n", provider)
	return nil
}

func handleAuthLogin(ctx context.Context, c *cli.Command) error {
	name := c.Args().Get(0)
	if name == "" {
		return fmt.Errorf("usage: colloquy auth login <name> [email]")
	}

	s, err := openStore(c)
	if err != nil {
		return err
	}
	id, err := s.Identity.SignIn(name, c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", id.Name)
	return nil
}

func handleAuthLogout(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	if err := s.Identity.SignOut(); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func handleAuthWhoami(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	id, err := s.Identity.Current()
	if err != nil {
		return err
	}
	if id == nil {
		fmt.Println("Not signed in")
		return nil
	}
	fmt.Printf("%s", id.Name)
	if id.Email != "" {
		fmt.Printf(" <%s>", id.Email)
	}
	fmt.Printf(" (since %s)\n", id.SignedInAt.Format("2006-01-02 15:04"))
	return nil
}
