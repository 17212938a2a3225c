package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"colloquy/internal/engine"
	"colloquy/internal/environment"
	"colloquy/internal/provider"
	"colloquy/internal/transcript"
)

var simulateFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "rounds",
		Usage: "Override the auto-loop round budget",
	},
	&cli.DurationFlag{
		Name:  "delay",
		Usage: "Override the inter-turn pacing delay",
	},
	&cli.BoolFlag{
		Name:  "export",
		Usage: "Export the transcript when the run ends",
	},
	&cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "Directory for exported transcripts",
		Value:   ".",
	},
}

func handleSimulate(ctx context.Context, c *cli.Command) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	env, err := findEnvironment(s, c.Args().Get(0))
	if err != nil {
		return err
	}

	cfg, err := engine.LoadConfig()
	if err != nil {
		return err
	}
	if rounds := int(c.Int("rounds")); rounds > 0 {
		cfg.Rounds = rounds
	}
	if c.IsSet("delay") {
		cfg.TurnDelay = c.Duration("delay")
	}

	factory := provider.NewFactory(s.Credentials)
	session, err := engine.NewSession(&env, factory, cfg)
	if err != nil {
		return err
	}
	session.OnAppend = printMessage

	// Ctrl-C requests cooperative cancellation; an in-flight provider call
	// finishes before the loop stops.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	switch env.Mode {
	case environment.ModeAuto:
		if err := session.Run(ctx); err != nil {
			return err
		}
	default:
		if err := runInteractive(ctx, session); err != nil {
			return err
		}
	}

	if c.Bool("export") {
		doc := transcript.Export(&env, session.Transcript())
		path, err := doc.WriteFile(c.String("out"))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported transcript to %s\n", path)
	}
	return nil
}

// runInteractive drives manual and mixed modes from stdin.
func runInteractive(ctx context.Context, session *engine.Session) error {
	env := session.Environment()
	fmt.Fprintf(os.Stderr, "Interactive simulation in %s (%s mode).\n", env.Name, env.Mode)
	fmt.Fprintln(os.Stderr, "Commands: next [persona], say <text>, run (mixed only), status, stop, quit")

	reader := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(os.Stderr, "> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")

		switch cmd {
		case "":
			continue

		case "next", "n":
			target := env.Participants[nextSpeaker(session)]
			if rest != "" {
				found := false
				for _, p := range env.Participants {
					if strings.EqualFold(p.Name, rest) {
						target, found = p, true
						break
					}
				}
				if !found {
					fmt.Fprintf(os.Stderr, "no participant named %q\n", rest)
					continue
				}
			}
			if err := session.Speak(ctx, target.ID); err != nil {
				if errors.Is(err, engine.ErrTurnInFlight) {
					fmt.Fprintln(os.Stderr, "a turn is already in flight")
					continue
				}
				return err
			}

		case "say", "s":
			if rest == "" {
				fmt.Fprintln(os.Stderr, "usage: say <text>")
				continue
			}
			session.Inject(rest)

		case "run":
			if err := session.Run(ctx); err != nil {
				if errors.Is(err, engine.ErrManualOnly) || errors.Is(err, engine.ErrNotReady) {
					fmt.Fprintln(os.Stderr, err.Error())
					continue
				}
				return err
			}

		case "status":
			fmt.Fprintf(os.Stderr, "state=%s round=%d messages=%d\n",
				session.State(), session.Round(), session.Transcript().Len())

		case "stop":
			session.Stop()

		case "quit", "q", "exit":
			return nil

		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		}
	}
}

// nextSpeaker picks the participant after the last agent message, wrapping
// around the stored order.
func nextSpeaker(session *engine.Session) int {
	env := session.Environment()
	messages := session.Transcript().Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Kind != transcript.KindAgent {
			continue
		}
		for j, p := range env.Participants {
			if p.ID == messages[i].AuthorID {
				return (j + 1) % len(env.Participants)
			}
		}
	}
	return 0
}

// printMessage renders one transcript message to stdout as it is appended.
func printMessage(m transcript.Message) {
	switch m.Kind {
	case transcript.KindSystem:
		color.Yellow("[scene] %s", m.Text)
	case transcript.KindUser:
		color.Green("%s: %s", m.AuthorName, m.Text)
	case transcript.KindAgent:
		name := color.CyanString(m.AuthorName)
		if !m.Live {
			name += color.New(color.Faint).Sprint(" (offline)")
		}
		fmt.Printf("%s: %s\n", name, m.Text)
	default:
		log.Warn().Str("kind", string(m.Kind)).Msg("Unknown message kind")
	}
}
