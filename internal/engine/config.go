package engine

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the auto-loop knobs. Defaults match the documented
// constants: 5 rounds, 1.5s between turns.
type Config struct {
	// Rounds is the auto-loop round budget.
	Rounds int `env:"COLLOQUY_ROUNDS" envDefault:"5"`
	// TurnDelay is the pacing delay between participant turns.
	TurnDelay time.Duration `env:"COLLOQUY_TURN_DELAY" envDefault:"1.5s"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{Rounds: 5, TurnDelay: 1500 * time.Millisecond}
}

// LoadConfig reads the config from the environment, falling back to the
// defaults for unset variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse engine config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("round budget must be at least 1, got %d", c.Rounds)
	}
	if c.TurnDelay < 0 {
		return fmt.Errorf("turn delay must not be negative, got %s", c.TurnDelay)
	}
	return nil
}
