// Package engine drives turn-based conversational simulations: round-robin
// turn-taking across an environment's participants, pacing, cooperative
// cancellation and graceful degradation when provider calls fail.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"colloquy/internal/environment"
	"colloquy/internal/persona"
	"colloquy/internal/provider"
	"colloquy/internal/transcript"
)

// State is the lifecycle phase of a simulation session.
type State string

const (
	// StateReady means the session is seeded and turns may be taken.
	StateReady State = "ready"
	// StateRunning means the auto loop is active.
	StateRunning State = "running"
	// StateStopped means the auto loop ended; Reset returns to Ready.
	StateStopped State = "stopped"
)

var (
	// ErrTurnInFlight is returned when a turn is requested while another
	// adapter call is outstanding. The transcript is untouched.
	ErrTurnInFlight = errors.New("a turn is already in flight")
	// ErrNotReady is returned when the auto loop is started from a state
	// other than Ready.
	ErrNotReady = errors.New("session is not ready")
	// ErrAutoOnly is returned for manual operations on an auto-mode
	// environment.
	ErrAutoOnly = errors.New("environment does not allow manual turns")
	// ErrManualOnly is returned when the auto loop is started on a
	// manual-mode environment.
	ErrManualOnly = errors.New("environment does not allow the auto loop")
	// ErrUnknownParticipant is returned when a manual turn names a persona
	// that is not in the environment.
	ErrUnknownParticipant = errors.New("persona is not a participant")
)

// Resolver resolves the provider backing a persona. *provider.Factory
// satisfies it.
type Resolver interface {
	ForPersona(p *persona.Persona) (provider.Provider, error)
}

// Session owns one running simulation: the transcript, the per-participant
// providers and the transient run state. Discard it when the user leaves
// the simulation or switches environments.
type Session struct {
	env        *environment.Environment
	cfg        Config
	transcript *transcript.Transcript
	backends   map[string]provider.Provider
	fallback   *provider.SimulatedProvider

	// OnAppend, when set, fires after every transcript append so a front
	// end can re-render incrementally. Called from the goroutine driving
	// the session.
	OnAppend func(transcript.Message)

	mu      sync.Mutex
	state   State
	busy    bool
	stopped bool
	round   int
}

// NewSession validates the environment, resolves one provider per
// participant and seeds the transcript. A participant whose credential is
// missing still gets a seat: every turn it takes degrades to a fallback
// reply instead of aborting the run.
func NewSession(env *environment.Environment, resolver Resolver, cfg Config) (*Session, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	backends := make(map[string]provider.Provider, len(env.Participants))
	for i := range env.Participants {
		p := &env.Participants[i]
		backend, err := resolver.ForPersona(p)
		if err != nil {
			if !errors.Is(err, provider.ErrCredentialMissing) {
				return nil, fmt.Errorf("failed to resolve provider for %s: %w", p.Name, err)
			}
			log.Warn().Str("persona", p.Name).Str("model", string(p.Model)).
				Msg("No credential configured, persona will use fallback replies")
			backend = &unavailableProvider{name: string(p.Model), err: err}
		}
		backends[p.ID] = backend
	}

	s := &Session{
		env:        env,
		cfg:        cfg,
		transcript: transcript.New(),
		backends:   backends,
		fallback:   provider.NewSimulatedProvider(time.Now().UnixNano()),
		state:      StateReady,
	}
	s.seed()
	return s, nil
}

// seed clears the transcript and appends the environment's starting prompt
// as a system message, if one is set.
func (s *Session) seed() {
	s.transcript.Clear()
	if s.env.SeedPrompt != "" {
		s.append(transcript.Message{
			Kind: transcript.KindSystem,
			Text: s.env.SeedPrompt,
			Live: true,
		})
	}
}

// Environment returns the environment this session runs.
func (s *Session) Environment() *environment.Environment {
	return s.env
}

// Transcript returns the session's transcript.
func (s *Session) Transcript() *transcript.Transcript {
	return s.transcript
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Round returns the number of completed auto-loop rounds.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Stop requests cooperative cancellation of the auto loop. An in-flight
// provider call is allowed to complete; no further calls are issued.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	log.Debug().Msg("Stop requested")
}

// Reset discards the run state and re-seeds the transcript, returning the
// session to Ready.
func (s *Session) Reset() {
	s.mu.Lock()
	s.state = StateReady
	s.stopped = false
	s.round = 0
	s.mu.Unlock()
	s.seed()
}

// Run drives the auto loop: round-robin over participants in stored order
// until the round budget is exhausted, ctx is cancelled or Stop is called.
// Cancellation is polled before each round, before each turn and after each
// turn; no provider failure aborts the loop.
func (s *Session) Run(ctx context.Context) error {
	if s.env.Mode == environment.ModeManual {
		return ErrManualOnly
	}

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.state = StateRunning
	s.stopped = false
	s.round = 0
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
	}()

	log.Info().
		Str("environment", s.env.Name).
		Int("participants", len(s.env.Participants)).
		Int("rounds", s.cfg.Rounds).
		Dur("turn_delay", s.cfg.TurnDelay).
		Msg("Starting auto loop")

loop:
	for r := 1; r <= s.cfg.Rounds; r++ {
		if !s.shouldContinue(ctx) {
			break
		}
		log.Debug().Int("round", r).Msg("Starting round")

		for i := range s.env.Participants {
			if !s.shouldContinue(ctx) {
				break loop
			}
			if err := s.takeTurn(ctx, &s.env.Participants[i]); err != nil {
				// Only mutual-exclusion violations surface here, and the
				// loop is the sole writer while Running.
				log.Error().Err(err).Msg("Turn rejected")
			}
			if !s.shouldContinue(ctx) {
				break loop
			}
			s.pause(ctx)
		}

		s.mu.Lock()
		s.round = r
		s.mu.Unlock()
	}

	log.Info().Int("rounds_completed", s.Round()).Int("messages", s.transcript.Len()).Msg("Auto loop finished")
	return nil
}

// Speak performs a single manual turn for the named participant: no pacing
// delay, no round bookkeeping. Returns ErrTurnInFlight without touching the
// transcript if another turn is outstanding.
func (s *Session) Speak(ctx context.Context, personaID string) error {
	if s.env.Mode == environment.ModeAuto {
		return ErrAutoOnly
	}
	for i := range s.env.Participants {
		if s.env.Participants[i].ID == personaID {
			return s.takeTurn(ctx, &s.env.Participants[i])
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownParticipant, personaID)
}

// Inject appends a user message immediately and synchronously. It never
// triggers a provider call; the text simply becomes history for the next
// agent turn.
func (s *Session) Inject(text string) transcript.Message {
	author := "user"
	if s.env.Moderated {
		author = "moderator"
	}
	return s.append(transcript.Message{
		Kind:       transcript.KindUser,
		AuthorName: author,
		Text:       text,
		Live:       true,
	})
}

// takeTurn is the per-participant body shared by the auto loop and manual
// mode: one provider call, one appended message, failures degraded to a
// fallback reply tagged live=false.
func (s *Session) takeTurn(ctx context.Context, p *persona.Persona) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	req := provider.Request{
		Persona:  p,
		History:  s.transcript.History(),
		MaxWords: s.env.WordBudget(),
	}

	backend := s.backends[p.ID]
	text, err := backend.GenerateReply(ctx, req)
	live := err == nil
	if err != nil {
		log.Warn().Err(err).Str("persona", p.Name).Str("provider", backend.Name()).
			Msg("Provider call failed, substituting fallback reply")
		filler, ferr := s.fallback.GenerateReply(ctx, req)
		if ferr != nil {
			filler = fmt.Sprintf("%s pauses, lost in thought.", p.Name)
		}
		text = fmt.Sprintf("[fallback: %v] %s", err, filler)
	}

	s.append(transcript.Message{
		Kind:       transcript.KindAgent,
		AuthorID:   p.ID,
		AuthorName: p.Name,
		Text:       text,
		Model:      string(p.Model),
		Live:       live,
	})
	return nil
}

// append serializes transcript writes and fires the observer.
func (s *Session) append(m transcript.Message) transcript.Message {
	s.mu.Lock()
	stored := s.transcript.Append(m)
	s.mu.Unlock()
	if s.OnAppend != nil {
		s.OnAppend(stored)
	}
	return stored
}

// shouldContinue polls the cooperative cancellation signals.
func (s *Session) shouldContinue(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// pause waits the inter-turn pacing delay, returning early on cancellation.
func (s *Session) pause(ctx context.Context) {
	if s.cfg.TurnDelay <= 0 {
		return
	}
	timer := time.NewTimer(s.cfg.TurnDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// unavailableProvider stands in for a participant whose credential is
// missing: every call fails with the resolution error, so each of its turns
// degrades to a fallback reply.
type unavailableProvider struct {
	name string
	err  error
}

func (u *unavailableProvider) Name() string { return u.name }

func (u *unavailableProvider) GenerateReply(context.Context, provider.Request) (string, error) {
	return "", u.err
}
