package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colloquy/internal/environment"
	"colloquy/internal/persona"
	"colloquy/internal/provider"
	"colloquy/internal/transcript"
)

// scriptedProvider is a test double for the provider layer: counts calls,
// can fail, block or run a hook on each call.
type scriptedProvider struct {
	mu     sync.Mutex
	calls  int
	err    error
	onCall func(n int)
	enter  chan struct{}
	block  chan struct{}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) GenerateReply(ctx context.Context, req provider.Request) (string, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	hook := p.onCall
	p.mu.Unlock()

	if p.enter != nil {
		p.enter <- struct{}{}
	}
	if p.block != nil {
		<-p.block
	}
	if hook != nil {
		hook(n)
	}
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("%s reply %d", req.Persona.Name, n), nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// stubResolver hands out pre-built providers by persona ID.
type stubResolver struct {
	providers map[string]provider.Provider
	errs      map[string]error
}

func (r *stubResolver) ForPersona(p *persona.Persona) (provider.Provider, error) {
	if err, ok := r.errs[p.ID]; ok {
		return nil, err
	}
	return r.providers[p.ID], nil
}

func testPersona(id, name string) persona.Persona {
	return persona.Persona{ID: id, Name: name, Model: persona.ModelSimulated, Role: "a " + strings.ToLower(name)}
}

func testEnv(mode environment.Mode, seed string) *environment.Environment {
	return &environment.Environment{
		ID:           "env-1",
		Name:         "salon",
		Participants: []persona.Persona{testPersona("a", "Ada"), testPersona("b", "Bo")},
		Mode:         mode,
		SeedPrompt:   seed,
	}
}

func fastConfig(rounds int) Config {
	return Config{Rounds: rounds, TurnDelay: 0}
}

func agentMessages(tr *transcript.Transcript) []transcript.Message {
	var out []transcript.Message
	for _, m := range tr.Messages() {
		if m.Kind == transcript.KindAgent {
			out = append(out, m)
		}
	}
	return out
}

func TestAutoLoopRoundRobin(t *testing.T) {
	provA := &scriptedProvider{}
	provB := &scriptedProvider{}
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": provA, "b": provB}}

	session, err := NewSession(testEnv(environment.ModeAuto, "Begin."), resolver, fastConfig(3))
	require.NoError(t, err)
	require.Equal(t, StateReady, session.State())
	require.Equal(t, 1, session.Transcript().Len(), "seed prompt should be the only message")

	require.NoError(t, session.Run(context.Background()))

	messages := session.Transcript().Messages()
	require.Len(t, messages, 1+2*3, "seed plus N*R agent messages")
	assert.Equal(t, transcript.KindSystem, messages[0].Kind)
	assert.Equal(t, "Begin.", messages[0].Text)

	agents := agentMessages(session.Transcript())
	for i, m := range agents {
		want := "Ada"
		if i%2 == 1 {
			want = "Bo"
		}
		assert.Equal(t, want, m.AuthorName, "turn %d out of round-robin order", i)
		assert.True(t, m.Live)
	}
	assert.Equal(t, 3, provA.callCount())
	assert.Equal(t, 3, provB.callCount())
	assert.Equal(t, StateStopped, session.State())
	assert.Equal(t, 3, session.Round())
}

func TestStopBetweenTurns(t *testing.T) {
	provA := &scriptedProvider{}
	provB := &scriptedProvider{}
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": provA, "b": provB}}

	session, err := NewSession(testEnv(environment.ModeAuto, ""), resolver, fastConfig(5))
	require.NoError(t, err)

	// Stop while Ada's first call is in flight: the call completes, its
	// message lands, and no further adapter call is issued.
	provA.onCall = func(n int) {
		if n == 1 {
			session.Stop()
		}
	}

	require.NoError(t, session.Run(context.Background()))

	agents := agentMessages(session.Transcript())
	require.Len(t, agents, 1)
	assert.Equal(t, "Ada", agents[0].AuthorName)
	assert.Equal(t, 1, provA.callCount())
	assert.Zero(t, provB.callCount())
	assert.Equal(t, StateStopped, session.State())
}

func TestContextCancellationBeforeRun(t *testing.T) {
	provA := &scriptedProvider{}
	provB := &scriptedProvider{}
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": provA, "b": provB}}

	session, err := NewSession(testEnv(environment.ModeAuto, "Begin."), resolver, fastConfig(5))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, session.Run(ctx))

	assert.Empty(t, agentMessages(session.Transcript()))
	assert.Zero(t, provA.callCount())
	assert.Zero(t, provB.callCount())
}

func TestProviderFailureDegrades(t *testing.T) {
	provA := &scriptedProvider{}
	provB := &scriptedProvider{err: errors.New("upstream exploded")}
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": provA, "b": provB}}

	session, err := NewSession(testEnv(environment.ModeAuto, ""), resolver, fastConfig(2))
	require.NoError(t, err)
	require.NoError(t, session.Run(context.Background()), "adapter failures must not escape the engine")

	agents := agentMessages(session.Transcript())
	require.Len(t, agents, 4, "every attempted turn appends exactly one message")

	for i, m := range agents {
		if i%2 == 0 {
			assert.True(t, m.Live)
			continue
		}
		assert.False(t, m.Live, "failed turn must be tagged live=false")
		assert.True(t, strings.HasPrefix(m.Text, "[fallback:"), "degraded text %q missing annotation", m.Text)
		assert.Contains(t, m.Text, "upstream exploded")
		assert.Equal(t, "Bo", m.AuthorName)
	}
}

func TestMissingCredentialDegrades(t *testing.T) {
	provA := &scriptedProvider{}
	resolver := &stubResolver{
		providers: map[string]provider.Provider{"a": provA},
		errs:      map[string]error{"b": fmt.Errorf("anthropic: %w", provider.ErrCredentialMissing)},
	}

	session, err := NewSession(testEnv(environment.ModeAuto, ""), resolver, fastConfig(1))
	require.NoError(t, err, "a missing credential must not prevent the session from starting")
	require.NoError(t, session.Run(context.Background()))

	agents := agentMessages(session.Transcript())
	require.Len(t, agents, 2)
	assert.True(t, agents[0].Live)
	assert.False(t, agents[1].Live)
	assert.Contains(t, agents[1].Text, "no credential configured")
}

func TestResolverFailureAborts(t *testing.T) {
	resolver := &stubResolver{errs: map[string]error{"a": errors.New("unknown model selector")}}

	_, err := NewSession(testEnv(environment.ModeAuto, ""), resolver, fastConfig(1))
	assert.Error(t, err)
}

func TestManualTurnMutualExclusion(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	provA := &scriptedProvider{enter: entered, block: release}
	provB := &scriptedProvider{}
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": provA, "b": provB}}

	session, err := NewSession(testEnv(environment.ModeManual, ""), resolver, fastConfig(1))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- session.Speak(context.Background(), "a")
	}()
	<-entered

	// Second request while Ada's turn is in flight: rejected, transcript
	// untouched, no adapter call issued.
	err = session.Speak(context.Background(), "b")
	assert.ErrorIs(t, err, ErrTurnInFlight)
	assert.Zero(t, session.Transcript().Len())
	assert.Zero(t, provB.callCount())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, session.Transcript().Len())
}

func TestManualTurnAppendsOneMessage(t *testing.T) {
	provA := &scriptedProvider{}
	provB := &scriptedProvider{}
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": provA, "b": provB}}

	session, err := NewSession(testEnv(environment.ModeManual, "Scene."), resolver, fastConfig(1))
	require.NoError(t, err)

	require.NoError(t, session.Speak(context.Background(), "b"))

	agents := agentMessages(session.Transcript())
	require.Len(t, agents, 1)
	assert.Equal(t, "Bo", agents[0].AuthorName)
	assert.Zero(t, provA.callCount())
}

func TestSpeakRejectsUnknownParticipant(t *testing.T) {
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": &scriptedProvider{}, "b": &scriptedProvider{}}}
	session, err := NewSession(testEnv(environment.ModeManual, ""), resolver, fastConfig(1))
	require.NoError(t, err)

	assert.ErrorIs(t, session.Speak(context.Background(), "zz"), ErrUnknownParticipant)
}

func TestModeRestrictions(t *testing.T) {
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": &scriptedProvider{}, "b": &scriptedProvider{}}}

	t.Run("no manual turns in auto mode", func(t *testing.T) {
		session, err := NewSession(testEnv(environment.ModeAuto, ""), resolver, fastConfig(1))
		require.NoError(t, err)
		assert.ErrorIs(t, session.Speak(context.Background(), "a"), ErrAutoOnly)
	})

	t.Run("no auto loop in manual mode", func(t *testing.T) {
		session, err := NewSession(testEnv(environment.ModeManual, ""), resolver, fastConfig(1))
		require.NoError(t, err)
		assert.ErrorIs(t, session.Run(context.Background()), ErrManualOnly)
	})

	t.Run("mixed mode allows both", func(t *testing.T) {
		session, err := NewSession(testEnv(environment.ModeMixed, ""), resolver, fastConfig(1))
		require.NoError(t, err)
		require.NoError(t, session.Speak(context.Background(), "a"))
		require.NoError(t, session.Run(context.Background()))
	})
}

func TestInjectNeverCallsProvider(t *testing.T) {
	provA := &scriptedProvider{}
	provB := &scriptedProvider{}
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": provA, "b": provB}}

	session, err := NewSession(testEnv(environment.ModeMixed, ""), resolver, fastConfig(1))
	require.NoError(t, err)

	m := session.Inject("what do you both think?")
	assert.Equal(t, transcript.KindUser, m.Kind)
	assert.Equal(t, "user", m.AuthorName)
	assert.Equal(t, 1, session.Transcript().Len())
	assert.Zero(t, provA.callCount())
	assert.Zero(t, provB.callCount())

	// The injected message is history for the next agent turn.
	require.NoError(t, session.Speak(context.Background(), "a"))
	history := session.Transcript().History()
	require.Len(t, history, 2)
	assert.Equal(t, transcript.KindUser, history[0].Kind)
}

func TestInjectModeratedAuthor(t *testing.T) {
	env := testEnv(environment.ModeMixed, "")
	env.Moderated = true
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": &scriptedProvider{}, "b": &scriptedProvider{}}}

	session, err := NewSession(env, resolver, fastConfig(1))
	require.NoError(t, err)

	m := session.Inject("order, please")
	assert.Equal(t, "moderator", m.AuthorName)
}

func TestRunRequiresReadyAndResetReseeds(t *testing.T) {
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": &scriptedProvider{}, "b": &scriptedProvider{}}}
	session, err := NewSession(testEnv(environment.ModeAuto, "Begin."), resolver, fastConfig(1))
	require.NoError(t, err)

	require.NoError(t, session.Run(context.Background()))
	assert.ErrorIs(t, session.Run(context.Background()), ErrNotReady)

	session.Reset()
	assert.Equal(t, StateReady, session.State())
	require.Equal(t, 1, session.Transcript().Len(), "reset must clear and re-seed the transcript")
	assert.Equal(t, transcript.KindSystem, session.Transcript().Messages()[0].Kind)

	require.NoError(t, session.Run(context.Background()))
	assert.Len(t, agentMessages(session.Transcript()), 2)
}

func TestOnAppendObserver(t *testing.T) {
	resolver := &stubResolver{providers: map[string]provider.Provider{"a": &scriptedProvider{}, "b": &scriptedProvider{}}}
	session, err := NewSession(testEnv(environment.ModeAuto, ""), resolver, fastConfig(1))
	require.NoError(t, err)

	var seen []transcript.Message
	session.OnAppend = func(m transcript.Message) { seen = append(seen, m) }

	require.NoError(t, session.Run(context.Background()))
	require.Len(t, seen, 2)
	assert.Equal(t, "Ada", seen[0].AuthorName)
	assert.Equal(t, "Bo", seen[1].AuthorName)
}

func TestInvalidEnvironmentRejected(t *testing.T) {
	resolver := &stubResolver{}
	env := &environment.Environment{Name: "empty", Mode: environment.ModeAuto}

	_, err := NewSession(env, resolver, fastConfig(1))
	assert.Error(t, err)
}
