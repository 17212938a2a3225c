// Package store defines the external collaborators the engine and CLI
// depend on: persona, environment and credential storage plus the identity
// provider, and a local JSON-file implementation of each.
package store

import (
	"errors"
	"fmt"
	"time"

	"colloquy/internal/environment"
	"colloquy/internal/persona"
)

// ErrNotFound is wrapped by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// StoreError wraps a storage collaborator failure. It is propagated to the
// caller, never swallowed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PersonaUpdate is a partial persona; nil fields are left unchanged.
type PersonaUpdate struct {
	Name      *string
	Model     *persona.Model
	Role      *string
	Traits    *[]persona.TraitAssignment
	Knowledge *string
	Files     *[]persona.FileRef
}

// PersonaStore is the record CRUD surface for personas.
type PersonaStore interface {
	List() ([]persona.Persona, error)
	Get(id string) (persona.Persona, error)
	Create(p persona.Persona) (persona.Persona, error)
	Update(id string, update PersonaUpdate) (persona.Persona, error)
	Delete(id string) error
}

// EnvironmentUpdate is a partial environment; nil fields are left unchanged.
type EnvironmentUpdate struct {
	Name           *string
	Description    *string
	ParticipantIDs *[]string
	Mode           *environment.Mode
	ResponseWords  *int
	SeedPrompt     *string
	Moderated      *bool
}

// EnvironmentStore is the record CRUD surface for environments. Reads
// return environments with the participant list resolved to full persona
// records.
type EnvironmentStore interface {
	List() ([]environment.Environment, error)
	Get(id string) (environment.Environment, error)
	Create(env environment.Environment) (environment.Environment, error)
	Update(id string, update EnvironmentUpdate) (environment.Environment, error)
	Delete(id string) error
}

// CredentialInfo describes a stored credential without exposing the secret.
type CredentialInfo struct {
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

// CredentialStore holds per-provider secrets opaquely. List never exposes
// secret values in bulk.
type CredentialStore interface {
	List() ([]CredentialInfo, error)
	Get(provider string) (secret string, ok bool, err error)
	Set(provider, secret string) error
	Delete(provider string) error
}

// Identity is the current signed-in user.
type Identity struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// IdentityProvider exposes the current-user identity and sign-in/out.
// Subscribers are notified on every auth-state change with the new identity
// (nil after sign-out).
type IdentityProvider interface {
	Current() (*Identity, error)
	SignIn(name, email string) (*Identity, error)
	SignOut() error
	Subscribe(fn func(*Identity)) (cancel func())
}
