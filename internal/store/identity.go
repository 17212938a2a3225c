package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const profileFile = "profile.json"

// FileIdentity is a local stand-in for the identity provider: the signed-in
// user lives in profile.json. It honors the IdentityProvider contract but
// performs no real authentication.
type FileIdentity struct {
	mu          sync.Mutex
	path        string
	subscribers map[int]func(*Identity)
	nextSub     int
}

// NewFileIdentity creates an identity provider rooted at root.
func NewFileIdentity(root string) *FileIdentity {
	return &FileIdentity{
		path:        filepath.Join(root, profileFile),
		subscribers: make(map[int]func(*Identity)),
	}
}

// Current returns the signed-in identity, or nil when signed out.
func (s *FileIdentity) Current() (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id Identity
	if err := readJSON(s.path, &id); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StoreError{Op: "load profile", Err: err}
	}
	return &id, nil
}

// SignIn records the user as signed in and notifies subscribers.
func (s *FileIdentity) SignIn(name, email string) (*Identity, error) {
	if name == "" {
		return nil, &StoreError{Op: "sign in", Err: fmt.Errorf("name is required")}
	}

	s.mu.Lock()
	id := Identity{Name: name, Email: email, SignedInAt: time.Now()}
	if err := writeJSON(s.path, id, secretPermission); err != nil {
		s.mu.Unlock()
		return nil, &StoreError{Op: "sign in", Err: err}
	}
	subs := s.snapshot()
	s.mu.Unlock()

	log.Debug().Str("name", name).Msg("Signed in")
	for _, fn := range subs {
		fn(&id)
	}
	return &id, nil
}

// SignOut discards the profile and notifies subscribers with nil.
func (s *FileIdentity) SignOut() error {
	s.mu.Lock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.mu.Unlock()
		return &StoreError{Op: "sign out", Err: err}
	}
	subs := s.snapshot()
	s.mu.Unlock()

	log.Debug().Msg("Signed out")
	for _, fn := range subs {
		fn(nil)
	}
	return nil
}

// Subscribe registers an auth-state-change listener and returns its cancel
// function.
func (s *FileIdentity) Subscribe(fn func(*Identity)) func() {
	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subscribers[key] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, key)
		s.mu.Unlock()
	}
}

// snapshot copies the subscriber list; callers hold the lock.
func (s *FileIdentity) snapshot() []func(*Identity) {
	out := make([]func(*Identity), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		out = append(out, fn)
	}
	return out
}

var _ IdentityProvider = (*FileIdentity)(nil)
