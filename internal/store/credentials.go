package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const credentialsFile = "credentials.json"

// credentialRecord is the persisted form of one secret.
type credentialRecord struct {
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

// FileCredentials stores per-provider secrets in a single 0600 JSON file.
// Secrets never leave this package except through Get.
type FileCredentials struct {
	mu   sync.Mutex
	path string
}

// NewFileCredentials creates a credential store under root.
func NewFileCredentials(root string) *FileCredentials {
	return &FileCredentials{path: filepath.Join(root, credentialsFile)}
}

func (s *FileCredentials) load() (map[string]credentialRecord, error) {
	records := make(map[string]credentialRecord)
	if err := readJSON(s.path, &records); err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, &StoreError{Op: "load credentials", Err: err}
	}
	return records, nil
}

func (s *FileCredentials) save(records map[string]credentialRecord) error {
	if err := writeJSON(s.path, records, secretPermission); err != nil {
		return &StoreError{Op: "save credentials", Err: err}
	}
	return nil
}

// List returns which providers have a secret and when each was stored.
// Secret values are never exposed in bulk.
func (s *FileCredentials) List() ([]CredentialInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	infos := make([]CredentialInfo, 0, len(records))
	for provider, rec := range records {
		infos = append(infos, CredentialInfo{Provider: provider, CreatedAt: rec.CreatedAt})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Provider < infos[j].Provider })
	return infos, nil
}

// Get resolves the secret for a provider; ok is false when none is set.
func (s *FileCredentials) Get(provider string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return "", false, err
	}
	rec, ok := records[provider]
	return rec.Secret, ok, nil
}

// Set stores or replaces the secret for a provider.
func (s *FileCredentials) Set(provider, secret string) error {
	if provider == "" || secret == "" {
		return &StoreError{Op: "set credential", Err: fmt.Errorf("provider and secret are required")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[provider] = credentialRecord{Secret: secret, CreatedAt: time.Now()}
	if err := s.save(records); err != nil {
		return err
	}
	log.Debug().Str("provider", provider).Msg("Stored credential")
	return nil
}

// Delete removes the secret for a provider.
func (s *FileCredentials) Delete(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[provider]; !ok {
		return &StoreError{Op: "delete credential", Err: fmt.Errorf("%w: %s", ErrNotFound, provider)}
	}
	delete(records, provider)
	return s.save(records)
}

var _ CredentialStore = (*FileCredentials)(nil)
