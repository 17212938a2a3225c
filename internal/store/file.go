package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"colloquy/internal/environment"
	"colloquy/internal/persona"
)

const (
	personasDir      = "personas"
	environmentsDir  = "environments"
	defaultRootDir   = ".colloquy"
	rootEnvVar       = "COLLOQUY_HOME"
	dirPermission    = 0755
	filePermission   = 0644
	secretPermission = 0600
	recordSuffix     = ".json"
)

// FileStore bundles the local JSON-file implementation of every
// collaborator: one file per persona and environment record under a root
// directory, plus credentials.json and profile.json.
type FileStore struct {
	Personas     *FilePersonas
	Environments *FileEnvironments
	Credentials  *FileCredentials
	Identity     *FileIdentity
}

// DefaultRoot returns the store root: $COLLOQUY_HOME, or ~/.colloquy.
func DefaultRoot() (string, error) {
	if root := os.Getenv(rootEnvVar); root != "" {
		return root, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultRootDir), nil
}

// NewFileStore opens (creating if needed) a file store rooted at root.
func NewFileStore(root string) (*FileStore, error) {
	for _, dir := range []string{root, filepath.Join(root, personasDir), filepath.Join(root, environmentsDir)} {
		if err := os.MkdirAll(dir, dirPermission); err != nil {
			return nil, &StoreError{Op: "init", Err: err}
		}
	}
	log.Debug().Str("root", root).Msg("Opened file store")

	personas := &FilePersonas{dir: filepath.Join(root, personasDir)}
	return &FileStore{
		Personas:     personas,
		Environments: &FileEnvironments{dir: filepath.Join(root, environmentsDir), personas: personas},
		Credentials:  NewFileCredentials(root),
		Identity:     NewFileIdentity(root),
	}, nil
}

// FilePersonas stores one JSON file per persona record.
type FilePersonas struct {
	dir string
}

func (s *FilePersonas) path(id string) string {
	return filepath.Join(s.dir, id+recordSuffix)
}

// List returns all personas sorted by name.
func (s *FilePersonas) List() ([]persona.Persona, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &StoreError{Op: "list personas", Err: err}
	}

	personas := make([]persona.Persona, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}
		var p persona.Persona
		if err := readJSON(filepath.Join(s.dir, entry.Name()), &p); err != nil {
			return nil, &StoreError{Op: "list personas", Err: err}
		}
		personas = append(personas, p)
	}
	sort.Slice(personas, func(i, j int) bool { return personas[i].Name < personas[j].Name })
	return personas, nil
}

// Get returns one persona by ID.
func (s *FilePersonas) Get(id string) (persona.Persona, error) {
	var p persona.Persona
	if err := readJSON(s.path(id), &p); err != nil {
		if os.IsNotExist(err) {
			return persona.Persona{}, &StoreError{Op: "get persona", Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
		}
		return persona.Persona{}, &StoreError{Op: "get persona", Err: err}
	}
	return p, nil
}

// Create validates and persists a new persona, assigning its ID.
func (s *FilePersonas) Create(p persona.Persona) (persona.Persona, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return persona.Persona{}, err
	}
	if err := writeJSON(s.path(p.ID), p, filePermission); err != nil {
		return persona.Persona{}, &StoreError{Op: "create persona", Err: err}
	}
	log.Debug().Str("id", p.ID).Str("name", p.Name).Msg("Created persona")
	return p, nil
}

// Update merges a partial update into an existing persona.
func (s *FilePersonas) Update(id string, update PersonaUpdate) (persona.Persona, error) {
	p, err := s.Get(id)
	if err != nil {
		return persona.Persona{}, err
	}

	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Model != nil {
		p.Model = *update.Model
	}
	if update.Role != nil {
		p.Role = *update.Role
	}
	if update.Traits != nil {
		p.Traits = *update.Traits
	}
	if update.Knowledge != nil {
		p.Knowledge = *update.Knowledge
	}
	if update.Files != nil {
		p.Files = *update.Files
	}

	if err := p.Validate(); err != nil {
		return persona.Persona{}, err
	}
	if err := writeJSON(s.path(id), p, filePermission); err != nil {
		return persona.Persona{}, &StoreError{Op: "update persona", Err: err}
	}
	return p, nil
}

// Delete removes a persona record.
func (s *FilePersonas) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return &StoreError{Op: "delete persona", Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
		}
		return &StoreError{Op: "delete persona", Err: err}
	}
	return nil
}

// FileEnvironments stores one JSON file per environment record, persisting
// participants by ID and resolving them through the persona store on read.
type FileEnvironments struct {
	dir      string
	personas PersonaStore
}

// environmentRecord is the persisted form of an environment.
type environmentRecord struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	ParticipantIDs []string         `json:"participant_ids"`
	Mode           environment.Mode `json:"mode"`
	ResponseWords  int              `json:"response_words"`
	SeedPrompt     string           `json:"seed_prompt,omitempty"`
	Moderated      bool             `json:"moderated,omitempty"`
}

func (s *FileEnvironments) path(id string) string {
	return filepath.Join(s.dir, id+recordSuffix)
}

func (s *FileEnvironments) resolve(rec environmentRecord) (environment.Environment, error) {
	env := environment.Environment{
		ID:            rec.ID,
		Name:          rec.Name,
		Description:   rec.Description,
		Mode:          rec.Mode,
		ResponseWords: rec.ResponseWords,
		SeedPrompt:    rec.SeedPrompt,
		Moderated:     rec.Moderated,
		Participants:  make([]persona.Persona, 0, len(rec.ParticipantIDs)),
	}
	for _, id := range rec.ParticipantIDs {
		p, err := s.personas.Get(id)
		if err != nil {
			return environment.Environment{}, err
		}
		env.Participants = append(env.Participants, p)
	}
	return env, nil
}

func record(env environment.Environment) environmentRecord {
	ids := make([]string, len(env.Participants))
	for i, p := range env.Participants {
		ids[i] = p.ID
	}
	return environmentRecord{
		ID:             env.ID,
		Name:           env.Name,
		Description:    env.Description,
		ParticipantIDs: ids,
		Mode:           env.Mode,
		ResponseWords:  env.ResponseWords,
		SeedPrompt:     env.SeedPrompt,
		Moderated:      env.Moderated,
	}
}

// List returns all environments sorted by name, participants resolved.
func (s *FileEnvironments) List() ([]environment.Environment, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &StoreError{Op: "list environments", Err: err}
	}

	envs := make([]environment.Environment, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}
		var rec environmentRecord
		if err := readJSON(filepath.Join(s.dir, entry.Name()), &rec); err != nil {
			return nil, &StoreError{Op: "list environments", Err: err}
		}
		env, err := s.resolve(rec)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs, nil
}

// Get returns one environment by ID, participants resolved.
func (s *FileEnvironments) Get(id string) (environment.Environment, error) {
	var rec environmentRecord
	if err := readJSON(s.path(id), &rec); err != nil {
		if os.IsNotExist(err) {
			return environment.Environment{}, &StoreError{Op: "get environment", Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
		}
		return environment.Environment{}, &StoreError{Op: "get environment", Err: err}
	}
	return s.resolve(rec)
}

// Create validates and persists a new environment, assigning its ID.
func (s *FileEnvironments) Create(env environment.Environment) (environment.Environment, error) {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if err := env.Validate(); err != nil {
		return environment.Environment{}, err
	}
	if err := writeJSON(s.path(env.ID), record(env), filePermission); err != nil {
		return environment.Environment{}, &StoreError{Op: "create environment", Err: err}
	}
	log.Debug().Str("id", env.ID).Str("name", env.Name).Msg("Created environment")
	return env, nil
}

// Update merges a partial update into an existing environment and returns
// it with participants resolved.
func (s *FileEnvironments) Update(id string, update EnvironmentUpdate) (environment.Environment, error) {
	var rec environmentRecord
	if err := readJSON(s.path(id), &rec); err != nil {
		if os.IsNotExist(err) {
			return environment.Environment{}, &StoreError{Op: "update environment", Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
		}
		return environment.Environment{}, &StoreError{Op: "update environment", Err: err}
	}

	if update.Name != nil {
		rec.Name = *update.Name
	}
	if update.Description != nil {
		rec.Description = *update.Description
	}
	if update.ParticipantIDs != nil {
		rec.ParticipantIDs = *update.ParticipantIDs
	}
	if update.Mode != nil {
		rec.Mode = *update.Mode
	}
	if update.ResponseWords != nil {
		rec.ResponseWords = *update.ResponseWords
	}
	if update.SeedPrompt != nil {
		rec.SeedPrompt = *update.SeedPrompt
	}
	if update.Moderated != nil {
		rec.Moderated = *update.Moderated
	}

	env, err := s.resolve(rec)
	if err != nil {
		return environment.Environment{}, err
	}
	if err := env.Validate(); err != nil {
		return environment.Environment{}, err
	}
	if err := writeJSON(s.path(id), rec, filePermission); err != nil {
		return environment.Environment{}, &StoreError{Op: "update environment", Err: err}
	}
	return env, nil
}

// Delete removes an environment record.
func (s *FileEnvironments) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return &StoreError{Op: "delete environment", Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
		}
		return &StoreError{Op: "delete environment", Err: err}
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

var (
	_ PersonaStore     = (*FilePersonas)(nil)
	_ EnvironmentStore = (*FileEnvironments)(nil)
)
