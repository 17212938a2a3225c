package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"colloquy/internal/environment"
)

// Document is a self-contained snapshot of an environment plus its
// transcript, suitable for writing to disk.
type Document struct {
	Environment  string    `json:"environment"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
	ExportedAt   time.Time `json:"exportedAt"`
}

// Export snapshots the environment name, ordered participant names and the
// full ordered message list. Always succeeds given an in-memory transcript.
func Export(env *environment.Environment, t *Transcript) Document {
	names := make([]string, len(env.Participants))
	for i, p := range env.Participants {
		names[i] = p.Name
	}
	return Document{
		Environment:  env.Name,
		Participants: names,
		Messages:     t.Messages(),
		ExportedAt:   time.Now(),
	}
}

// Filename returns the download name for the document, derived from the
// environment name and the export timestamp.
func (d Document) Filename() string {
	return fmt.Sprintf("%s-%s.json", slug(d.Environment), d.ExportedAt.UTC().Format("20060102-150405"))
}

// WriteFile writes the document into dir and returns the full path.
func (d Document) WriteFile(dir string) (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}

	path := filepath.Join(dir, d.Filename())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	log.Debug().Str("path", path).Int("messages", len(d.Messages)).Msg("Exported transcript")
	return path, nil
}

// slug lowercases a name and collapses anything non-alphanumeric to dashes.
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "environment"
	}
	return out
}
