// Package transcript holds the append-only message log of one simulation
// run, and its exportable snapshot form.
package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a transcript message.
type Kind string

const (
	KindSystem Kind = "system"
	KindUser   Kind = "user"
	KindAgent  Kind = "agent"
)

// Message is one entry in the transcript. Live marks whether the text came
// from a real provider call (true) or a local fallback (false).
type Message struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	AuthorID   string    `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name,omitempty"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Model      string    `json:"model,omitempty"`
	Live       bool      `json:"live"`
}

// Transcript is an ordered, append-only message log. It is owned by a
// single simulation session; all writes are serialized by the engine, so no
// locking happens here.
type Transcript struct {
	messages []Message
}

// New returns an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// Append adds a message to the end of the log, assigning an ID and
// timestamp when missing, and returns the stored message. Messages are
// never reordered or mutated after append.
func (t *Transcript) Append(m Message) Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	t.messages = append(t.messages, m)
	return m
}

// Clear discards all messages. Only invoked when a simulation (re)starts.
func (t *Transcript) Clear() {
	t.messages = nil
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the full ordered log.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// History returns a copy of the non-system messages, the conversation
// history fed to model providers.
func (t *Transcript) History() []Message {
	out := make([]Message, 0, len(t.messages))
	for _, m := range t.messages {
		if m.Kind == KindSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
