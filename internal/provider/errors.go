package provider

import (
	"errors"
	"fmt"
)

// ErrCredentialMissing indicates a persona selected a network provider but
// no secret is configured for it. No network call is attempted.
var ErrCredentialMissing = errors.New("no credential configured")

// ProviderError is a non-success response from an external model endpoint.
// Message carries the upstream-supplied error text when present.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
}
