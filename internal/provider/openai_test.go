package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colloquy/internal/persona"
	"colloquy/internal/transcript"
)

func speaker() *persona.Persona {
	return &persona.Persona{ID: "p-ada", Name: "Ada", Model: persona.ModelOpenAI, Role: "an engineer"}
}

func TestOpenAIGenerateReply(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  Good evening.  "}},
			},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL)
	history := []transcript.Message{
		{Kind: transcript.KindUser, Text: "Hello everyone."},
		{Kind: transcript.KindAgent, AuthorID: "p-ada", AuthorName: "Ada", Text: "Hi."},
		{Kind: transcript.KindAgent, AuthorID: "p-bo", AuthorName: "Bo", Text: "Greetings."},
	}

	reply, err := p.GenerateReply(context.Background(), Request{Persona: speaker(), History: history, MaxWords: 100})
	require.NoError(t, err)
	assert.Equal(t, "Good evening.", reply)

	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "You are Ada")
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
	assert.Equal(t, "user", captured.Messages[3].Role)
	assert.Equal(t, "Bo: Greetings.", captured.Messages[3].Content)
	assert.Equal(t, 200, captured.MaxTokens)
}

func TestOpenAIMaxTokensDefault(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider("k", server.URL)
	_, err := p.GenerateReply(context.Background(), Request{Persona: speaker()})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxWords*2, captured.MaxTokens)
}

func TestOpenAIUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Incorrect API key provided", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider("bad-key", server.URL)
	_, err := p.GenerateReply(context.Background(), Request{Persona: speaker()})
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", perr.Message)
	assert.Equal(t, "openai", perr.Provider)
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	p := NewOpenAIProvider("k", server.URL)
	_, err := p.GenerateReply(context.Background(), Request{Persona: speaker()})
	assert.Error(t, err)
}
