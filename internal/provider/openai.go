package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"colloquy/internal/persona"
	"colloquy/internal/transcript"
)

const (
	OpenAIBaseURL      = "https://api.openai.com/v1"
	OpenAIChatEndpoint = "/chat/completions"

	// DefaultOpenAIModel is the chat model requested by default.
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIProvider generates replies through a chat-completion style endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates a chat-completion provider. An empty baseURL
// uses the public endpoint.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   DefaultOpenAIModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return string(persona.ModelOpenAI)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateReply sends the persona's system prompt plus the mapped history
// and returns the generated text.
func (p *OpenAIProvider) GenerateReply(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, len(req.History)+1)
	messages = append(messages, chatMessage{Role: "system", Content: persona.BuildSystemPrompt(req.Persona)})
	for _, m := range req.History {
		messages = append(messages, chatMessage{
			Role:    historyRole(req.Persona, m),
			Content: historyContent(req.Persona, m),
		})
	}

	body := chatRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: maxTokens(req.MaxWords),
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + OpenAIChatEndpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	log.Debug().
		Str("endpoint", endpoint).
		Str("persona", req.Persona.Name).
		Int("history", len(req.History)).
		Int("max_tokens", body.MaxTokens).
		Msg("Making chat completion request")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", upstreamError(p.Name(), resp.StatusCode, respData)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respData, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: response contained no choices", p.Name())
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// historyRole maps a transcript message onto the chat role expected by the
// provider: the speaking persona's own prior turns are "assistant",
// everything else is "user".
func historyRole(speaker *persona.Persona, m transcript.Message) string {
	if m.Kind == transcript.KindAgent && m.AuthorID == speaker.ID {
		return "assistant"
	}
	return "user"
}

// historyContent prefixes other speakers' turns with their name so a
// multi-party conversation stays attributable inside a two-role API.
func historyContent(speaker *persona.Persona, m transcript.Message) string {
	if m.Kind == transcript.KindAgent && m.AuthorID != speaker.ID && m.AuthorName != "" {
		return m.AuthorName + ": " + m.Text
	}
	return m.Text
}

// upstreamError converts a non-2xx response into a *ProviderError carrying
// the upstream message when one can be parsed out of the body.
func upstreamError(providerName string, status int, body []byte) error {
	var parsed chatErrorResponse
	message := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		message = parsed.Error.Message
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	return &ProviderError{Provider: providerName, StatusCode: status, Message: message}
}
