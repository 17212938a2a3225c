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
)

const (
	AnthropicBaseURL          = "https://api.anthropic.com"
	AnthropicMessagesEndpoint = "/v1/messages"
	AnthropicVersion          = "2023-06-01"

	// DefaultAnthropicModel is the message model requested by default.
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
)

// AnthropicProvider generates replies through a message-completion style
// endpoint: system prompt as a top-level field, strictly alternating roles.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewAnthropicProvider creates a message-completion provider. An empty
// baseURL uses the public endpoint.
func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = AnthropicBaseURL
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   DefaultAnthropicModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return string(persona.ModelAnthropic)
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateReply sends the persona's system prompt plus the mapped history
// and returns the generated text.
func (p *AnthropicProvider) GenerateReply(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		next := chatMessage{
			Role:    historyRole(req.Persona, m),
			Content: historyContent(req.Persona, m),
		}
		// The messages API rejects consecutive turns with the same role,
		// so runs are merged into one message.
		if n := len(messages); n > 0 && messages[n-1].Role == next.Role {
			messages[n-1].Content += "\n\n" + next.Content
			continue
		}
		messages = append(messages, next)
	}
	if len(messages) == 0 || messages[0].Role != "user" {
		// The API requires the first message to be a user turn.
		messages = append([]chatMessage{{Role: "user", Content: "Begin the conversation."}}, messages...)
	}

	body := anthropicRequest{
		Model:     p.model,
		System:    persona.BuildSystemPrompt(req.Persona),
		Messages:  messages,
		MaxTokens: maxTokens(req.MaxWords),
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + AnthropicMessagesEndpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", AnthropicVersion)

	log.Debug().
		Str("endpoint", endpoint).
		Str("persona", req.Persona.Name).
		Int("history", len(req.History)).
		Int("max_tokens", body.MaxTokens).
		Msg("Making message completion request")

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

	var parsed anthropicResponse
	if err := json.Unmarshal(respData, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	for _, c := range parsed.Content {
		if c.Type == "text" && c.Text != "" {
			return strings.TrimSpace(c.Text), nil
		}
	}
	return "", fmt.Errorf("%s: response contained no text content", p.Name())
}
