package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.1:latest"
	defaultGroqBaseURL   = "https://api.groq.com/openai"
	defaultGroqModel     = "llama-3.1-70b-versatile"
)

// OpenAICompatConfig configures a client for any OpenAI-compatible
// chat-completions endpoint.
type OpenAICompatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// ContextWindow maps to Ollama's num_ctx; ignored by hosted providers.
	ContextWindow int
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// OpenAICompatClient speaks the OpenAI chat-completions wire format.
// Both the local Ollama server and Groq expose this API, so one client
// covers the local and one of the hosted variants.
type OpenAICompatClient struct {
	baseURL       string
	apiKey        string
	model         string
	temperature   float64
	maxTokens     int
	contextWindow int
	httpClient    *http.Client
}

// NewOllamaClient creates a client for a local Ollama server. Any API key
// string satisfies Ollama; "ollama" is conventional.
func NewOllamaClient(cfg OpenAICompatConfig) *OpenAICompatClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultOllamaModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	return newOpenAICompatClient(cfg)
}

// NewGroqClient creates a client for Groq's hosted OpenAI-compatible API.
func NewGroqClient(cfg OpenAICompatConfig) (*OpenAICompatClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ai: groq api key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultGroqBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultGroqModel
	}
	cfg.ContextWindow = 0 // hosted providers reject the Ollama extension
	return newOpenAICompatClient(cfg), nil
}

func newOpenAICompatClient(cfg OpenAICompatConfig) *OpenAICompatClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &OpenAICompatClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		contextWindow: cfg.ContextWindow,
		httpClient:    httpClient,
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	NumCtx      int           `json:"num_ctx,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the conversation and returns the assistant text.
func (c *OpenAICompatClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("ai: at least one message is required")
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		NumCtx:      c.contextWindow,
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("ai: read completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ai: completion returned status %d", resp.StatusCode)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("ai: decode completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("ai: backend error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("ai: completion returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
