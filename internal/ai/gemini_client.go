package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements LLMClient using Google's Gemini API, the second
// hosted-model variant.
type GeminiClient struct {
	client      *genai.Client
	modelID     string
	temperature float32
	maxTokens   int32
}

// GeminiConfig holds the hosted Gemini settings.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewGeminiClient creates a Gemini-backed LLM client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ai: gemini api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("ai: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		modelID:     cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Complete sends the conversation to Gemini. System messages become the
// system instruction; the rest of the history is replayed as chat turns.
func (c *GeminiClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("ai: gemini requires at least one message")
	}

	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(c.temperature)
	model.SetMaxOutputTokens(c.maxTokens)

	var systemParts []string
	var turns []ChatMessage
	for _, msg := range messages {
		if msg.Role == ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	if len(systemParts) > 0 {
		systemText := strings.TrimSpace(strings.Join(systemParts, "\n\n"))
		if systemText != "" {
			model.SystemInstruction = genai.NewUserContent(genai.Text(systemText))
		}
	}
	if len(turns) == 0 {
		return "", errors.New("ai: gemini requires a non-system message")
	}

	cs := model.StartChat()
	for _, msg := range turns[:len(turns)-1] {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == ChatRoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		return "", fmt.Errorf("ai: gemini completion failed: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("ai: gemini returned an empty completion")
	}
	return out, nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
