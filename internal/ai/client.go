package ai

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of a role-tagged conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient abstracts a chat-completion backend. Implementations exist for
// a local model server (Ollama) and hosted providers (Groq, Gemini); the
// variant is chosen once at process start from configuration.
type LLMClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
