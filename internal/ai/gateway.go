package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// ErrUnavailable marks transport/model failures so call sites can tell
// "backend unreachable" apart from "backend returned garbage".
var ErrUnavailable = errors.New("ai: backend unavailable")

// FallbackReply is what chat users see when the backend is down. Engines
// that need a parseable value never see this string; they get an error and
// take their own deterministic branch.
const FallbackReply = "I'm having trouble processing your request right now. Please try again."

// Gateway is the single entry point to the LLM backend. It holds no
// per-caller state and is safe for concurrent use; one attempt per call,
// no retries, so latency stays bounded.
type Gateway struct {
	client LLMClient
	logger *logging.Logger
}

func NewGateway(client LLMClient, logger *logging.Logger) *Gateway {
	if client == nil {
		panic("ai: llm client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{client: client, logger: logger}
}

// QuickAnalysis runs a single-shot prompt expected to yield a short,
// machine-parseable answer. Transport failures come back wrapped in
// ErrUnavailable; the caller owns the fallback.
func (g *Gateway) QuickAnalysis(ctx context.Context, prompt string) (string, error) {
	text, err := g.client.Complete(ctx, []ChatMessage{{Role: ChatRoleUser, Content: prompt}})
	if err != nil {
		g.logger.Error("quick analysis failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return text, nil
}

// Converse runs a multi-turn completion over the caller-owned history.
// Any failure is absorbed into FallbackReply: chat users always get a
// reply, never an error.
func (g *Gateway) Converse(ctx context.Context, messages []ChatMessage) string {
	text, err := g.client.Complete(ctx, messages)
	if err != nil {
		g.logger.Error("conversation completion failed", "error", err, "turns", len(messages))
		return FallbackReply
	}
	return text
}

// Unavailable reports whether err stems from a transport/model failure.
func Unavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
