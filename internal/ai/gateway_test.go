package ai

import (
	"context"
	"errors"
	"testing"
)

type scriptedClient struct {
	reply string
	err   error
	calls int
	last  []ChatMessage
}

func (c *scriptedClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	c.calls++
	c.last = messages
	return c.reply, c.err
}

func TestQuickAnalysis_ReturnsBackendText(t *testing.T) {
	client := &scriptedClient{reply: "0.75"}
	g := NewGateway(client, nil)

	got, err := g.QuickAnalysis(context.Background(), "score this customer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0.75" {
		t.Fatalf("expected backend text, got %q", got)
	}
	if len(client.last) != 1 || client.last[0].Role != ChatRoleUser {
		t.Fatalf("quick analysis must send a single user message, got %v", client.last)
	}
}

func TestQuickAnalysis_WrapsTransportError(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	g := NewGateway(client, nil)

	_, err := g.QuickAnalysis(context.Background(), "score")
	if err == nil {
		t.Fatal("expected error")
	}
	if !Unavailable(err) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("gateway must not retry, got %d calls", client.calls)
	}
}

func TestConverse_AbsorbsFailureIntoFallback(t *testing.T) {
	client := &scriptedClient{err: errors.New("timeout")}
	g := NewGateway(client, nil)

	reply := g.Converse(context.Background(), []ChatMessage{
		{Role: ChatRoleSystem, Content: "be helpful"},
		{Role: ChatRoleUser, Content: "hi"},
	})
	if reply != FallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply)
	}
}

func TestConverse_ReturnsBackendReply(t *testing.T) {
	client := &scriptedClient{reply: "hello there"}
	g := NewGateway(client, nil)

	reply := g.Converse(context.Background(), []ChatMessage{{Role: ChatRoleUser, Content: "hi"}})
	if reply != "hello there" {
		t.Fatalf("expected backend reply, got %q", reply)
	}
	if len(client.last) != 1 {
		t.Fatalf("gateway must pass history through unchanged, got %d messages", len(client.last))
	}
}

func TestNewGateway_RequiresClient(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil client")
		}
	}()
	NewGateway(nil, nil)
}
