package assistant

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/maiway/commerce-ai-platform/internal/ai"
)

func sampleHistory() []ai.ChatMessage {
	return []ai.ChatMessage{
		{Role: ai.ChatRoleSystem, Content: "persona"},
		{Role: ai.ChatRoleUser, Content: "hello"},
		{Role: ai.ChatRoleAssistant, Content: "hi!"},
	}
}

func TestFileHistoryStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	store := NewFileHistoryStore(path, nil)
	ctx := context.Background()

	if err := store.Save(ctx, DefaultSessionID, sampleHistory()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	history, err := store.Load(ctx, DefaultSessionID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("loaded %d messages, want 3", len(history))
	}
	if history[1].Content != "hello" {
		t.Errorf("history[1].Content = %q", history[1].Content)
	}
}

func TestFileHistoryStore_MissingFileIsFresh(t *testing.T) {
	store := NewFileHistoryStore(filepath.Join(t.TempDir(), "memory.json"), nil)

	history, err := store.Load(context.Background(), DefaultSessionID)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if history != nil {
		t.Errorf("missing file should yield nil history, got %v", history)
	}
}

func TestFileHistoryStore_CorruptedFileIsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileHistoryStore(path, nil)

	history, err := store.Load(context.Background(), DefaultSessionID)
	if err != nil {
		t.Fatalf("corrupted file should not error: %v", err)
	}
	if history != nil {
		t.Errorf("corrupted file should yield nil history, got %v", history)
	}
}

func TestFileHistoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewFileHistoryStore(filepath.Join(t.TempDir(), "memory.json"), nil)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", sampleHistory()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	history, err := store.Load(ctx, "bob")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if history != nil {
		t.Error("one session's history must not leak into another")
	}

	history, err = store.Load(ctx, "alice")
	if err != nil || len(history) != 3 {
		t.Errorf("alice's history should survive, got %v (%v)", history, err)
	}
}

func redisStore(t *testing.T) (*RedisHistoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisHistoryStore(client, nil), mr
}

func TestRedisHistoryStore_RoundTrip(t *testing.T) {
	store, _ := redisStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", sampleHistory()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	history, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("loaded %d messages, want 3", len(history))
	}
	if history[2].Role != ai.ChatRoleAssistant {
		t.Errorf("history[2].Role = %q", history[2].Role)
	}
}

func TestRedisHistoryStore_MissingKeyIsFresh(t *testing.T) {
	store, _ := redisStore(t)

	history, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("missing key should not error: %v", err)
	}
	if history != nil {
		t.Errorf("missing key should yield nil history, got %v", history)
	}
}

func TestRedisHistoryStore_CorruptedValueIsFresh(t *testing.T) {
	store, mr := redisStore(t)
	mr.Set(historyKey("s1"), "{not json")

	history, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("corrupted value should not error: %v", err)
	}
	if history != nil {
		t.Errorf("corrupted value should yield nil history, got %v", history)
	}
}

func TestRedisHistoryStore_SetsTTL(t *testing.T) {
	store, mr := redisStore(t)

	if err := store.Save(context.Background(), "s1", sampleHistory()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if mr.TTL(historyKey("s1")) != historyTTL {
		t.Errorf("TTL = %v, want %v", mr.TTL(historyKey("s1")), historyTTL)
	}
}
