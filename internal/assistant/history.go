package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/maiway/commerce-ai-platform/internal/ai"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// DefaultSessionID is the session used when the caller supplies none.
const DefaultSessionID = "default"

// historyTTL bounds how long Redis keeps an idle conversation.
const historyTTL = 24 * time.Hour

// HistoryStore persists chat histories per session. Load returns
// (nil, nil) when no usable history exists; corruption is treated as
// absence, never as a fatal error.
type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]ai.ChatMessage, error)
	Save(ctx context.Context, sessionID string, history []ai.ChatMessage) error
}

// FileHistoryStore keeps each session's history as a JSON array on disk.
// The configured path names the default session's file; other sessions
// get sibling files with the session id in the name.
type FileHistoryStore struct {
	path   string
	mu     sync.Mutex
	logger *logging.Logger
}

func NewFileHistoryStore(path string, logger *logging.Logger) *FileHistoryStore {
	if path == "" {
		panic("assistant: history path required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FileHistoryStore{path: path, logger: logger}
}

func (s *FileHistoryStore) sessionFile(sessionID string) string {
	if sessionID == "" || sessionID == DefaultSessionID {
		return s.path
	}
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext)
	return base + "-" + sanitizeSessionID(sessionID) + ext
}

// sanitizeSessionID keeps session-derived filenames flat and safe.
func sanitizeSessionID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

func (s *FileHistoryStore) Load(ctx context.Context, sessionID string) ([]ai.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.sessionFile(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("assistant: read history: %w", err)
	}

	var history []ai.ChatMessage
	if err := json.Unmarshal(raw, &history); err != nil {
		s.logger.Warn("chat history corrupted, starting fresh", "session_id", sessionID, "error", err)
		return nil, nil
	}
	return history, nil
}

func (s *FileHistoryStore) Save(ctx context.Context, sessionID string, history []ai.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("assistant: marshal history: %w", err)
	}

	path := s.sessionFile(sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("assistant: create history dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("assistant: write history: %w", err)
	}
	return nil
}

// RedisHistoryStore keeps chat histories in Redis with a rolling TTL.
type RedisHistoryStore struct {
	redis  *redis.Client
	logger *logging.Logger
	tracer trace.Tracer
}

func NewRedisHistoryStore(client *redis.Client, logger *logging.Logger) *RedisHistoryStore {
	if client == nil {
		panic("assistant: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisHistoryStore{
		redis:  client,
		logger: logger,
		tracer: otel.Tracer("commerce.internal.assistant.history"),
	}
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}

func (s *RedisHistoryStore) Load(ctx context.Context, sessionID string) ([]ai.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: load history: %w", err)
	}

	var history []ai.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		s.logger.Warn("chat history corrupted, starting fresh", "session_id", sessionID, "error", err)
		return nil, nil
	}
	return history, nil
}

func (s *RedisHistoryStore) Save(ctx context.Context, sessionID string, history []ai.ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "assistant.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(sessionID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: persist history: %w", err)
	}
	return nil
}
