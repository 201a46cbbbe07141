package assistant

import (
	"context"
	"sync"

	"github.com/maiway/commerce-ai-platform/internal/ai"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// DefaultSystemPrompt is used when no persona text is configured.
const DefaultSystemPrompt = "You are Maiway, a friendly shopping assistant for the Maiway online store. " +
	"Help customers find products, answer questions about orders, and use the available reference material when relevant."

// Conversationalist is the multi-turn side of the AI gateway.
type Conversationalist interface {
	Converse(ctx context.Context, messages []ai.ChatMessage) string
}

// Manager hands out chat sessions keyed by identity. Sessions are
// created lazily and kept for the life of the process; persistence
// lives in the injected store.
type Manager struct {
	gateway      Conversationalist
	store        HistoryStore
	library      *Library
	systemPrompt string
	logger       *logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

type ManagerConfig struct {
	Gateway      Conversationalist
	Store        HistoryStore
	Library      *Library
	SystemPrompt string
	Logger       *logging.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Gateway == nil {
		panic("assistant: gateway required")
	}
	if cfg.Store == nil {
		panic("assistant: history store required")
	}
	if cfg.Library == nil {
		panic("assistant: library required")
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	if dir := cfg.Library.ResourceDirectory(); dir != "" {
		prompt = prompt + "\n\n" + dir
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		gateway:      cfg.Gateway,
		store:        cfg.Store,
		library:      cfg.Library,
		systemPrompt: prompt,
		logger:       logger,
		sessions:     make(map[string]*Session),
	}
}

// Session returns the single session object for an identity. All turns
// for that identity serialize on it.
func (m *Manager) Session(sessionID string) *Session {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		return s
	}
	s := &Session{id: sessionID, manager: m}
	m.sessions[sessionID] = s
	return s
}

// Session is one identity's conversation. The mutex makes each turn a
// single-writer critical section; two concurrent requests for the same
// session cannot interleave their history updates.
type Session struct {
	id      string
	manager *Manager

	mu      sync.Mutex
	loaded  bool
	history []ai.ChatMessage
}

// Reset discards the conversation, leaving only the system message.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = []ai.ChatMessage{{Role: ai.ChatRoleSystem, Content: s.manager.systemPrompt}}
	s.loaded = true
	s.persist(ctx)
	s.manager.logger.Info("chat session reset", "session_id", s.id)
}

// Handle runs one chat turn: enrich the message with matched reference
// content, ask the gateway, record both turns, persist, reply. The
// gateway never fails outward, so neither does this.
func (s *Session) Handle(ctx context.Context, message string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureHistory(ctx)

	userContent := message
	if match, ok := s.manager.library.Match(message); ok {
		s.manager.logger.Info("reference content injected", "session_id", s.id, "key", match.Key)
		userContent = message + "\n\n" + match.Content
	}

	s.history = append(s.history, ai.ChatMessage{Role: ai.ChatRoleUser, Content: userContent})
	reply := s.manager.gateway.Converse(ctx, s.history)
	s.history = append(s.history, ai.ChatMessage{Role: ai.ChatRoleAssistant, Content: reply})

	s.persist(ctx)
	return reply
}

// History returns a copy of the current conversation.
func (s *Session) History(ctx context.Context) []ai.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureHistory(ctx)
	out := make([]ai.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// ensureHistory loads persisted history on first use, falling back to a
// fresh system-primed conversation. Callers hold the session mutex.
func (s *Session) ensureHistory(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	history, err := s.manager.store.Load(ctx, s.id)
	if err != nil {
		s.manager.logger.Error("failed to load chat history", "session_id", s.id, "error", err)
		history = nil
	}
	if len(history) == 0 {
		history = []ai.ChatMessage{{Role: ai.ChatRoleSystem, Content: s.manager.systemPrompt}}
	}
	s.history = history
}

// persist writes the session's history; a failed write costs durability,
// not the turn. Callers hold the session mutex.
func (s *Session) persist(ctx context.Context) {
	if err := s.manager.store.Save(ctx, s.id, s.history); err != nil {
		s.manager.logger.Error("failed to persist chat history", "session_id", s.id, "error", err)
	}
}
