package memory

import (
	"context"
	"sync"

	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/google/uuid"
)

type sessionEntry struct {
	mu           sync.Mutex
	conversation Conversation
}

// InMemoryStore keeps sessions in process memory.
type InMemoryStore struct {
	maxHistory int

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewInMemoryStore(maxHistory int) *InMemoryStore {
	return &InMemoryStore{
		maxHistory: maxHistory,
		sessions:   make(map[string]*sessionEntry),
	}
}

func (s *InMemoryStore) CreateSession(ctx context.Context) string {
	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = &sessionEntry{conversation: Conversation{ID: id}}
	s.mu.Unlock()
	return id
}

func (s *InMemoryStore) GetHistory(ctx context.Context, sessionID string) ([]llm.Message, error) {
	entry := s.lookup(sessionID)
	if entry == nil {
		return []llm.Message{}, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	history := make([]llm.Message, len(entry.conversation.Messages))
	copy(history, entry.conversation.Messages)
	return history, nil
}

func (s *InMemoryStore) AddExchange(ctx context.Context, sessionID, question, answer string) error {
	entry := s.lookupOrCreate(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.conversation.AddExchange(question, answer, s.maxHistory)
	return nil
}

// SessionCount reports how many sessions are held.
func (s *InMemoryStore) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *InMemoryStore) lookup(sessionID string) *sessionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

func (s *InMemoryStore) lookupOrCreate(sessionID string) *sessionEntry {
	if entry := s.lookup(sessionID); entry != nil {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{conversation: Conversation{ID: sessionID}}
		s.sessions[sessionID] = entry
	}
	return entry
}
