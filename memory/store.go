package memory

import (
	"context"

	"github.com/SaiNageswarS/course-rag/llm"
)

// DefaultMaxHistory is the number of question/answer exchanges kept per session.
const DefaultMaxHistory = 2

// SessionStore holds per-session conversation history. Implementations are
// safe for concurrent use; appends to one session never block another.
type SessionStore interface {
	// CreateSession allocates a new, empty session and returns its id.
	CreateSession(ctx context.Context) string
	// GetHistory returns the retained messages, oldest first. Unknown
	// sessions have an empty history.
	GetHistory(ctx context.Context, sessionID string) ([]llm.Message, error)
	// AddExchange appends a question and its answer, creating the session
	// when it does not exist yet.
	AddExchange(ctx context.Context, sessionID, question, answer string) error
}
