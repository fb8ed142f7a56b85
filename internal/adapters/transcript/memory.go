package transcript

import (
	"context"
	"sync"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
)

// InMemoryStore keeps transcripts for the lifetime of the process.
// Used when no archive path is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]entities.Message
	order    []string // session IDs by last write, oldest first
}

// NewInMemoryStore creates a new in-memory transcript store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		messages: make(map[string][]entities.Message),
	}
}

// Record appends one message to the session's transcript.
func (s *InMemoryStore) Record(ctx context.Context, sessionID string, msg entities.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[sessionID] = append(s.messages[sessionID], msg)
	for i, id := range s.order {
		if id == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, sessionID)
	return nil
}

// Transcript returns the archived messages of a session in append order.
func (s *InMemoryStore) Transcript(ctx context.Context, sessionID string) ([]entities.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entities.Message(nil), s.messages[sessionID]...), nil
}

// Sessions lists session IDs, most recently written first.
func (s *InMemoryStore) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		sessions = append(sessions, s.order[i])
	}
	return sessions, nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
