package memory

import (
	"context"
	"sync"

	"github.com/aptrag/chatbot/domain"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is an in-memory implementation of Store. It is the
// process-wide conversation memory singleton: one goroutine-safe map
// keyed by user id, each entry guarded by its own mutex so that turns
// for a given user are strictly ordered while different users never
// contend on the same lock.
//
// This implementation is suitable for a single-process deployment; it
// does not persist data across restarts.
type InMemoryStore struct {
	maxTurns int

	mu     sync.Mutex
	byUser map[string]*userMemory
}

type userMemory struct {
	mu    sync.Mutex
	turns []domain.ConversationTurn
}

// NewInMemoryMemory creates a new InMemoryStore. maxTurns bounds the
// number of turns retained per user; values below 1 default to 10.
func NewInMemoryMemory(maxTurns int) *InMemoryStore {
	if maxTurns < 1 {
		maxTurns = 10
	}
	return &InMemoryStore{
		maxTurns: maxTurns,
		byUser:   make(map[string]*userMemory),
	}
}

func (m *InMemoryStore) userSlot(userID string) *userMemory {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.byUser[userID]
	if !ok {
		slot = &userMemory{}
		m.byUser[userID] = slot
	}
	return slot
}

// Write appends a turn for the given user, evicting the oldest turn
// once the per-user bound is exceeded.
func (m *InMemoryStore) Write(ctx context.Context, turn domain.ConversationTurn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	slot := m.userSlot(turn.UserID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	slot.turns = append(slot.turns, turn)
	if overflow := len(slot.turns) - m.maxTurns; overflow > 0 {
		slot.turns = slot.turns[overflow:]
	}
	return nil
}

// Read retrieves all stored turns for the specified user.
// Returns an empty slice if the user has no stored turns.
func (m *InMemoryStore) Read(ctx context.Context, userID string) ([]domain.ConversationTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slot := m.userSlot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if len(slot.turns) == 0 {
		return []domain.ConversationTurn{}, nil
	}

	// Return a copy to prevent external modification
	copied := make([]domain.ConversationTurn, len(slot.turns))
	copy(copied, slot.turns)
	return copied, nil
}

// Clear removes all stored turns for the specified user.
func (m *InMemoryStore) Clear(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	slot := m.userSlot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	slot.turns = nil
	return nil
}
