package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aptrag/chatbot/domain"
)

var _ Store = (*TopicTrackingStore)(nil)

// TopicTrackingStore decorates a Store with the extra per-user state the
// Response Generator needs beyond raw turns: the current topic string and
// a follow-up counter. Reads and writes of this extra state are guarded
// by a per-user mutex of its own, separate from whatever locking the
// wrapped Store uses for the turn history.
type TopicTrackingStore struct {
	inner Store

	mu    sync.Mutex
	state map[string]*topicState
}

type topicState struct {
	mu            sync.Mutex
	currentTopic  string
	followUpCount int
}

// NewTopicTrackingStore wraps an inner Store, typically an InMemoryStore,
// adding topic and follow-up bookkeeping. Returns an error if inner is nil.
func NewTopicTrackingStore(inner Store) (*TopicTrackingStore, error) {
	if inner == nil {
		return nil, errors.New("inner memory implementation cannot be nil")
	}
	return &TopicTrackingStore{
		inner: inner,
		state: make(map[string]*topicState),
	}, nil
}

func (m *TopicTrackingStore) slot(userID string) *topicState {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.state[userID]
	if !ok {
		s = &topicState{}
		m.state[userID] = s
	}
	return s
}

// Write delegates turn storage to the inner store.
func (m *TopicTrackingStore) Write(ctx context.Context, turn domain.ConversationTurn) error {
	return m.inner.Write(ctx, turn)
}

// Read delegates turn retrieval to the inner store.
func (m *TopicTrackingStore) Read(ctx context.Context, userID string) ([]domain.ConversationTurn, error) {
	return m.inner.Read(ctx, userID)
}

// Clear removes turns and resets topic state for the user.
func (m *TopicTrackingStore) Clear(ctx context.Context, userID string) error {
	if err := m.inner.Clear(ctx, userID); err != nil {
		return err
	}
	s := m.slot(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTopic = ""
	s.followUpCount = 0
	return nil
}

// CurrentTopic returns the last topic recorded for the user, or "" if none.
func (m *TopicTrackingStore) CurrentTopic(userID string) string {
	s := m.slot(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTopic
}

// SetCurrentTopic updates the topic tracked for the user.
func (m *TopicTrackingStore) SetCurrentTopic(userID, topic string) {
	s := m.slot(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTopic = topic
}

// FollowUpCount returns the number of consecutive follow-up turns
// recorded for the user.
func (m *TopicTrackingStore) FollowUpCount(userID string) int {
	s := m.slot(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.followUpCount
}

// IncrementFollowUp increments the follow-up counter for the user.
func (m *TopicTrackingStore) IncrementFollowUp(userID string) int {
	s := m.slot(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followUpCount++
	return s.followUpCount
}

// ResetFollowUp zeroes the follow-up counter for the user.
func (m *TopicTrackingStore) ResetFollowUp(userID string) {
	s := m.slot(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followUpCount = 0
}
