package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptrag/chatbot/domain"
)

func turn(userID, q, a string) domain.ConversationTurn {
	return domain.ConversationTurn{
		UserID:    userID,
		Question:  q,
		Response:  a,
		CreatedAt: time.Now(),
	}
}

func TestInMemoryStore_WriteRead(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMemory(3)

	require.NoError(t, store.Write(ctx, turn("u1", "q1", "a1")))
	require.NoError(t, store.Write(ctx, turn("u1", "q2", "a2")))

	turns, err := store.Read(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].Question)
	assert.Equal(t, "q2", turns[1].Question)
}

func TestInMemoryStore_EvictsOldestBeyondBound(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMemory(2)

	require.NoError(t, store.Write(ctx, turn("u1", "q1", "a1")))
	require.NoError(t, store.Write(ctx, turn("u1", "q2", "a2")))
	require.NoError(t, store.Write(ctx, turn("u1", "q3", "a3")))

	turns, err := store.Read(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q2", turns[0].Question)
	assert.Equal(t, "q3", turns[1].Question)
}

func TestInMemoryStore_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMemory(10)

	require.NoError(t, store.Write(ctx, turn("u1", "q1", "a1")))
	require.NoError(t, store.Write(ctx, turn("u2", "q2", "a2")))

	u1, err := store.Read(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, u1, 1)
	assert.Equal(t, "q1", u1[0].Question)

	u2, err := store.Read(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, u2, 1)
	assert.Equal(t, "q2", u2[0].Question)
}

func TestInMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMemory(10)

	require.NoError(t, store.Write(ctx, turn("u1", "q1", "a1")))
	require.NoError(t, store.Clear(ctx, "u1"))

	turns, err := store.Read(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInMemoryStore_ReadUnknownUserIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMemory(10)

	turns, err := store.Read(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInMemoryStore_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewInMemoryMemory(10)

	err := store.Write(ctx, turn("u1", "q1", "a1"))
	assert.Error(t, err)

	_, err = store.Read(ctx, "u1")
	assert.Error(t, err)
}

func TestNewTopicTrackingStore_NilInner(t *testing.T) {
	_, err := NewTopicTrackingStore(nil)
	assert.Error(t, err)
}

func TestTopicTrackingStore_TopicAndFollowUp(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemoryMemory(10)
	store, err := NewTopicTrackingStore(inner)
	require.NoError(t, err)

	assert.Equal(t, "", store.CurrentTopic("u1"))
	assert.Equal(t, 0, store.FollowUpCount("u1"))

	store.SetCurrentTopic("u1", "CAREER_RECOMMENDATIONS")
	assert.Equal(t, "CAREER_RECOMMENDATIONS", store.CurrentTopic("u1"))

	assert.Equal(t, 1, store.IncrementFollowUp("u1"))
	assert.Equal(t, 2, store.IncrementFollowUp("u1"))
	assert.Equal(t, 2, store.FollowUpCount("u1"))

	store.ResetFollowUp("u1")
	assert.Equal(t, 0, store.FollowUpCount("u1"))

	require.NoError(t, store.Write(ctx, turn("u1", "q1", "a1")))
	turns, err := store.Read(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	require.NoError(t, store.Clear(ctx, "u1"))
	assert.Equal(t, "", store.CurrentTopic("u1"))
	turns, err = store.Read(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestTopicTrackingStore_UsersIsolatedForTopic(t *testing.T) {
	inner := NewInMemoryMemory(10)
	store, err := NewTopicTrackingStore(inner)
	require.NoError(t, err)

	store.SetCurrentTopic("u1", "PERSONALITY")
	store.SetCurrentTopic("u2", "THINKING_SKILLS")

	assert.Equal(t, "PERSONALITY", store.CurrentTopic("u1"))
	assert.Equal(t, "THINKING_SKILLS", store.CurrentTopic("u2"))
}
