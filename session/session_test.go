package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationOrdering(t *testing.T) {
	s := &Session{ID: "s1"}

	s.SeedSystem("You are a tutor.")
	s.AppendUser("What is photosynthesis?")
	s.AppendAssistant("Let's find out together. What do plants need to grow?")
	s.AppendUser("Sunlight?")

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, "system", snap[0].Role)
	assert.Equal(t, "user", snap[1].Role)
	assert.Equal(t, "assistant", snap[2].Role)
	assert.Equal(t, "user", snap[3].Role)
}

func TestSeedSystemOnlyOnce(t *testing.T) {
	s := &Session{ID: "s1"}
	s.SeedSystem("first")
	s.AppendUser("hi")
	s.SeedSystem("second")

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "first", snap[0].Content)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := &Session{ID: "s1"}
	s.SeedSystem("sys")
	s.AppendUser("q1")

	snap := s.Snapshot()
	s.AppendAssistant("a1")

	// The snapshot taken before the append is unchanged.
	assert.Len(t, snap, 2)
	assert.Len(t, s.Transcript, 3)

	snap[0].Content = "mutated"
	assert.Equal(t, "sys", s.Transcript[0].Content)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	st, err := NewStore(StoreTypeMemory)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	sess := &Session{ID: "s1", LinkID: "l1"}
	sess.SeedSystem("sys")
	require.NoError(t, st.Create(ctx, sess))
	assert.EqualValues(t, 1, sess.Version)

	got, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "l1", got.LinkID)
	require.Len(t, got.Transcript, 1)

	got.AppendUser("hello")
	require.NoError(t, st.Update(ctx, got))
	assert.EqualValues(t, 2, got.Version)

	_, err = st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Delete(ctx, "s1"))
	_, err = st.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreVersionConflict(t *testing.T) {
	st, err := NewStore(StoreTypeMemory)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	sess := &Session{ID: "s1"}
	require.NoError(t, st.Create(ctx, sess))

	// Two readers race: the second writer must lose.
	a, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	b, err := st.Get(ctx, "s1")
	require.NoError(t, err)

	a.AppendUser("first send")
	require.NoError(t, st.Update(ctx, a))

	b.AppendUser("concurrent send")
	assert.ErrorIs(t, st.Update(ctx, b), ErrVersionConflict)
}

func TestMemoryStoreIsolation(t *testing.T) {
	st, err := NewStore(StoreTypeMemory)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	sess := &Session{ID: "s1"}
	sess.SeedSystem("sys")
	require.NoError(t, st.Create(ctx, sess))

	// Mutating the caller's copy must not leak into the store.
	sess.AppendUser("untracked")
	got, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Transcript, 1)
}

func TestNewStoreInvalid(t *testing.T) {
	_, err := NewStore(StoreTypeRedis) // missing client
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(StoreType("bogus"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
