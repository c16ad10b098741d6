package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complyscan/internal/session/models"
	"complyscan/pkg/platform/sentinel"
	"complyscan/pkg/requestcontext"
)

func TestInMemoryStore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	store := NewInMemoryStore()

	sess := &models.Session{
		ID:        "s1",
		Identity:  models.Identity{ID: "u1", Credential: "tok"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Identity.Credential)

	got.Identity.Credential = "changed"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok", again.Identity.Credential, "stored copy is not aliased")

	later := requestcontext.WithTime(context.Background(), now.Add(2*time.Hour))
	_, err = store.Get(later, "s1")
	assert.ErrorIs(t, err, sentinel.ErrExpired)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "expired sessions are evicted")

	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Delete(ctx, "s1"))
	assert.ErrorIs(t, store.Delete(ctx, "s1"), sentinel.ErrNotFound)
}
