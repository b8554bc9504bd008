package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threesixtyfive/server/internal/models"
)

func TestWebSessionRepository(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewWebSessionRepository(db)

	t.Run("add and get", func(t *testing.T) {
		session := models.NewWebSession("sealed-token", "10.0.0.1", "test-agent", 24)
		require.NoError(t, repo.Add(ctx, session))

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "sealed-token", got.AccessTokenEncrypted)
		assert.Equal(t, "10.0.0.1", got.IPAddress)
		assert.False(t, got.IsExpired())
	})

	t.Run("unknown id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		session := models.NewWebSession("x", "", "", 1)
		require.NoError(t, repo.Add(ctx, session))
		require.NoError(t, repo.Delete(ctx, session.ID))

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("cleanup removes only expired", func(t *testing.T) {
		expired := models.NewWebSession("old", "", "", 1)
		expired.ExpiresAt = time.Now().UTC().Add(-time.Hour)
		require.NoError(t, repo.Add(ctx, expired))

		live := models.NewWebSession("new", "", "", 1)
		require.NoError(t, repo.Add(ctx, live))

		removed, err := repo.CleanupExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		got, err := repo.GetByID(ctx, live.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}
