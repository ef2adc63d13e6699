package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthStateRepo_SaveAndConsume(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuthStateRepo(db)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)
	require.NoError(t, repo.Save(ctx, "state-1", expiresAt))

	got, ok, err := repo.Consume(ctx, "state-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expiresAt, got)
}

func TestAuthStateRepo_ConsumeIsSingleUse(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuthStateRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "state-once", time.Now().Add(10*time.Minute)))

	_, ok, err := repo.Consume(ctx, "state-once")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = repo.Consume(ctx, "state-once")
	require.NoError(t, err)
	assert.False(t, ok, "replayed state should not be found")
}

func TestAuthStateRepo_ConsumeUnknown(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuthStateRepo(db)

	_, ok, err := repo.Consume(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthStateRepo_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuthStateRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, "stale-1", now.Add(-time.Minute)))
	require.NoError(t, repo.Save(ctx, "stale-2", now.Add(-time.Hour)))
	require.NoError(t, repo.Save(ctx, "fresh", now.Add(10*time.Minute)))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, err := repo.Consume(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok, "unexpired state should survive cleanup")
}
