package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, "admin", "$argon2id$hash")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	byName, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created, *byName)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "$argon2id$hash", byID.PasswordHash)
}

func TestUserRepo_Missing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	u, err := repo.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.GetByID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepo_DuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, "admin", "a")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "admin", "b")
	assert.ErrorIs(t, err, driven.ErrUserExists)
}
