package repositories

import (
	"testing"

	"blogapi/app/apperrors"
	"blogapi/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	repo := newTestStore(t).Users()

	user := &models.User{Username: "Alice_1", Email: "alice@example.com", PasswordHash: "x"}
	user.BeforeCreate()
	require.NoError(t, repo.Create(user))
	assert.Equal(t, 1, user.ID)

	t.Run("lookup by id and username", func(t *testing.T) {
		byID, err := repo.GetByID(user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice_1", byID.Username)

		byName, err := repo.GetByUsername("alice_1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup := &models.User{Username: "ALICE_1", Email: "other@example.com", PasswordHash: "x"}
		err := repo.Create(dup)
		assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := &models.User{Username: "someone", Email: "ALICE@example.com", PasswordHash: "x"}
		assert.ErrorIs(t, repo.Create(dup), ErrDuplicate)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetByUsername("nobody")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetByID(42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
