package repositories

import (
	"testing"
	"time"

	"blogapi/app/apperrors"
	"blogapi/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPost(title string) *models.Post {
	post := &models.Post{
		Title:    title,
		Body:     "This is a test post body",
		Author:   "alice",
		AuthorID: 1,
	}
	post.BeforeCreate()
	return post
}

func TestPostRepository(t *testing.T) {
	store := newTestStore(t)
	repo := store.Posts()

	t.Run("create and get post", func(t *testing.T) {
		post := newPost("Test Post")
		post.Score = 9

		require.NoError(t, repo.Create(post))
		assert.Greater(t, post.ID, 0)
		assert.Zero(t, post.Score)

		retrieved, err := repo.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.Title, retrieved.Title)
		assert.Equal(t, post.Body, retrieved.Body)
		assert.Zero(t, retrieved.Score)
	})

	t.Run("get missing post", func(t *testing.T) {
		_, err := repo.GetByID(9999)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("update keeps stored score", func(t *testing.T) {
		post := newPost("Original Title")
		require.NoError(t, repo.Create(post))

		err := store.Votes().Update(func(txn VoteTxn) error {
			stored, err := txn.Post(post.ID)
			if err != nil {
				return err
			}
			stored.Score = 5
			return txn.PutPost(stored)
		})
		require.NoError(t, err)

		stale := *post
		stale.Title = "Updated Title"
		stale.Body = "Updated body content"
		stale.Score = 0
		stale.UpdatedAt = time.Now().UTC()
		require.NoError(t, repo.Update(&stale))

		assert.Equal(t, 5, stale.Score)
		updated, err := repo.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Updated Title", updated.Title)
		assert.Equal(t, "Updated body content", updated.Body)
		assert.Equal(t, 5, updated.Score)
		assert.Equal(t, post.AuthorID, updated.AuthorID)
	})

	t.Run("update missing post", func(t *testing.T) {
		err := repo.Update(&models.Post{ID: 9999, Title: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		posts, err := repo.List()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(posts), 2)
	})
}

func TestPostRepositoryDeleteCascades(t *testing.T) {
	store := newTestStore(t)
	posts := store.Posts()
	comments := store.Comments()
	votes := store.Votes()

	post := newPost("Doomed")
	require.NoError(t, posts.Create(post))
	other := newPost("Survivor")
	require.NoError(t, posts.Create(other))

	for _, p := range []*models.Post{post, other} {
		c := &models.Comment{PostID: p.ID, AuthorID: 1, AuthorUsername: "alice", Content: "hello"}
		c.BeforeCreate()
		require.NoError(t, comments.Create(c))
		require.NoError(t, votes.Update(func(txn VoteTxn) error {
			return txn.PutVote(&models.Vote{UserID: 1, PostID: p.ID, Type: models.Upvote})
		}))
	}

	require.NoError(t, posts.Delete(post.ID))

	_, err := posts.GetByID(post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	count, err := comments.CountByPost(post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NoError(t, votes.View(func(txn VoteTxn) error {
		remaining, err := txn.Votes(post.ID)
		assert.Empty(t, remaining)
		return err
	}))

	count, err = comments.CountByPost(other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, votes.View(func(txn VoteTxn) error {
		remaining, err := txn.Votes(other.ID)
		assert.Len(t, remaining, 1)
		return err
	}))

	assert.ErrorIs(t, posts.Delete(post.ID), ErrNotFound)
}
