package controllers

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"blogapi/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteController(t *testing.T) {
	env := setupTestEnv(t)
	author := env.createUser(t, "author")
	voter := env.createUser(t, "voter")
	post := env.createPost(t, author, "Vote on me", "A post that wants votes")
	votePath := fmt.Sprintf("/posts/%d/vote", post.ID)
	statusPath := fmt.Sprintf("/posts/%d/vote-status", post.ID)

	steps := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"upvote", `{"vote_type":"upvote"}`, http.StatusOK, `{"vote_type":"upvote","score":1}`},
		{"repeat retracts", `{"vote_type":"upvote"}`, http.StatusOK, `{"vote_type":null,"score":0}`},
		{"downvote", `{"vote_type":"downvote"}`, http.StatusOK, `{"vote_type":"downvote","score":-1}`},
		{"switch", `{"vote_type":"upvote"}`, http.StatusOK, `{"vote_type":"upvote","score":1}`},
	}
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			w := env.do(http.MethodPost, votePath, step.body, voter)
			require.Equal(t, step.status, w.Code, w.Body.String())
			assert.JSONEq(t, step.want, w.Body.String())
		})
	}

	t.Run("status", func(t *testing.T) {
		w := env.do(http.MethodGet, statusPath, "", voter)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"vote_type":"upvote"}`, w.Body.String())

		w = env.do(http.MethodGet, statusPath, "", author)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"vote_type":null}`, w.Body.String())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			method string
			path   string
			body   string
			authed bool
			status int
		}{
			{"invalid type", http.MethodPost, votePath, `{"vote_type":"sideways"}`, true, http.StatusBadRequest},
			{"missing type", http.MethodPost, votePath, `{}`, true, http.StatusBadRequest},
			{"none is not castable", http.MethodPost, votePath, `{"vote_type":"none"}`, true, http.StatusBadRequest},
			{"anonymous vote", http.MethodPost, votePath, `{"vote_type":"upvote"}`, false, http.StatusUnauthorized},
			{"missing post", http.MethodPost, "/posts/999/vote", `{"vote_type":"upvote"}`, true, http.StatusNotFound},
			{"anonymous status", http.MethodGet, statusPath, ``, false, http.StatusUnauthorized},
			{"status of missing post", http.MethodGet, "/posts/999/vote-status", ``, true, http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				user := voter
				if !tt.authed {
					user = nil
				}
				w := env.do(tt.method, tt.path, tt.body, user)
				assert.Equal(t, tt.status, w.Code, w.Body.String())
			})
		}
	})

	t.Run("concurrent upvotes", func(t *testing.T) {
		fresh := env.createPost(t, author, "Race", "Two readers click at once")
		readers := []*models.User{env.createUser(t, "reader_a"), env.createUser(t, "reader_b")}
		path := fmt.Sprintf("/posts/%d/vote", fresh.ID)

		var wg sync.WaitGroup
		codes := make([]int, len(readers))
		for i, reader := range readers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				codes[i] = env.do(http.MethodPost, path, `{"vote_type":"upvote"}`, reader).Code
			}()
		}
		wg.Wait()

		assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
		w := env.do(http.MethodGet, fmt.Sprintf("/posts/%d", fresh.ID), "", nil)
		var response postResponse
		decodeBody(t, w, &response)
		assert.Equal(t, 2, response.Score)
		assert.Equal(t, 2, response.Upvotes)
	})
}
