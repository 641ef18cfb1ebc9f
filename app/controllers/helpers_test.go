package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blogapi/app/auth"
	"blogapi/app/models"
	"blogapi/app/repositories"
	"blogapi/app/search"
	"blogapi/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    *repositories.Store
	posts    *services.PostService
	votes    *services.VoteService
	comments *services.CommentService
	users    *services.UserService
	router   *mux.Router
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := repositories.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	index, err := search.NewIndex(32)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer(auth.Config{Secret: "controller-test", TTL: time.Hour})
	require.NoError(t, err)

	locks := services.NewKeyedMutex()
	env := &testEnv{
		store:    store,
		posts:    services.NewPostService(store.Posts(), index, locks, nil),
		votes:    services.NewVoteService(store.Votes(), locks, services.VoteServiceOptions{}),
		comments: services.NewCommentService(store.Comments(), store.Posts(), nil),
		users:    services.NewUserService(store.Users(), tokens, nil),
	}
	searchService := services.NewSearchService(index, store.Posts(), services.SearchOptions{})

	pc := NewPostController(env.posts, env.votes, env.comments, nil)
	cc := NewCommentController(env.comments, nil)
	vc := NewVoteController(env.votes, nil)
	sc := NewSearchController(searchService, nil)
	ac := NewAuthController(env.users, nil)

	// Routes registered by hand; the user is attached to the context by do.
	r := mux.NewRouter()
	r.HandleFunc("/auth/register", ac.Register).Methods("POST")
	r.HandleFunc("/auth/login", ac.Login).Methods("POST")
	r.HandleFunc("/auth/me", ac.Me).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}", ac.ShowUser).Methods("GET")
	r.HandleFunc("/posts", pc.Index).Methods("GET")
	r.HandleFunc("/posts", pc.Create).Methods("POST")
	r.HandleFunc("/posts/{id:[0-9]+}", pc.Show).Methods("GET")
	r.HandleFunc("/posts/{id:[0-9]+}", pc.Update).Methods("PUT")
	r.HandleFunc("/posts/{id:[0-9]+}", pc.Delete).Methods("DELETE")
	r.HandleFunc("/posts/{id:[0-9]+}/comments", cc.Index).Methods("GET")
	r.HandleFunc("/posts/{id:[0-9]+}/comments", cc.Create).Methods("POST")
	r.HandleFunc("/posts/{id:[0-9]+}/vote", vc.Vote).Methods("POST")
	r.HandleFunc("/posts/{id:[0-9]+}/vote-status", vc.Status).Methods("GET")
	r.HandleFunc("/search", sc.Search).Methods("GET")
	env.router = r
	return env
}

// createUser stores an account directly and returns it.
func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	user.BeforeCreate()
	require.NoError(t, e.store.Users().Create(user))
	return user
}

func (e *testEnv) createPost(t *testing.T, author *models.User, title, body string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Body: body}
	require.NoError(t, e.posts.CreatePost(t.Context(), author, post))
	return post
}

// do sends a request as user (nil for anonymous) and returns the recorder.
func (e *testEnv) do(method, path, body string, user *models.User) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	decodeBody(t, w, &resp)
	return resp
}
