package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blogapi/app/models"
	"blogapi/app/repositories"
	"blogapi/app/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB points storage.path at a fresh temp directory and returns it.
func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "blog.db")
	t.Setenv("BLOG_STORAGE_PATH", dbPath)
	t.Setenv("BLOG_STORAGE_IN_MEMORY", "")
	return dbPath
}

// run executes a command with stdin answering any prompt. A blank --env
// keeps a stray .env in the working directory out of the test.
func run(stdin string, args ...string) (int, string) {
	if len(args) > 0 && args[0] != "help" {
		args = append([]string{args[0], "--env="}, args[1:]...)
	}
	var out bytes.Buffer
	code := NewRunner(strings.NewReader(stdin), &out).Run(args)
	return code, out.String()
}

func seedDB(t *testing.T, dbPath string, titles ...string) {
	t.Helper()
	store, err := repositories.Open(repositories.Options{Path: dbPath})
	require.NoError(t, err)
	defer store.Close()
	for _, title := range titles {
		post := &models.Post{Title: title, Body: "Seeded body for the CLI tests", Author: "seed", AuthorID: 1}
		post.BeforeCreate()
		require.NoError(t, store.Posts().Create(post))
	}
}

func TestRun(t *testing.T) {
	setupTestDB(t)

	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectedExit   int
	}{
		{"no arguments", []string{}, "Usage: blogapi <command>", 1},
		{"help", []string{"help"}, "Commands:", 0},
		{"unknown command", []string{"bogus"}, "Unknown command: bogus", 1},
		{"restore without file", []string{"restore"}, "backup file path required", 1},
		{"bad flag", []string{"init", "--nope"}, "flag provided but not defined", 1},
		{"missing config file", []string{"init", "--config", "/does/not/exist.yaml"}, "reading config file", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, output := run("", tt.args...)
			assert.Equal(t, tt.expectedExit, code)
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}

func TestStorageCommandsRejectInMemory(t *testing.T) {
	setupTestDB(t)
	t.Setenv("BLOG_STORAGE_IN_MEMORY", "true")

	for _, cmd := range []string{"init", "clean", "backup", "reconcile"} {
		code, output := run("", cmd)
		assert.Equal(t, 1, code, cmd)
		assert.Contains(t, output, "needs an on-disk database", cmd)
	}
}

func TestInitAndClean(t *testing.T) {
	dbPath := setupTestDB(t)

	code, output := run("", "init")
	require.Equal(t, 0, code, output)
	assert.Contains(t, output, "Database initialized")
	assert.DirExists(t, dbPath)

	code, output = run("", "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, output, "already exists")

	code, output = run("n\n", "clean")
	assert.Equal(t, 1, code)
	assert.Contains(t, output, "Operation cancelled")
	assert.DirExists(t, dbPath)

	code, output = run("y\n", "clean")
	assert.Equal(t, 0, code)
	assert.Contains(t, output, "Database cleaned successfully")
	assert.NoDirExists(t, dbPath)

	code, output = run("", "clean")
	assert.Equal(t, 0, code)
	assert.Contains(t, output, "already clean")
}

func TestBackupAndRestore(t *testing.T) {
	dbPath := setupTestDB(t)

	code, output := run("", "backup")
	assert.Equal(t, 1, code)
	assert.Contains(t, output, "No database exists")

	seedDB(t, dbPath, "Kept through a restore")
	backupFile := filepath.Join(t.TempDir(), "snapshot.db")

	code, output = run("", "backup", backupFile)
	require.Equal(t, 0, code, output)
	assert.Contains(t, output, backupFile)
	info, err := os.Stat(backupFile)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	t.Run("default backup location", func(t *testing.T) {
		code, output := run("", "backup")
		require.Equal(t, 0, code, output)
		matches, err := filepath.Glob(filepath.Join(filepath.Dir(dbPath), "backups", "backup_*.db"))
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("declining keeps the existing database", func(t *testing.T) {
		code, output := run("no\n", "restore", backupFile)
		assert.Equal(t, 1, code)
		assert.Contains(t, output, "Operation cancelled")
	})

	t.Run("bad backup files", func(t *testing.T) {
		code, output := run("", "restore", filepath.Join(t.TempDir(), "missing.db"))
		assert.Equal(t, 1, code)
		assert.Contains(t, output, "does not exist")

		empty := filepath.Join(t.TempDir(), "empty.db")
		require.NoError(t, os.WriteFile(empty, nil, 0o644))
		code, output = run("", "restore", empty)
		assert.Equal(t, 1, code)
		assert.Contains(t, output, "is empty")
	})

	code, output = run("y\n", "clean")
	require.Equal(t, 0, code, output)

	code, output = run("", "restore", backupFile)
	require.Equal(t, 0, code, output)
	assert.Contains(t, output, "Database restored successfully")

	store, err := repositories.Open(repositories.Options{Path: dbPath})
	require.NoError(t, err)
	defer store.Close()
	posts, err := store.Posts().List()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Kept through a restore", posts[0].Title)
}

func TestReconcile(t *testing.T) {
	dbPath := setupTestDB(t)

	code, output := run("", "reconcile")
	assert.Equal(t, 1, code)
	assert.Contains(t, output, "No database exists")

	seedDB(t, dbPath, "First", "Second")

	store, err := repositories.Open(repositories.Options{Path: dbPath})
	require.NoError(t, err)
	votes := services.NewVoteService(store.Votes(), nil, services.VoteServiceOptions{})
	_, err = votes.ApplyVote(context.Background(), 7, 1, models.Upvote)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	code, output = run("", "reconcile")
	assert.Equal(t, 0, code, output)
	assert.Contains(t, output, "Checked 2 posts, 0 with score drift")

	store, err = repositories.Open(repositories.Options{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, store.Votes().Update(func(txn repositories.VoteTxn) error {
		post, err := txn.Post(1)
		if err != nil {
			return err
		}
		post.Score = 5
		return txn.PutPost(post)
	}))
	require.NoError(t, store.Close())

	code, output = run("", "reconcile")
	assert.Equal(t, 1, code)
	assert.Contains(t, output, "post 1: score 5, votes say 1 (1 up, 0 down)")
	assert.Contains(t, output, "Checked 2 posts, 1 with score drift")
}
