package repositories

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Options configures how the Badger store is opened.
type Options struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *zap.Logger
}

// Store owns the Badger handle and hands out the repositories built on it.
type Store struct {
	db       *badger.DB
	ids      *Sequences
	path     string
	inMemory bool
}

// Open opens (or creates) the database described by opts.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("storage path is required unless running in memory")
	}

	path := opts.Path
	if opts.InMemory {
		path = ""
	}
	badgerOpts := badger.DefaultOptions(path).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(badgerLogger{opts.Logger.Named("badger").Sugar()})
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	return &Store{db: db, ids: NewSequences(db), path: path, inMemory: opts.InMemory}, nil
}

// OpenInMemory opens a throwaway store, used by tests and the
// storage.in_memory setting.
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

func (s *Store) DB() *badger.DB {
	return s.db
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Posts() *BadgerPostRepository {
	return NewBadgerPostRepository(s.db, s.ids)
}

func (s *Store) Comments() *BadgerCommentRepository {
	return NewBadgerCommentRepository(s.db, s.ids)
}

func (s *Store) Users() *BadgerUserRepository {
	return NewBadgerUserRepository(s.db, s.ids)
}

func (s *Store) Votes() *BadgerVoteRepository {
	return NewBadgerVoteRepository(s.db)
}

// Backup writes a full backup stream and returns the version it covers.
func (s *Store) Backup(w io.Writer) (uint64, error) {
	return s.db.Backup(w, 0)
}

// Restore loads a backup stream produced by Backup.
func (s *Store) Restore(r io.Reader) error {
	return s.db.Load(r, 16)
}

// Close returns leased ids and closes the database.
func (s *Store) Close() error {
	return errors.Join(s.ids.Release(), s.db.Close())
}

// Destroy closes the database and removes its directory.
func (s *Store) Destroy() error {
	if err := s.Close(); err != nil {
		return err
	}
	if s.inMemory || s.path == "" {
		return nil
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("failed to remove database directory: %w", err)
	}
	return nil
}

// badgerLogger routes Badger's internal logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
