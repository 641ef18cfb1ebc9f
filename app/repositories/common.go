package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"blogapi/app/apperrors"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Key prefixes for different entity types
	PostKeyPrefix        = "post:"
	CommentKeyPrefix     = "comment:"
	PostCommentKeyPrefix = "postcomment:"
	UserKeyPrefix        = "user:"
	UsernameKeyPrefix    = "username:"
	EmailKeyPrefix       = "email:"
	VoteKeyPrefix        = "vote:"

	// Sequence keys for auto-incrementing IDs
	PostSeqKey    = "seq:post"
	CommentSeqKey = "seq:comment"
	UserSeqKey    = "seq:user"
)

var (
	ErrNotFound  = fmt.Errorf("record %w", apperrors.ErrNotFound)
	ErrDuplicate = fmt.Errorf("record %w", apperrors.ErrDuplicate)
	ErrConflict  = fmt.Errorf("transaction %w", apperrors.ErrConflict)
)

func postKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", PostKeyPrefix, id))
}

func commentKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", CommentKeyPrefix, id))
}

func postCommentPrefix(postID int) []byte {
	return []byte(fmt.Sprintf("%s%d:", PostCommentKeyPrefix, postID))
}

func postCommentKey(postID, commentID int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", PostCommentKeyPrefix, postID, commentID))
}

func userKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", UserKeyPrefix, id))
}

func usernameKey(username string) []byte {
	return []byte(UsernameKeyPrefix + strings.ToLower(username))
}

func emailKey(email string) []byte {
	return []byte(EmailKeyPrefix + strings.ToLower(email))
}

func votePrefix(postID int) []byte {
	return []byte(fmt.Sprintf("%s%d:", VoteKeyPrefix, postID))
}

func voteKey(postID, userID int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", VoteKeyPrefix, postID, userID))
}

// idLease is how many ids a sequence reserves per write to its key.
const idLease = 100

// Sequences hands out entity ids from Badger sequences. Ids are leased
// outside the write transaction, so concurrent creates never contend on a
// shared counter key. One Sequences must be shared by every repository on a
// database; Release returns unused ids when the store closes.
type Sequences struct {
	db   *badger.DB
	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

func NewSequences(db *badger.DB) *Sequences {
	return &Sequences{db: db, seqs: make(map[string]*badger.Sequence)}
}

// Next returns the next id for seqKey, starting at 1.
func (s *Sequences) Next(seqKey string) (int, error) {
	s.mu.Lock()
	seq, ok := s.seqs[seqKey]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte(seqKey), idLease)
		if err != nil {
			s.mu.Unlock()
			return 0, fmt.Errorf("opening sequence %s: %w", seqKey, translate(err))
		}
		s.seqs[seqKey] = seq
	}
	s.mu.Unlock()

	for {
		n, err := seq.Next()
		if err != nil {
			return 0, fmt.Errorf("next id from %s: %w", seqKey, translate(err))
		}
		if n > 0 {
			return int(n), nil
		}
	}
}

// Release writes back every sequence's position. Sequences are opened
// lazily, so a store used only for Restore never overwrites restored keys.
func (s *Sequences) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for key, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("releasing sequence %s: %w", key, err))
		}
		delete(s.seqs, key)
	}
	return errors.Join(errs...)
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity any) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity any) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// getEntity loads the value under key into entity.
func getEntity(txn *badger.Txn, key []byte, entity any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

func putEntity(txn *badger.Txn, key []byte, entity any) error {
	data, err := marshalEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// keysWithPrefix collects keys without fetching values. Deleting while an
// iterator is open is not allowed, so callers get a copy.
func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// trailingID parses the integer after the last ':' of key.
func trailingID(key []byte) (int, error) {
	s := string(key)
	i := strings.LastIndexByte(s, ':')
	return strconv.Atoi(s[i+1:])
}

// translate maps badger transaction errors onto the shared taxonomy.
func translate(err error) error {
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
