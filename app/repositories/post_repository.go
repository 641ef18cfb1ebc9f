package repositories

import (
	"fmt"
	"time"

	"blogapi/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db  *badger.DB
	ids *Sequences
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB, ids *Sequences) *BadgerPostRepository {
	return &BadgerPostRepository{db: db, ids: ids}
}

// Create creates a new post
func (r *BadgerPostRepository) Create(post *models.Post) error {
	return translate(r.db.Update(func(txn *badger.Txn) error {
		id, err := r.ids.Next(PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id
		post.Score = 0

		return putEntity(txn, postKey(post.ID), post)
	}))
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(id int) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns every post in key order. Ordering for display is the
// caller's job.
func (r *BadgerPostRepository) List() ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(PostKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			posts = append(posts, &post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Update overwrites title and body. Score, author and creation time are
// taken from the stored record in the same transaction, so a vote that
// commits first is never lost and a vote racing this write forces a conflict.
func (r *BadgerPostRepository) Update(post *models.Post) error {
	return translate(r.db.Update(func(txn *badger.Txn) error {
		var stored models.Post
		if err := getEntity(txn, postKey(post.ID), &stored); err != nil {
			return err
		}

		stored.Title = post.Title
		stored.Body = post.Body
		stored.UpdatedAt = post.UpdatedAt
		if stored.UpdatedAt.IsZero() {
			stored.UpdatedAt = time.Now().UTC()
		}
		if err := putEntity(txn, postKey(stored.ID), &stored); err != nil {
			return err
		}
		*post = stored
		return nil
	}))
}

// Delete deletes a post by ID together with its votes and comments
func (r *BadgerPostRepository) Delete(id int) error {
	return translate(r.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, postKey(id))
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		for _, key := range keysWithPrefix(txn, votePrefix(id)) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, key := range keysWithPrefix(txn, postCommentPrefix(id)) {
			commentID, err := trailingID(key)
			if err != nil {
				return fmt.Errorf("bad comment index key %q: %w", key, err)
			}
			if err := txn.Delete(commentKey(commentID)); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		return txn.Delete(postKey(id))
	}))
}
