package repositories

import (
	"fmt"

	"blogapi/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB.
// Each comment also has a postcomment:<post>:<comment> index entry.
type BadgerCommentRepository struct {
	db  *badger.DB
	ids *Sequences
}

func NewBadgerCommentRepository(db *badger.DB, ids *Sequences) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db, ids: ids}
}

// Create stores a comment. The parent post must exist in the same
// transaction, so a comment cannot outlive a concurrent post delete.
func (r *BadgerCommentRepository) Create(comment *models.Comment) error {
	return translate(r.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, postKey(comment.PostID))
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		id, err := r.ids.Next(CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id

		if err := putEntity(txn, commentKey(comment.ID), comment); err != nil {
			return err
		}
		return txn.Set(postCommentKey(comment.PostID, comment.ID), nil)
	}))
}

func (r *BadgerCommentRepository) GetByID(id int) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, commentKey(id), &comment)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost retrieves all comments for a post
func (r *BadgerCommentRepository) ListByPost(postID int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		for _, key := range keysWithPrefix(txn, postCommentPrefix(postID)) {
			commentID, err := trailingID(key)
			if err != nil {
				return fmt.Errorf("bad comment index key %q: %w", key, err)
			}
			var comment models.Comment
			if err := getEntity(txn, commentKey(commentID), &comment); err != nil {
				return err
			}
			comments = append(comments, &comment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *BadgerCommentRepository) CountByPost(postID int) (int, error) {
	var count int
	err := r.db.View(func(txn *badger.Txn) error {
		count = len(keysWithPrefix(txn, postCommentPrefix(postID)))
		return nil
	})
	return count, err
}

func (r *BadgerCommentRepository) Delete(id int) error {
	return translate(r.db.Update(func(txn *badger.Txn) error {
		var comment models.Comment
		if err := getEntity(txn, commentKey(id), &comment); err != nil {
			return err
		}
		if err := txn.Delete(postCommentKey(comment.PostID, id)); err != nil {
			return err
		}
		return txn.Delete(commentKey(id))
	}))
}
