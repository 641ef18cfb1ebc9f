package repositories

import (
	"errors"

	"blogapi/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerVoteRepository implements VoteRepository. Vote records live under
// vote:<post>:<user> next to the post record whose score they feed.
type BadgerVoteRepository struct {
	db *badger.DB
}

func NewBadgerVoteRepository(db *badger.DB) *BadgerVoteRepository {
	return &BadgerVoteRepository{db: db}
}

// Update runs fn in a read-write transaction.
func (r *BadgerVoteRepository) Update(fn func(txn VoteTxn) error) error {
	return translate(r.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerVoteTxn{txn: txn})
	}))
}

// View runs fn against a consistent snapshot.
func (r *BadgerVoteRepository) View(fn func(txn VoteTxn) error) error {
	return r.db.View(func(txn *badger.Txn) error {
		return fn(&badgerVoteTxn{txn: txn})
	})
}

type badgerVoteTxn struct {
	txn *badger.Txn
}

func (t *badgerVoteTxn) Post(postID int) (*models.Post, error) {
	var post models.Post
	if err := getEntity(t.txn, postKey(postID), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (t *badgerVoteTxn) PutPost(post *models.Post) error {
	return putEntity(t.txn, postKey(post.ID), post)
}

// Vote returns ErrNotFound when the user holds no vote on the post.
func (t *badgerVoteTxn) Vote(userID, postID int) (*models.Vote, error) {
	var vote models.Vote
	if err := getEntity(t.txn, voteKey(postID, userID), &vote); err != nil {
		return nil, err
	}
	return &vote, nil
}

func (t *badgerVoteTxn) Votes(postID int) ([]*models.Vote, error) {
	prefix := votePrefix(postID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var votes []*models.Vote
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var vote models.Vote
		err := it.Item().Value(func(val []byte) error {
			return unmarshalEntity(val, &vote)
		})
		if err != nil {
			return nil, err
		}
		votes = append(votes, &vote)
	}
	return votes, nil
}

func (t *badgerVoteTxn) PutVote(vote *models.Vote) error {
	if err := vote.Validate(); err != nil {
		return err
	}
	return putEntity(t.txn, voteKey(vote.PostID, vote.UserID), vote)
}

func (t *badgerVoteTxn) DeleteVote(userID, postID int) error {
	err := t.txn.Delete(voteKey(postID, userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}
