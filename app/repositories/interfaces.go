package repositories

import "blogapi/app/models"

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id int) (*models.Post, error)
	List() ([]*models.Post, error)
	// Update rewrites the editable fields and keeps the stored score.
	Update(post *models.Post) error
	// Delete removes the post with its votes and comments.
	Delete(id int) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id int) (*models.Comment, error)
	ListByPost(postID int) ([]*models.Comment, error)
	CountByPost(postID int) (int, error)
	Delete(id int) error
}

// UserRepository defines the interface for account data access
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
}

// VoteTxn is the view of the store available inside one vote transaction.
// Everything written through it commits or rolls back together.
type VoteTxn interface {
	Post(postID int) (*models.Post, error)
	PutPost(post *models.Post) error
	Vote(userID, postID int) (*models.Vote, error)
	Votes(postID int) ([]*models.Vote, error)
	PutVote(vote *models.Vote) error
	DeleteVote(userID, postID int) error
}

// VoteRepository runs vote transactions. Update returns an error wrapping
// apperrors.ErrConflict when the transaction lost a write race.
type VoteRepository interface {
	Update(fn func(txn VoteTxn) error) error
	View(fn func(txn VoteTxn) error) error
}
