package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blogapi/app/apperrors"
	"blogapi/app/auth"
	"blogapi/app/models"
	"blogapi/app/repositories"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt ignores input past 72 bytes, so longer passwords are refused.
	maxPasswordLength = 72
)

var errBadCredentials = apperrors.Unauthorized("invalid username or password")

// UserService registers accounts, checks credentials and resolves tokens.
type UserService struct {
	userRepo repositories.UserRepository
	tokens   *auth.TokenIssuer
	hashCost int
	retry    RetryPolicy
	logger   *zap.Logger

	// compared against when the username is unknown so both paths cost a
	// bcrypt comparison
	dummyHash []byte
}

func NewUserService(userRepo repositories.UserRepository, tokens *auth.TokenIssuer, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		retry:    defaultRetryPolicy(),
		logger:   logger.Named("users"),
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.hashCost)
	return s
}

// Registration is the input to Register.
type Registration struct {
	Username string
	Email    string
	Password string
}

// Session is an authenticated user with a freshly issued token.
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an account and signs the new user in.
func (s *UserService) Register(ctx context.Context, reg Registration) (*Session, error) {
	if n := len(reg.Password); n < minPasswordLength || n > maxPasswordLength {
		return nil, apperrors.Validation("invalid user", map[string]string{
			"password": fmt.Sprintf("must be between %d and %d characters", minPasswordLength, maxPasswordLength),
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	user := &models.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
	}
	user.BeforeCreate()
	if err := user.Validate(); err != nil {
		return nil, err
	}

	// Two registrations racing for one name conflict; the retry then sees
	// the winner's record and reports a duplicate.
	err = s.retry.run(ctx, s.logger, "register user", nil, func() error {
		return s.userRepo.Create(user)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.New(apperrors.ErrDuplicate, http.StatusConflict, "username or email already registered")
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	s.logger.Info("user registered", zap.Int("user_id", user.ID))
	return s.issue(user)
}

// Login checks the password for username and issues a token.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.userRepo.GetByUsername(username)
	if errors.Is(err, apperrors.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is disabled")
	}
	return s.issue(user)
}

func (s *UserService) issue(user *models.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expires}, nil
}

// GetUser returns the account with id.
func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	return user, err
}

// Authenticate resolves a bearer token to an active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is disabled")
	}
	return user, nil
}
