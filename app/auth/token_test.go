package auth

import (
	"context"
	"testing"
	"time"

	"blogapi/app/apperrors"
	"blogapi/app/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(Config{Secret: "test-secret", Issuer: "blogapi", TTL: time.Hour})
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuer(t *testing.T) {
	_, err := NewTokenIssuer(Config{TTL: time.Hour})
	assert.Error(t, err)
	_, err = NewTokenIssuer(Config{Secret: "s"})
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	issuer := newIssuer(t)

	token, expires, err := issuer.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	userID, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)

	userID, err = issuer.Parse("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestParseRejects(t *testing.T) {
	issuer := newIssuer(t)
	token, _, err := issuer.Issue(7)
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := issuer.Parse("  ")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenIssuer(Config{Secret: "other", Issuer: "blogapi", TTL: time.Hour})
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenIssuer(Config{Secret: "test-secret", Issuer: "someone-else", TTL: time.Hour})
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { issuer.now = time.Now }()
		_, err := issuer.Parse(token)
		assert.Equal(t, ErrExpiredToken, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "blogapi",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(unsigned)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), &models.User{ID: 3, Username: "carol"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, 3, user.ID)
}
