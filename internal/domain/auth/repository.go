package auth

import (
	"context"
	"errors"
	"time"

	"bakehouse/internal/core/id"
)

// UserRepository defines user storage operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update stores login bookkeeping and role changes.
	Update(ctx context.Context, user *User) error

	Delete(ctx context.Context, userID id.ID) error

	// List returns all users ordered by username.
	List(ctx context.Context) ([]User, error)

	// Exists checks if username exists (case-insensitive).
	Exists(ctx context.Context, username string) (bool, error)
}

// ErrTokenAlreadyRevoked is returned by RevokeRefreshToken when the token was
// revoked concurrently; the caller lost the rotation race.
var ErrTokenAlreadyRevoked = errors.New("refresh token already revoked")

// TokenRepository defines refresh token storage operations.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error

	// CleanupExpiredTokens removes tokens expired or revoked before the given time.
	CleanupExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}
