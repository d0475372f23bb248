// Package auth provides users, login and token handling.
package auth

import (
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/id"
)

// AdminUsername is the bootstrap account. It cannot be deleted.
const AdminUsername = "admin"

// User is an operator of the system with exactly one role.
type User struct {
	ID                  id.ID      `db:"id" json:"id"`
	Username            string     `db:"username" json:"username"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Role                string     `db:"role" json:"role"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewUser creates a new user.
func NewUser(username, passwordHash, role string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id.New(),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsLocked returns true if account is locked.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RecordFailedLogin increments failed login counter and locks the account
// once maxAttempts is reached.
func (u *User) RecordFailedLogin(now time.Time, maxAttempts int, lockDuration time.Duration) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		lockUntil := now.Add(lockDuration)
		u.LockedUntil = &lockUntil
		u.FailedLoginAttempts = 0
	}
	u.UpdatedAt = now
}

// RecordSuccessfulLogin resets failed login counter.
func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// Context returns the request identity of the user.
func (u *User) Context() *appctx.UserContext {
	return &appctx.UserContext{UserID: u.ID.String(), Username: u.Username, Role: u.Role}
}

// RefreshToken is a stored refresh token; only its SHA-256 hash is kept.
type RefreshToken struct {
	ID            id.ID      `db:"id"`
	UserID        id.ID      `db:"user_id"`
	TokenHash     string     `db:"token_hash"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
	RevokedReason *string    `db:"revoked_reason"`
	UserAgent     string     `db:"user_agent"`
	IPAddress     string     `db:"ip_address"`
}

// IsValid checks if refresh token is usable at now.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

// Credentials for login.
type Credentials struct {
	Username  string
	Password  string
	UserAgent string
	IPAddress string
}

// CreateUserInput is the data for CreateUser.
type CreateUserInput struct {
	Username string
	Password string
	Role     string
}

// Validate checks the new user request.
func (in CreateUserInput) Validate(minPasswordLength int) error {
	if strings.TrimSpace(in.Username) == "" {
		return apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	if !appctx.IsValidRole(in.Role) {
		return apperror.NewValidation("unknown role").
			WithDetail("field", "role").
			WithDetail("allowed", appctx.Roles)
	}
	if len(in.Password) < minPasswordLength {
		return apperror.NewValidation("password is too short").
			WithDetail("field", "password").
			WithDetail("minLength", minPasswordLength)
	}
	return nil
}
