package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/audit"
	"bakehouse/pkg/logger"
)

const entityName = "user"

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts   int
	LockDuration       time.Duration
	PasswordMinLength  int
	RefreshTokenExpiry time.Duration
	BcryptCost         int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:   5,
		LockDuration:       15 * time.Minute,
		PasswordMinLength:  6,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		BcryptCost:         bcrypt.DefaultCost,
	}
}

// Service provides authentication and user management.
type Service struct {
	userRepo   UserRepository
	tokenRepo  TokenRepository
	txManager  tx.Manager
	jwtService *JWTService
	audit      audit.Logger
	config     ServiceConfig
	now        func() time.Time
}

// NewService creates a new auth service.
func NewService(
	userRepo UserRepository,
	tokenRepo TokenRepository,
	txManager tx.Manager,
	jwtService *JWTService,
	auditLog audit.Logger,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		txManager:  txManager,
		jwtService: jwtService,
		audit:      auditLog,
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// EnsureAdmin creates the admin account when it does not exist yet.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	exists, err := s.userRepo.Exists(ctx, AdminUsername)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return false, nil
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return false, err
	}
	user := NewUser(AdminUsername, hash, appctx.RoleAdmin)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	logger.Info(ctx, "admin user created", "user_id", user.ID)
	return true, nil
}

// Login authenticates user and returns tokens.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *User, error) {
	invalid := apperror.NewUnauthorized("invalid username or password")

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, invalid
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, nil, apperror.NewForbidden("account is temporarily locked").
			WithDetail("lockedUntil", user.LockedUntil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		user.RecordFailedLogin(now, s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Update(ctx, user); err != nil {
			logger.Warn(ctx, "failed to record failed login", "user_id", user.ID, "error", err)
		}
		return nil, nil, invalid
	}

	tokens, err := s.generateTokenPair(ctx, user, creds.UserAgent, creds.IPAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	user.RecordSuccessfulLogin(now)
	if err := s.userRepo.Update(ctx, user); err != nil {
		logger.Warn(ctx, "failed to record login", "user_id", user.ID, "error", err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return tokens, user, nil
}

// RefreshToken rotates a refresh token and issues a new pair.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.tokenRepo.GetRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid refresh token")
	}
	if !token.IsValid(s.now()) {
		return nil, apperror.NewUnauthorized("refresh token expired or revoked")
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("user not found")
	}
	if user.IsLocked(s.now()) {
		return nil, apperror.NewForbidden("account is temporarily locked")
	}

	var pair *TokenPair
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.tokenRepo.RevokeRefreshToken(ctx, token.ID, "refreshed"); err != nil {
			if errors.Is(err, ErrTokenAlreadyRevoked) {
				logger.Warn(ctx, "refresh token reused concurrently", "token_id", token.ID, "user_id", user.ID)
				return apperror.NewUnauthorized("refresh token expired or revoked")
			}
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, token.UserAgent, token.IPAddress)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes all refresh tokens of the user.
func (s *Service) Logout(ctx context.Context, userID id.ID) error {
	return s.tokenRepo.RevokeAllUserTokens(ctx, userID, "logout")
}

// CreateUser adds a user with one role.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if err := in.Validate(s.config.PasswordMinLength); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := NewUser(in.Username, hash, in.Role)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.userRepo.Exists(ctx, user.Username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("Username already exists", entityName, "username", user.Username)
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return s.audit.LogChange(ctx, entityName, user.ID, audit.ActionCreate, map[string]any{
			"username": user.Username,
			"role":     user.Role,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user created", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// DeleteUser removes a user. The admin account is protected.
func (s *Service) DeleteUser(ctx context.Context, userID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if strings.EqualFold(user.Username, AdminUsername) {
			return apperror.NewBusinessRule(apperror.CodeProtectedUser, "Cannot delete admin user!")
		}
		if err := s.tokenRepo.RevokeAllUserTokens(ctx, userID, "deleted"); err != nil {
			return fmt.Errorf("revoke tokens: %w", err)
		}
		if err := s.userRepo.Delete(ctx, userID); err != nil {
			return err
		}
		logger.Info(ctx, "user deleted", "user_id", userID, "username", user.Username)
		return s.audit.LogChange(ctx, entityName, userID, audit.ActionDelete, map[string]any{
			"username": user.Username,
			"role":     user.Role,
		})
	})
}

// ListUsers returns all users ordered by username.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.userRepo.List(ctx)
}

// Me returns the user of the current request.
func (s *Service) Me(ctx context.Context) (*User, error) {
	userID := appctx.ActorID(ctx)
	if userID == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	return s.userRepo.GetByID(ctx, *userID)
}

// CleanupExpiredTokens removes refresh tokens that can no longer be used.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokenRepo.CleanupExpiredTokens(ctx, s.now())
}

// ValidateToken checks an access token and returns the identity it carries.
func (s *Service) ValidateToken(token string) (*appctx.UserContext, error) {
	return s.jwtService.ValidateToken(token)
}

func (s *Service) generateTokenPair(ctx context.Context, user *User, userAgent, ip string) (*TokenPair, error) {
	now := s.now()
	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshTokenRaw, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	refreshToken := &RefreshToken{
		ID:        id.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		UserAgent: userAgent,
		IPAddress: ip,
	}
	if err := s.tokenRepo.SaveRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	cost := s.config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// hashToken creates SHA256 hash of token.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateRandomToken generates a random token string.
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
