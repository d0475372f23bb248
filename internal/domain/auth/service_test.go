package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/audit"
)

type fakeUsers struct{ users map[id.ID]*User }

func (f *fakeUsers) Create(_ context.Context, u *User) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, userID id.ID) (*User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, apperror.NewNotFound(entityName, userID.String())
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound(entityName, username)
}

func (f *fakeUsers) Update(_ context.Context, u *User) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, userID id.ID) error {
	delete(f.users, userID)
	return nil
}

func (f *fakeUsers) List(context.Context) ([]User, error) {
	var out []User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) Exists(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	return err == nil, nil
}

type fakeTokens struct {
	tokens map[string]*RefreshToken
	// revokedElsewhere makes the next revoke behave as if another request
	// rotated the token between read and update.
	revokedElsewhere bool
}

func (f *fakeTokens) SaveRefreshToken(_ context.Context, t *RefreshToken) error {
	f.tokens[t.TokenHash] = t
	return nil
}

func (f *fakeTokens) GetRefreshToken(_ context.Context, hash string) (*RefreshToken, error) {
	t, ok := f.tokens[hash]
	if !ok {
		return nil, apperror.NewNotFound("refresh_token", hash)
	}
	return t, nil
}

func (f *fakeTokens) RevokeRefreshToken(_ context.Context, tokenID id.ID, reason string) error {
	if f.revokedElsewhere {
		return ErrTokenAlreadyRevoked
	}
	for _, t := range f.tokens {
		if t.ID == tokenID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = &reason
			return nil
		}
	}
	return ErrTokenAlreadyRevoked
}

func (f *fakeTokens) RevokeAllUserTokens(_ context.Context, userID id.ID, reason string) error {
	for _, t := range f.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = &reason
		}
	}
	return nil
}

func (f *fakeTokens) CleanupExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for k, t := range f.tokens {
		if !t.IsValid(before) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

func newTestService() (*Service, *fakeUsers, *fakeTokens) {
	users := &fakeUsers{users: map[id.ID]*User{}}
	tokens := &fakeTokens{tokens: map[string]*RefreshToken{}}
	cfg := DefaultServiceConfig()
	cfg.BcryptCost = bcrypt.MinCost
	svc := NewService(users, tokens, tx.Passthrough{}, NewJWTService(DefaultJWTConfig("test-secret")), audit.Nop{}, cfg)
	return svc, users, tokens
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	svc, users, _ := newTestService()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin123")
	require.NoError(t, err)
	assert.False(t, created)
	require.Len(t, users.users, 1)

	_, u, err := svc.Login(ctx, Credentials{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, appctx.RoleAdmin, u.Role)
}

func TestLogin_TokenCarriesRole(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "baker", Password: "secret1", Role: appctx.RoleKitchen})
	require.NoError(t, err)

	pair, _, err := svc.Login(ctx, Credentials{Username: "baker", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	uc, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "baker", uc.Username)
	assert.Equal(t, appctx.RoleKitchen, uc.Role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "clerk", Password: "secret1", Role: appctx.RoleWarehouse})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, Credentials{Username: "nobody", Password: "x"})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
	assert.Equal(t, "invalid username or password", appErr.Message)

	_, _, err = svc.Login(ctx, Credentials{Username: "clerk", Password: "wrong"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "ops", Password: "secret1", Role: appctx.RoleOperations})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err = svc.Login(ctx, Credentials{Username: "ops", Password: "bad"})
		require.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	}

	_, _, err = svc.Login(ctx, Credentials{Username: "ops", Password: "secret1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	now = now.Add(16 * time.Minute)
	_, _, err = svc.Login(ctx, Credentials{Username: "ops", Password: "secret1"})
	assert.NoError(t, err)
}

func TestRefreshToken_Rotates(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "baker", Password: "secret1", Role: appctx.RoleKitchen})
	require.NoError(t, err)
	pair, _, err := svc.Login(ctx, Credentials{Username: "baker", Password: "secret1"})
	require.NoError(t, err)

	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	_, err = svc.RefreshToken(ctx, "garbage")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestRefreshToken_LostRotationRace(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "baker", Password: "secret1", Role: appctx.RoleKitchen})
	require.NoError(t, err)
	pair, _, err := svc.Login(ctx, Credentials{Username: "baker", Password: "secret1"})
	require.NoError(t, err)
	issued := len(tokens.tokens)

	tokens.revokedElsewhere = true
	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	assert.Nil(t, next)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	assert.Len(t, tokens.tokens, issued)
}

func TestLogout_RevokesTokens(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, CreateUserInput{Username: "baker", Password: "secret1", Role: appctx.RoleKitchen})
	require.NoError(t, err)
	pair, _, err := svc.Login(ctx, Credentials{Username: "baker", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, u.ID))
	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "", Password: "secret1", Role: appctx.RoleKitchen})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "x", Password: "secret1", Role: "chef"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "x", Password: "12345", Role: appctx.RoleKitchen})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "x", Password: "123456", Role: appctx.RoleKitchen})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "X", Password: "123456", Role: appctx.RoleKitchen})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
	assert.Equal(t, "Username already exists", appErr.Message)
}

func TestDeleteUser_AdminProtected(t *testing.T) {
	svc, users, _ := newTestService()
	ctx := context.Background()
	_, err := svc.EnsureAdmin(ctx, "admin123")
	require.NoError(t, err)

	var adminID id.ID
	for _, u := range users.users {
		adminID = u.ID
	}
	err = svc.DeleteUser(ctx, adminID)
	assert.True(t, apperror.HasCode(err, apperror.CodeProtectedUser))

	u, err := svc.CreateUser(ctx, CreateUserInput{Username: "temp", Password: "secret1", Role: appctx.RoleWarehouse})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUser(ctx, u.ID))
	assert.Len(t, users.users, 1)
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Me(ctx)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	u, err := svc.CreateUser(ctx, CreateUserInput{Username: "baker", Password: "secret1", Role: appctx.RoleKitchen})
	require.NoError(t, err)
	got, err := svc.Me(appctx.WithUser(ctx, u.Context()))
	require.NoError(t, err)
	assert.Equal(t, "baker", got.Username)
}
