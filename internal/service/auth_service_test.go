package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kintai-dev/kintai-api/internal/models"
	appErrors "github.com/kintai-dev/kintai-api/pkg/errors"
)

type authRepoStub struct {
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := s.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	for _, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	copied := *token
	s.tokens[token.TokenHash] = &copied
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if t, ok := s.tokens[tokenHash]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range s.tokens {
		if t.ID == id {
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func fixtureAuthService(t *testing.T) (*AuthService, *authRepoStub) {
	t.Helper()
	repo := newAuthRepoStub()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-1"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["emp-1"] = &models.User{
		ID:           "emp-1",
		Email:        "employee@example.com",
		PasswordHash: string(hash),
		FullName:     "Test Employee",
		Role:         models.RoleEmployee,
		Active:       true,
	}
	svc := NewAuthService(repo, nil, &auditRecorderStub{}, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "kintai-api",
	})
	return svc, repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, _ := fixtureAuthService(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "employee@example.com",
		Password: "correct-horse-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, models.RoleEmployee, resp.User.Role)

	claims, err := svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "emp-1", claims.UserID)
	require.Equal(t, models.RoleEmployee, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := fixtureAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "employee@example.com",
		Password: "wrong-password-1",
	})
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	svc, repo := fixtureAuthService(t)
	repo.users["emp-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "employee@example.com",
		Password: "correct-horse-1",
	})
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotation(t *testing.T) {
	svc, _ := fixtureAuthService(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "employee@example.com",
		Password: "correct-horse-1",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// rotated tokens cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordRevokesTokens(t *testing.T) {
	svc, repo := fixtureAuthService(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "employee@example.com",
		Password: "correct-horse-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(context.Background(), "emp-1", models.ChangePasswordRequest{
		CurrentPassword: "correct-horse-1",
		NewPassword:     "battery-staple-2",
	}))

	for _, tok := range repo.tokens {
		require.NotNil(t, tok.RevokedAt)
	}

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
