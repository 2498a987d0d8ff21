// Package service holds DevPulse's business rules. It sits between the HTTP
// handlers and the Record Store:
//
//	Handler (HTTP) → Service (rules, ownership) → repository.Store
//	                        ↘ GitHub API, commit scorer
//
// Services take and return domain types and apperror values. They never see
// an *http.Request or pick a status code, so the same rules hold for every
// caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/auth"
	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/repository"
)

// AuthService turns a completed GitHub sign-in into a stored user and a
// session token, and hands the stored GitHub credential back to the services
// that call GitHub for the user.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	cipher *auth.TokenCipher
	logger *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	cipher *auth.TokenCipher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		cipher: cipher,
		logger: logger,
	}
}

// AuthResult bundles the stored user and the issued session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub saves the GitHub profile (creating the user on first
// sign-in, overwriting it afterwards) and issues a session token.
//
// The GitHub access token is sealed before it reaches the store. The
// returned User carries only the sealed form.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user has no ID")
	}

	sealed, err := s.cipher.Seal(ghUser.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("service/auth: sealing GitHub token: %w", err)
	}

	user := &model.User{
		ID:             ghUser.UserID(),
		Username:       ghUser.Login,
		Name:           ghUser.Name,
		Email:          ghUser.Email,
		Avatar:         ghUser.AvatarURL,
		EncryptedToken: sealed,
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: saving user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Username),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUser returns the stored user. Callers showing it to a client must use
// Profile().
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// GitHubToken returns the user's GitHub access token in plaintext.
func (s *AuthService) GitHubToken(ctx context.Context, userID string) (string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Forbidden("no GitHub account linked, sign in again")
		}
		return "", err
	}
	if user.EncryptedToken == "" {
		return "", apperror.Forbidden("no GitHub account linked, sign in again")
	}

	token, err := s.cipher.Open(user.EncryptedToken)
	if err != nil {
		// Usually a rotated TOKEN_ENCRYPTION_KEY. Signing in again re-seals
		// the token with the current key.
		s.logger.Warn("stored GitHub token could not be opened",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return "", apperror.Forbidden("stored GitHub credential is unreadable, sign in again")
	}
	return token, nil
}

// ValidateToken returns the user ID a session token was issued for.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
