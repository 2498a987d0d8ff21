package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/auth"
	"github.com/sakif/devpulse/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository whose failures can
// be switched on. The happy paths run against the real in-memory store.
type fakeUserRepo struct {
	users   map[string]model.User
	saveErr error
	getErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) SaveUser(ctx context.Context, user *model.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetUser(ctx context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(newTestStore(t), newTestTokens(t), newTestCipher(t), testLogger())
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	svc := newTestAuthService(t)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:          42,
		Login:       "octocat",
		Name:        "The Octocat",
		Email:       "octocat@github.com",
		AvatarURL:   "https://avatars.githubusercontent.com/u/42",
		AccessToken: "gho_secret",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.Token == "" {
		t.Fatal("LoginOrRegisterGitHub() returned empty Token")
	}
	if result.User.ID != "42" {
		t.Errorf("User.ID = %q, want %q", result.User.ID, "42")
	}
	if result.User.Username != "octocat" {
		t.Errorf("User.Username = %q, want %q", result.User.Username, "octocat")
	}
	if result.User.EncryptedToken == "" || result.User.EncryptedToken == "gho_secret" {
		t.Errorf("EncryptedToken = %q, want a sealed value", result.User.EncryptedToken)
	}
}

func TestLoginOrRegisterGitHub_ExistingUserGetsUpdatedProfile(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	first, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "old-login", AccessToken: "gho_1"})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}

	second, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "new-login", AccessToken: "gho_2"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}

	if second.User.Username != "new-login" {
		t.Errorf("Username after update = %q, want %q", second.User.Username, "new-login")
	}
	if !second.User.CreatedAt.Equal(first.User.CreatedAt) {
		t.Errorf("CreatedAt changed on second login: %v → %v", first.User.CreatedAt, second.User.CreatedAt)
	}

	token, err := svc.GitHubToken(ctx, "99")
	if err != nil {
		t.Fatalf("GitHubToken() error = %v", err)
	}
	if token != "gho_2" {
		t.Errorf("GitHubToken() = %q, want the latest token %q", token, "gho_2")
	}
}

func TestLoginOrRegisterGitHub_TokenIsValidJWT(t *testing.T) {
	svc := newTestAuthService(t)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "testuser"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	userID, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token subject = %q, want %q", userID, result.User.ID)
	}
}

func TestLoginOrRegisterGitHub_RejectsBadProfile(t *testing.T) {
	svc := newTestAuthService(t)

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Error("LoginOrRegisterGitHub(nil) should fail")
	}
	if _, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{Login: "no-id"}); err == nil {
		t.Error("LoginOrRegisterGitHub() with ID 0 should fail")
	}
}

func TestLoginOrRegisterGitHub_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.saveErr = errors.New("database is on fire")
	svc := NewAuthService(repo, newTestTokens(t), newTestCipher(t), testLogger())

	_, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "user"})
	if err == nil {
		t.Fatal("LoginOrRegisterGitHub() should propagate repository errors")
	}
}

// =========================================================================
// GetUser / GitHubToken TESTS
// =========================================================================

func TestGetUser(t *testing.T) {
	svc := newTestAuthService(t)
	id := signIn(t, svc, 7, "findme")

	user, err := svc.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user.Username != "findme" {
		t.Errorf("user.Username = %q, want %q", user.Username, "findme")
	}
}

func TestGetUser_EmptyID(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.GetUser(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("GetUser(\"\") error = %v, want validation error", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.GetUser(context.Background(), "non-existent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetUser() error = %v, want not found", err)
	}
}

func TestGitHubToken_RoundTrip(t *testing.T) {
	svc := newTestAuthService(t)
	id := signIn(t, svc, 8, "octo")

	token, err := svc.GitHubToken(context.Background(), id)
	if err != nil {
		t.Fatalf("GitHubToken() error = %v", err)
	}
	if token != "gho_octo" {
		t.Errorf("GitHubToken() = %q, want %q", token, "gho_octo")
	}
}

func TestGitHubToken_UnknownUserIsForbidden(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.GitHubToken(context.Background(), "404")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("GitHubToken() error = %v, want forbidden", err)
	}
}

func TestGitHubToken_RotatedKeyIsForbidden(t *testing.T) {
	store := newTestStore(t)
	tokens := newTestTokens(t)

	before := NewAuthService(store, tokens, newTestCipher(t), testLogger())
	id := signIn(t, before, 9, "rotated")

	after := NewAuthService(store, tokens, newTestCipher(t), testLogger())
	_, err := after.GitHubToken(context.Background(), id)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("GitHubToken() error = %v, want forbidden", err)
	}
}

func TestGitHubToken_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.getErr = errors.New("disk gone")
	svc := NewAuthService(repo, newTestTokens(t), newTestCipher(t), testLogger())

	_, err := svc.GitHubToken(context.Background(), "1")
	if err == nil || errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("GitHubToken() error = %v, want the repository error", err)
	}
}

// =========================================================================
// ValidateToken TESTS
// =========================================================================

func TestValidateToken_InvalidToken(t *testing.T) {
	svc := newTestAuthService(t)

	if _, err := svc.ValidateToken("this.is.garbage"); err == nil {
		t.Fatal("ValidateToken() should return error for garbage token")
	}
}
