package auth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	githubOAuth "golang.org/x/oauth2/github"
)

// GitHubUser is the signed-in user's GitHub profile plus the access token the
// code exchange produced. AccessToken is a live credential: seal it with
// TokenCipher before it is stored anywhere.
type GitHubUser struct {
	ID          int64
	Login       string
	Name        string
	Email       string // empty if hidden in GitHub settings
	AvatarURL   string
	AccessToken string
}

// UserID is the DevPulse identity for this GitHub account.
func (u *GitHubUser) UserID() string {
	return strconv.FormatInt(u.ID, 10)
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. Your server redirects the user to GitHub's authorization endpoint,
//    with your ClientID and the requested scopes.
// 2. The user approves (or denies) the authorization request on GitHub.
// 3. GitHub redirects back to your CallbackURL with a short-lived "code".
// 4. Your server exchanges the code for an access token (server-to-server call).
// 5. Your server uses the access token to call the GitHub API for user info.
//
// Unlike a sign-in-only app, DevPulse keeps the access token: it is the
// credential for every later repository and commit read made on the user's
// behalf.
type GitHubProvider struct {
	config     *oauth2.Config
	apiBaseURL *url.URL
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// callbackURL must match the "Authorization callback URL" you configured exactly.
// Example: "http://localhost:8080/auth/github/callback"
//
// Scopes we request:
//   - "repo"       : read commits of private repositories the user can see
//   - "read:user"  : access to the user's public profile (ID, login, avatar)
//   - "user:email" : access to the user's email addresses
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"repo", "read:user", "user:email"},
			Endpoint:     githubOAuth.Endpoint,
		},
	}
}

// WithEndpoints points the provider at other OAuth and API servers,
// e.g. GitHub Enterprise or a test server. apiBaseURL must end in "/".
func (p *GitHubProvider) WithEndpoints(endpoint oauth2.Endpoint, apiBaseURL string) (*GitHubProvider, error) {
	base, err := url.Parse(apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing API base URL: %w", err)
	}
	cfg := *p.config
	cfg.Endpoint = endpoint
	return &GitHubProvider{config: &cfg, apiBaseURL: base}, nil
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string we generate and store in a cookie before
// redirecting. When GitHub calls back, we verify the returned state matches
// our cookie. This prevents CSRF attacks where an attacker tricks your
// browser into completing an OAuth flow for their account.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for an
// access token, then reads the user's profile with it.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that automatically adds
	// the "Authorization: Bearer <token>" header to every request.
	client := github.NewClient(p.config.Client(ctx, oauthToken))
	if p.apiBaseURL != nil {
		client.BaseURL = p.apiBaseURL
	}

	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}

	if ghUser.GetID() == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &GitHubUser{
		ID:          ghUser.GetID(),
		Login:       ghUser.GetLogin(),
		Name:        ghUser.GetName(),
		Email:       ghUser.GetEmail(),
		AvatarURL:   ghUser.GetAvatarURL(),
		AccessToken: oauthToken.AccessToken,
	}, nil
}
