package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danuputra/tokoku/internal/domain"
)

// authResponse mirrors the auth provider's session payload.
type authResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         authUser `json:"user"`
}

type authUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (r authResponse) split() (*domain.Account, *domain.Session) {
	account := &domain.Account{
		ID:        r.User.ID,
		Email:     r.User.Email,
		CreatedAt: r.User.CreatedAt,
	}

	session := &domain.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(r.ExpiresIn) * time.Second),
	}

	return account, session
}

// SignUp creates a new auth account and returns the account plus the issued
// session. The provider enforces email uniqueness and password policy.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Account, *domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, payload, &resp); err != nil {
		return nil, nil, fmt.Errorf("sign up: %w", err)
	}

	account, session := resp.split()
	return account, session, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, *domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", nil, payload, &resp); err != nil {
		return nil, nil, fmt.Errorf("sign in: %w", err)
	}

	account, session := resp.split()
	c.events.Publish(AuthEvent{Kind: EventSignedIn, Account: account, Session: session})

	return account, session, nil
}

// SignOut invalidates the current session. Scope "local" keeps sessions on
// other devices alive, matching the storefront logout behavior.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	if err := c.do(ctx, http.MethodPost, "/auth/v1/logout?scope=local", headers, nil, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	c.events.Publish(AuthEvent{Kind: EventSignedOut})
	return nil
}

// UpdateCredentials applies a partial email/password update to the current
// account.
func (c *Client) UpdateCredentials(ctx context.Context, accessToken string, update domain.CredentialsUpdate) (*domain.Account, error) {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	var user authUser
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", headers, update, &user); err != nil {
		return nil, fmt.Errorf("update credentials: %w", err)
	}

	return &domain.Account{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}

// CurrentAccount resolves the account that owns accessToken. Used on startup
// to restore a persisted session.
func (c *Client) CurrentAccount(ctx context.Context, accessToken string) (*domain.Account, error) {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	var user authUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", headers, nil, &user); err != nil {
		return nil, fmt.Errorf("current account: %w", err)
	}

	return &domain.Account{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}
