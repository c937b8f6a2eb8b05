package domain

import "time"

// Account is the identity record issued by the remote auth provider. The
// credential hash never leaves the provider; this process only ever sees the
// id, email and issued tokens.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session holds the token pair issued alongside an account sign-in.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CredentialsUpdate enumerates the mutable auth-provider fields for the
// current account. Nil fields are not sent.
type CredentialsUpdate struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u CredentialsUpdate) IsEmpty() bool {
	return u.Email == nil && u.Password == nil
}
