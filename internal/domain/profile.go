package domain

import "time"

// Role enumerates application-level user roles.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Profile is the application user record, keyed 1:1 by the auth account id.
// It is distinct from the auth provider's Account: the profile row lives in
// the hosted table store and carries storefront-specific fields.
type Profile struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Username        string    `json:"username"`
	Role            Role      `json:"role"`
	AvatarImagePath string    `json:"avatar_image_path,omitempty"`
	ReferralCode    string    `json:"referral_code,omitempty"`
	ReferrerID      string    `json:"referrer_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewProfilePayload is the insert payload for a freshly registered user.
// ReferrerID is a pointer so the column is omitted entirely when no referral
// code was supplied.
type NewProfilePayload struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	Role         Role    `json:"role"`
	ReferralCode string  `json:"referral_code"`
	ReferrerID   *string `json:"referrer_id,omitempty"`
}

// ProfileUpdate enumerates the mutable profile fields. Nil fields are left
// untouched by an update.
type ProfileUpdate struct {
	Name            *string `json:"name,omitempty"`
	AvatarImagePath *string `json:"avatar_image_path,omitempty"`
	Role            *Role   `json:"role,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.AvatarImagePath == nil && u.Role == nil
}
