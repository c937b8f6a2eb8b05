package domain

import "time"

// Reward setting keys used by the referral flow. They must match the rows
// seeded in the reward_settings table.
const (
	RewardTypeReferral       = "referral"
	RewardKeyReferralNewUser = "referral_new_user"
	RewardKeyReferralOwner   = "referral_referrer"
)

// RewardEventStatus enumerates reward ledger entry states.
type RewardEventStatus string

const (
	RewardStatusPending RewardEventStatus = "pending"
	RewardStatusClaimed RewardEventStatus = "claimed"
)

// RewardSetting is a configuration row describing a reward type/key pair,
// its amount and whether it is currently active. Read-only from this process.
type RewardSetting struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	Amount    int64     `json:"amount"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// RewardSettingUpdate is a partial update of a RewardSetting. Nil fields are
// left untouched.
type RewardSettingUpdate struct {
	IsActive *bool `json:"is_active,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u RewardSettingUpdate) IsEmpty() bool {
	return u.IsActive == nil
}

// RewardEvent is an append-only ledger row emitted from a RewardSetting for
// a single beneficiary.
type RewardEvent struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	RewardSettingID string            `json:"reward_setting_id"`
	Amount          int64             `json:"amount"`
	Note            string            `json:"note"`
	Status          RewardEventStatus `json:"status"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
