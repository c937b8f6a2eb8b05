package domain

import "time"

// Wallet is the 1:1 balance row provisioned for every profile by the
// notification gateway after registration. The balance is never mutated
// directly by this process.
type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}
