package types

import "time"

// ResetToken is a stored password-reset record. Only the SHA-256 hash of the
// secret is persisted; the raw secret is delivered out-of-band and never stored.
type ResetToken struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"userId" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	Consumed  bool      `json:"consumed" db:"consumed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
