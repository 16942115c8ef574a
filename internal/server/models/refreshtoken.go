package models

import "time"

// RefreshToken is a single-use credential that is traded for a new token
// pair. Redeeming it removes it, whether or not it is still valid.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the token can no longer be redeemed at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
