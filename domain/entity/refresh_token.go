package entity

import (
	"time"
)

// RefreshToken is one row of the refresh token ledger. The token string is
// the signed JWT itself; a token is usable only while its row exists.
type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRefreshToken(token, userID string, expiresAt time.Time) *RefreshToken {
	return &RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}
