package outbound

import "errors"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenClaims is the identity payload embedded in both token kinds.
// Two tokens minted from the same login carry identical claims.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TokenService signs and verifies the two token kinds. Access and refresh
// tokens are signed with independent secrets so a leaked access token can
// never be replayed against the refresh endpoint. Expiry is enforced here,
// not by callers.
type TokenService interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	GenerateRefreshToken(claims TokenClaims) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
}
