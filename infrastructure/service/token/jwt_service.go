package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chirpnet/chirpnet/application/port/outbound"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
}

// JWTService signs both token kinds with HS256. The access and refresh
// secrets are independent so the two kinds are never interchangeable even
// if one secret leaks.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewJWTService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*JWTService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token signing secrets cannot be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &JWTService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

func (s *JWTService) GenerateAccessToken(tc outbound.TokenClaims) (string, error) {
	return s.sign(tc, kindAccess, s.accessTTL, s.accessSecret)
}

func (s *JWTService) GenerateRefreshToken(tc outbound.TokenClaims) (string, error) {
	return s.sign(tc, kindRefresh, s.refreshTTL, s.refreshSecret)
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*outbound.TokenClaims, error) {
	return s.verify(tokenString, kindAccess, s.accessSecret)
}

func (s *JWTService) ValidateRefreshToken(tokenString string) (*outbound.TokenClaims, error) {
	return s.verify(tokenString, kindRefresh, s.refreshSecret)
}

func (s *JWTService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *JWTService) sign(tc outbound.TokenClaims, kind string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: tc.UserID,
		Email:  tc.Email,
		Role:   tc.Role,
		Kind:   kind,
	})

	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (s *JWTService) verify(tokenString, kind string, secret []byte) (*outbound.TokenClaims, error) {
	parsed := &claims{}
	t, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, outbound.ErrTokenExpired
		}
		return nil, outbound.ErrInvalidToken
	}
	if !t.Valid || parsed.Kind != kind {
		return nil, outbound.ErrInvalidToken
	}

	return &outbound.TokenClaims{
		UserID: parsed.UserID,
		Email:  parsed.Email,
		Role:   parsed.Role,
	}, nil
}
