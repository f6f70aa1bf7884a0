package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated identity attached to a request for its
// lifetime.
type Principal struct {
	UserID   uint64
	TenantID uint64
	Username string
	Role     Role
}

// Claims is the JWT payload issued at login and verified on every request.
type Claims struct {
	jwt.RegisteredClaims
	UserID   uint64 `json:"user_id"`
	TenantID uint64 `json:"tenant_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Principal converts verified claims into the request principal.
func (c *Claims) Principal() (Principal, error) {
	role, ok := ParseRole(c.Role)
	if !ok {
		return Principal{}, fmt.Errorf("security: unknown role %q", c.Role)
	}
	if c.UserID == 0 || c.TenantID == 0 {
		return Principal{}, errors.New("security: token missing identity")
	}
	return Principal{
		UserID:   c.UserID,
		TenantID: c.TenantID,
		Username: c.Username,
		Role:     role,
	}, nil
}

// ErrInvalidToken covers malformed, mis-signed, and expired tokens.
var ErrInvalidToken = errors.New("security: invalid token")

// GenerateToken signs a token for the principal with the given secret and
// lifetime.
func GenerateToken(secret string, expiry time.Duration, principal Principal) (string, error) {
	if secret == "" {
		return "", errors.New("security: empty jwt secret")
	}
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Issuer:    "tenantgate",
		},
		UserID:   principal.UserID,
		TenantID: principal.TenantID,
		Username: principal.Username,
		Role:     principal.Role.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

// ParseToken verifies a token and returns its claims.
func ParseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	token, errParse := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("security: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
