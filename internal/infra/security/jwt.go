// Package security verifies bearer credentials issued by the identity service.
package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("security: bearer token missing")
	ErrInvalidToken = errors.New("security: bearer token invalid")
	ErrNoSecret     = errors.New("security: signing secret not configured")
)

type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller.
type Identity struct {
	UserID     string
	Role       string
	Privileged bool
}

// Verifier checks HS256 tokens. Callers whose role equals AdminRole are
// privileged.
type Verifier struct {
	Secret    []byte
	AdminRole string
	Leeway    time.Duration
	Now       func() time.Time
}

func (v Verifier) Verify(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMissingToken
	}
	if len(v.Secret) == 0 {
		return Identity{}, ErrNoSecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.Leeway),
	}
	if v.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(v.Now))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	return Identity{
		UserID:     claims.Subject,
		Role:       role,
		Privileged: role != "" && role == strings.ToLower(v.adminRole()),
	}, nil
}

// Issue signs a token for subject. Used by local tooling and tests; production
// tokens come from the identity service.
func (v Verifier) Issue(subject, role string, ttl time.Duration) (string, error) {
	if len(v.Secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}

func (v Verifier) adminRole() string {
	if v.AdminRole == "" {
		return "admin"
	}
	return v.AdminRole
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
