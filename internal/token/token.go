// Package token issues and verifies the signed access and refresh tokens
// used across the workout tracker services.
//
// Tokens are HS256 JWTs signed with a single process-wide secret configured
// at startup. The service is stateless: there is no revocation list, and
// logout is a client-side token discard.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TypeRefresh tags refresh tokens so they cannot be replayed as access tokens.
const TypeRefresh = "refresh"

// Claims is the claim set carried by both access and refresh tokens.
type Claims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a symmetric key.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a token service. accessTTL and refreshTTL are the
// defaults applied when a caller passes a zero ttl.
func NewService(secret string, accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL == 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the default access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// CreateAccessToken signs an access token with expiry now+ttl. A zero ttl
// uses the service default.
func (s *Service) CreateAccessToken(claims Claims, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = s.accessTTL
	}
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// CreateRefreshToken signs a refresh token {sub, type: "refresh", exp} for
// the given subject. A zero ttl uses the service default (7 days).
func (s *Service) CreateRefreshToken(subjectID string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = s.refreshTTL
	}
	now := time.Now()
	claims := Claims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// DecodeToken verifies signature and expiry and returns the claims, or nil on
// any validation failure. Callers must treat nil as "unauthenticated", never
// as a fatal error; malformed, expired, and badly-signed tokens are
// indistinguishable here on purpose.
func (s *Service) DecodeToken(raw string) *Claims {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return nil
	}
	return claims
}
