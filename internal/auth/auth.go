// Package auth resolves request credentials into an authenticated user and
// gates handlers by role.
//
// The resolver is stateless and re-evaluated on every request: it decodes the
// bearer token, loads the user record, and rejects disabled accounts. All
// token-validation failures surface as the same generic 401 so callers cannot
// distinguish a malformed token from an expired one.
package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/agamordechai/eass-a-workouttracker/internal/token"
	"github.com/agamordechai/eass-a-workouttracker/internal/users"
)

const userContextKey = "auth.user"

// ErrCredentials is the single 401 returned for every token-validation
// failure: missing header, malformed token, bad signature, expired token,
// unknown subject.
var ErrCredentials = echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")

// Middleware authenticates the request's bearer token and stores the resolved
// user in the echo context.
func Middleware(tokens *token.Service, repo *users.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := resolve(c, tokens, repo)
			if err != nil {
				return err
			}
			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

func resolve(c echo.Context, tokens *token.Service, repo *users.Repository) (*users.User, error) {
	raw := BearerToken(c.Request())
	if raw == "" {
		return nil, ErrCredentials
	}

	claims := tokens.DecodeToken(raw)
	if claims == nil || claims.Subject == "" || claims.Type == token.TypeRefresh {
		return nil, ErrCredentials
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrCredentials
	}

	u, err := repo.GetByID(uint(id))
	if err != nil {
		return nil, ErrCredentials
	}
	if u.Disabled {
		return nil, echo.NewHTTPError(http.StatusForbidden, "user account is disabled")
	}
	return u, nil
}

// RequireRole returns middleware that rejects with 403 unless the
// authenticated user's role is in the allowed set. It must run after
// Middleware.
func RequireRole(allowed ...users.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return ErrCredentials
			}
			for _, r := range allowed {
				if u.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("role %q not authorized; required: %v", u.Role, allowed))
		}
	}
}

// CurrentUser returns the user resolved by Middleware, or nil.
func CurrentUser(c echo.Context) *users.User {
	u, _ := c.Get(userContextKey).(*users.User)
	return u
}

// BearerToken extracts the token from an Authorization: Bearer header, or ""
// when absent.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
