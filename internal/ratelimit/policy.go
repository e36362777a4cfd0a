// Package ratelimit classifies requests into rate-limit keys and quota tiers
// and enforces them against a pluggable limiter backend.
//
// Key derivation and quota selection are pure functions; enforcement is
// delegated to a Limiter (in-memory fixed window for tests and single-node
// runs, Redis for distributed deployments). When the limiter's backing store
// is unreachable the middleware fails open: requests pass through and the
// condition is logged.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agamordechai/eass-a-workouttracker/internal/config"
	"github.com/agamordechai/eass-a-workouttracker/internal/token"
	"github.com/agamordechai/eass-a-workouttracker/internal/users"
)

// Key derives the rate-limit bucket for a request: "user:<sub>:<role>" when
// the bearer token decodes, otherwise "ip:<client-address>". The key is
// computed fresh per request and never stored.
func Key(r *http.Request, tokens *token.Service) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		raw := strings.TrimSpace(auth[len("Bearer "):])
		if claims := tokens.DecodeToken(raw); claims != nil && claims.Subject != "" {
			role := claims.Role
			if role == "" {
				role = string(users.RoleUser)
			}
			return "user:" + claims.Subject + ":" + role
		}
		// Invalid token falls back to IP-based limiting.
	}

	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	// First hop of X-Forwarded-For when behind a proxy.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// roleFromKey extracts the role tier from a derived key. IP keys and
// unrecognized roles map to the anonymous tier ("").
func roleFromKey(key string) users.Role {
	if !strings.HasPrefix(key, "user:") {
		return ""
	}
	parts := strings.Split(key, ":")
	if len(parts) < 3 {
		return users.RoleUser
	}
	role := users.Role(strings.ToLower(parts[2]))
	if !role.Valid() {
		return ""
	}
	return role
}

// Policy maps (key, path, method) to a limit expression. It is pure given
// its configuration: no I/O, never fails, unknown roles fall back to the
// anonymous tier.
type Policy struct {
	cfg config.RateLimit
}

func NewPolicy(cfg config.RateLimit) Policy {
	return Policy{cfg: cfg}
}

// LimitFor picks the limit expression for a request. Precedence: auth-prefix
// paths, then admin-prefix paths, then read/write classified by role tier.
func (p Policy) LimitFor(key, path, method string) string {
	if strings.HasPrefix(path, "/auth") {
		return p.cfg.AuthLimit
	}
	if strings.HasPrefix(path, "/admin") {
		return p.cfg.AdminLimit
	}

	role := roleFromKey(key)

	if method == http.MethodGet {
		switch role {
		case users.RoleAdmin:
			return p.cfg.ReadLimitAdmin
		case users.RoleUser, users.RoleReadOnly:
			return p.cfg.ReadLimitUser
		default:
			return p.cfg.ReadLimitAnonymous
		}
	}

	// Write operation (POST, PATCH, DELETE, PUT).
	switch role {
	case users.RoleAdmin:
		return p.cfg.WriteLimitAdmin
	case users.RoleUser:
		return p.cfg.WriteLimitUser
	default:
		return p.cfg.WriteLimitAnonymous
	}
}

// ParseLimit parses a "<count>/<window>" expression such as "120/minute".
func ParseLimit(s string) (int, time.Duration, error) {
	count, window, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("ratelimit: malformed limit %q", s)
	}

	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return 0, 0, fmt.Errorf("ratelimit: malformed limit count %q", s)
	}

	var d time.Duration
	switch strings.TrimSpace(window) {
	case "second":
		d = time.Second
	case "minute":
		d = time.Minute
	case "hour":
		d = time.Hour
	case "day":
		d = 24 * time.Hour
	default:
		return 0, 0, fmt.Errorf("ratelimit: unknown window in %q", s)
	}

	return n, d, nil
}
