package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agamordechai/eass-a-workouttracker/internal/config"
	"github.com/agamordechai/eass-a-workouttracker/internal/token"
)

func testLimits() config.RateLimit {
	return config.RateLimit{
		Enabled:             true,
		PublicLimit:         "100/minute",
		AuthLimit:           "10/minute",
		AdminLimit:          "100/minute",
		ReadLimitAnonymous:  "60/minute",
		ReadLimitUser:       "120/minute",
		ReadLimitAdmin:      "300/minute",
		WriteLimitAnonymous: "30/minute",
		WriteLimitUser:      "60/minute",
		WriteLimitAdmin:     "150/minute",
	}
}

func TestLimitForPrecedence(t *testing.T) {
	p := NewPolicy(testLimits())

	tests := []struct {
		name   string
		key    string
		path   string
		method string
		want   string
	}{
		{"auth prefix wins over role", "user:1:admin", "/auth/login", "POST", "10/minute"},
		{"admin prefix", "user:1:admin", "/admin/users", "GET", "100/minute"},
		{"admin read", "user:1:admin", "/exercises", "GET", "300/minute"},
		{"user read", "user:1:user", "/exercises", "GET", "120/minute"},
		{"readonly reads at user tier", "user:1:readonly", "/exercises", "GET", "120/minute"},
		{"anonymous read", "ip:10.0.0.1", "/exercises", "GET", "60/minute"},
		{"admin write", "user:1:admin", "/exercises", "POST", "150/minute"},
		{"user write", "user:1:user", "/exercises", "PATCH", "60/minute"},
		{"readonly writes at anonymous tier", "user:1:readonly", "/exercises", "DELETE", "30/minute"},
		{"anonymous write", "ip:10.0.0.1", "/exercises", "PUT", "30/minute"},
		{"unknown role falls back to anonymous", "user:1:superadmin", "/exercises", "GET", "60/minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.LimitFor(tt.key, tt.path, tt.method)
			if got != tt.want {
				t.Errorf("LimitFor(%q, %q, %q) = %q, want %q", tt.key, tt.path, tt.method, got, tt.want)
			}
			// Pure function: same inputs, same output.
			if again := p.LimitFor(tt.key, tt.path, tt.method); again != got {
				t.Errorf("LimitFor is not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestAdminNeverBelowUser(t *testing.T) {
	p := NewPolicy(testLimits())

	for _, method := range []string{"GET", "POST"} {
		adminLimit, _, _ := ParseLimit(p.LimitFor("user:1:admin", "/exercises", method))
		userLimit, _, _ := ParseLimit(p.LimitFor("user:2:user", "/exercises", method))
		if adminLimit < userLimit {
			t.Errorf("%s: admin limit %d below user limit %d", method, adminLimit, userLimit)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in      string
		count   int
		window  time.Duration
		wantErr bool
	}{
		{"120/minute", 120, time.Minute, false},
		{"10/second", 10, time.Second, false},
		{"1000/hour", 1000, time.Hour, false},
		{"5000/day", 5000, 24 * time.Hour, false},
		{"nope", 0, 0, true},
		{"-1/minute", 0, 0, true},
		{"10/fortnight", 0, 0, true},
		{"x/minute", 0, 0, true},
	}

	for _, tt := range tests {
		count, window, err := ParseLimit(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLimit(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLimit(%q): %v", tt.in, err)
			continue
		}
		if count != tt.count || window != tt.window {
			t.Errorf("ParseLimit(%q) = (%d, %v), want (%d, %v)", tt.in, count, window, tt.count, tt.window)
		}
	}
}

func TestKeyDerivation(t *testing.T) {
	tokens := token.NewService("test-secret", 0, 0)

	claims := token.Claims{Role: "admin"}
	claims.Subject = "17"
	raw, err := tokens.CreateAccessToken(claims, time.Minute)
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	t.Run("authenticated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/exercises", nil)
		r.Header.Set("Authorization", "Bearer "+raw)
		if got := Key(r, tokens); got != "user:17:admin" {
			t.Errorf("Key = %q, want user:17:admin", got)
		}
	})

	t.Run("invalid token falls back to ip", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/exercises", nil)
		r.Header.Set("Authorization", "Bearer garbage")
		r.RemoteAddr = "192.0.2.7:1234"
		if got := Key(r, tokens); got != "ip:192.0.2.7" {
			t.Errorf("Key = %q, want ip:192.0.2.7", got)
		}
	})

	t.Run("forwarded-for takes first hop", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/exercises", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		if got := Key(r, tokens); got != "ip:203.0.113.9" {
			t.Errorf("Key = %q, want ip:203.0.113.9", got)
		}
	})
}
