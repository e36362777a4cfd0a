package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const googleIssuer = "https://accounts.google.com"

// GoogleUser is the subset of a verified Google ID token the API needs.
type GoogleUser struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleVerifier validates Google OAuth ID tokens sent by the frontend.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers Google's OIDC configuration and returns a
// verifier bound to the given client ID.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google verifier: discover provider: %w", err)
	}
	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify checks the raw ID token's signature, issuer, audience, and expiry,
// and returns the embedded profile claims.
func (g *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*GoogleUser, error) {
	idToken, err := g.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("google verifier: invalid token: %w", err)
	}

	var gu GoogleUser
	if err := idToken.Claims(&gu); err != nil {
		return nil, fmt.Errorf("google verifier: parse claims: %w", err)
	}
	return &gu, nil
}
