package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCProvider signs operators into the admin pages through an OpenID Connect issuer.
type OIDCProvider struct {
	oauth2Config   *oauth2.Config
	verifier       *oidc.IDTokenVerifier
	allowedDomains []string
}

// OIDCClaims represents the claims from an ID token.
type OIDCClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewOIDCProvider creates a new OIDC provider with discovery.
func NewOIDCProvider(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string, scopes, allowedDomains []string) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		verifier:       provider.Verifier(&oidc.Config{ClientID: clientID}),
		allowedDomains: allowedDomains,
	}, nil
}

// AuthCodeURL generates an authorization URL with state and nonce.
func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange exchanges an authorization code and returns the verified ID token claims.
func (p *OIDCProvider) Exchange(ctx context.Context, code, nonce string) (*OIDCClaims, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	if !ConstantTimeCompare(idToken.Nonce, nonce) {
		return nil, fmt.Errorf("nonce mismatch")
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	return &claims, nil
}

// ValidateClaims checks the email claim against the allowed domains, if any.
func (p *OIDCProvider) ValidateClaims(claims *OIDCClaims) error {
	return validateDomain(claims, p.allowedDomains)
}

// Session converts verified claims into an admin session.
func (c *OIDCClaims) Session() *AdminSession {
	return &AdminSession{
		Subject: c.Subject,
		Email:   c.Email,
		Name:    c.Name,
		Method:  MethodOIDC,
	}
}

func validateDomain(claims *OIDCClaims, allowed []string) error {
	if claims.Email == "" {
		return fmt.Errorf("email claim is required")
	}
	if len(allowed) == 0 {
		return nil
	}

	_, domain, ok := strings.Cut(claims.Email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return fmt.Errorf("invalid email format")
	}
	if !slices.ContainsFunc(allowed, func(d string) bool { return strings.EqualFold(d, domain) }) {
		return fmt.Errorf("email domain %s is not allowed", strings.ToLower(domain))
	}
	return nil
}

// GenerateSecureString generates a cryptographically secure random string.
func GenerateSecureString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
