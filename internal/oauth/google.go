package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the OpenID Connect issuer of Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// Google signs users in through OpenID Connect and verifies the returned ID token.
type Google struct {
	conf     *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogle discovers the issuer's endpoints and keys.
func NewGoogle(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*Google, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		Endpoint:     provider.Endpoint(),
	}
	return &Google{conf: conf, verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state string) string { return g.conf.AuthCodeURL(state) }

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (g *Google) Exchange(ctx context.Context, code string) (*Identity, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, errors.New("google: no id_token in token response")
	}
	idToken, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("google: verify id token: %w", err)
	}
	var c googleClaims
	if err := idToken.Claims(&c); err != nil {
		return nil, err
	}
	id := &Identity{Provider: g.Name(), ID: c.Subject, Name: c.Name}
	if c.EmailVerified {
		id.Email = c.Email
	}
	return id, nil
}
