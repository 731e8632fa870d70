// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filmcast/castd/internal/config"
)

// Claims is the decoded body of a verified token. Permissions stays nil when
// the claim is absent entirely, which the permission checker treats
// differently from an empty list.
type Claims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Verifier validates RS256 bearer tokens against the provider's signing
// keys, the configured audience, and the configured issuer.
type Verifier struct {
	audience string
	issuer   string
	keys     *KeyCache
}

// NewVerifier builds a verifier from the auth configuration, wiring a key
// cache against the provider's JWKS endpoint.
func NewVerifier(cfg *config.AuthConfig) *Verifier {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	return &Verifier{
		audience: cfg.Audience,
		issuer:   cfg.Issuer(),
		keys:     NewKeyCache(cfg.JWKSURL(), client, cfg.JWKSTTL),
	}
}

// NewVerifierWithKeys builds a verifier with an explicit key cache. Used by
// tests that point the cache at a local key server.
func NewVerifierWithKeys(audience, issuer string, keys *KeyCache) *Verifier {
	return &Verifier{audience: audience, issuer: issuer, keys: keys}
}

// VerifyToken validates the token's signature, audience, issuer, and expiry,
// returning the decoded claims. Every failure is an *AuthError.
func (v *Verifier) VerifyToken(ctx context.Context, tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, ErrKIDMissing
		}
		return v.keys.GetKey(ctx, kid)
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !token.Valid {
		return nil, ErrTokenParse
	}

	return claims, nil
}

// classifyTokenError maps golang-jwt errors onto the pipeline's AuthErrors.
// Expiry is checked before audience/issuer so an expired token with a stale
// audience still reports token_expired.
func classifyTokenError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrInvalidClaims
	default:
		return ErrTokenParse
	}
}
