// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

// MockIdentityProvider is a fake identity provider for tests. It serves a
// JWKS endpoint from a generated RSA key pair and signs RS256 tokens with a
// matching key ID, so the full extract-verify-check pipeline can run against
// it without network access.
type MockIdentityProvider struct {
	Server   *httptest.Server
	Audience string
	KeyID    string

	privateKey *rsa.PrivateKey
	issuer     string
}

// NewMockIdentityProvider generates a key pair and starts the JWKS server.
func NewMockIdentityProvider(audience string) (*MockIdentityProvider, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}

	m := &MockIdentityProvider{
		Audience:   audience,
		KeyID:      "test-key-1",
		privateKey: privateKey,
		issuer:     "https://castd-test.example.com/",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", m.serveJWKS)
	m.Server = httptest.NewServer(mux)

	return m, nil
}

// Close shuts down the JWKS server.
func (m *MockIdentityProvider) Close() {
	m.Server.Close()
}

// Issuer returns the issuer the provider signs tokens with.
func (m *MockIdentityProvider) Issuer() string {
	return m.issuer
}

// JWKSURL returns the provider's key-set endpoint.
func (m *MockIdentityProvider) JWKSURL() string {
	return m.Server.URL + "/.well-known/jwks.json"
}

// KeyCache returns a key cache pointed at the provider's JWKS endpoint.
func (m *MockIdentityProvider) KeyCache(ttl time.Duration) *KeyCache {
	return NewKeyCache(m.JWKSURL(), m.Server.Client(), ttl)
}

// Verifier returns a verifier wired against the provider.
func (m *MockIdentityProvider) Verifier() *Verifier {
	return NewVerifierWithKeys(m.Audience, m.issuer, m.KeyCache(0))
}

// TokenOption mutates the claims of a token being signed.
type TokenOption func(jwt.MapClaims)

// WithExpiry overrides the token's expiry.
func WithExpiry(exp time.Time) TokenOption {
	return func(claims jwt.MapClaims) {
		claims["exp"] = exp.Unix()
	}
}

// WithAudienceClaim overrides the token's audience.
func WithAudienceClaim(aud string) TokenOption {
	return func(claims jwt.MapClaims) {
		claims["aud"] = aud
	}
}

// WithIssuerClaim overrides the token's issuer.
func WithIssuerClaim(iss string) TokenOption {
	return func(claims jwt.MapClaims) {
		claims["iss"] = iss
	}
}

// WithoutPermissions removes the permissions claim entirely.
func WithoutPermissions() TokenOption {
	return func(claims jwt.MapClaims) {
		delete(claims, "permissions")
	}
}

// SignToken signs an RS256 token carrying the given permissions, valid for
// an hour unless overridden.
func (m *MockIdentityProvider) SignToken(permissions []string, opts ...TokenOption) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":         m.issuer,
		"aud":         m.Audience,
		"sub":         "auth0|test-user",
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"permissions": permissions,
	}
	for _, opt := range opts {
		opt(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.KeyID

	return token.SignedString(m.privateKey)
}

// SignTokenWithKID signs a token under an arbitrary key ID. Used to exercise
// the key-not-found path.
func (m *MockIdentityProvider) SignTokenWithKID(kid string, permissions []string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":         m.issuer,
		"aud":         m.Audience,
		"sub":         "auth0|test-user",
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"permissions": permissions,
	})
	if kid != "" {
		token.Header["kid"] = kid
	}
	return token.SignedString(m.privateKey)
}

// serveJWKS writes the JWKS document for the provider's key pair.
func (m *MockIdentityProvider) serveJWKS(w http.ResponseWriter, _ *http.Request) {
	pub := &m.privateKey.PublicKey

	doc := map[string]interface{}{
		"keys": []map[string]string{
			{
				"kty": "RSA",
				"kid": m.KeyID,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
