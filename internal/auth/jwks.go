// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/filmcast/castd/internal/metrics"
)

// KeyCache resolves RSA signing keys from the identity provider's published
// JWKS endpoint. Fetched keys are cached with a TTL; a lookup for an unknown
// key ID forces a refresh so key rotation is picked up without waiting for
// expiry. The fetch runs behind a circuit breaker so a flapping provider
// fails fast instead of stalling every verification.
type KeyCache struct {
	uri        string
	httpClient *http.Client
	ttl        time.Duration
	breaker    *gobreaker.CircuitBreaker[map[string]*rsa.PublicKey]

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewKeyCache creates a key cache for the given JWKS endpoint.
func NewKeyCache(uri string, client *http.Client, ttl time.Duration) *KeyCache {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &KeyCache{
		uri:        uri,
		httpClient: client,
		ttl:        ttl,
		keys:       make(map[string]*rsa.PublicKey),
		breaker: gobreaker.NewCircuitBreaker[map[string]*rsa.PublicKey](gobreaker.Settings{
			Name:        "jwks-fetch",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// GetKey retrieves the key with the given ID, refreshing the cache when the
// TTL has lapsed or the ID is unknown.
func (c *KeyCache) GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetched) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	// An unknown kid forces a refresh even inside the TTL: the provider may
	// have rotated keys since the last fetch.
	keys, err := c.refreshKeys(ctx, !ok)
	if err != nil {
		// A stale cached key beats failing the request outright.
		if ok {
			return key, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrKeySourceUnavailable, err)
	}

	key, ok = keys[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}

	return key, nil
}

// refreshKeys fetches the JWKS document and replaces the cached key set.
// With force set, the TTL short-circuit is skipped.
func (c *KeyCache) refreshKeys(ctx context.Context, force bool) (map[string]*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if !force && time.Since(c.fetched) < c.ttl && len(c.keys) > 0 {
		return c.keys, nil
	}

	keys, err := c.breaker.Execute(func() (map[string]*rsa.PublicKey, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		outcome := "error"
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			outcome = "breaker_open"
		}
		metrics.JWKSFetches.WithLabelValues(outcome).Inc()
		return nil, err
	}
	metrics.JWKSFetches.WithLabelValues("success").Inc()

	c.keys = keys
	c.fetched = time.Now()
	return c.keys, nil
}

// fetch downloads and parses the JWKS document, keeping RSA keys only.
func (c *KeyCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS fetch failed with status %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			Alg string `json:"alg"`
			Use string `json:"use"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)

	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}

		nBytes, err := base64URLDecode(key.N)
		if err != nil {
			continue
		}
		eBytes, err := base64URLDecode(key.E)
		if err != nil {
			continue
		}

		e := 0
		for _, b := range eBytes {
			e = e<<8 + int(b)
		}

		keys[key.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: e,
		}
	}

	return keys, nil
}

// URI returns the JWKS endpoint.
func (c *KeyCache) URI() string {
	return c.uri
}

// base64URLDecode decodes a base64url string, padding if needed.
func base64URLDecode(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
