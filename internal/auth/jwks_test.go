// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyCacheGetKey(t *testing.T) {
	idp, err := NewMockIdentityProvider("casting-agency")
	if err != nil {
		t.Fatalf("failed to create mock identity provider: %v", err)
	}
	defer idp.Close()

	cache := idp.KeyCache(time.Minute)

	key, err := cache.GetKey(context.Background(), idp.KeyID)
	if err != nil {
		t.Fatalf("GetKey(%q) unexpected error: %v", idp.KeyID, err)
	}
	if key == nil {
		t.Fatal("GetKey returned nil key")
	}
	if key.N.Cmp(idp.privateKey.PublicKey.N) != 0 {
		t.Error("GetKey returned a key with a different modulus than published")
	}
}

func TestKeyCacheUnknownKID(t *testing.T) {
	idp, err := NewMockIdentityProvider("casting-agency")
	if err != nil {
		t.Fatalf("failed to create mock identity provider: %v", err)
	}
	defer idp.Close()

	cache := idp.KeyCache(time.Minute)

	_, err = cache.GetKey(context.Background(), "no-such-kid")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("GetKey error = %v, want %v", err, ErrKeyNotFound)
	}
}

func TestKeyCacheCachesWithinTTL(t *testing.T) {
	idp, err := NewMockIdentityProvider("casting-agency")
	if err != nil {
		t.Fatalf("failed to create mock identity provider: %v", err)
	}
	defer idp.Close()

	var fetches atomic.Int64
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		idp.serveJWKS(w, r)
	}))
	defer counting.Close()

	cache := NewKeyCache(counting.URL, counting.Client(), time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cache.GetKey(context.Background(), idp.KeyID); err != nil {
			t.Fatalf("GetKey iteration %d unexpected error: %v", i, err)
		}
	}

	if got := fetches.Load(); got != 1 {
		t.Errorf("expected 1 JWKS fetch within TTL, got %d", got)
	}
}

func TestKeyCacheUnknownKIDForcesRefresh(t *testing.T) {
	idp, err := NewMockIdentityProvider("casting-agency")
	if err != nil {
		t.Fatalf("failed to create mock identity provider: %v", err)
	}
	defer idp.Close()

	var fetches atomic.Int64
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		idp.serveJWKS(w, r)
	}))
	defer counting.Close()

	cache := NewKeyCache(counting.URL, counting.Client(), time.Hour)

	if _, err := cache.GetKey(context.Background(), idp.KeyID); err != nil {
		t.Fatalf("initial GetKey unexpected error: %v", err)
	}

	// A lookup for an unseen key ID must hit the endpoint again even though
	// the TTL has not lapsed.
	if _, err := cache.GetKey(context.Background(), "rotated-kid"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("GetKey(rotated) error = %v, want %v", err, ErrKeyNotFound)
	}

	if got := fetches.Load(); got != 2 {
		t.Errorf("expected forced refresh to fetch again, got %d fetches", got)
	}
}

func TestKeyCacheStaleKeyOnFetchFailure(t *testing.T) {
	idp, err := NewMockIdentityProvider("casting-agency")
	if err != nil {
		t.Fatalf("failed to create mock identity provider: %v", err)
	}
	defer idp.Close()

	var failing atomic.Bool
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		idp.serveJWKS(w, r)
	}))
	defer flaky.Close()

	cache := NewKeyCache(flaky.URL, flaky.Client(), time.Nanosecond)

	if _, err := cache.GetKey(context.Background(), idp.KeyID); err != nil {
		t.Fatalf("initial GetKey unexpected error: %v", err)
	}

	failing.Store(true)
	time.Sleep(time.Millisecond)

	// The TTL has lapsed and the refresh fails, but the cached key is still
	// served rather than failing the request.
	key, err := cache.GetKey(context.Background(), idp.KeyID)
	if err != nil {
		t.Fatalf("GetKey with stale cache unexpected error: %v", err)
	}
	if key == nil {
		t.Fatal("expected stale cached key, got nil")
	}
}

func TestKeyCacheFetchFailureNoCache(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	cache := NewKeyCache(down.URL, down.Client(), time.Minute)

	_, err := cache.GetKey(context.Background(), "any-kid")
	if !errors.Is(err, ErrKeySourceUnavailable) {
		t.Fatalf("GetKey error = %v, want %v", err, ErrKeySourceUnavailable)
	}
}

func TestKeyCacheBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var fetches atomic.Int64
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	cache := NewKeyCache(down.URL, down.Client(), time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := cache.GetKey(context.Background(), "any-kid"); err == nil {
			t.Fatalf("GetKey iteration %d expected error", i)
		}
	}

	// The breaker trips after three consecutive failures; subsequent calls
	// must fail fast without reaching the endpoint.
	if got := fetches.Load(); got != 3 {
		t.Errorf("expected 3 fetches before the breaker opened, got %d", got)
	}
}
