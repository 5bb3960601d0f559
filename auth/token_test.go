package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"scholar/auth"
)

func tokenEndpoint(calls *int64, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)

		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			http.Error(w, "bad grant type", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": token,
			"expires_in":   3600,
		})
	}
}

func TestTokenIsCached(t *testing.T) {
	var calls int64
	server := httptest.NewServer(tokenEndpoint(&calls, "abc123"))
	defer server.Close()

	provider := auth.NewTokenProvider(server.URL, "client", "secret")

	for i := 0; i < 5; i++ {
		token, err := provider.AccessToken(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if token != "abc123" {
			t.Fatalf("unexpected token %q", token)
		}
	}

	if calls != 1 {
		t.Fatalf("expected a single token request, got %d", calls)
	}
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	var calls int64
	server := httptest.NewServer(tokenEndpoint(&calls, "abc123"))
	defer server.Close()

	provider := auth.NewTokenProvider(server.URL, "client", "secret")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := provider.AccessToken(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected a single token request under concurrent load, got %d", calls)
	}
}

func TestMissingCredentials(t *testing.T) {
	provider := auth.NewTokenProvider("http://localhost:1", "", "")

	_, err := provider.AccessToken(context.Background())
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}

	var authErr *auth.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T", err)
	}
	if !errors.Is(err, auth.ErrMissingCredentials) {
		t.Fatal("expected ErrMissingCredentials")
	}
}

func TestTokenEndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := auth.NewTokenProvider(server.URL, "client", "secret")

	_, err := provider.AccessToken(context.Background())
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}
