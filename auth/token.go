// Package auth obtains and caches the bearer credential used for registry
// calls via the OAuth client-credentials flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"scholar/monitoring"
)

var ErrMissingCredentials = errors.New("registry client id or secret not configured")

// AuthError wraps a token-endpoint failure. It is a configuration-level
// failure and is never absorbed by the aggregation layer.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token acquisition failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Tokens are refreshed this long before their declared expiry so in-flight
// requests never carry a credential that lapses mid-call.
const expirySafetyMargin = 5 * time.Minute

type TokenProvider struct {
	client       *resty.Client
	clientId     string
	clientSecret string

	mu      sync.Mutex
	token   string
	expiry  time.Time
	refresh singleflight.Group

	logger *slog.Logger
	now    func() time.Time
}

func NewTokenProvider(tokenUrl, clientId, clientSecret string) *TokenProvider {
	return &TokenProvider{
		client:       resty.New().SetBaseURL(tokenUrl).SetTimeout(10 * time.Second),
		clientId:     clientId,
		clientSecret: clientSecret,
		logger:       slog.With("logger", "token_provider"),
		now:          time.Now,
	}
}

// AccessToken returns the cached bearer token, refreshing it when it is
// within the safety margin of its expiry. Concurrent callers during the
// refresh window share a single token request.
func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	if p.clientId == "" || p.clientSecret == "" {
		return "", &AuthError{Err: ErrMissingCredentials}
	}

	p.mu.Lock()
	if p.token != "" && p.now().Before(p.expiry.Add(-expirySafetyMargin)) {
		token := p.token
		p.mu.Unlock()
		return token, nil
	}
	p.mu.Unlock()

	token, err, _ := p.refresh.Do("token", func() (any, error) {
		return p.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (p *TokenProvider) fetchToken(ctx context.Context) (string, error) {
	type tokenResponse struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	res, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     p.clientId,
			"client_secret": p.clientSecret,
			"grant_type":    "client_credentials",
			"scope":         "/read-public",
		}).
		SetResult(&tokenResponse{}).
		Post("")

	if err != nil {
		monitoring.TokenRefreshes.WithLabelValues("error").Inc()
		p.logger.Error("token endpoint request failed", "error", err)
		return "", &AuthError{Err: err}
	}

	if !res.IsSuccess() {
		monitoring.TokenRefreshes.WithLabelValues("error").Inc()
		p.logger.Error("token endpoint returned error", "status_code", res.StatusCode(), "body", res.String())
		return "", &AuthError{Err: fmt.Errorf("token endpoint returned status %d", res.StatusCode())}
	}

	result := res.Result().(*tokenResponse)
	if result.AccessToken == "" {
		monitoring.TokenRefreshes.WithLabelValues("error").Inc()
		return "", &AuthError{Err: errors.New("token endpoint returned empty token")}
	}

	p.mu.Lock()
	p.token = result.AccessToken
	p.expiry = p.now().Add(time.Duration(result.ExpiresIn) * time.Second)
	p.mu.Unlock()

	monitoring.TokenRefreshes.WithLabelValues("ok").Inc()
	p.logger.Info("refreshed registry token", "expires_in_s", result.ExpiresIn)

	return result.AccessToken, nil
}
