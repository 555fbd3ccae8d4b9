// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package opensky

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/metrics"
)

const (
	// DefaultTokenLeeway is how long before expiry a token stops being handed out.
	DefaultTokenLeeway = 5 * time.Minute

	// defaultExpiresIn applies when the grant response omits expires_in.
	defaultExpiresIn = 3600

	tokenExchangeTimeout = 30 * time.Second
	tokenFlightKey       = "client_credentials"
)

// AccessToken is a bearer token minted by the client-credentials grant.
type AccessToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Usable reports whether t may still be sent at now: now < expiry - leeway.
func (t AccessToken) Usable(now time.Time, leeway time.Duration) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-leeway))
}

// TokenSource yields bearer tokens for upstream requests.
type TokenSource interface {
	// Token returns a usable token, or false when requests must go out anonymously.
	Token(ctx context.Context) (AccessToken, bool)
	// Invalidate drops the cached token so the next Token call re-exchanges.
	Invalidate()
}

// TokenConfig configures a TokenCache.
type TokenConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client

	// Leeway defaults to DefaultTokenLeeway when zero.
	Leeway time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// TokenCache holds at most one access token and mints a new one through the
// client-credentials grant when it is absent, expired or invalidated.
//
// Exchange failures are logged and reported as "no token"; they never reach
// the caller as errors.
type TokenCache struct {
	clientID     string
	clientSecret string
	tokenURL     string
	leeway       time.Duration
	client       *http.Client
	now          func() time.Time

	mu    sync.RWMutex
	token AccessToken

	group singleflight.Group
}

// NewTokenCache creates a TokenCache. Missing credentials are allowed and
// make every Token call return false without touching the network.
func NewTokenCache(cfg TokenConfig) *TokenCache {
	c := &TokenCache{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     cfg.TokenURL,
		leeway:       cfg.Leeway,
		client:       cfg.HTTPClient,
		now:          cfg.Now,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: tokenExchangeTimeout}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.leeway == 0 {
		c.leeway = DefaultTokenLeeway
	}
	return c
}

// Configured reports whether client credentials are present.
func (c *TokenCache) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// Token returns the cached token while it is usable, otherwise performs one
// grant exchange shared by all concurrent callers.
func (c *TokenCache) Token(ctx context.Context) (AccessToken, bool) {
	if !c.Configured() {
		return AccessToken{}, false
	}

	if tok, ok := c.cached(); ok {
		return tok, true
	}

	// The exchange runs detached from any single caller so that one caller
	// giving up does not fail the others waiting on the same flight.
	ch := c.group.DoChan(tokenFlightKey, func() (interface{}, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenExchangeTimeout)
		defer cancel()
		return c.refresh(exCtx)
	})

	select {
	case <-ctx.Done():
		return AccessToken{}, false
	case res := <-ch:
		if res.Err != nil {
			return AccessToken{}, false
		}
		tok, ok := res.Val.(AccessToken)
		return tok, ok
	}
}

// Invalidate clears the cached token unconditionally.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = AccessToken{}
	c.mu.Unlock()
}

func (c *TokenCache) cached() (AccessToken, bool) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	return tok, tok.Usable(c.now(), c.leeway)
}

// refresh exchanges credentials and stores the outcome. A failed exchange
// leaves the cache empty.
func (c *TokenCache) refresh(ctx context.Context) (AccessToken, error) {
	tok, err := c.exchange(ctx)
	metrics.RecordTokenExchange(err == nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.token = AccessToken{}
		logging.Warn().Err(err).Msg("OpenSky token exchange failed, falling back to anonymous access")
		return AccessToken{}, err
	}
	c.token = tok
	logging.Debug().Time("expires_at", tok.ExpiresAt).Msg("OpenSky token refreshed")
	return tok, nil
}

// tokenResponse is the grant endpoint's JSON body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (c *TokenCache) exchange(ctx context.Context) (AccessToken, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	issued := c.now()
	resp, err := c.client.Do(req)
	if err != nil {
		return AccessToken{}, fmt.Errorf("token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readBodyForError(resp.Body)
		return AccessToken{}, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodySize))
	if err != nil {
		return AccessToken{}, fmt.Errorf("read token response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return AccessToken{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return AccessToken{}, fmt.Errorf("token response has no access_token")
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	return AccessToken{
		Value:     tr.AccessToken,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
