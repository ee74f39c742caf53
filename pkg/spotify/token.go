package spotify

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"Melopick-Go/pkg/metrics"
	"Melopick-Go/pkg/music"
)

const (
	// DefaultTokenURL is the catalog's client-credentials endpoint.
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	defaultSafetyMargin = 5 * time.Minute
	defaultTokenTTL     = time.Hour
)

// TokenManager caches an application bearer token obtained through the
// client-credentials flow. The token is refreshed once now reaches
// issue time + ttl - margin so requests already in flight never carry an
// expired credential.
type TokenManager struct {
	mu         sync.Mutex
	config     *clientcredentials.Config
	httpClient *http.Client
	margin     time.Duration
	now        func() time.Time

	token  string
	expiry time.Time
}

// NewTokenManager returns a manager for the given credentials. No exchange
// happens until the first call to Token. httpClient may be nil to use the
// default transport.
func NewTokenManager(clientID, clientSecret, tokenURL string, httpClient *http.Client) *TokenManager {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &TokenManager{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
		httpClient: httpClient,
		margin:     defaultSafetyMargin,
		now:        time.Now,
	}
}

// Token returns a valid bearer token, exchanging credentials when the cached
// one is missing or about to expire. Failures are reported as
// *music.AuthenticationError and are not retried here.
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	// The lock is held across the exchange so concurrent callers share a
	// single refresh instead of racing the auth endpoint.
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token != "" && tm.now().Before(tm.expiry) {
		return tm.token, nil
	}
	if tm.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, tm.httpClient)
	}
	tok, err := tm.config.Token(ctx)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		log.WithError(err).Warn("client credentials exchange failed")
		return "", &music.AuthenticationError{Err: err}
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	tm.token = tok.AccessToken
	tm.expiry = tm.now().Add(tokenTTL(tok) - tm.margin)
	log.WithField("expires", tm.expiry.Format(time.RFC3339)).Debug("catalog token refreshed")
	return tm.token, nil
}

// Invalidate drops the cached token. The client calls it after a 401 so the
// next request performs a fresh exchange.
func (tm *TokenManager) Invalidate() {
	tm.mu.Lock()
	tm.token = ""
	tm.expiry = time.Time{}
	tm.mu.Unlock()
}

// tokenTTL reads the lifetime from the raw expires_in field, falling back to
// the parsed expiry and finally to an hour.
func tokenTTL(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	if !tok.Expiry.IsZero() {
		if d := time.Until(tok.Expiry); d > 0 {
			return d
		}
	}
	return defaultTokenTTL
}
