package graph

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const graphScope = "https://graph.microsoft.com/.default"

// tokenExpiryBuffer is how long before its expiry a cached token is replaced.
const tokenExpiryBuffer = 5 * time.Minute

// tokenSource hands out client-credentials access tokens for Graph. A warm
// function instance reuses the cached token across invocations.
type tokenSource struct {
	mu     sync.Mutex
	conf   *clientcredentials.Config
	client *http.Client
	cached oauth2.TokenSource
}

func newTokenSource(tokenURL, clientID, clientSecret string, client *http.Client) *tokenSource {
	return &tokenSource{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: client,
	}
}

// Token returns a valid access token, requesting a new one when the cached
// token is missing or close to expiry. Safe for concurrent use.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ts.mu.Lock()
	if ts.cached == nil {
		// The cached source outlives any single request context.
		base := context.WithValue(context.Background(), oauth2.HTTPClient, ts.client)
		ts.cached = oauth2.ReuseTokenSourceWithExpiry(nil, ts.conf.TokenSource(base), tokenExpiryBuffer)
	}
	src := ts.cached
	ts.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to acquire token: %w", err)
	}
	return tok.AccessToken, nil
}

// Invalidate discards the cached token so the next Token call acquires a
// new one. Used when the API rejects the token with 401.
func (ts *tokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.cached = nil
}
