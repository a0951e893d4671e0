package client

import (
	"context"
	"errors"
	"sync"
)

// ErrNoRefreshToken is returned when a refresh is needed but no refresh
// token is held.
var ErrNoRefreshToken = errors.New("not logged in")

// Tokens is an access and refresh token pair.
type Tokens struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
}

// RefreshFunc exchanges a refresh token for a new pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// TokenProvider holds the session tokens of one client. It refreshes only
// when the server rejects the access token, never on a timer.
type TokenProvider struct {
	mu       sync.RWMutex
	tokens   Tokens
	onChange func(Tokens)

	// refreshMu serializes refreshes so a burst of 401s rotates once.
	refreshMu sync.Mutex
	refresh   RefreshFunc
}

// NewTokenProvider returns a provider starting from initial. onChange, when
// set, is called with every new pair, for example to persist it.
func NewTokenProvider(initial Tokens, onChange func(Tokens)) *TokenProvider {
	return &TokenProvider{tokens: initial, onChange: onChange}
}

// AccessToken returns the current access token, or "".
func (p *TokenProvider) AccessToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokens.AccessToken
}

// Tokens returns a copy of the current pair.
func (p *TokenProvider) Tokens() Tokens {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokens
}

// Set replaces the pair, for example after login.
func (p *TokenProvider) Set(t Tokens) {
	p.mu.Lock()
	p.tokens = t
	onChange := p.onChange
	p.mu.Unlock()

	if onChange != nil {
		onChange(t)
	}
}

// Clear forgets both tokens.
func (p *TokenProvider) Clear() { p.Set(Tokens{}) }

func (p *TokenProvider) setRefreshFunc(fn RefreshFunc) {
	p.refreshMu.Lock()
	p.refresh = fn
	p.refreshMu.Unlock()
}

// Refresh rotates the pair if stale is still the current access token. A
// caller that lost the race gets the pair another caller fetched. A rejected
// refresh token clears the provider.
func (p *TokenProvider) Refresh(ctx context.Context, stale string) (string, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	current := p.Tokens()
	if current.AccessToken != stale && current.AccessToken != "" {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" || p.refresh == nil {
		return "", ErrNoRefreshToken
	}

	next, err := p.refresh(ctx, current.RefreshToken)
	if err != nil {
		return "", err
	}
	p.Set(next)
	return next.AccessToken, nil
}
