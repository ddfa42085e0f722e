package google

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth token sources for Google APIs.
type TokenProvider interface {
	// TokenSourceForAccount returns a token source for the specified account.
	TokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error)

	// HasTokenForAccount checks if a token exists for the specified account.
	HasTokenForAccount(account string) bool
}

var _ TokenProvider = (*OAuth)(nil)

// persistingTokenSource writes a token back whenever the base source
// returns a different access token.
type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	last    *oauth2.Token
	persist func(*oauth2.Token) error
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || token.AccessToken != s.last.AccessToken {
		// A failed write only costs a refresh on the next start.
		_ = s.persist(token)
		s.last = token
	}
	return token, nil
}
