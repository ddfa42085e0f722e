package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultAccount is used when no account is configured.
const DefaultAccount = "default"

// DefaultRedirectURL is the loopback redirect for installed applications.
// The browser lands on a page that fails to load; the code is taken from its
// address bar.
const DefaultRedirectURL = "http://localhost"

// ErrNoToken is returned when no token is stored for an account.
var ErrNoToken = errors.New("no Google OAuth token found")

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Credentials identify the OAuth client registered in the Google Cloud console.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuth manages the consent flow and the stored tokens of every account.
type OAuth struct {
	config   *oauth2.Config
	tokenDir string
}

// NewOAuth creates an OAuth manager storing tokens in tokenDir. An empty
// tokenDir selects DefaultTokenDir().
func NewOAuth(creds Credentials, tokenDir string) *OAuth {
	if tokenDir == "" {
		tokenDir = DefaultTokenDir()
	}
	redirect := creds.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}

	return &OAuth{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       DefaultOAuthScopes,
		},
		tokenDir: tokenDir,
	}
}

// Config returns the OAuth2 configuration.
func (o *OAuth) Config() *oauth2.Config {
	return o.config
}

// GetAuthURLForAccount returns the consent URL for account.
func (o *OAuth) GetAuthURLForAccount(account string) string {
	return o.config.AuthCodeURL(account, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// SaveTokenForAccount exchanges an authorization code and stores the token.
func (o *OAuth) SaveTokenForAccount(ctx context.Context, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	if authCode == "" {
		return fmt.Errorf("authorization code must not be empty")
	}

	token, err := o.config.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	return o.writeToken(account, token)
}

// HasTokenForAccount reports whether a token file exists for account.
func (o *OAuth) HasTokenForAccount(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(o.tokenFilePath(account))
	return err == nil
}

// GetTokenForAccount reads the stored token of account.
func (o *OAuth) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(o.tokenFilePath(account))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file for account %s: %w", account, err)
	}
	return &token, nil
}

// TokenSourceForAccount returns a refreshing token source for account.
// Refreshed tokens are written back to disk.
func (o *OAuth) TokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	token, err := o.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		base:    o.config.TokenSource(ctx, token),
		last:    token,
		persist: func(t *oauth2.Token) error { return o.writeToken(account, t) },
	}, nil
}

func (o *OAuth) writeToken(account string, token *oauth2.Token) error {
	if err := os.MkdirAll(o.tokenDir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.WriteFile(o.tokenFilePath(account), data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (o *OAuth) tokenFilePath(account string) string {
	return filepath.Join(o.tokenDir, "google-"+account+".token")
}

// validateAccountName ensures the account name is safe to use in a file name.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// DefaultTokenDir returns the per-user cache directory for calsheet tokens.
func DefaultTokenDir() string {
	return filepath.Join(userCacheDir(), "calsheet")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"LOCALAPPDATA", "TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
