package google

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/teemow/calsheet/internal/logging"
)

// InteractiveAuthenticator runs the consent flow on a terminal.
//
// The first BeginAuth call succeeds immediately when a token is already
// stored. Every later call means the stored credential was rejected, so the
// user is asked to log in again.
type InteractiveAuthenticator struct {
	oauth   *OAuth
	account string
	in      *bufio.Reader
	out     io.Writer
	used    atomic.Bool
}

// NewInteractiveAuthenticator creates an authenticator reading codes from in
// and writing prompts to out.
func NewInteractiveAuthenticator(oauth *OAuth, account string, in io.Reader, out io.Writer) *InteractiveAuthenticator {
	return &InteractiveAuthenticator{
		oauth:   oauth,
		account: account,
		in:      bufio.NewReader(in),
		out:     out,
	}
}

// BeginAuth implements orchestrator.Authenticator.
func (a *InteractiveAuthenticator) BeginAuth(ctx context.Context) error {
	if !a.used.Swap(true) && a.oauth.HasTokenForAccount(a.account) {
		return nil
	}
	return a.Login(ctx)
}

// Login prompts for a new authorization code even when a token is stored.
func (a *InteractiveAuthenticator) Login(ctx context.Context) error {
	fmt.Fprintf(a.out, "Visit this URL to authorize calsheet for account %q:\n\n%s\n\nEnter the authorization code: ",
		a.account, a.oauth.GetAuthURLForAccount(a.account))

	code, err := readLine(ctx, a.in)
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	if err := a.oauth.SaveTokenForAccount(ctx, a.account, code); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Authorization saved.")
	return nil
}

// readLine reads one trimmed line, giving up when ctx is done.
func readLine(ctx context.Context, r *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := r.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{strings.TrimSpace(line), err}
	}()

	select {
	case res := <-ch:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// PendingAuthenticator waits for an authorization code submitted out of band,
// typically through the google_save_auth_code MCP tool.
type PendingAuthenticator struct {
	oauth   *OAuth
	account string
	logger  *slog.Logger
	used    atomic.Bool

	mu    sync.Mutex
	saved chan struct{}
	// waiters counts BeginAuth calls blocked on saved.
	waiters int
}

// NewPendingAuthenticator creates a PendingAuthenticator for account.
func NewPendingAuthenticator(oauth *OAuth, account string, logger *slog.Logger) *PendingAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingAuthenticator{
		oauth:   oauth,
		account: account,
		logger:  logging.WithAccount(logger, account),
		saved:   make(chan struct{}),
	}
}

// BeginAuth implements orchestrator.Authenticator. It blocks until
// SaveTokenForAccount has stored a new token or ctx is done.
func (a *PendingAuthenticator) BeginAuth(ctx context.Context) error {
	if !a.used.Swap(true) && a.oauth.HasTokenForAccount(a.account) {
		return nil
	}

	a.mu.Lock()
	saved := a.saved
	a.waiters++
	a.mu.Unlock()

	a.logger.Warn("Google authorization required; submit the code with google_save_auth_code",
		"auth_url", a.oauth.GetAuthURLForAccount(a.account))

	select {
	case <-saved:
		return nil
	case <-ctx.Done():
		a.mu.Lock()
		// A save that raced the cancellation already cleared the count.
		if a.saved == saved && a.waiters > 0 {
			a.waiters--
		}
		a.mu.Unlock()
		return ctx.Err()
	}
}

// Waiting reports whether a login is outstanding.
func (a *PendingAuthenticator) Waiting() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waiters > 0
}

// AuthURL returns the consent URL of the account.
func (a *PendingAuthenticator) AuthURL() string {
	return a.oauth.GetAuthURLForAccount(a.account)
}

// SaveTokenForAccount exchanges code, stores the token and releases a
// pending BeginAuth.
func (a *PendingAuthenticator) SaveTokenForAccount(ctx context.Context, code string) error {
	if err := a.oauth.SaveTokenForAccount(ctx, a.account, code); err != nil {
		return err
	}

	a.mu.Lock()
	close(a.saved)
	a.saved = make(chan struct{})
	a.waiters = 0
	a.mu.Unlock()

	a.logger.Info("Google authorization saved")
	return nil
}
