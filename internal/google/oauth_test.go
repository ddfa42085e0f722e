package google

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newTestOAuth returns an OAuth manager whose token endpoint is served by a
// local test server issuing access tokens "access-1", "access-2", ...
func newTestOAuth(t *testing.T) (*OAuth, *int32) {
	t.Helper()

	var issued int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("grant_type") == "authorization_code" && r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		n := atomic.AddInt32(&issued, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"access-%d","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`, n)
	}))
	t.Cleanup(srv.Close)

	o := NewOAuth(Credentials{ClientID: "client-id", ClientSecret: "secret"}, t.TempDir())
	o.config.Endpoint = oauth2.Endpoint{
		AuthURL:   "https://accounts.example.com/auth",
		TokenURL:  srv.URL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return o, &issued
}

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid work", "work", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenFilePath(t *testing.T) {
	o := NewOAuth(Credentials{}, "/tmp/calsheet-test")
	assert.Equal(t, filepath.Join("/tmp/calsheet-test", "google-work.token"), o.tokenFilePath("work"))
}

func TestGetAuthURLForAccount(t *testing.T) {
	o := NewOAuth(Credentials{ClientID: "client-id"}, t.TempDir())

	u, err := url.Parse(o.GetAuthURLForAccount("work"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "work", q.Get("state"))
	assert.Equal(t, DefaultRedirectURL, q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Contains(t, q.Get("scope"), "https://www.googleapis.com/auth/calendar")
}

func TestSaveTokenForAccount(t *testing.T) {
	o, _ := newTestOAuth(t)
	ctx := context.Background()

	assert.False(t, o.HasTokenForAccount("work"))
	_, err := o.GetTokenForAccount(ctx, "work")
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, o.SaveTokenForAccount(ctx, "work", "good-code"))
	assert.True(t, o.HasTokenForAccount("work"))

	token, err := o.GetTokenForAccount(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
}

func TestSaveTokenForAccount_Errors(t *testing.T) {
	o, _ := newTestOAuth(t)
	ctx := context.Background()

	assert.Error(t, o.SaveTokenForAccount(ctx, "bad account", "good-code"))
	assert.Error(t, o.SaveTokenForAccount(ctx, "work", ""))

	err := o.SaveTokenForAccount(ctx, "work", "wrong-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to exchange auth code")
	assert.False(t, o.HasTokenForAccount("work"))
}

func TestTokenSourceForAccount_PersistsRefresh(t *testing.T) {
	o, _ := newTestOAuth(t)
	ctx := context.Background()

	expired := &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, o.writeToken("default", expired))

	ts, err := o.TokenSourceForAccount(ctx, "default")
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", token.AccessToken)

	stored, err := o.GetTokenForAccount(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "access-1", stored.AccessToken)
}

func TestInteractiveAuthenticator(t *testing.T) {
	o, _ := newTestOAuth(t)
	ctx := context.Background()

	var out strings.Builder
	auth := NewInteractiveAuthenticator(o, "default", strings.NewReader("good-code\n"), &out)

	require.NoError(t, auth.BeginAuth(ctx))
	assert.Contains(t, out.String(), "https://accounts.example.com/auth")
	assert.Contains(t, out.String(), "Authorization saved.")
	assert.True(t, o.HasTokenForAccount("default"))
}

func TestInteractiveAuthenticator_ReusesStoredTokenOnce(t *testing.T) {
	o, _ := newTestOAuth(t)
	ctx := context.Background()
	require.NoError(t, o.SaveTokenForAccount(ctx, "default", "good-code"))

	var out strings.Builder
	auth := NewInteractiveAuthenticator(o, "default", strings.NewReader("wrong-code\n"), &out)

	require.NoError(t, auth.BeginAuth(ctx))
	assert.Empty(t, out.String())

	// The second call means the stored token was rejected.
	err := auth.BeginAuth(ctx)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Enter the authorization code")
}

func TestInteractiveAuthenticator_LoginReplacesStoredToken(t *testing.T) {
	o, _ := newTestOAuth(t)
	ctx := context.Background()
	require.NoError(t, o.SaveTokenForAccount(ctx, "default", "good-code"))
	first, err := o.GetTokenForAccount(ctx, "default")
	require.NoError(t, err)

	var out strings.Builder
	auth := NewInteractiveAuthenticator(o, "default", strings.NewReader("good-code\n"), &out)

	require.NoError(t, auth.Login(ctx))
	assert.Contains(t, out.String(), "Authorization saved.")

	second, err := o.GetTokenForAccount(ctx, "default")
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestPendingAuthenticator(t *testing.T) {
	o, _ := newTestOAuth(t)
	auth := NewPendingAuthenticator(o, "default", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- auth.BeginAuth(ctx) }()

	require.Eventually(t, auth.Waiting, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, auth.AuthURL(), "client_id=client-id")

	require.Error(t, auth.SaveTokenForAccount(ctx, "wrong-code"))
	assert.True(t, auth.Waiting())

	require.NoError(t, auth.SaveTokenForAccount(ctx, "good-code"))
	require.NoError(t, <-done)
	assert.False(t, auth.Waiting())
}

func TestPendingAuthenticator_ContextCancelled(t *testing.T) {
	o, _ := newTestOAuth(t)
	auth := NewPendingAuthenticator(o, "default", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, auth.BeginAuth(ctx), context.Canceled)
	assert.False(t, auth.Waiting())
}

func TestPendingAuthenticator_CancelledWaitIsNotOutstanding(t *testing.T) {
	o, _ := newTestOAuth(t)
	auth := NewPendingAuthenticator(o, "default", nil)

	first, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	second, cancelSecond := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSecond()

	firstDone := make(chan error, 1)
	go func() { firstDone <- auth.BeginAuth(first) }()
	require.Eventually(t, auth.Waiting, 2*time.Second, 10*time.Millisecond)

	// A second login attempt shares the outstanding consent.
	secondDone := make(chan error, 1)
	go func() { secondDone <- auth.BeginAuth(second) }()
	require.Eventually(t, func() bool {
		auth.mu.Lock()
		defer auth.mu.Unlock()
		return auth.waiters == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstDone, context.Canceled)
	assert.True(t, auth.Waiting(), "the second attempt is still waiting")

	cancelSecond()
	assert.ErrorIs(t, <-secondDone, context.Canceled)
	assert.False(t, auth.Waiting())

	// A later code still completes a fresh attempt.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- auth.BeginAuth(ctx) }()
	require.Eventually(t, auth.Waiting, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, auth.SaveTokenForAccount(ctx, "good-code"))
	require.NoError(t, <-done)
	assert.False(t, auth.Waiting())
}
