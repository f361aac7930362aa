// Package token manages the OAuth credential lifecycle: expiry checks and
// single-flight refresh exchanges.
package token

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"webmail_client/core/domain"
	"webmail_client/core/port/out"
	"webmail_client/pkg/apperr"
	"webmail_client/pkg/logger"

	"golang.org/x/oauth2"
)

// SafetyMargin is the local expiry threshold, kept under the provider's
// 60-minute hard expiry so a token is never presented right at the edge.
const SafetyMargin = 55 * time.Minute

// Manager decides whether the held credential is still usable and refreshes
// it when it is not. Refresh is single-flight: concurrent callers racing the
// expiry check share one exchange instead of issuing duplicates.
type Manager struct {
	store      out.CredentialStore
	oauth      *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
	log        *logger.Logger

	// exchange performs the refresh-token exchange. Swappable in tests.
	exchange func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	mu      sync.Mutex
	pending *pendingRefresh
}

type pendingRefresh struct {
	done  chan struct{}
	token string
	err   error
}

// NewManager creates a token lifecycle manager.
func NewManager(store out.CredentialStore, oauth *oauth2.Config, httpClient *http.Client, log *logger.Logger) *Manager {
	m := &Manager{
		store:      store,
		oauth:      oauth,
		httpClient: httpClient,
		now:        time.Now,
		log:        log.WithField("component", "token_manager"),
	}
	m.exchange = m.exchangeRefreshToken
	return m
}

// IsExpired is a pure check with no side effect: true when no issue
// timestamp is stored, or when the token age exceeds the safety margin.
// Ages in [0, SafetyMargin] inclusive are not expired.
func (m *Manager) IsExpired() bool {
	cred := domain.Credential{IssuedAtMillis: m.store.Timestamp(context.Background())}
	if cred.IssuedAt().IsZero() {
		return true
	}
	return cred.Age(m.now()) > SafetyMargin
}

// ValidToken returns the stored access token if it is still fresh, otherwise
// performs a refresh exchange and stores the result before returning it.
// Failure means the session is invalid; it is not retried here.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	if tok := m.store.Get(ctx, domain.CredentialAccess); tok != "" && !m.IsExpired() {
		return tok, nil
	}
	return m.refresh(ctx)
}

// refresh deduplicates concurrent refresh attempts: the first caller runs
// the exchange, the rest await its result.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if p := m.pending; p != nil {
		m.mu.Unlock()
		select {
		case <-p.done:
			return p.token, p.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	p := &pendingRefresh{done: make(chan struct{})}
	m.pending = p
	m.mu.Unlock()

	p.token, p.err = m.doRefresh(ctx)
	close(p.done)

	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()

	return p.token, p.err
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	refreshToken := m.store.Get(ctx, domain.CredentialRefresh)
	if refreshToken == "" {
		return "", apperr.TokenExpired(errors.New("no refresh token available"))
	}

	newTok, err := m.exchange(ctx, refreshToken)
	if err != nil {
		m.log.WithError(err).Error("refresh exchange failed")
		return "", apperr.TokenExpired(err)
	}

	m.store.Store(ctx, domain.CredentialAccess, newTok.AccessToken)
	m.store.SetTimestamp(ctx, m.now().UnixMilli())
	// The provider may rotate the refresh token; keep the new one when it does.
	if newTok.RefreshToken != "" && newTok.RefreshToken != refreshToken {
		m.store.Store(ctx, domain.CredentialRefresh, newTok.RefreshToken)
	}

	m.log.Info("access token refreshed")
	return newTok.AccessToken, nil
}

func (m *Manager) exchangeRefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}
	src := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return src.Token()
}

// StoreInitial persists a freshly exchanged token pair (OAuth callback path).
func (m *Manager) StoreInitial(ctx context.Context, tok *oauth2.Token) {
	m.store.Store(ctx, domain.CredentialAccess, tok.AccessToken)
	if tok.RefreshToken != "" {
		m.store.Store(ctx, domain.CredentialRefresh, tok.RefreshToken)
	}
	m.store.SetTimestamp(ctx, m.now().UnixMilli())
}

// Clear drops the whole credential set (sign-out).
func (m *Manager) Clear(ctx context.Context) {
	m.store.ClearAll(ctx)
}

// HasSession reports whether any access credential is present, fresh or not.
func (m *Manager) HasSession(ctx context.Context) bool {
	return m.store.Get(ctx, domain.CredentialAccess) != "" ||
		m.store.Get(ctx, domain.CredentialRefresh) != ""
}

var _ out.TokenSource = (*Manager)(nil)
