// Package sessiontest provides fixtures shared by the session engine tests.
package sessiontest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Epoch is the fixed start time of fake clocks in tests.
var Epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

var signingKey = []byte("sessiontest-signing-key")

// Token mints an HS256 JWT for subject expiring at exp. The ledger only
// checks structure, so the signature is never verified.
func Token(t testing.TB, subject string, exp time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		ID:        subject + "-" + exp.Format(time.RFC3339Nano),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	require.NoError(t, err)
	return signed
}

// TokenSet mints a full, valid token set for subject.
func TokenSet(t testing.TB, subject string, exp time.Time) domain.TokenSet {
	t.Helper()
	return domain.TokenSet{
		AccessToken:  Token(t, subject, exp),
		RefreshToken: Token(t, subject+"-refresh", exp.Add(24*time.Hour)),
		IDToken:      Token(t, subject, exp),
		ExpiresAt:    exp,
	}
}

// ErrProvider is the default failure returned by Provider.
var ErrProvider = errors.New("sessiontest: provider failure")

// Provider is a scriptable credential provider.
type Provider struct {
	mu sync.Mutex

	// NextRefresh builds the tokens returned by RefreshTokens.
	NextRefresh func(refreshToken string) (domain.TokenSet, error)
	// NextSignIn builds the tokens returned by SignIn.
	NextSignIn func(username, password string) (domain.TokenSet, error)

	// Unready is returned by Ready when set.
	Unready error

	RefreshCalls int
	SignInCalls  int
	Confirmed    []string
	Forgotten    []string
}

func (p *Provider) SignIn(ctx context.Context, username, password string) (domain.TokenSet, error) {
	p.mu.Lock()
	p.SignInCalls++
	next := p.NextSignIn
	p.mu.Unlock()

	if next == nil {
		return domain.TokenSet{}, ErrProvider
	}
	return next(username, password)
}

func (p *Provider) RefreshTokens(ctx context.Context, refreshToken string) (domain.TokenSet, error) {
	p.mu.Lock()
	p.RefreshCalls++
	next := p.NextRefresh
	p.mu.Unlock()

	if next == nil {
		return domain.TokenSet{}, ErrProvider
	}
	return next(refreshToken)
}

func (p *Provider) ConfirmSignUp(ctx context.Context, username, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Confirmed = append(p.Confirmed, username+":"+code)
	return nil
}

func (p *Provider) ForgotPassword(ctx context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Forgotten = append(p.Forgotten, username)
	return nil
}

// Ready implements the provider readiness check.
func (p *Provider) Ready(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Unready
}

// SetUnready makes Ready fail with err, or succeed when err is nil.
func (p *Provider) SetUnready(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Unready = err
}

// Refreshes returns how many refreshes were attempted.
func (p *Provider) Refreshes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.RefreshCalls
}

// Confirmations returns the recorded "username:code" confirmations.
func (p *Provider) Confirmations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Confirmed...)
}

// Resets returns the usernames that asked for a password reset.
func (p *Provider) Resets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Forgotten...)
}

// Fail makes subsequent refreshes fail.
func (p *Provider) Fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NextRefresh = nil
}

// Succeed makes subsequent refreshes succeed with tokens for subject valid
// for ttl after now().
func (p *Provider) Succeed(t testing.TB, subject string, now func() time.Time, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NextRefresh = func(string) (domain.TokenSet, error) {
		return TokenSet(t, subject, now().Add(ttl)), nil
	}
}

// Recorder collects sync events.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *Recorder) Listen(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Last returns the most recent event of typ.
func (r *Recorder) Last(typ domain.EventType) (domain.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == typ {
			return r.events[i], true
		}
	}
	return domain.Event{}, false
}
