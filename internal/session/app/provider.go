package app

import (
	"context"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/pkg/authsdk"
	"github.com/aussiebroadwan/sessioncache/pkg/jwtx"
)

// credentialProvider adapts the identity provider client to the refresher.
type credentialProvider struct {
	client *authsdk.Client
}

func newCredentialProvider(cfg ProviderConfig) *credentialProvider {
	client := authsdk.NewClient(cfg.BaseURL, cfg.ClientID)
	client.ClientSecret = cfg.ClientSecret
	client.Scopes = cfg.Scopes
	if cfg.TokenPath != "" {
		client.TokenPath = cfg.TokenPath
	}
	if cfg.ConfirmSignUpPath != "" {
		client.ConfirmSignUpPath = cfg.ConfirmSignUpPath
	}
	if cfg.ForgotPasswordPath != "" {
		client.ForgotPasswordPath = cfg.ForgotPasswordPath
	}
	if cfg.ReadinessPath != "" {
		client.ReadinessPath = cfg.ReadinessPath
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	return &credentialProvider{client: client}
}

func (p *credentialProvider) SignIn(ctx context.Context, username, password string) (domain.TokenSet, error) {
	tokens, err := p.client.PasswordGrant(ctx, username, password)
	if err != nil {
		return domain.TokenSet{}, err
	}
	return tokenSet(tokens), nil
}

func (p *credentialProvider) RefreshTokens(ctx context.Context, refreshToken string) (domain.TokenSet, error) {
	tokens, err := p.client.RefreshGrant(ctx, refreshToken)
	if err != nil {
		return domain.TokenSet{}, err
	}
	return tokenSet(tokens), nil
}

func (p *credentialProvider) ConfirmSignUp(ctx context.Context, username, code string) error {
	return p.client.ConfirmSignUp(ctx, username, code)
}

func (p *credentialProvider) ForgotPassword(ctx context.Context, username string) error {
	return p.client.ForgotPassword(ctx, username)
}

// Ready reports whether the identity provider answers its readiness check.
func (p *credentialProvider) Ready(ctx context.Context) error {
	_, err := p.client.GetReadiness(ctx)
	return err
}

// tokenSet falls back to the access token's exp claim when the provider
// omitted expires_in.
func tokenSet(t *authsdk.Tokens) domain.TokenSet {
	ts := domain.TokenSet{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		IDToken:      t.IDToken,
		ExpiresAt:    t.ExpiresAt.UTC(),
	}
	if t.ExpiresAt.IsZero() {
		if exp, ok := jwtx.ExpiresAt(t.AccessToken); ok {
			ts.ExpiresAt = exp
		}
	}
	return ts
}
