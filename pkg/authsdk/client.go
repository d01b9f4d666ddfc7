package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Default endpoint paths, relative to BaseURL.
const (
	DefaultTokenPath          = "/v1/oauth2/token"
	DefaultConfirmSignUpPath  = "/v1/account/confirm"
	DefaultForgotPasswordPath = "/v1/account/forgot-password"
	DefaultReadinessPath      = "/readyz"
)

// Client is a client for an OAuth2 identity provider. It performs the
// password and refresh grants and the account confirmation flows that the
// session engine needs from its credential provider.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client

	TokenPath          string
	ConfirmSignUpPath  string
	ForgotPasswordPath string
	ReadinessPath      string
}

// NewClient creates a client for a public OAuth2 client id.
func NewClient(baseURL, clientID string) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		ClientID: clientID,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		TokenPath:          DefaultTokenPath,
		ConfirmSignUpPath:  DefaultConfirmSignUpPath,
		ForgotPasswordPath: DefaultForgotPasswordPath,
		ReadinessPath:      DefaultReadinessPath,
	}
}

func (c *Client) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.url(orDefault(c.TokenPath, DefaultTokenPath)),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// oauth2Context makes x/oauth2 use the client's HTTP client.
func (c *Client) oauth2Context(ctx context.Context) context.Context {
	if c.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
