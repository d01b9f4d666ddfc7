package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// PasswordGrant exchanges a username and password for tokens using the
// resource owner password credentials grant.
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (*Tokens, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "username and password are required")
	}

	//nolint:staticcheck // the password grant is what the identity provider exposes.
	tok, err := c.oauth2Config().PasswordCredentialsToken(c.oauth2Context(ctx), username, password)
	if err != nil {
		return nil, translateTokenError(err)
	}
	return tokensFrom(tok), nil
}

// RefreshGrant requests new tokens using a refresh token. Providers that do
// not rotate refresh tokens return the one that was sent.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "refresh token is required")
	}

	// An empty access token forces the token source to refresh.
	src := c.oauth2Config().TokenSource(c.oauth2Context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, translateTokenError(err)
	}
	return tokensFrom(tok), nil
}

func tokensFrom(tok *oauth2.Token) *Tokens {
	out := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = id
	}
	return out
}

// translateTokenError maps x/oauth2 errors onto OAuth2Error so callers see
// a single error type.
func translateTokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("token request failed: %w", err)
	}

	status := http.StatusBadRequest
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if re.ErrorCode != "" {
		return NewOAuth2Error(status, re.ErrorCode, re.ErrorDescription)
	}
	if re.Response != nil {
		return errorFromBody(re.Response.StatusCode, re.Body)
	}
	return NewOAuth2Error(status, ErrorCodeServerError, err.Error())
}
