/*
Package authsdk provides a client for the OAuth2 identity provider that
issues session tokens.

# Overview

Client performs the two token grants a session needs, the resource owner
password grant at sign-in and the refresh grant afterwards, through
golang.org/x/oauth2. It also exposes the account confirmation calls that
complete a registration or start a password reset.

	client := authsdk.NewClient("https://idp.example.com", "mobile-app")

	tokens, err := client.PasswordGrant(ctx, "alice", "correct horse")
	if err != nil {
		var oauthErr *authsdk.OAuth2Error
		if errors.As(err, &oauthErr) && oauthErr.Code == authsdk.ErrorCodeInvalidGrant {
			// wrong credentials
		}
	}

	fresh, err := client.RefreshGrant(ctx, tokens.RefreshToken)

# Errors

Every failure returned by the provider is an *OAuth2Error carrying the HTTP
status and the RFC 6749 error code. errors.Is matches predefined errors by
code:

	if errors.Is(err, authsdk.ErrInvalidGrant) {
		// refresh token revoked
	}

Transport failures are returned wrapped and are not OAuth2Errors.

# Health

GetLiveness and GetReadiness query the /livez and /readyz endpoints served
by sessiond, and by any service that uses the same HealthResponse shape.
*/
package authsdk
