package authsdk

import (
	"context"
	"net/http"
	"strings"
)

// ConfirmSignUp confirms a pending registration with the code sent to the user.
func (c *Client) ConfirmSignUp(ctx context.Context, username, code string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(code) == "" {
		return NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "username and code are required")
	}
	return c.postAccount(ctx, orDefault(c.ConfirmSignUpPath, DefaultConfirmSignUpPath), ConfirmSignUpRequest{
		ClientID: c.ClientID,
		Username: username,
		Code:     code,
	})
}

// ForgotPassword starts the password reset flow for username.
func (c *Client) ForgotPassword(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
	}
	return c.postAccount(ctx, orDefault(c.ForgotPasswordPath, DefaultForgotPasswordPath), ForgotPasswordRequest{
		ClientID: c.ClientID,
		Username: username,
	})
}

func (c *Client) postAccount(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPost, path, body, http.StatusNoContent, nil)
}
