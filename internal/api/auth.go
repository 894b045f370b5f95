package api

import (
	"context"
	"net/http"

	"github.com/existflow/taskprox/internal/model"
)

// LoginResult is the token pair issued at login
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, c.authPath("/login"), nil, creds, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{Status: http.StatusOK, Message: "login response carried no token"}
	}
	return &out, nil
}

// Register creates an account. The caller logs in afterwards.
func (c *Client) Register(ctx context.Context, reg model.Registration) (string, error) {
	var out messageReply
	if err := c.do(ctx, http.MethodPost, c.authPath("/register"), nil, reg, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ForgotPassword asks the backend to email a reset link
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageReply
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, c.authPath("/forgot-password"), nil, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ResetPassword sets a new password using the emailed token
func (c *Client) ResetPassword(ctx context.Context, reset model.PasswordReset) (string, error) {
	var out messageReply
	if err := c.do(ctx, http.MethodPost, c.authPath("/reset-password"), nil, reset, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Me returns the signed-in user's profile
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, c.authPath("/me"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile replaces the editable profile fields
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (string, error) {
	var out messageReply
	if err := c.do(ctx, http.MethodPut, c.authPath("/profile"), nil, update, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// DeleteAccount removes the signed-in account
func (c *Client) DeleteAccount(ctx context.Context) (string, error) {
	var out messageReply
	if err := c.do(ctx, http.MethodDelete, c.authPath("/delete"), nil, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
