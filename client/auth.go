package client

import (
	"context"
	"net/http"
)

type authResult struct {
	User *User `json:"user"`
}

// Register creates an account and signs it in. The session rides the cookie
// jar from here on, and any cart built anonymously carries over.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var result authResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", requestOptions{}, req, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Login authenticates the credentials. The rotated session cookie lands in
// the jar; call Token afterwards if header auth is needed.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*User, error) {
	var result authResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", requestOptions{}, req, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Logout destroys the server-side session and drops the local bearer token.
// Logging out without a live session is not an error.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", requestOptions{}, nil, nil); err != nil {
		return err
	}
	c.ClearToken()
	return nil
}

// Me fetches the authenticated account's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", requestOptions{}, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Token mints a bearer token from the live session and installs it on the
// client, so later calls authenticate by header as well as by cookie. The
// token is returned for callers that manage expiry themselves.
func (c *Client) Token(ctx context.Context) (*Token, error) {
	var token Token
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", requestOptions{}, nil, &token); err != nil {
		return nil, err
	}
	c.SetToken(token.AccessToken)
	return &token, nil
}
