package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"lmsgate/internal/gateway"
	"lmsgate/pkg/logging"
)

// Backend endpoint paths, relative to /api/.
const (
	PathLogin      = "auth/login"
	PathMe         = "auth/me"
	PathRefresh    = "auth/refresh"
	PathVerify2FA  = "2fa/verify"
	PathSetup2FA   = "user2fa/setup"
	PathEnable2FA  = "user2fa/enable"
	PathDisable2FA = "user2fa/disable"
)

// Client is a typed client for the platform's auth and second-factor
// endpoints. Every call runs through the gateway pipeline, so it is rate
// limited and instrumented like any passthrough call.
type Client struct {
	pipeline gateway.Handler
	tokens   oauth2.TokenSource
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTokenSource sets where authenticated calls take their bearer token.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// NewClient creates a client over pipeline.
func NewClient(pipeline gateway.Handler, opts ...ClientOption) *Client {
	c := &Client{pipeline: pipeline}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login submits the password step.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, gateway.NewError(gateway.KindInvalidRequest, nil, "email and password are required")
	}

	var result LoginResult
	if err := c.doJSON(ctx, http.MethodPost, PathLogin, "", LoginRequest{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	if result.Token == "" && !(result.RequiresTwoFactor && result.TempToken != "") {
		return nil, fmt.Errorf("login response carried neither a token nor a second-factor challenge")
	}
	return &result, nil
}

// VerifyTwoFactor submits the second-factor code for a pending challenge.
func (c *Client) VerifyTwoFactor(ctx context.Context, email, tempToken, code string) (*AuthResult, error) {
	var result AuthResult
	req := VerifyRequest{Email: email, TempToken: tempToken, TwoFactorCode: code}
	if err := c.doJSON(ctx, http.MethodPost, PathVerify2FA, "", req, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, fmt.Errorf("verification response carried no token")
	}
	return &result, nil
}

// Me returns the account behind the held token.
func (c *Client) Me(ctx context.Context) (*MeResult, error) {
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	var result MeResult
	if err := c.doJSON(ctx, http.MethodGet, PathMe, token, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Refresh exchanges token for a new one. It satisfies session.TokenRefresher.
func (c *Client) Refresh(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", gateway.NewError(gateway.KindAuthRequired, nil, "no token to refresh")
	}
	var result refreshResult
	if err := c.doJSON(ctx, http.MethodPost, PathRefresh, token, nil, &result); err != nil {
		return "", err
	}
	if result.Token == "" {
		return "", fmt.Errorf("refresh response carried no token")
	}
	return result.Token, nil
}

// SetupTwoFactor starts second-factor enrollment.
func (c *Client) SetupTwoFactor(ctx context.Context) (*SetupResult, error) {
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	var result SetupResult
	if err := c.doJSON(ctx, http.MethodPost, PathSetup2FA, token, struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EnableTwoFactor confirms enrollment with the first code and returns the
// backup codes.
func (c *Client) EnableTwoFactor(ctx context.Context, secret, code string) (*EnableResult, error) {
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	var result EnableResult
	if err := c.doJSON(ctx, http.MethodPost, PathEnable2FA, token, EnableRequest{Secret: secret, Token: code}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DisableTwoFactor turns the second factor off.
func (c *Client) DisableTwoFactor(ctx context.Context, code string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, PathDisable2FA, token, DisableRequest{Token: code}, nil)
}

func (c *Client) bearer() (string, error) {
	if c.tokens == nil {
		return "", gateway.NewError(gateway.KindAuthRequired, nil, "not logged in")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// doJSON sends in as JSON and decodes a 2xx reply into out. Non-2xx replies
// become a KindBackendError wrapping *BackendError.
func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
	}

	req := gateway.NewRequest(method, path, body)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		// Login and challenge verification start a session; never send the old one.
		req.Anonymous = true
	}

	resp, err := c.pipeline.Do(ctx, req)
	if err != nil {
		return err
	}

	if !resp.Success() {
		be := newBackendError(resp.Status, resp.Body)
		logging.Debug("Backend", "%s %s returned %d: %s", method, path, resp.Status, be.Message)
		return &gateway.Error{Kind: gateway.KindBackendError, Err: be}
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
