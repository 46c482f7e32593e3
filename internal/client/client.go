// Package client calls the authgate HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ayush/authgate/internal/models"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsAPIError reports whether err is a server reply rather than a transport failure.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// checkResp returns an *APIError if the status is not 2xx.
// The message comes from a JSON "message" or "error" field, or the raw text body.
func checkResp(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &APIError{StatusCode: resp.StatusCode, Message: extractMessage(body)}
}

func extractMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
		return ""
	}
	return strings.TrimSpace(string(body))
}

// LoginResult is the reply to a successful login.
type LoginResult struct {
	Token   string
	Message string
}

// Client calls the auth endpoints over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login calls POST /api/login.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", "", models.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &LoginResult{Token: resp.Token, Message: resp.Message}, nil
}

// Register calls POST /api/register and returns the server message.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/register", models.RegisterRequest{Email: email, Password: password})
}

// SendVerificationCode calls POST /api/send-verification-code.
func (c *Client) SendVerificationCode(ctx context.Context, email string) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/send-verification-code", models.SendCodeRequest{Email: email})
}

// VerifyCode calls POST /api/verify-code.
func (c *Client) VerifyCode(ctx context.Context, email, code string) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/verify-code", models.VerifyCodeRequest{Email: email, Code: code})
}

// VerifyEmail calls GET /api/verify-email with a mailed link token.
func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	return c.message(ctx, http.MethodGet, "/api/verify-email?token="+url.QueryEscape(token), nil)
}

// Me returns the account behind a login token.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/me", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Users lists every account.
func (c *Client) Users(ctx context.Context, token string) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/api/users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) message(ctx context.Context, method, path string, body any) (string, error) {
	var resp models.MessageResponse
	if err := c.do(ctx, method, path, "", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	return nil
}
