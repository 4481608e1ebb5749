// Package provider talks to the hosted identity platform (GoTrue auth API and
// the PostgREST data API) that owns user accounts and credential checks.
package provider

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

	"github.com/BradenHooton/irdebg/internal/models"
)

const defaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a provider response is read
const maxBodyBytes = 1 << 20

// User is the account record returned by the auth API
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Session is an authenticated session issued by the auth API
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Client is an HTTP client for the identity provider
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates a new provider Client. baseURL is the project URL without a trailing path.
func NewClient(baseURL, anonKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SignInWithPassword exchanges email and password for a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignUp creates an account. metadata is stored as the user's user_metadata.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*User, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}

	// The response is either a bare user (confirmation pending) or a session with a nested user
	var raw struct {
		User
		NestedUser *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &raw); err != nil {
		return nil, err
	}

	if raw.ID == "" && raw.NestedUser != nil {
		return raw.NestedUser, nil
	}
	user := raw.User
	return &user, nil
}

// SendPhoneOTP asks the provider to text a one-time code to phone
func (c *Client) SendPhoneOTP(ctx context.Context, phone string) error {
	body := map[string]any{"phone": phone, "create_user": false}
	return c.do(ctx, http.MethodPost, "/auth/v1/otp", "", body, nil)
}

// VerifyPhoneOTP exchanges a texted code for a session
func (c *Client) VerifyPhoneOTP(ctx context.Context, phone, code string) (*Session, error) {
	body := map[string]string{"phone": phone, "token": code, "type": "sms"}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ResetPasswordForEmail sends a recovery email that links back to redirectTo
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password for the user owning accessToken
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) error {
	return c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, map[string]string{"password": password}, nil)
}

// SignOut revokes the session owning accessToken
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// ProfileRole reads the role column of the user's profile row.
// It returns models.ErrNotFound when the user has no profile.
func (c *Client) ProfileRole(ctx context.Context, accessToken, userID string) (string, error) {
	query := url.Values{}
	query.Set("id", "eq."+userID)
	query.Set("select", "role")

	var rows []struct {
		Role *string `json:"role"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profiles?"+query.Encode(), accessToken, nil, &rows); err != nil {
		return "", err
	}

	if len(rows) == 0 || rows[0].Role == nil || *rows[0].Role == "" {
		return "", models.ErrNotFound
	}
	return *rows[0].Role, nil
}

// do sends one JSON request. A non-empty accessToken authenticates as that user,
// otherwise the anon key is used.
func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal provider request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create provider request: %w", err)
	}

	bearer := c.anonKey
	if accessToken != "" {
		bearer = accessToken
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", models.ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		return classifyError(resp.StatusCode, eb)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", models.ErrProviderUnavailable, err)
	}
	return nil
}
