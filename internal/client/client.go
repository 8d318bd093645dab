package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campus/internal/auth"
)

// Session is the authenticated caller of a Client. A nil Session sends anonymous requests.
type Session struct {
	UID   string
	Role  string
	Token string
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == auth.RoleAdmin
}

// APIError is a non-2xx response from the campus API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("campus api %d: %s", e.Status, e.Message)
}

// Client calls the campus HTTP API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session *Session
}

// New creates a client with a 15s request timeout.
func New(baseURL string, session *Session) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Session: session,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Me resolves the session token into the identity the server sees.
func (c *Client) Me(ctx context.Context) (auth.Identity, error) {
	var id auth.Identity
	_, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &id)
	return id, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) (http.Header, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Session != nil && c.Session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Session.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("campus api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resp.Header, readError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.Header, nil
}

func readError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Fields = body.Fields
	} else if s := strings.TrimSpace(string(raw)); s != "" {
		apiErr.Message = s
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
