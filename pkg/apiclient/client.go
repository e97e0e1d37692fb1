package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const refreshPath = "/api/auth/token/refresh"

// Endpoints where a 401 is an answer, not a stale access token. The client
// never tries to refresh around these.
var noRefreshPaths = map[string]bool{
	"/api/auth/login":          true,
	"/api/auth/register":       true,
	"/api/auth/password-reset": true,
	refreshPath:                true,
}

// APIError carries the server's error envelope alongside the HTTP status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the auth API. It attaches the stored access
// token to every request and, on a 401, refreshes the session and retries
// the request exactly once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      SessionStore

	// refreshMu serializes refreshes so concurrent 401s rotate once.
	refreshMu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithSessionStore(store SessionStore) Option {
	return func(c *Client) { c.store = store }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SessionStore() SessionStore {
	return c.store
}

// Do sends a JSON request and decodes a 2xx response into out (which may be
// nil). Non-2xx responses come back as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	session, held := c.store.Load()
	resp, err := c.send(ctx, method, path, payload, session.AccessToken)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && held && !noRefreshPaths[path] {
		originalErr := readAPIError(resp)

		newAccess, refreshErr := c.refreshSession(ctx, session.AccessToken)
		if refreshErr != nil {
			c.store.Clear()
			return originalErr
		}

		resp, err = c.send(ctx, method, path, payload, newAccess)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, accessToken string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.httpClient.Do(req)
}

// refreshSession rotates the stored token pair. staleAccess is the access
// token that just failed; if another goroutine already refreshed, the stored
// pair is newer and is used as-is.
func (c *Client) refreshSession(ctx context.Context, staleAccess string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	session, held := c.store.Load()
	if !held {
		return "", &APIError{StatusCode: http.StatusUnauthorized, Message: "no session"}
	}
	if session.AccessToken != staleAccess {
		return session.AccessToken, nil
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": session.RefreshToken})
	if err != nil {
		return "", err
	}

	resp, err := c.send(ctx, http.MethodPost, refreshPath, payload, "")
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp)
	}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return "", err
	}

	c.store.Save(Session{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	return pair.AccessToken, nil
}

func readAPIError(resp *http.Response) error {
	defer resp.Body.Close()

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error == "" {
		envelope.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
}
