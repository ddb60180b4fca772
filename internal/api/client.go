package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/testerhome/ruby-china-ios/internal/domain"
)

const (
	tokenPath       = "/oauth/token"
	currentUserPath = "/api/v3/users/me.json"
	unreadCountPath = "/api/v3/notifications/unread_count.json"
	devicesPath     = "/api/v3/devices.json"

	requestTimeout = 10 * time.Second
)

// Client talks to a ruby-china style forum server. Safe for concurrent use.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	platform     string
	http         *http.Client
	breaker      *gobreaker.CircuitBreaker

	mu     sync.RWMutex
	bearer string
}

func New(baseURL, clientID, clientSecret, platform string) *Client {
	settings := gobreaker.Settings{
		Name:    "unread-count",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		platform:     platform,
		http:         &http.Client{Timeout: requestTimeout},
		breaker:      gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBearerToken updates the Authorization header applied to subsequent
// requests. An empty token clears it.
func (c *Client) SetBearerToken(token string) {
	c.mu.Lock()
	c.bearer = token
	c.mu.Unlock()
}

func (c *Client) bearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

// do sends the request with the current bearer token and returns the response
// body for 2xx statuses. Connection failures and non-2xx statuses come back as
// *domain.RequestError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if token := c.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RequestError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RequestError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}
