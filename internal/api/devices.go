package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/testerhome/ruby-china-ios/internal/domain"
)

func (c *Client) deviceForm(token string) url.Values {
	return url.Values{
		"platform": {c.platform},
		"token":    {token},
	}
}

// RegisterDevice records the push token for this installation.
func (c *Client) RegisterDevice(ctx context.Context, token string) error {
	_, err := c.postForm(ctx, devicesPath, c.deviceForm(token))
	return err
}

// UnregisterDevice removes the push token registration.
func (c *Client) UnregisterDevice(ctx context.Context, token string) error {
	form := c.deviceForm(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+devicesPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := c.do(req); err != nil {
		return err
	}
	return nil
}

var _ domain.Gateway = (*Client)(nil)
