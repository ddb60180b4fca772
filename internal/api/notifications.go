package api

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"

	"github.com/testerhome/ruby-china-ios/internal/domain"
)

// FetchUnreadCount returns the unread notification count. The call runs behind
// a circuit breaker so a flapping server is not hammered by the poll loop; a
// rejected call surfaces as a *domain.RequestError like any other transport
// failure.
func (c *Client) FetchUnreadCount(ctx context.Context) (int, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		var resp struct {
			Count int `json:"count"`
		}
		if err := c.getJSON(ctx, unreadCountPath, &resp); err != nil {
			return 0, err
		}
		return resp.Count, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, &domain.RequestError{Err: err}
		}
		return 0, err
	}
	return result.(int), nil
}
