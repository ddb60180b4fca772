package api

import (
	"context"

	"github.com/testerhome/ruby-china-ios/internal/domain"
)

// FetchCurrentUser returns the profile behind the current bearer token, or nil
// when the server resolves no user for it.
func (c *Client) FetchCurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	var resp struct {
		User domain.UserProfile `json:"user"`
	}
	if err := c.getJSON(ctx, currentUserPath, &resp); err != nil {
		return nil, err
	}
	if resp.User.ID == 0 {
		return nil, nil
	}
	return &resp.User, nil
}
