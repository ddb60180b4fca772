package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/testerhome/ruby-china-ios/internal/domain"
)

// ExchangeCredentials performs the resource-owner password grant and returns
// the bearer token. A 400 or 401 with an OAuth error body becomes a
// *domain.AuthError; everything else non-2xx is a *domain.RequestError.
func (c *Client) ExchangeCredentials(ctx context.Context, username, password string) (string, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"username":      {username},
		"password":      {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.RequestError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		var oauthErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
			return "", &domain.AuthError{Code: oauthErr.Error, Description: oauthErr.Description}
		}
		return "", &domain.AuthError{Code: "invalid_grant"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.RequestError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &domain.RequestError{Status: resp.StatusCode, Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if tokenResp.AccessToken == "" {
		return "", &domain.RequestError{Status: resp.StatusCode, Err: errors.New("token response missing access_token")}
	}
	return tokenResp.AccessToken, nil
}
