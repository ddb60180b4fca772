package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/testerhome/ruby-china-ios/internal/domain"
	"github.com/testerhome/ruby-china-ios/internal/version"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	LoggedIn    bool                `json:"logged_in"`
	User        *domain.UserProfile `json:"user,omitempty"`
	UnreadCount int                 `json:"unread_count"`
}

func (s *Server) sessionState() sessionResponse {
	return sessionResponse{
		LoggedIn:    s.manager.IsLoggedIn(),
		User:        s.manager.CurrentUser(),
		UnreadCount: s.manager.UnreadCount(),
	}
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username and password are required"})
	}

	user, err := s.manager.Login(c.Request().Context(), req.Username, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, sessionResponse{
			LoggedIn:    true,
			User:        user,
			UnreadCount: s.manager.UnreadCount(),
		})
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, domain.ErrLoginInFlight):
		return c.JSON(http.StatusConflict, map[string]string{"error": "another login attempt is in flight"})
	case errors.Is(err, domain.ErrSuperseded):
		return c.JSON(http.StatusConflict, map[string]string{"error": "login was superseded by a logout"})
	case errors.Is(err, domain.ErrProfileMissing):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "authenticated but no user profile returned"})
	default:
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "login failed: " + err.Error()})
	}
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.manager.Logout(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSessionState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sessionState())
}

// handleRefresh kicks off a background reconciliation against the server. The
// result lands on the event stream rather than in this response.
func (s *Server) handleRefresh(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	go func() {
		defer cancel()
		s.manager.Reconcile(ctx)
	}()
	return c.JSON(http.StatusAccepted, map[string]string{"status": "refreshing"})
}

type deviceRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleSetDeviceToken(c echo.Context) error {
	var req deviceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "token is required"})
	}
	s.manager.SetDeviceToken(req.Token)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	for _, check := range s.healthChecks {
		if err := check.Fn(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.Name,
				"error":        err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"version": version.Version})
}
