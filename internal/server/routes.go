package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	loginRatePerSecond = 1
	loginBurst         = 5
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Session lifecycle (login is rate limited to slow brute force)
	s.echo.POST("/api/session", s.handleLogin, newRateLimiter(loginRatePerSecond, loginBurst))
	s.echo.DELETE("/api/session", s.handleLogout)
	s.echo.GET("/api/session", s.handleSessionState)
	s.echo.POST("/api/session/refresh", s.handleRefresh)

	// Device push registration
	s.echo.PUT("/api/device", s.handleSetDeviceToken)

	// Event stream
	s.echo.GET("/ws/events", s.handleEventStream)
}
