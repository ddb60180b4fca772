package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/testerhome/ruby-china-ios/internal/bus"
	"github.com/testerhome/ruby-china-ios/internal/config"
	"github.com/testerhome/ruby-china-ios/internal/session"
)

// HealthCheck is a named dependency probe run by the readiness endpoint.
type HealthCheck struct {
	Name string
	Fn   func(context.Context) error
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	manager      *session.Manager
	bus          *bus.Bus
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, manager *session.Manager, b *bus.Bus, checks ...HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:         e,
		config:       cfg,
		manager:      manager,
		bus:          b,
		healthChecks: checks,
		startTime:    time.Now(),
	}
	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
