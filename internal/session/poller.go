package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// UnreadPoller periodically reconciles the unread notification count, standing
// in for the foreground/push triggers a mobile shell would provide.
type UnreadPoller struct {
	manager  *Manager
	clock    clockwork.Clock
	interval time.Duration
}

func NewUnreadPoller(manager *Manager, clock clockwork.Clock, interval time.Duration) *UnreadPoller {
	return &UnreadPoller{
		manager:  manager,
		clock:    clock,
		interval: interval,
	}
}

// Run polls until the context is cancelled. Poll failures are non-fatal; the
// next tick simply tries again.
func (p *UnreadPoller) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("Unread count poller started", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Unread count poller stopped")
			return
		case <-ticker.Chan():
			if err := p.manager.RefreshUnreadCount(ctx); err != nil {
				slog.Debug("Unread count poll failed", "error", err)
			}
		}
	}
}
