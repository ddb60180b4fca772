package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/testerhome/ruby-china-ios/internal/metrics"
)

const (
	deviceSubmitAttempts = 3
	deviceSubmitBackoff  = 5 * time.Second
	deviceSubmitTimeout  = 15 * time.Second
)

// submitDeviceToken registers the push token with a small bounded retry.
// Nothing user-facing waits on it, so failures are logged and dropped. Each
// attempt re-checks that the session epoch and token are still the ones it was
// started for.
func (m *Manager) submitDeviceToken(token string, epoch uint64) {
	backoff := deviceSubmitBackoff
	for attempt := 1; attempt <= deviceSubmitAttempts; attempt++ {
		m.mu.Lock()
		stale := m.epoch != epoch || m.deviceToken != token
		m.mu.Unlock()
		if stale {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), deviceSubmitTimeout)
		err := m.gateway.RegisterDevice(ctx, token)
		cancel()

		if err == nil {
			metrics.DeviceRegistrationsTotal.WithLabelValues("register", "success").Inc()
			slog.Info("Device token registered")
			return
		}
		metrics.DeviceRegistrationsTotal.WithLabelValues("register", "error").Inc()
		slog.Warn("Device registration failed", "attempt", attempt, "error", err)

		if attempt < deviceSubmitAttempts {
			m.clock.Sleep(backoff)
			backoff *= 2
		}
	}
}
