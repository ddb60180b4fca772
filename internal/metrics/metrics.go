// Package metrics defines the Prometheus instrumentation for the session core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session lifecycle metrics
var (
	// LoginAttemptsTotal tracks login attempts by result
	// (success, invalid_credentials, profile_missing, network_error, superseded).
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// SessionState reports whether a session is currently active (0/1).
	SessionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_logged_in",
			Help: "Whether a session is currently logged in (0 or 1)",
		},
	)

	// ProfileRefreshesTotal tracks profile refreshes by status (success, missing, error).
	ProfileRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_profile_refreshes_total",
			Help: "Profile refreshes by status",
		},
		[]string{"status"},
	)

	// UnreadPollsTotal tracks unread-count polls by status (success, error).
	UnreadPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_unread_polls_total",
			Help: "Unread notification count polls by status",
		},
		[]string{"status"},
	)

	// UnreadCount is the last reconciled unread notification count.
	UnreadCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_unread_count",
			Help: "Last reconciled unread notification count",
		},
	)

	// DeviceRegistrationsTotal tracks device registration calls by operation
	// (register, unregister) and status (success, error).
	DeviceRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_device_registrations_total",
			Help: "Device registration calls by operation and status",
		},
		[]string{"operation", "status"},
	)
)

// Event delivery metrics
var (
	// BusEventsPublishedTotal tracks notification bus publishes by kind.
	BusEventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_bus_events_published_total",
			Help: "Notification bus events published by kind",
		},
		[]string{"kind"},
	)

	// EventStreamClients tracks connected websocket event stream clients.
	EventStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_event_stream_clients",
			Help: "Connected websocket event stream clients",
		},
	)

	// EventStreamDropsTotal tracks events dropped because a stream client was slow.
	EventStreamDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_event_stream_drops_total",
			Help: "Events dropped because a websocket client was too slow",
		},
	)
)
