package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/testerhome/ruby-china-ios/internal/bus"
	"github.com/testerhome/ruby-china-ios/internal/metrics"
)

const eventStreamBuffer = 16

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local control plane, no cross-origin concern
	},
}

type streamEvent struct {
	Kind        string `json:"kind"`
	LoggedIn    bool   `json:"logged_in"`
	UnreadCount int    `json:"unread_count"`
}

// handleEventStream upgrades to a websocket and forwards session events with a
// state snapshot attached. A slow client drops events rather than blocking the
// publisher; the snapshot on the next event catches it up.
func (s *Server) handleEventStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return nil
	}

	events := make(chan streamEvent, eventStreamBuffer)
	forward := func(kind bus.Kind) {
		ev := streamEvent{
			Kind:        string(kind),
			LoggedIn:    s.manager.IsLoggedIn(),
			UnreadCount: s.manager.UnreadCount(),
		}
		select {
		case events <- ev:
		default:
			metrics.EventStreamDropsTotal.Inc()
		}
	}

	subs := make([]bus.Subscription, 0, 3)
	for _, kind := range []bus.Kind{bus.UserChanged, bus.UnreadCountChanged, bus.SignedOut} {
		subs = append(subs, s.bus.Subscribe(kind, forward))
	}
	metrics.EventStreamClients.Inc()
	defer func() {
		for _, sub := range subs {
			s.bus.Unsubscribe(sub)
		}
		metrics.EventStreamClients.Dec()
		conn.Close()
	}()

	// read pump, only to notice the disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
		}
	}
}
