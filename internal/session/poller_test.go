package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testerhome/ruby-china-ios/internal/bus"
)

func TestUnreadPoller_PollsOnEachTick(t *testing.T) {
	f := newFixture(t)
	f.loginAlice(t)
	f.gateway.set(func(g *fakeGateway) { g.unread = 3 })

	poller := NewUnreadPoller(f.manager, f.clock, 2*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	f.clock.BlockUntil(1)
	f.clock.Advance(2 * time.Minute)
	require.Eventually(t, func() bool {
		return f.manager.UnreadCount() == 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, f.events.count(bus.UnreadCountChanged))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancellation")
	}
}

func TestUnreadPoller_SurvivesPollFailures(t *testing.T) {
	f := newFixture(t)
	f.loginAlice(t)
	f.gateway.set(func(g *fakeGateway) { g.unreadErr = assert.AnError })

	poller := NewUnreadPoller(f.manager, f.clock, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	f.clock.BlockUntil(1)
	f.clock.Advance(time.Minute)

	// a failed poll leaves the count alone and the loop alive
	f.gateway.set(func(g *fakeGateway) {
		g.unreadErr = nil
		g.unread = 7
	})
	f.clock.BlockUntil(1)
	f.clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		return f.manager.UnreadCount() == 7
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
