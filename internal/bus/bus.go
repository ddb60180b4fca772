// Package bus provides the in-process notification bus for session events.
//
// Delivery guarantees: handlers are invoked exactly once per publish, in
// subscription order, and publishes of the same kind never overlap (FIFO per
// kind). Handlers run on the publisher's goroutine; subscribers that need
// their own execution context must hop themselves.
package bus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/testerhome/ruby-china-ios/internal/metrics"
)

// Kind identifies a session event category.
type Kind string

const (
	// UserChanged fires when the current user is set or refreshed.
	UserChanged Kind = "user_changed"
	// UnreadCountChanged fires when the unread notification count moves.
	UnreadCountChanged Kind = "unread_count_changed"
	// SignedOut fires when an active session ends.
	SignedOut Kind = "signed_out"
)

// Handler receives the kind it was subscribed to. Handlers must not block:
// they hold up every later publish of the same kind.
type Handler func(Kind)

// Subscription identifies a registered handler for Unsubscribe.
type Subscription struct {
	id   uuid.UUID
	kind Kind
}

type entry struct {
	id uuid.UUID
	fn Handler
}

type Bus struct {
	mu       sync.RWMutex
	subs     map[Kind][]entry
	dispatch map[Kind]*sync.Mutex
}

func New() *Bus {
	return &Bus{
		subs:     make(map[Kind][]entry),
		dispatch: make(map[Kind]*sync.Mutex),
	}
}

// Subscribe registers fn for kind and returns a handle for Unsubscribe.
func (b *Bus) Subscribe(kind Kind, fn Handler) Subscription {
	sub := Subscription{id: uuid.New(), kind: kind}

	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], entry{id: sub.id, fn: fn})
	if _, ok := b.dispatch[kind]; !ok {
		b.dispatch[kind] = &sync.Mutex{}
	}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a previously registered handler. Unknown handles are
// ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.subs[sub.kind]
	for i, e := range entries {
		if e.id == sub.id {
			b.subs[sub.kind] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Publish delivers kind to every subscriber registered at call time. The
// per-kind dispatch lock serializes publishes of the same kind, which gives
// FIFO ordering and keeps a handler from observing two overlapping publishes.
func (b *Bus) Publish(kind Kind) {
	b.mu.Lock()
	lock, ok := b.dispatch[kind]
	if !ok {
		lock = &sync.Mutex{}
		b.dispatch[kind] = lock
	}
	snapshot := append([]entry(nil), b.subs[kind]...)
	b.mu.Unlock()

	metrics.BusEventsPublishedTotal.WithLabelValues(string(kind)).Inc()

	lock.Lock()
	defer lock.Unlock()
	for _, e := range snapshot {
		e.fn(kind)
	}
}
