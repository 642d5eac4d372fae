package businessflow

import (
	"sync"
	"time"
)

type SessionEventType string

const (
	SessionEventSignedIn  SessionEventType = "signed_in"
	SessionEventSignedOut SessionEventType = "signed_out"
	SessionEventExpired   SessionEventType = "session_expired"
	SessionEventRefreshed SessionEventType = "session_refreshed"
)

// SessionEvent describes a change of a customer's authentication state
type SessionEvent struct {
	Type          SessionEventType
	CustomerID    uint
	CorrelationID string
	// Source names the operation that produced the event (signup, login, refresh, logout, session)
	Source     string
	Metadata   *ClientMetadata
	OccurredAt time.Time
}

const defaultSubscriberBuffer = 64

// SessionEventBus fans session events out to independent subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type SessionEventBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan SessionEvent
	buffer int
	closed bool
}

func NewSessionEventBus(buffer int) *SessionEventBus {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &SessionEventBus{
		subs:   make(map[uint64]chan SessionEvent),
		buffer: buffer,
	}
}

// Subscribe returns a channel receiving every event published after this call
// and a cancel func that unsubscribes and closes the channel.
func (b *SessionEventBus) Subscribe() (<-chan SessionEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan SessionEvent, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *SessionEventBus) Publish(ev SessionEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	sessionEventsTotal.WithLabelValues(string(ev.Type)).Inc()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			sessionEventsDropped.Inc()
		}
	}
}

// Close closes every subscriber channel; later publishes are ignored.
func (b *SessionEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
