package businessflow

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torresguilherme/magic-qr-flows/models"
)

func receive(t *testing.T, ch <-chan SessionEvent) SessionEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no session event received")
	}
	return SessionEvent{}
}

func TestSessionEventBusFanOut(t *testing.T) {
	bus := NewSessionEventBus(4)

	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	bus.Publish(SessionEvent{Type: SessionEventSignedIn, CustomerID: 3})

	for _, ch := range []<-chan SessionEvent{first, second} {
		ev := receive(t, ch)
		assert.Equal(t, SessionEventSignedIn, ev.Type)
		assert.Equal(t, uint(3), ev.CustomerID)
		assert.False(t, ev.OccurredAt.IsZero())
	}
}

func TestSessionEventBusOnlyDeliversLaterEvents(t *testing.T) {
	bus := NewSessionEventBus(4)
	bus.Publish(SessionEvent{Type: SessionEventSignedIn, CustomerID: 1})

	ch, cancel := bus.Subscribe()
	defer cancel()
	bus.Publish(SessionEvent{Type: SessionEventSignedOut, CustomerID: 1})

	assert.Equal(t, SessionEventSignedOut, receive(t, ch).Type)
}

func TestSessionEventBusCancelClosesChannel(t *testing.T) {
	bus := NewSessionEventBus(1)
	ch, cancel := bus.Subscribe()

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NotPanics(t, func() { bus.Publish(SessionEvent{Type: SessionEventExpired}) })
}

func TestSessionEventBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewSessionEventBus(1)
	slow, cancelSlow := bus.Subscribe()
	defer cancelSlow()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(SessionEvent{Type: SessionEventRefreshed, CustomerID: uint(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
	assert.Equal(t, uint(0), receive(t, slow).CustomerID)
}

func TestSessionEventBusClose(t *testing.T) {
	bus := NewSessionEventBus(1)
	ch, cancel := bus.Subscribe()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NotPanics(t, cancel)

	late, _ := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestSessionAuditSubscriber(t *testing.T) {
	bus := NewSessionEventBus(8)
	audit := &fakeAuditRepo{}
	stop := StartSessionAuditSubscriber(bus, audit, log.New(io.Discard, "", 0))

	meta := &ClientMetadata{IPAddress: "198.51.100.4", UserAgent: "test", RequestID: "req-9"}
	bus.Publish(SessionEvent{Type: SessionEventSignedIn, Source: "signup", CustomerID: 5, Metadata: meta})
	bus.Publish(SessionEvent{Type: SessionEventSignedIn, Source: "login", CustomerID: 5, Metadata: meta})
	bus.Publish(SessionEvent{Type: SessionEventRefreshed, Source: "refresh", CustomerID: 5})
	bus.Publish(SessionEvent{Type: SessionEventExpired, Source: "session", CustomerID: 5})
	bus.Publish(SessionEvent{Type: SessionEventSignedOut, Source: "logout", CustomerID: 5})

	require.Eventually(t, func() bool { return len(audit.actions()) == 5 }, 2*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, []string{
		models.AuditActionSignupCompleted,
		models.AuditActionLoginSuccess,
		models.AuditActionSessionRefreshed,
		models.AuditActionSessionExpired,
		models.AuditActionLogout,
	}, audit.actions())

	first := audit.entries[0]
	require.NotNil(t, first.RequestID)
	assert.Equal(t, "req-9", *first.RequestID)
	assert.Equal(t, "198.51.100.4", *first.IPAddress)
	assert.Equal(t, uint(5), *first.CustomerID)
}
