package sse

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func recv(t *testing.T, ch <-chan Envelope, timeout time.Duration) Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for envelope")
	}
	return Envelope{}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(testLogger(t))
	channel := uuid.New().String()

	var clients []*Client
	for i := 0; i < 3; i++ {
		c := hub.NewClient(uuid.New())
		hub.Subscribe(c, channel)
		clients = append(clients, c)
	}

	hub.Broadcast(Envelope{Channel: channel, Event: EventSessionSnapshot, Data: map[string]any{"seq": 1}})

	for i, c := range clients {
		env := recv(t, c.Outbound, time.Second)
		if env.Event != EventSessionSnapshot {
			t.Fatalf("client %d: event=%s", i, env.Event)
		}
	}
}

func TestBroadcastSkipsOtherChannels(t *testing.T) {
	hub := NewHub(testLogger(t))
	a := hub.NewClient(uuid.New())
	b := hub.NewClient(uuid.New())
	hub.Subscribe(a, "session-a")
	hub.Subscribe(b, "session-b")

	hub.Broadcast(Envelope{Channel: "session-a", Event: EventSessionSnapshot})

	recv(t, a.Outbound, time.Second)
	select {
	case env := <-b.Outbound:
		t.Fatalf("cross-channel leak: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSlowClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(testLogger(t))
	channel := uuid.New().String()

	slow := hub.NewClient(uuid.New())
	fast := hub.NewClient(uuid.New())
	hub.Subscribe(slow, channel)
	hub.Subscribe(fast, channel)

	// Saturate the slow client's buffer and keep going; the fast client must
	// still receive everything without Broadcast ever blocking.
	total := cap(slow.Outbound) + 10
	done := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			hub.Broadcast(Envelope{Channel: channel, Event: EventSessionSnapshot, Data: map[string]any{"seq": i}})
			<-fast.Outbound
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("broadcast blocked on a slow client")
	}
}

func TestCloseChannelDisconnectsSubscribers(t *testing.T) {
	hub := NewHub(testLogger(t))
	channel := uuid.New().String()
	c := hub.NewClient(uuid.New())
	hub.Subscribe(c, channel)

	hub.CloseChannel(channel)

	select {
	case _, open := <-c.Outbound:
		if open {
			t.Fatalf("expected closed outbound after CloseChannel")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for outbound close")
	}

	// Broadcasting into a closed channel is a no-op.
	hub.Broadcast(Envelope{Channel: channel, Event: EventSessionSnapshot})
}

func TestSendToClosedClientDoesNotPanic(t *testing.T) {
	hub := NewHub(testLogger(t))
	channel := uuid.New().String()
	c := hub.NewClient(uuid.New())
	hub.Subscribe(c, channel)

	// The stream handler's connect sequence: subscribe, then push the initial
	// snapshot. A session ending in between closes the client; the push must
	// report failure, not panic.
	hub.CloseChannel(channel)

	if hub.Send(c, Envelope{Channel: channel, Event: EventSessionSnapshot}) {
		t.Fatalf("send to closed client reported success")
	}
}

func TestSendReportsFullBuffer(t *testing.T) {
	hub := NewHub(testLogger(t))
	c := hub.NewClient(uuid.New())
	hub.Subscribe(c, "x")

	for i := 0; i < cap(c.Outbound); i++ {
		if !hub.Send(c, Envelope{Channel: "x", Event: EventSessionSnapshot}) {
			t.Fatalf("send %d failed below capacity", i)
		}
	}
	if hub.Send(c, Envelope{Channel: "x", Event: EventSessionSnapshot}) {
		t.Fatalf("send beyond capacity reported success")
	}
}

func TestCloseClientIsIdempotent(t *testing.T) {
	hub := NewHub(testLogger(t))
	c := hub.NewClient(uuid.New())
	hub.Subscribe(c, "x")
	hub.CloseClient(c)
	hub.CloseClient(c)
}
