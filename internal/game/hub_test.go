package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

// fakeConn records every message written to it.
type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages(t *testing.T) []WSMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WSMessage, 0, len(c.writes))
	for _, data := range c.writes {
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid json %s: %v", data, err)
		}
		out = append(out, msg)
	}
	return out
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

// eventually polls until cond holds or a second has passed.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHub_GetClientCount(t *testing.T) {
	hub := startHub(t)

	if count := hub.GetClientCount(); count != 0 {
		t.Errorf("GetClientCount() = %v, want 0", count)
	}

	a := hub.RegisterClient(&fakeConn{}, "alice")
	hub.RegisterClient(&fakeConn{}, "alice")
	hub.RegisterClient(&fakeConn{}, "bob")
	eventually(t, func() bool { return hub.GetClientCount() == 3 })

	hub.UnregisterClient(a)
	if count := hub.GetClientCount(); count != 2 {
		t.Errorf("GetClientCount() after unregister = %v, want 2", count)
	}
}

func TestHub_SendToReachesOnlyThatPlayer(t *testing.T) {
	hub := startHub(t)
	alice, bob := &fakeConn{}, &fakeConn{}
	ca := hub.RegisterClient(alice, "alice")
	cb := hub.RegisterClient(bob, "bob")

	hub.SessionChanged(wager.Snapshot{PlayerID: "alice", Balance: 1100})
	hub.SendTo("carol", WSMessage{Type: MessageSession})
	eventually(t, func() bool { return len(alice.messages(t)) == 1 })

	hub.UnregisterClient(ca)
	hub.UnregisterClient(cb)

	got := alice.messages(t)
	if len(got) != 1 || got[0].Type != MessageSession {
		t.Fatalf("alice got %+v", got)
	}
	if data := got[0].Data.(map[string]interface{}); data["balance"] != float64(1100) {
		t.Errorf("snapshot = %v", data)
	}
	if n := len(bob.messages(t)); n != 0 {
		t.Errorf("bob got %d messages, want 0", n)
	}
}

func TestHub_PreservesOrder(t *testing.T) {
	hub := startHub(t)
	conn := &fakeConn{}
	client := hub.RegisterClient(conn, "alice")

	for i := 1; i <= 20; i++ {
		hub.SessionChanged(wager.Snapshot{PlayerID: "alice", Balance: int64(i)})
	}
	eventually(t, func() bool { return len(conn.messages(t)) == 20 })
	hub.UnregisterClient(client)

	for i, msg := range conn.messages(t) {
		balance := msg.Data.(map[string]interface{})["balance"].(float64)
		if int(balance) != i+1 {
			t.Fatalf("message %d has balance %v", i, balance)
		}
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := startHub(t)
	alice, bob := &fakeConn{}, &fakeConn{}
	hub.RegisterClient(alice, "alice")
	hub.RegisterClient(bob, "bob")

	hub.Broadcast(WSMessage{Type: MessageSound, Data: SoundMessage{Muted: true}})

	eventually(t, func() bool {
		return len(alice.messages(t)) == 1 && len(bob.messages(t)) == 1
	})
	if msg := bob.messages(t)[0]; msg.Type != MessageSound {
		t.Errorf("Type = %q, want %q", msg.Type, MessageSound)
	}
}

func TestHub_BroadcastDoesNotBlock(t *testing.T) {
	hub := NewHub() // not running

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast(i)
			hub.SendTo("alice", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked with full channel")
	}
}

func TestHub_DeliverAndFrames(t *testing.T) {
	hub := startHub(t)
	conn := &fakeConn{}
	client := hub.RegisterClient(conn, "alice")

	var sink feedback.Sink = hub
	if err := sink.Deliver(feedback.Event{
		PlayerID: "alice",
		Signal:   feedback.SignalWin,
		Cue:      feedback.CueWin,
		At:       time.Now(),
	}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	hub.SendFrame("alice", FrameMessage{Game: GameTypeDice, RoundID: "r1", Value: []int{3, 4}})
	client.SendInitialState(wager.Snapshot{PlayerID: "alice"})

	eventually(t, func() bool { return len(conn.messages(t)) == 3 })
	hub.UnregisterClient(client)

	types := map[string]bool{}
	for _, msg := range conn.messages(t) {
		types[msg.Type] = true
	}
	for _, want := range []string{MessageFeedback, MessageFrame, MessageWelcome} {
		if !types[want] {
			t.Errorf("missing %s message", want)
		}
	}
}

func TestHub_StopClosesConnections(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	conn := &fakeConn{}
	client := hub.RegisterClient(conn, "alice")
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("connection left open after hub stopped")
	}

	// Late callers must not block on a stopped hub.
	hub.UnregisterClient(client)
	late := hub.RegisterClient(&fakeConn{}, "bob")
	hub.UnregisterClient(late)
}

func TestHub_ConcurrentSends(t *testing.T) {
	hub := startHub(t)
	conn := &fakeConn{}
	client := hub.RegisterClient(conn, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				hub.SendTo("alice", WSMessage{Type: MessageSession})
			}
		}()
	}
	wg.Wait()

	eventually(t, func() bool { return len(conn.messages(t)) == 50 })
	hub.UnregisterClient(client)
}
