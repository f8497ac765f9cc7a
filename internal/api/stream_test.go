package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestHub() *Hub {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go h.Run()
	return h
}

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	t.Parallel()

	h := newTestHub()
	c := &Client{hub: h, send: make(chan []byte, 4)}
	h.register <- c

	h.BroadcastEvent(StreamEvent{Type: "trade", MarketID: "mkt-1"})

	var evt StreamEvent
	if err := json.Unmarshal(recv(t, c.send), &evt); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if evt.Type != "trade" || evt.MarketID != "mkt-1" {
		t.Errorf("event %+v", evt)
	}
}

// A subscriber whose send buffer is full gets evicted during broadcast
// instead of stalling the hub, and eviction must not disturb delivery to
// the healthy subscribers being walked in the same pass.
func TestHubEvictsSlowClient(t *testing.T) {
	t.Parallel()

	h := newTestHub()
	healthy := &Client{hub: h, send: make(chan []byte, 4)}
	slow := &Client{hub: h, send: make(chan []byte, 1)}
	slow.send <- []byte("backlog") // full buffer: the next broadcast cannot queue
	h.register <- healthy
	h.register <- slow

	h.BroadcastEvent(StreamEvent{Type: "trade", MarketID: "mkt-1"})
	h.BroadcastEvent(StreamEvent{Type: "resolution", MarketID: "mkt-1"})

	// Once the healthy client has the second event, the first broadcast
	// pass is fully done and slow's channel was closed during it.
	recv(t, healthy.send)
	recv(t, healthy.send)

	if _, ok := <-slow.send; !ok {
		t.Fatal("buffered message lost on eviction")
	}
	if _, ok := <-slow.send; ok {
		t.Error("slow client channel still open after eviction")
	}
}

func TestHubUnregister(t *testing.T) {
	t.Parallel()

	h := newTestHub()
	c := &Client{hub: h, send: make(chan []byte, 4)}
	h.register <- c
	h.unregister <- c

	if _, ok := <-c.send; ok {
		t.Error("unregistered client channel still open")
	}
}
