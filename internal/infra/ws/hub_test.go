package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"aux_relay/internal/domain"
	"aux_relay/internal/infra"

	"github.com/gorilla/websocket"
)

type fakePeer struct {
	id      string
	hub     *Hub
	respond bool // answer pings with a pong
	sendErr error

	mu         sync.Mutex
	closed     bool
	pings      int
	sent       [][]byte
	terminated int
}

func (f *fakePeer) ID() string { return f.id }

func (f *fakePeer) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakePeer) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakePeer) Ping() error {
	f.mu.Lock()
	f.pings++
	f.mu.Unlock()
	if f.respond {
		f.hub.MarkAlive(f)
	}
	return nil
}

func (f *fakePeer) Terminate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.terminated++
}

func (f *fakePeer) stats() (pings, terminated, sent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings, f.terminated, len(f.sent)
}

func TestHub_LivenessReapsSilentPeer(t *testing.T) {
	metrics := &infra.Metrics{}
	h := NewHub(metrics)
	silent := &fakePeer{id: "silent", hub: h}
	h.Register(silent)

	// First round: alive since connect, gets probed.
	h.CheckLiveness()
	if pings, terminated, _ := silent.stats(); pings != 1 || terminated != 0 {
		t.Fatalf("After 1st check: pings=%d terminated=%d", pings, terminated)
	}

	// Second round: never answered, terminated.
	h.CheckLiveness()
	if _, terminated, _ := silent.stats(); terminated != 1 {
		t.Fatalf("Expected termination on 2nd check, got %d", terminated)
	}
	if h.Len() != 0 {
		t.Errorf("Expected peer to be removed, %d left", h.Len())
	}

	snap := metrics.Snapshot()
	if snap.TerminatedConns != 1 || snap.ActiveConnections != 0 {
		t.Errorf("Unexpected metrics %+v", snap)
	}
}

func TestHub_LivenessKeepsResponsivePeer(t *testing.T) {
	h := NewHub(nil)
	responsive := &fakePeer{id: "responsive", hub: h, respond: true}
	h.Register(responsive)

	for i := 0; i < 10; i++ {
		h.CheckLiveness()
	}

	pings, terminated, _ := responsive.stats()
	if terminated != 0 {
		t.Error("Responsive peer must never be terminated")
	}
	if pings != 10 {
		t.Errorf("Expected 10 probes, got %d", pings)
	}
	if h.Len() != 1 {
		t.Errorf("Expected peer to stay registered")
	}
}

func TestHub_LivenessMixed(t *testing.T) {
	h := NewHub(nil)
	silent := &fakePeer{id: "silent", hub: h}
	responsive := &fakePeer{id: "responsive", hub: h, respond: true}
	h.Register(silent)
	h.Register(responsive)

	h.CheckLiveness()
	h.CheckLiveness()

	if _, terminated, _ := silent.stats(); terminated != 1 {
		t.Error("Silent peer should be terminated")
	}
	if _, terminated, _ := responsive.stats(); terminated != 0 {
		t.Error("Responsive peer should survive")
	}
}

func TestHub_BroadcastSkipsClosedAndSurvivesErrors(t *testing.T) {
	metrics := &infra.Metrics{}
	h := NewHub(metrics)

	ok1 := &fakePeer{id: "ok1", hub: h}
	broken := &fakePeer{id: "broken", hub: h, sendErr: errors.New("broken pipe")}
	closed := &fakePeer{id: "closed", hub: h, closed: true}
	ok2 := &fakePeer{id: "ok2", hub: h}
	for _, p := range []*fakePeer{ok1, broken, closed, ok2} {
		h.Register(p)
	}

	msg := domain.BroadcastMessage{USDPerGram: "67.0382", Source: domain.SourceSilverBullion, MarketOpen: true}
	h.Broadcast(context.Background(), msg)

	for _, p := range []*fakePeer{ok1, ok2} {
		if _, _, sent := p.stats(); sent != 1 {
			t.Errorf("%s: expected 1 message, got %d", p.id, sent)
		}
	}
	if _, _, sent := closed.stats(); sent != 0 {
		t.Error("Closed peer must be skipped")
	}
	if metrics.Snapshot().SendErrors != 1 {
		t.Errorf("Expected 1 send error, got %d", metrics.Snapshot().SendErrors)
	}

	var got domain.BroadcastMessage
	if err := json.Unmarshal(ok1.sent[0], &got); err != nil {
		t.Fatal(err)
	}
	if got != msg {
		t.Errorf("Decoded %+v, want %+v", got, msg)
	}
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	metrics := &infra.Metrics{}
	h := NewHub(metrics)
	p := &fakePeer{id: "p", hub: h}
	h.Register(p)

	if !h.Unregister(p) {
		t.Error("First Unregister should report removal")
	}
	if h.Unregister(p) {
		t.Error("Second Unregister should be a no-op")
	}
	if metrics.Snapshot().ActiveConnections != 0 {
		t.Errorf("Expected 0 active connections, got %d", metrics.Snapshot().ActiveConnections)
	}
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_WebSocketBroadcast(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	waitFor(t, "registration", func() bool { return h.Len() == 1 })

	msg := domain.BroadcastMessage{USDPerGram: "50.0000", EURPerGram: "45.0000", Source: domain.SourceSwissQuote}
	h.Broadcast(context.Background(), msg)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := `{"usd_per_gram_aux":"50.0000","eur_per_gram_aux":"45.0000","source":"SwissQuote","market_open":false}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestHub_WebSocketHeartbeat(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	// The default client ping handler answers with a pong while reading.
	responsive := dial(t, server)
	go func() {
		for {
			if _, _, err := responsive.ReadMessage(); err != nil {
				return
			}
		}
	}()
	waitFor(t, "registration", func() bool { return h.Len() == 1 })

	// A client that swallows pings never answers.
	silent := dial(t, server)
	silent.SetPingHandler(func(string) error { return nil })
	silentDone := make(chan error, 1)
	go func() {
		for {
			if _, _, err := silent.ReadMessage(); err != nil {
				silentDone <- err
				return
			}
		}
	}()
	waitFor(t, "registration", func() bool { return h.Len() == 2 })

	h.CheckLiveness()
	waitFor(t, "pong", func() bool {
		for _, e := range h.snapshot() {
			if e.state.alive.Load() {
				return true
			}
		}
		return false
	})
	h.CheckLiveness()

	select {
	case <-silentDone:
	case <-time.After(2 * time.Second):
		t.Fatal("silent client was not terminated")
	}
	waitFor(t, "reap", func() bool { return h.Len() == 1 })

	// The responsive client is still served.
	h.Broadcast(context.Background(), domain.BroadcastMessage{USDPerGram: "1.0000", Source: domain.SourceSilverBullion})
	if h.Len() != 1 {
		t.Errorf("Expected responsive client to remain, have %d", h.Len())
	}
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	waitFor(t, "registration", func() bool { return h.Len() == 1 })

	h.CloseAll()
	if h.Len() != 0 {
		t.Errorf("Expected no peers after CloseAll, got %d", h.Len())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected client read to fail after CloseAll")
	}
}
