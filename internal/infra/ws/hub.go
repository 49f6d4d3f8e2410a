package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"aux_relay/internal/domain"
	"aux_relay/internal/infra"

	"github.com/gorilla/websocket"
)

type peerState struct {
	alive atomic.Bool
}

// Hub owns the subscriber connections: it accepts them, fans out price
// messages and reaps the ones that stop answering heartbeats.
type Hub struct {
	mu       sync.RWMutex
	peers    map[Peer]*peerState
	upgrader websocket.Upgrader
	metrics  *infra.Metrics
	logger   *slog.Logger
	nextID   atomic.Uint64
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(metrics *infra.Metrics) *Hub {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Hub{
		peers: make(map[Peer]*peerState),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Subscribers are unauthenticated price listeners on any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		metrics: metrics,
		logger:  slog.Default().With("module", "hub"),
	}
}

// Register adds a peer and marks it alive
func (h *Hub) Register(p Peer) {
	st := &peerState{}
	st.alive.Store(true)

	h.mu.Lock()
	h.peers[p] = st
	h.mu.Unlock()

	h.metrics.IncrementConnections()
	h.logger.Info("Subscriber connected", slog.String("peer", p.ID()))
}

// Unregister removes a peer; it reports false if the peer was already gone
func (h *Hub) Unregister(p Peer) bool {
	h.mu.Lock()
	_, ok := h.peers[p]
	delete(h.peers, p)
	h.mu.Unlock()

	if ok {
		h.metrics.DecrementConnections()
		h.logger.Info("Subscriber disconnected", slog.String("peer", p.ID()))
	}
	return ok
}

// MarkAlive records a heartbeat response from p
func (h *Hub) MarkAlive(p Peer) {
	h.mu.RLock()
	st, ok := h.peers[p]
	h.mu.RUnlock()
	if ok {
		st.alive.Store(true)
	}
}

// Len returns the number of registered peers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

type peerEntry struct {
	peer  Peer
	state *peerState
}

func (h *Hub) snapshot() []peerEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]peerEntry, 0, len(h.peers))
	for p, st := range h.peers {
		out = append(out, peerEntry{peer: p, state: st})
	}
	return out
}

// CheckLiveness runs one heartbeat round: peers that did not answer the
// previous probe are terminated, the rest are cleared and probed again.
func (h *Hub) CheckLiveness() {
	for _, e := range h.snapshot() {
		if !e.state.alive.Load() {
			h.logger.Info("Terminating unresponsive subscriber", slog.String("peer", e.peer.ID()))
			e.peer.Terminate()
			if h.Unregister(e.peer) {
				h.metrics.RecordTerminated()
			}
			continue
		}

		e.state.alive.Store(false)
		if err := e.peer.Ping(); err != nil {
			// The next round reaps it.
			h.logger.Debug("Heartbeat probe failed", slog.String("peer", e.peer.ID()), slog.Any("error", err))
		}
	}
}

// Broadcast sends msg to every open peer. Send failures are logged and
// never stop delivery to the remaining peers.
func (h *Hub) Broadcast(ctx context.Context, msg domain.BroadcastMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode broadcast", slog.Any("error", err))
		return
	}

	for _, e := range h.snapshot() {
		if ctx.Err() != nil {
			return
		}
		if !e.peer.IsOpen() {
			continue
		}
		if err := e.peer.Send(data); err != nil {
			h.metrics.RecordSendError()
			h.logger.Warn("Failed to send to subscriber", slog.String("peer", e.peer.ID()), slog.Any("error", err))
		}
	}
}

// CloseAll terminates every peer (shutdown)
func (h *Hub) CloseAll() {
	for _, e := range h.snapshot() {
		e.peer.Terminate()
		h.Unregister(e.peer)
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("WebSocket upgrade failed", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
		return
	}

	peer := newWSPeer(conn, r.RemoteAddr+"#"+formatID(h.nextID.Add(1)))
	conn.SetReadLimit(maxInbound)
	conn.SetPongHandler(func(string) error {
		h.MarkAlive(peer)
		return nil
	})

	h.Register(peer)
	defer func() {
		peer.Terminate()
		h.Unregister(peer)
	}()

	h.readLoop(peer)
}

// readLoop drains inbound frames so control frames (pongs) get processed
func (h *Hub) readLoop(p *wsPeer) {
	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && p.IsOpen() {
				h.logger.Debug("Subscriber read error", slog.String("peer", p.ID()), slog.Any("error", err))
			}
			return
		}
		h.logger.Debug("Received message from client", slog.String("peer", p.ID()), slog.String("message", string(msg)))
	}
}

var _ domain.Broadcaster = (*Hub)(nil)
