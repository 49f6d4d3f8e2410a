package ws

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	maxInbound   = 4096
)

var errPeerClosed = errors.New("peer closed")

// Peer is one subscriber connection as seen by the Hub
type Peer interface {
	ID() string
	IsOpen() bool
	Send(data []byte) error
	Ping() error
	Terminate()
}

// wsPeer adapts a gorilla connection to Peer
type wsPeer struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	open    atomic.Bool
}

func newWSPeer(conn *websocket.Conn, id string) *wsPeer {
	p := &wsPeer{id: id, conn: conn}
	p.open.Store(true)
	return p
}

func (p *wsPeer) ID() string { return p.id }

func (p *wsPeer) IsOpen() bool { return p.open.Load() }

// Send writes one text frame; concurrent callers are serialized
func (p *wsPeer) Send(data []byte) error {
	if !p.IsOpen() {
		return errPeerClosed
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a heartbeat probe. WriteControl is safe alongside WriteMessage.
func (p *wsPeer) Ping() error {
	if !p.IsOpen() {
		return errPeerClosed
	}
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// Terminate closes the socket without a close handshake
func (p *wsPeer) Terminate() {
	if p.open.CompareAndSwap(true, false) {
		p.conn.Close()
	}
}

func formatID(n uint64) string {
	return strconv.FormatUint(n, 10)
}
