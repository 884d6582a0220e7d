package screens

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// MaxFrameSize bounds a single inbound frame from a page.
	MaxFrameSize = 64 << 10

	sendQueueSize = 16
	writeTimeout  = 10 * time.Second
)

var ErrSlowPeer = errors.New("connection send queue is full")

// peer owns the write side of one connection. Only its writer goroutine
// writes to the socket.
type peer struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (p *peer) writeLoop(screenID string, timeout time.Duration) {
	for {
		select {
		case <-p.done:
			return
		case data := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("screen_id", screenID).Msg("ws write failed, closing connection")
				p.close()
				return
			}
		}
	}
}

// enqueue never blocks: a full queue means the page stopped reading.
func (p *peer) enqueue(data []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

// ConnectionPool holds the live pages of one screen. Sends are queued per
// connection; a page that falls a full queue behind is disconnected.
type ConnectionPool struct {
	screenID     string
	writeTimeout time.Duration

	mu    sync.Mutex
	peers map[*websocket.Conn]*peer
	seen  bool
}

func NewConnectionPool(screenID string) *ConnectionPool {
	return &ConnectionPool{
		screenID:     screenID,
		writeTimeout: writeTimeout,
		peers:        make(map[*websocket.Conn]*peer),
	}
}

func (cp *ConnectionPool) Add(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	p := &peer{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}

	cp.mu.Lock()
	cp.peers[conn] = p
	cp.seen = true
	cp.mu.Unlock()

	go p.writeLoop(cp.screenID, cp.writeTimeout)
}

// Remove closes conn and reports whether the pool is now empty after having
// held at least one connection.
func (cp *ConnectionPool) Remove(conn *websocket.Conn) bool {
	cp.mu.Lock()
	p, ok := cp.peers[conn]
	delete(cp.peers, conn)
	drained := cp.seen && len(cp.peers) == 0
	cp.mu.Unlock()

	switch {
	case ok:
		p.close()
	case conn != nil:
		_ = conn.Close()
	}
	return drained
}

// Broadcast queues data for every connection and drops the ones that
// cannot take it.
func (cp *ConnectionPool) Broadcast(data []byte) {
	if len(data) == 0 {
		return
	}
	cp.mu.Lock()
	var slow []*peer
	for conn, p := range cp.peers {
		if !p.enqueue(data) {
			delete(cp.peers, conn)
			slow = append(slow, p)
		}
	}
	cp.mu.Unlock()

	for _, p := range slow {
		log.Warn().Str("screen_id", cp.screenID).Msg("ws peer not keeping up, dropping connection")
		p.close()
	}
}

func (cp *ConnectionPool) SendToOne(conn *websocket.Conn, data []byte) error {
	cp.mu.Lock()
	p, ok := cp.peers[conn]
	cp.mu.Unlock()
	if !ok {
		return nil
	}
	if !p.enqueue(data) {
		return ErrSlowPeer
	}
	return nil
}

func (cp *ConnectionPool) Count() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.peers)
}

func (cp *ConnectionPool) CloseAll() {
	cp.mu.Lock()
	peers := make([]*peer, 0, len(cp.peers))
	for conn, p := range cp.peers {
		peers = append(peers, p)
		delete(cp.peers, conn)
	}
	cp.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}
