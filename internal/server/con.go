package server

import (
	"sync"
	"time"

	"github.com/anchal00/morningstar/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-set/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 64 * 1024
	sendBufferSize = 32
)

// Peer is one websocket connection subscribed to a room.
type Peer struct {
	RoomID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (p *Peer) close() {
	p.once.Do(func() { close(p.send) })
}

// ConnectionStore relays frames between the connections of a room.
type ConnectionStore interface {
	AddConnection(roomID string, conn *websocket.Conn) *Peer
	RemoveConnection(p *Peer)
	// Broadcast queues frame for every peer of the room except from and
	// returns how many peers it was queued for.
	Broadcast(from *Peer, frame []byte) int
	Count(roomID string) int
	CloseAll()
}

type InMemoryConnectionStore struct {
	mu     sync.RWMutex
	rooms  map[string]*set.Set[*Peer]
	Logger logger.Logger
}

func NewConnectionStore(log logger.Logger) *InMemoryConnectionStore {
	return &InMemoryConnectionStore{
		rooms:  make(map[string]*set.Set[*Peer]),
		Logger: log,
	}
}

func (c *InMemoryConnectionStore) AddConnection(roomID string, conn *websocket.Conn) *Peer {
	p := &Peer{RoomID: roomID, conn: conn, send: make(chan []byte, sendBufferSize)}
	c.mu.Lock()
	defer c.mu.Unlock()
	peers, exists := c.rooms[roomID]
	if !exists {
		peers = set.New[*Peer](2)
		c.rooms[roomID] = peers
	}
	peers.Insert(p)
	return p
}

func (c *InMemoryConnectionStore) RemoveConnection(p *Peer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	peers, exists := c.rooms[p.RoomID]
	if !exists || !peers.Remove(p) {
		return
	}
	p.close()
	if peers.Size() == 0 {
		delete(c.rooms, p.RoomID)
	}
}

func (c *InMemoryConnectionStore) Broadcast(from *Peer, frame []byte) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	peers, exists := c.rooms[from.RoomID]
	if !exists {
		return 0
	}
	sent := 0
	for _, p := range peers.Slice() {
		if p == from {
			continue
		}
		select {
		case p.send <- frame:
			sent++
		default:
			c.Logger.Debug("Dropping frame for a slow peer in room " + p.RoomID)
		}
	}
	return sent
}

func (c *InMemoryConnectionStore) Count(roomID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if peers, exists := c.rooms[roomID]; exists {
		return peers.Size()
	}
	return 0
}

func (c *InMemoryConnectionStore) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for code, peers := range c.rooms {
		for _, p := range peers.Slice() {
			p.close()
		}
		delete(c.rooms, code)
	}
}

// writePump owns all writes to the connection and closes it when the send
// channel is closed.
func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
