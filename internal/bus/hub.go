// Package bus implements the message bus abstraction from SPEC_FULL §2.B:
// group membership and delivery, generalized from internal/ws/handler.go's
// Hub (there hardcoded to one "gameRooms" grouping) into arbitrary named
// groups so matchmaking, game, and invitation connections can all share it.
package bus

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a server-initiated close control frame may block.
const writeWait = time.Second

// Conn is anything the bus can push a message frame to and eventually close.
// *websocket.Conn satisfies this; tests fake it instead of dialing a socket.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Client wraps one connection with a buffered outbound queue so a slow
// reader never blocks the goroutine delivering to it.
type Client struct {
	ID        string
	conn      Conn
	send      chan []byte
	closeOnce sync.Once
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{ID: id, conn: conn, send: make(chan []byte, 16)}
}

// Send is the non-blocking enqueue side; WritePump is the actual writer goroutine.
func (c *Client) Send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[BUS] marshal error for client %s: %v", c.ID, err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[BUS] send buffer full for client %s, dropping message", c.ID)
	}
}

// WritePump drains the client's send channel to its socket. Run it in its
// own goroutine per connection, mirroring internal/ws/handler.go's writePump.
func (c *Client) WritePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[BUS] write error for client %s: %v", c.ID, err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Close stops the write pump, causing WritePump to send a close frame and
// return. Safe to call more than once — a client can be torn down both by its
// own read pump exiting and by a server-initiated group/channel close racing it.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// CloseWithCode sends a close control frame carrying a specific WS close code
// before tearing down the write pump, for the server-initiated closes
// SPEC_FULL §4.2/§4.3 specify (1000 on a natural game end, 4000 on a
// wait-for-opponent timeout) rather than the generic code WritePump sends.
func (c *Client) CloseWithCode(code int, reason string) {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			log.Printf("[BUS] close control write failed for client %s: %v", c.ID, err)
		}
		close(c.send)
	})
}

// Hub is the single-process implementation of group_add/group_discard/
// group_send/send_to_channel, generalized from the teacher's gameRooms map.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // connID -> Client
	groups  map[string]map[string]*Client // group -> connID -> Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]*Client),
	}
}

// GroupAdd registers a client under a group, creating the group if needed.
func (h *Hub) GroupAdd(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]*Client)
	}
	h.groups[group][c.ID] = c
}

// GroupDiscard removes a client from a group and from the top-level client
// map, so SendToChannel no longer reaches it even if it is still a member of
// another group.
func (h *Hub) GroupDiscard(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(h.clients, c.ID)
}

// GroupSend delivers a message to every client currently in a group.
func (h *Hub) GroupSend(group string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members, ok := h.groups[group]
	if !ok {
		return
	}
	for _, c := range members {
		c.Send(message)
	}
}

// SendToChannel delivers a message to one connection by id, if still connected.
func (h *Hub) SendToChannel(connID string, message interface{}) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	c.Send(message)
	return true
}

// GroupSize reports how many connections currently belong to a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// CloseGroup closes and removes every connection currently in a group, for a
// natural game end where both sockets are closed together with the same code.
func (h *Hub) CloseGroup(group string, code int, reason string) {
	h.mu.Lock()
	members := h.groups[group]
	delete(h.groups, group)
	toClose := make([]*Client, 0, len(members))
	for id, c := range members {
		delete(h.clients, id)
		toClose = append(toClose, c)
	}
	h.mu.Unlock()

	for _, c := range toClose {
		c.CloseWithCode(code, reason)
	}
}

// CloseChannel closes and removes exactly one connection by id, scrubbing it
// from every group it belongs to, for a lone wait-for-opponent timeout.
func (h *Hub) CloseChannel(connID string, code int, reason string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
		for _, members := range h.groups {
			delete(members, connID)
		}
	}
	h.mu.Unlock()
	if ok {
		c.CloseWithCode(code, reason)
	}
}
