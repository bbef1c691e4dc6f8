// Package live streams self-play progress to websocket spectators: one
// Event per running game after each Manager.Commit (board snapshot, tree
// size) or per game finishing (final value), fanned out to every
// connected client.
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	closeGracePeriod = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one unit of spectator-visible progress.
type Event struct {
	MatchID  string `json:"matchId"`
	GameID   int    `json:"gameId"`
	Board    string `json:"board,omitempty"`
	TreeSize int    `json:"treeSize,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Value    int    `json:"value,omitempty"`
}

// Hub fans Events out to every connected client. The zero value is not
// usable; construct with NewHub.
type Hub struct {
	log zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub returns an empty Hub ready to accept connections.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{log: log, clients: make(map[*client]struct{})}
}

// Broadcast fans e out to every currently connected client, dropping it
// for any client whose outgoing buffer is full rather than blocking.
func (h *Hub) Broadcast(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			h.log.Warn().Msg("live: dropping event for slow client")
		}
	}
}

// ServeWS upgrades r to a websocket connection and registers it as a
// spectator until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("live: upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan Event, 32)}
	h.add(c)
	defer h.remove(c)

	go c.writePump()
	c.readPump()
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// readPump does nothing with incoming application data; its only job is
// to keep calling ReadMessage so the library's pong handler fires.
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.closeGracefully()

	for {
		select {
		case e, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) closeGracefully() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	c.conn.Close()
}
