// Package wsconn is the websocket transport, adapted from the teacher's
// domains/games/apis/games_ws_backend/hub package. It keeps the teacher's
// read/write pump shape but generalizes the single ad-hoc GameMessageData
// callback into a Hub interface built around typed envelope dispatch (the
// "event/callback-heavy source -> message-typed actors" redesign flag in
// spec.md §9) — wsconn itself stays transport-only; message decoding and
// routing belong to internal/server.
package wsconn

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
)

var newline = []byte{'\n'}

// Hub receives connection lifecycle and inbound message events. It must not
// block: Register/Unregister/Message are called synchronously from each
// connection's own goroutines.
type Hub interface {
	Register(c *Client)
	Unregister(c *Client)
	Message(c *Client, raw []byte)
}

// Client is one live websocket connection. Its ID is a transport-level
// session identifier, independent of any PlayerId stamped onto it later by
// the Identity Resolver.
type Client struct {
	Hub  Hub
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Deliver queues raw for the client's write pump. It never blocks: a full
// buffer means a stalled client, and the caller is treated as unreachable
// rather than allowed to back-pressure the rest of the room.
func (c *Client) Deliver(raw []byte) bool {
	select {
	case c.Send <- raw:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "error", err, "clientId", c.ID)
			}
			return
		}
		message = bytes.TrimSpace(message)
		if len(message) == 0 {
			continue
		}
		c.Hub.Message(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Upgrader wraps websocket.Upgrader with an origin allowlist the caller
// configures; dev mode (allow everything) is a server-level config flag
// rather than an environment variable lookup baked into transport code.
type Upgrader struct {
	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool
	allowAny       bool
}

func NewUpgrader(allowedOrigins []string, allowAny bool) *Upgrader {
	set := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		set[o] = true
	}
	u := &Upgrader{allowedOrigins: set, allowAny: allowAny}
	u.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     u.checkOrigin,
	}
	return u
}

func (u *Upgrader) checkOrigin(r *http.Request) bool {
	if u.allowAny {
		return true
	}
	origin := r.Header.Get("Origin")
	return u.allowedOrigins[origin]
}

// ServeWs upgrades r and registers the new Client with hub, then starts its
// pumps in their own goroutines so the caller's goroutine can return
// immediately.
func (u *Upgrader) ServeWs(hub Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err, "remoteAddr", r.RemoteAddr)
		return
	}
	client := &Client{
		Hub:  hub,
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
	client.Hub.Register(client)
	go client.writePump()
	go client.readPump()
}
