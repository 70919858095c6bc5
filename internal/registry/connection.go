// Package registry holds the process-wide, fine-grained-mutex-protected
// tables named in spec.md §2: the Connection Registry (B) and Room Registry
// (C). Both are touched only briefly per operation; all the serialized
// per-room work happens inside the Room Actor (spec.md §5).
package registry

import "sync"

// Session is the Connection Registry's view of one live client connection:
// its stamped identity (once auth completes) and the room it is currently
// attached to, if any.
type Session struct {
	ID       string // transport-level id (wsconn.Client.ID)
	PlayerID string
	Name     string
	Role     string
	RoomID   string // empty when not attached to a room
}

// Connections tracks Session <-> PlayerId and Session <-> RoomId?
// (spec.md §4.2). A session attaches to at most one room at a time.
type Connections struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewConnections() *Connections {
	return &Connections{sessions: make(map[string]*Session)}
}

func (c *Connections) Open(sessionID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &Session{ID: sessionID}
	c.sessions[sessionID] = s
	return s
}

func (c *Connections) Get(sessionID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	return s, ok
}

// Stamp records the resolved identity on an existing session.
func (c *Connections) Stamp(sessionID, playerID, name, role string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[sessionID]; ok {
		s.PlayerID = playerID
		s.Name = name
		s.Role = role
	}
}

// Attach records that sessionID is now subscribed to roomID, detaching it
// from any prior room first. It returns the previous room id, if any.
func (c *Connections) Attach(sessionID, roomID string) (previous string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return ""
	}
	previous = s.RoomID
	s.RoomID = roomID
	return previous
}

func (c *Connections) Detach(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[sessionID]; ok {
		s.RoomID = ""
	}
}

func (c *Connections) Close(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
}

// SessionsForPlayer returns every live session currently stamped with
// playerID, used to detect and evict a second simultaneous connection for
// the same identity in a room (spec.md §3).
func (c *Connections) SessionsForPlayer(playerID string) []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Session
	for _, s := range c.sessions {
		if s.PlayerID == playerID {
			out = append(out, s)
		}
	}
	return out
}
