package registry

import (
	"errors"
	"strings"
	"sync"

	"github.com/Lukaa21/Zing-sub000/internal/room"
)

var (
	ErrRoomNotFound  = errors.New("registry: room_not_found")
	ErrCodeMismatch  = errors.New("registry: code_mismatch")
	ErrCodeCollision = errors.New("registry: code_collision")
)

// Rooms is the process-wide Room Registry (spec.md §2 component C), keyed
// by RoomId and by short access Code. A Code maps to at most one live
// RoomId and is reclaimed on destruction (spec.md §3).
type Rooms struct {
	mu           sync.Mutex
	byID         map[string]*room.Room
	byCode       map[string]string // code -> roomId
	byInviteTok  map[string]string // inviteToken -> roomId
}

func NewRooms() *Rooms {
	return &Rooms{
		byID:        make(map[string]*room.Room),
		byCode:      make(map[string]string),
		byInviteTok: make(map[string]string),
	}
}

// Add registers a newly-created room. Returns ErrCodeCollision if r's code
// is already live, so the caller can retry with a freshly generated one.
func (rs *Rooms) Add(r *room.Room) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	code := strings.ToUpper(r.Code)
	if code != "" {
		if _, exists := rs.byCode[code]; exists {
			return ErrCodeCollision
		}
	}
	rs.byID[r.ID] = r
	if code != "" {
		rs.byCode[code] = r.ID
	}
	if r.InviteToken != "" {
		rs.byInviteTok[r.InviteToken] = r.ID
	}
	return nil
}

func (rs *Rooms) ByID(roomID string) (*room.Room, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.byID[roomID]
	return r, ok
}

func (rs *Rooms) ByCode(code string) (*room.Room, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	id, ok := rs.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, false
	}
	r, ok := rs.byID[id]
	return r, ok
}

func (rs *Rooms) ByInviteToken(token string) (*room.Room, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	id, ok := rs.byInviteTok[token]
	if !ok {
		return nil, false
	}
	r, ok := rs.byID[id]
	return r, ok
}

// Remove tears the room out of every index, reclaiming its Code.
func (rs *Rooms) Remove(roomID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.byID[roomID]
	if !ok {
		return
	}
	delete(rs.byID, roomID)
	delete(rs.byCode, strings.ToUpper(r.Code))
	delete(rs.byInviteTok, r.InviteToken)
}

// Count reports how many rooms are currently live, used by tests that need
// to assert on registry teardown (spec.md §9: "must expose explicit
// teardown for test isolation").
func (rs *Rooms) Count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.byID)
}

// Reset tears down every tracked room and clears all indices, the explicit
// teardown hook spec.md §9 requires for test isolation.
func (rs *Rooms) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, r := range rs.byID {
		r.Close()
	}
	rs.byID = make(map[string]*room.Room)
	rs.byCode = make(map[string]string)
	rs.byInviteTok = make(map[string]string)
}
