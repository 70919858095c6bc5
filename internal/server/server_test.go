package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lukaa21/Zing-sub000/internal/broadcast"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
	"github.com/Lukaa21/Zing-sub000/internal/registry"
	"github.com/Lukaa21/Zing-sub000/internal/room"
	"github.com/Lukaa21/Zing-sub000/internal/wsconn"
)

type captureDeliverer struct {
	count int
}

func (c *captureDeliverer) Deliver(raw []byte) bool {
	c.count++
	return true
}

func newTestServer() *Server {
	return &Server{
		Conns: registry.NewConnections(),
		Rooms: registry.NewRooms(),
		Hub:   broadcast.NewHub(),
	}
}

// TestAttachSession_EvictsPriorSessionForSameIdentity guards spec.md:43: a
// second connection for the same identity evicts the prior one from that
// room's subscriber set, rather than leaving both subscribed.
func TestAttachSession_EvictsPriorSessionForSameIdentity(t *testing.T) {
	s := newTestServer()
	r := &room.Room{ID: "room-1"}

	first := &wsconn.Client{ID: "sess-1"}
	second := &wsconn.Client{ID: "sess-2"}
	d1, d2 := &captureDeliverer{}, &captureDeliverer{}

	s.Conns.Open(first.ID)
	s.Conns.Stamp(first.ID, "player-1", "Alice", "player")
	s.Hub.RegisterSession(first.ID, d1)
	s.attachSession(first, "player-1", r)

	s.Conns.Open(second.ID)
	s.Conns.Stamp(second.ID, "player-1", "Alice", "player")
	s.Hub.RegisterSession(second.ID, d2)
	s.attachSession(second, "player-1", r)

	s.Hub.BroadcastEvents(r.ID, []eventlog.Event{{
		Seq: 1, Type: eventlog.TypeRoomUpdate, Payload: eventlog.RoomUpdatePayload{RoomID: r.ID},
	}})

	require.Zero(t, d1.count, "prior session for the same identity must no longer receive this room's broadcasts")
	require.Equal(t, 1, d2.count)

	sess1, ok := s.Conns.Get(first.ID)
	require.True(t, ok)
	require.Empty(t, sess1.RoomID, "evicted session should be detached from the room")

	sess2, ok := s.Conns.Get(second.ID)
	require.True(t, ok)
	require.Equal(t, r.ID, sess2.RoomID)
}

// TestAttachSession_DifferentIdentitiesBothStaySubscribed is the negative
// case: eviction is scoped to the same playerID, never a different one.
func TestAttachSession_DifferentIdentitiesBothStaySubscribed(t *testing.T) {
	s := newTestServer()
	r := &room.Room{ID: "room-1"}

	alice := &wsconn.Client{ID: "sess-alice"}
	bob := &wsconn.Client{ID: "sess-bob"}
	d1, d2 := &captureDeliverer{}, &captureDeliverer{}

	s.Conns.Open(alice.ID)
	s.Hub.RegisterSession(alice.ID, d1)
	s.attachSession(alice, "player-alice", r)

	s.Conns.Open(bob.ID)
	s.Hub.RegisterSession(bob.ID, d2)
	s.attachSession(bob, "player-bob", r)

	s.Hub.BroadcastEvents(r.ID, []eventlog.Event{{
		Seq: 1, Type: eventlog.TypeRoomUpdate, Payload: eventlog.RoomUpdatePayload{RoomID: r.ID},
	}})

	require.Equal(t, 1, d1.count)
	require.Equal(t, 1, d2.count)
}

// TestAttachSession_MovingRoomsUnsubscribesThePreviousRoom exercises the
// pre-existing per-session detach path alongside the new per-identity one.
func TestAttachSession_MovingRoomsUnsubscribesThePreviousRoom(t *testing.T) {
	s := newTestServer()
	roomA := &room.Room{ID: "room-a"}
	roomB := &room.Room{ID: "room-b"}

	c := &wsconn.Client{ID: "sess-1"}
	d := &captureDeliverer{}
	s.Conns.Open(c.ID)
	s.Hub.RegisterSession(c.ID, d)

	s.attachSession(c, "player-1", roomA)
	s.attachSession(c, "player-1", roomB)

	s.Hub.BroadcastEvents(roomA.ID, []eventlog.Event{{Seq: 1, Type: eventlog.TypeRoomUpdate, Payload: eventlog.RoomUpdatePayload{RoomID: roomA.ID}}})
	s.Hub.BroadcastEvents(roomB.ID, []eventlog.Event{{Seq: 1, Type: eventlog.TypeRoomUpdate, Payload: eventlog.RoomUpdatePayload{RoomID: roomB.ID}}})

	require.Equal(t, 1, d.count)
}
