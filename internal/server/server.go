// Package server wires every collaborator in spec.md §2 together: it is the
// typed-envelope dispatcher that decodes each inbound websocket message by
// its `type` field and routes it to the Identity Resolver, Connection and
// Room Registries, a Room Actor, the Matchmaking Queues, or the Invite
// Store. Server implements wsconn.Hub (the transport's callback surface),
// and its roomBroadcaster adapter implements room.Broadcaster (so a Room
// Actor can reach subscribed sessions without importing the transport at
// all).
package server

import (
	"context"
	"log/slog"

	"github.com/Lukaa21/Zing-sub000/internal/broadcast"
	"github.com/Lukaa21/Zing-sub000/internal/clock"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
	"github.com/Lukaa21/Zing-sub000/internal/identity"
	"github.com/Lukaa21/Zing-sub000/internal/invite"
	"github.com/Lukaa21/Zing-sub000/internal/matchmaking"
	"github.com/Lukaa21/Zing-sub000/internal/metrics"
	"github.com/Lukaa21/Zing-sub000/internal/ratelimit"
	"github.com/Lukaa21/Zing-sub000/internal/registry"
	"github.com/Lukaa21/Zing-sub000/internal/repository"
	"github.com/Lukaa21/Zing-sub000/internal/room"
	"github.com/Lukaa21/Zing-sub000/internal/wsconn"
)

// Server is the composition root: every method wsconn.Hub requires, plus
// the routing table for every client -> server message type.
type Server struct {
	Conns    *registry.Connections
	Rooms    *registry.Rooms
	Hub      *broadcast.Hub
	Resolver *identity.Resolver
	Queues   *matchmaking.Queues
	Invites  *invite.Store
	Limiter  *ratelimit.PerSessionLimiters
	History  repository.MatchHistoryWriter
	Friends  repository.FriendReader
	Events   repository.EventLogWriter
	Clock    clock.Clock
	RoomCfg  room.Config
}

func New(conns *registry.Connections, rooms *registry.Rooms, hub *broadcast.Hub, resolver *identity.Resolver,
	queues *matchmaking.Queues, invites *invite.Store, limiter *ratelimit.PerSessionLimiters,
	history repository.MatchHistoryWriter, friends repository.FriendReader, events repository.EventLogWriter,
	clk clock.Clock, roomCfg room.Config) *Server {
	return &Server{
		Conns: conns, Rooms: rooms, Hub: hub, Resolver: resolver,
		Queues: queues, Invites: invites, Limiter: limiter,
		History: history, Friends: friends, Events: events, Clock: clk, RoomCfg: roomCfg,
	}
}

// Register implements wsconn.Hub: a fresh connection opens an (as yet
// unstamped) Session and registers with the Broadcaster hub.
func (s *Server) Register(c *wsconn.Client) {
	s.Conns.Open(c.ID)
	s.Hub.RegisterSession(c.ID, c)
	metrics.ConnectedSessions.Inc()
}

// Unregister implements wsconn.Hub: tear the session out of every table it
// could have touched — its room membership, matchmaking queue, and the
// connection registry itself.
func (s *Server) Unregister(c *wsconn.Client) {
	sess, ok := s.Conns.Get(c.ID)
	if ok && sess.PlayerID != "" {
		if sess.RoomID != "" {
			if r, ok := s.Rooms.ByID(sess.RoomID); ok {
				if empty := r.Leave(sess.PlayerID); empty {
					s.destroyRoom(r)
				}
			}
		}
		s.Queues.CancelFindGame(sess.PlayerID)
		if cohortID, ok := s.Queues.CohortForPlayer(sess.PlayerID); ok {
			s.Queues.Dissolve(cohortID, sess.PlayerID)
		}
	}
	s.Limiter.Forget(c.ID)
	s.Hub.UnregisterSession(c.ID)
	s.Conns.Close(c.ID)
	metrics.ConnectedSessions.Dec()
}

// Message implements wsconn.Hub: decode the envelope and dispatch.
func (s *Server) Message(c *wsconn.Client, raw []byte) {
	if !s.Limiter.Allow(c.ID, 1) {
		metrics.RejectedIntents.WithLabelValues("rate_limited").Inc()
		return
	}
	s.dispatch(context.Background(), c, raw)
}

func (s *Server) destroyRoom(r *room.Room) {
	s.Rooms.Remove(r.ID)
	s.Invites.CancelForRoom(r.ID)
	r.Close()
	metrics.ActiveRooms.Dec()
}

func (s *Server) sendError(c *wsconn.Client, typ, code, message string) {
	s.Hub.SendTo(c.ID, typ, errorPayload{Code: code, Message: message})
}

// requireAuth returns the caller's stamped session, sending auth_required
// (as a room_error) if the session has not authenticated yet.
func (s *Server) requireAuth(c *wsconn.Client) (*registry.Session, bool) {
	sess, ok := s.Conns.Get(c.ID)
	if !ok || sess.PlayerID == "" {
		s.sendError(c, "room_error", "auth_required", "send auth before any other message")
		return nil, false
	}
	return sess, true
}

// roomBroadcaster adapts broadcast.Hub (session-keyed) to room.Broadcaster
// (which addresses SendTo by PlayerId): it resolves a player's live
// session(s) through the Connection Registry before delegating. It also
// watches the event stream for match_end, the one point spec.md §6 names
// for persisting match history, and opportunistically persists every event
// batch to the Event Log store (§6 "(c)"), since the Room Actor itself has
// no repository dependency.
type roomBroadcaster struct {
	hub     *broadcast.Hub
	conns   *registry.Connections
	rooms   *registry.Rooms
	history repository.MatchHistoryWriter
	events  repository.EventLogWriter
}

func (b *roomBroadcaster) BroadcastEvents(roomID string, events []eventlog.Event) {
	b.hub.BroadcastEvents(roomID, events)

	if b.events != nil {
		go func() {
			if err := b.events.PersistEvents(context.Background(), roomID, events); err != nil {
				slog.Warn("event log persist failed", "error", err, "roomId", roomID)
			}
		}()
	}

	for _, ev := range events {
		if ev.Type != eventlog.TypeMatchEnd {
			continue
		}
		payload, ok := ev.Payload.(eventlog.MatchEndPayload)
		if !ok {
			continue
		}
		metrics.MatchesCompleted.Inc()
		if b.history != nil {
			go b.recordMatch(roomID, payload)
		}
	}
}

func (b *roomBroadcaster) recordMatch(roomID string, payload eventlog.MatchEndPayload) {
	r, ok := b.rooms.ByID(roomID)
	if !ok {
		return
	}
	snap := r.Snapshot()
	var playerIDs []string
	for _, m := range snap.Members {
		if m.Role == string(room.RolePlayer) {
			playerIDs = append(playerIDs, m.PlayerID)
		}
	}
	result := repository.MatchResult{
		RoomID:     roomID,
		WinnerTeam: payload.WinnerTeam,
		FinalTeam0: payload.FinalScores.Team0,
		FinalTeam1: payload.FinalScores.Team1,
		PlayerIDs:  playerIDs,
	}
	if err := b.history.RecordMatch(context.Background(), result); err != nil {
		slog.Warn("match history write failed", "error", err, "roomId", roomID)
	}
}

func (b *roomBroadcaster) SendTo(playerID string, typ string, payload interface{}) {
	for _, sess := range b.conns.SessionsForPlayer(playerID) {
		b.hub.SendTo(sess.ID, typ, payload)
	}
}

func (s *Server) newRoomBroadcaster() room.Broadcaster {
	return &roomBroadcaster{hub: s.Hub, conns: s.Conns, rooms: s.Rooms, history: s.History, events: s.Events}
}
