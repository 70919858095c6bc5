package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/Lukaa21/Zing-sub000/internal/engine"
	"github.com/Lukaa21/Zing-sub000/internal/identity"
	"github.com/Lukaa21/Zing-sub000/internal/invite"
	"github.com/Lukaa21/Zing-sub000/internal/matchmaking"
	"github.com/Lukaa21/Zing-sub000/internal/metrics"
	"github.com/Lukaa21/Zing-sub000/internal/registry"
	"github.com/Lukaa21/Zing-sub000/internal/room"
	"github.com/Lukaa21/Zing-sub000/internal/wsconn"
)

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateRoomCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

// dispatch decodes the envelope and routes to the matching handler. An
// unparseable envelope is logged and dropped (it has no type to key an
// error on); an unknown type is logged at debug level and ignored. A
// malformed payload gets a typed error from some handlers (auth,
// create_private_room, join_room, rejoin_room) and is dropped silently by
// the rest.
func (s *Server) dispatch(ctx context.Context, c *wsconn.Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Warn("malformed envelope", "error", err, "sessionId", c.ID)
		return
	}

	switch env.Type {
	case "auth":
		s.handleAuth(ctx, c, env.Payload)
	case "create_private_room":
		s.handleCreatePrivateRoom(c, env.Payload)
	case "join_room":
		s.handleJoinRoom(c, env.Payload)
	case "rejoin_room":
		s.handleRejoinRoom(c, env.Payload)
	case "leave_room_member":
		s.handleLeaveRoom(c, env.Payload)
	case "kick_member":
		s.handleKickMember(c, env.Payload)
	case "set_member_role":
		s.handleSetMemberRole(c, env.Payload)
	case "toggle_timer":
		s.handleToggleTimer(c, env.Payload)
	case "set_team_assignment":
		s.handleSetTeamAssignment(c, env.Payload)
	case "start_1v1":
		s.handleStart(c, env.Payload, room.Start1v1)
	case "start_2v2_random":
		s.handleStart(c, env.Payload, room.Start2v2Random)
	case "start_2v2_party":
		s.handleStart(c, env.Payload, room.Start2v2Party)
	case "intent_play_card":
		s.handlePlayCard(c, env.Payload)
	case "intent_play_card_as":
		s.handlePlayCardAs(c, env.Payload)
	case "vote_surrender":
		s.handleVoteSurrender(c, env.Payload)
	case "vote_rematch":
		s.handleVoteRematch(c, env.Payload)
	case "exit_game":
		s.handleExitGame(c, env.Payload)
	case "find_game":
		s.handleFindGame(ctx, c, env.Payload)
	case "cancel_find_game":
		s.handleCancelFindGame(c)
	case "send_invite":
		s.handleSendInvite(ctx, c, env.Payload)
	case "accept_invite":
		s.handleAcceptInvite(c, env.Payload)
	case "decline_invite":
		s.handleDeclineInvite(c, env.Payload)
	case "get_pending_invites":
		s.handleGetPendingInvites(c)
	default:
		slog.Debug("unrecognized message type", "type", env.Type, "sessionId", c.ID)
	}
}

func decode[T any](payload json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(payload, &v)
	return v, err
}

func (s *Server) handleAuth(ctx context.Context, c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[authMsg](payload)
	if err != nil {
		s.sendError(c, "join_error", "bad_request", "malformed auth payload")
		return
	}
	stamped, err := s.Resolver.Resolve(ctx, identity.AuthMessage{Token: msg.Token, GuestID: msg.GuestID, Name: msg.Name, Role: msg.Role})
	if err != nil {
		s.sendError(c, "join_error", "auth_invalid", "credentials could not be resolved")
		return
	}
	s.Conns.Stamp(c.ID, stamped.PlayerID, stamped.Name, string(stamped.Role))
	s.Hub.SendTo(c.ID, "auth_ok", map[string]interface{}{
		"playerId":   stamped.PlayerID,
		"name":       stamped.Name,
		"role":       string(stamped.Role),
		"registered": stamped.Registered,
	})
}

// attachSession subscribes the caller's session to r's broadcast fan-out,
// detaching it from whatever room it was previously attached to, and
// evicts any other live session that is stamped with the same playerID in
// the Connection Registry and attached to r (spec.md:43: "a second
// connection for the same identity evicts the prior one from that room's
// subscriber set").
func (s *Server) attachSession(c *wsconn.Client, playerID string, r *room.Room) {
	for _, other := range s.Conns.SessionsForPlayer(playerID) {
		if other.ID == c.ID || other.RoomID != r.ID {
			continue
		}
		s.Hub.Unsubscribe(r.ID, other.ID)
		s.Conns.Detach(other.ID)
	}

	prev := s.Conns.Attach(c.ID, r.ID)
	if prev != "" && prev != r.ID {
		s.Hub.Unsubscribe(prev, c.ID)
	}
	s.Hub.Subscribe(r.ID, c.ID, playerID)
}

func (s *Server) handleCreatePrivateRoom(c *wsconn.Client, payload json.RawMessage) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	msg, err := decode[createPrivateRoomMsg](payload)
	if err != nil {
		s.sendError(c, "room_error", "bad_request", "malformed create_private_room payload")
		return
	}
	name := msg.Name
	if name == "" {
		name = sess.Name
	}

	var r *room.Room
	for attempt := 0; attempt < 5; attempt++ {
		id := uuid.NewString()
		code := generateRoomCode()
		token := uuid.NewString()
		candidate := room.New(id, code, token, room.VisibilityPrivate, sess.PlayerID, name, s.RoomCfg, s.Clock, s.newRoomBroadcaster())
		if err := s.Rooms.Add(candidate); err != nil {
			candidate.Close()
			continue
		}
		r = candidate
		break
	}
	if r == nil {
		s.sendError(c, "room_error", "server_error", "could not allocate a room code")
		return
	}
	metrics.ActiveRooms.Inc()
	s.attachSession(c, sess.PlayerID, r)
	s.Hub.SendTo(c.ID, "room_created", r.Snapshot())
}

func (s *Server) handleJoinRoom(c *wsconn.Client, payload json.RawMessage) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	msg, err := decode[joinRoomMsg](payload)
	if err != nil {
		s.sendError(c, "join_error", "bad_request", "malformed join_room payload")
		return
	}
	r := s.resolveRoom(msg.RoomID, msg.Code, msg.InviteToken)
	if r == nil {
		s.sendError(c, "join_error", "room_not_found", "no room matches roomId/code/inviteToken")
		return
	}
	name := msg.Name
	if name == "" {
		name = sess.Name
	}
	if err := r.Join(sess.PlayerID, name, room.RolePlayer); err != nil {
		s.sendError(c, "join_error", "join_failed", err.Error())
		return
	}
	s.attachSession(c, sess.PlayerID, r)
	s.Hub.SendTo(c.ID, "room_update", r.Snapshot())
	if state := r.GameStateFor(sess.PlayerID); state != nil {
		s.Hub.SendTo(c.ID, "game_state", state)
	}
}

func (s *Server) resolveRoom(roomID, code, inviteToken string) *room.Room {
	if roomID != "" {
		if r, ok := s.Rooms.ByID(roomID); ok {
			return r
		}
	}
	if code != "" {
		if r, ok := s.Rooms.ByCode(code); ok {
			return r
		}
	}
	if inviteToken != "" {
		if r, ok := s.Rooms.ByInviteToken(inviteToken); ok {
			return r
		}
	}
	return nil
}

func (s *Server) handleRejoinRoom(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[rejoinRoomMsg](payload)
	if err != nil {
		s.sendError(c, "rejoin_error", "bad_request", "malformed rejoin_room payload")
		return
	}
	r, ok := s.Rooms.ByID(msg.RoomID)
	if !ok {
		s.sendError(c, "rejoin_error", "room_not_found", "room no longer exists")
		return
	}
	if _, err := r.Rejoin(msg.PlayerID, msg.ReconnectToken); err != nil {
		s.sendError(c, "rejoin_error", "invalid_token", err.Error())
		return
	}
	s.attachSession(c, msg.PlayerID, r)
	s.Hub.SendTo(c.ID, "room_update", r.Snapshot())
	if state := r.GameStateFor(msg.PlayerID); state != nil {
		s.Hub.SendTo(c.ID, "game_state", state)
	}
}

func (s *Server) handleLeaveRoom(c *wsconn.Client, payload json.RawMessage) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	msg, err := decode[roomOnlyMsg](payload)
	if err != nil {
		return
	}
	r, ok := s.Rooms.ByID(msg.RoomID)
	if !ok {
		return
	}
	empty := r.Leave(sess.PlayerID)
	s.Conns.Detach(c.ID)
	s.Hub.Unsubscribe(msg.RoomID, c.ID)
	s.Hub.SendTo(c.ID, "room_left", roomOnlyMsg{RoomID: msg.RoomID})
	if empty {
		s.destroyRoom(r)
	}
}

func (s *Server) withRoom(c *wsconn.Client, roomID string) (*registry.Session, *room.Room, bool) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return nil, nil, false
	}
	r, ok := s.Rooms.ByID(roomID)
	if !ok {
		s.sendError(c, "room_error", "room_not_found", "room does not exist")
		return nil, nil, false
	}
	return sess, r, true
}

func (s *Server) handleKickMember(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[kickMemberMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	if err := r.Kick(sess.PlayerID, msg.TargetUserID); err != nil {
		s.sendError(c, "room_error", "kick_failed", err.Error())
	}
}

func (s *Server) handleSetMemberRole(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[setMemberRoleMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	role := room.RolePlayer
	if msg.Role == string(room.RoleSpectator) {
		role = room.RoleSpectator
	}
	if err := r.SetRole(sess.PlayerID, msg.TargetUserID, role); err != nil {
		s.sendError(c, "room_error", "role_change_failed", err.Error())
	}
}

func (s *Server) handleToggleTimer(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[toggleTimerMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	if err := r.ToggleTimer(sess.PlayerID, msg.Enabled); err != nil {
		s.sendError(c, "room_error", "toggle_timer_failed", err.Error())
	}
}

func (s *Server) handleSetTeamAssignment(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[setTeamAssignmentMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	if err := r.SetTeamAssignment(sess.PlayerID, msg.Team0, msg.Team1); err != nil {
		s.sendError(c, "team_error", "team_assignment_failed", err.Error())
	}
}

func (s *Server) handleStart(c *wsconn.Client, payload json.RawMessage, mode room.StartMode) {
	msg, err := decode[roomOnlyMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	if err := r.Start(sess.PlayerID, mode); err != nil {
		s.sendError(c, "start_error", "start_failed", err.Error())
		return
	}
	metrics.GamesStarted.Inc()
}

func (s *Server) handlePlayCard(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[intentPlayCardMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	if err := r.PlayCard(sess.PlayerID, msg.CardID); err != nil {
		metrics.RejectedIntents.WithLabelValues(reasonFor(err)).Inc()
		s.sendError(c, "room_error", "illegal_play", err.Error())
		return
	}
	metrics.CardsPlayed.Inc()
}

func (s *Server) handlePlayCardAs(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[intentPlayCardAsMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	if err := r.PlayCardAs(sess.PlayerID, msg.AsPlayerID, msg.CardID); err != nil {
		metrics.RejectedIntents.WithLabelValues(reasonFor(err)).Inc()
		s.sendError(c, "room_error", "illegal_play", err.Error())
		return
	}
	metrics.CardsPlayed.Inc()
}

func reasonFor(err error) string {
	if err == nil {
		return "none"
	}
	return err.Error()
}

func (s *Server) handleVoteSurrender(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[roomOnlyMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	if err := r.VoteSurrender(sess.PlayerID); err != nil {
		s.sendError(c, "room_error", "surrender_failed", err.Error())
	}
}

func (s *Server) handleVoteRematch(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[roomOnlyMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	if err := r.VoteRematch(sess.PlayerID); err != nil {
		s.sendError(c, "room_error", "rematch_failed", err.Error())
		return
	}
	metrics.GamesStarted.Inc()
}

func (s *Server) handleExitGame(c *wsconn.Client, payload json.RawMessage) {
	msg, err := decode[roomOnlyMsg](payload)
	if err != nil {
		return
	}
	sess, r, ok := s.withRoom(c, msg.RoomID)
	if !ok {
		return
	}
	stayed, err := r.ExitGame(sess.PlayerID)
	if err != nil {
		s.sendError(c, "room_error", "exit_failed", err.Error())
		return
	}
	if stayed {
		s.Hub.SendTo(c.ID, "stayed_in_room", r.Snapshot())
		return
	}
	s.Conns.Detach(c.ID)
	s.Hub.Unsubscribe(msg.RoomID, c.ID)
	s.Hub.SendTo(c.ID, "returned_to_room", roomOnlyMsg{RoomID: ""})
}

func (s *Server) handleFindGame(ctx context.Context, c *wsconn.Client, payload json.RawMessage) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	msg, err := decode[findGameMsg](payload)
	if err != nil {
		return
	}
	mode := matchmaking.Mode1v1
	if msg.Mode == string(matchmaking.Mode2v2) {
		mode = matchmaking.Mode2v2
	}
	s.Queues.FindGame(mode, matchmaking.Entry{PlayerID: sess.PlayerID, SessionID: c.ID, Name: sess.Name})
	s.Hub.SendTo(c.ID, "queue_joined", map[string]string{"mode": string(mode)})
	metrics.MatchmakingQueueDepth.WithLabelValues(string(mode)).Inc()

	cohortID := uuid.NewString()
	cohort, full := s.Queues.PopCohort(mode, cohortID)
	if !full {
		return
	}
	s.startMatchmadeRoom(cohortID, cohort)
}

func (s *Server) handleCancelFindGame(c *wsconn.Client) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	s.Queues.CancelFindGame(sess.PlayerID)
	s.Hub.SendTo(c.ID, "queue_left", map[string]string{})
}

// startMatchmadeRoom allocates a fresh matchmaking room for a just-popped
// cohort, joins every member, starts the game immediately, and delivers
// match_found to each participant (spec.md §4.6).
func (s *Server) startMatchmadeRoom(cohortID string, cohort matchmaking.Cohort) {
	id := uuid.NewString()
	r := room.New(id, "", "", room.VisibilityMatchmaking, cohort.Members[0].PlayerID, cohort.Members[0].Name, s.RoomCfg, s.Clock, s.newRoomBroadcaster())
	if err := s.Rooms.Add(r); err != nil {
		r.Close()
		s.Queues.Dissolve(cohortID, "")
		return
	}
	metrics.ActiveRooms.Inc()

	for _, m := range cohort.Members[1:] {
		if err := r.Join(m.PlayerID, m.Name, room.RolePlayer); err != nil {
			slog.Warn("matchmaking join failed", "error", err, "playerId", m.PlayerID)
		}
	}

	seeds := make([]engine.PlayerSeed, len(cohort.Members))
	for i, m := range cohort.Members {
		team := i
		if cohort.Mode == matchmaking.Mode2v2 {
			team = cohort.TeamOf(i)
		}
		seeds[i] = engine.PlayerSeed{PlayerID: m.PlayerID, Name: m.Name, Seat: i, Team: team}
	}

	if err := r.StartMatchmade(seeds); err != nil {
		slog.Warn("matchmaking auto-start failed", "error", err, "roomId", r.ID)
		return
	}
	metrics.GamesStarted.Inc()
	metrics.MatchmakingQueueDepth.WithLabelValues(string(cohort.Mode)).Add(-float64(len(cohort.Members)))
	s.Queues.Confirm(cohortID)

	for _, m := range cohort.Members {
		for _, sess := range s.Conns.SessionsForPlayer(m.PlayerID) {
			prev := s.Conns.Attach(sess.ID, r.ID)
			if prev != "" && prev != r.ID {
				s.Hub.Unsubscribe(prev, sess.ID)
			}
			s.Hub.Subscribe(r.ID, sess.ID, m.PlayerID)
			s.Hub.SendTo(sess.ID, "match_found", map[string]interface{}{
				"roomId":  r.ID,
				"mode":    string(cohort.Mode),
				"players": cohort.Members,
			})
		}
	}
}

func (s *Server) handleSendInvite(ctx context.Context, c *wsconn.Client, payload json.RawMessage) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	msg, err := decode[sendInviteMsg](payload)
	if err != nil {
		return
	}
	roomID := ""
	if conn, ok := s.Conns.Get(c.ID); ok {
		roomID = conn.RoomID
	}
	if roomID == "" {
		s.sendError(c, "invite_error", "not_in_room", "join a room before sending invites")
		return
	}
	if s.Friends != nil {
		areFriends, err := s.Friends.AreFriends(ctx, sess.PlayerID, msg.FriendID)
		if err != nil {
			slog.Warn("friend lookup unavailable, allowing invite optimistically", "error", err)
		} else if !areFriends {
			s.sendError(c, "invite_error", "not_friends", "target is not a friend")
			return
		}
	}
	inv := s.Invites.Send(sess.PlayerID, msg.FriendID, roomID)
	s.Hub.SendTo(c.ID, "invite_sent", inv)
	for _, target := range s.Conns.SessionsForPlayer(msg.FriendID) {
		s.Hub.SendTo(target.ID, "invite_received", inv)
	}
}

func (s *Server) handleAcceptInvite(c *wsconn.Client, payload json.RawMessage) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	msg, err := decode[inviteIDMsg](payload)
	if err != nil {
		return
	}
	inv, err := s.Invites.Accept(sess.PlayerID, msg.InviteID)
	if err != nil {
		s.sendError(c, "invite_error", "accept_failed", inviteErrCode(err))
		return
	}
	r, ok := s.Rooms.ByID(inv.RoomID)
	if !ok {
		s.sendError(c, "invite_error", "room_not_found", "target room no longer exists")
		return
	}
	if err := r.Join(sess.PlayerID, sess.Name, room.RolePlayer); err != nil {
		s.sendError(c, "invite_error", "join_failed", err.Error())
		return
	}
	s.attachSession(c, sess.PlayerID, r)
	s.Hub.SendTo(c.ID, "invite_accepted", inv)
	s.Hub.SendTo(c.ID, "room_update", r.Snapshot())
}

func (s *Server) handleDeclineInvite(c *wsconn.Client, payload json.RawMessage) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	msg, err := decode[inviteIDMsg](payload)
	if err != nil {
		return
	}
	inv, err := s.Invites.Decline(sess.PlayerID, msg.InviteID)
	if err != nil {
		s.sendError(c, "invite_error", "decline_failed", inviteErrCode(err))
		return
	}
	s.Hub.SendTo(c.ID, "invite_declined", inv)
}

func (s *Server) handleGetPendingInvites(c *wsconn.Client) {
	sess, ok := s.requireAuth(c)
	if !ok {
		return
	}
	s.Hub.SendTo(c.ID, "pending_invites", s.Invites.Pending(sess.PlayerID))
}

func inviteErrCode(err error) string {
	switch {
	case errors.Is(err, invite.ErrNotFound):
		return "not_found"
	case errors.Is(err, invite.ErrNotPending):
		return "not_pending"
	case errors.Is(err, invite.ErrNotInvitee):
		return "not_invitee"
	default:
		return "unknown"
	}
}

