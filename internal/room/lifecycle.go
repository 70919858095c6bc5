package room

import (
	"errors"

	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

var (
	ErrRoomFull       = errors.New("room: room_full")
	ErrGameInProgress = errors.New("room: game_in_progress")
	ErrNotHost        = errors.New("room: not_host")
	ErrKickSelf       = errors.New("room: kick_self_forbidden")
	ErrNotMember      = errors.New("room: not_member")
	ErrAlreadyStarted = errors.New("room: already_started")
)

// JoinRole is the role requested at join time; the actor may coerce it
// (spec.md §4.3 "join").
type JoinRole string

// Join admits playerId to the room. If a game is active and the player is
// not already a member, they are forced to spectator regardless of the
// requested role (spec.md §4.3).
func (r *Room) Join(playerID, name string, requestedRole MemberRole) error {
	return doErr(r, func() error {
		idx := r.memberIndex(playerID)
		if idx >= 0 {
			// Reattach: update display name, keep role.
			r.members[idx].Name = name
			r.broadcastRoomUpdate()
			return nil
		}

		role := requestedRole
		if r.phase == PhasePlaying {
			role = RoleSpectator
		}

		if role == RolePlayer && r.playerCount() >= maxPlayers {
			return ErrRoomFull
		}
		if role == RoleSpectator && r.spectatorCount() >= r.cfg.MaxSpectatorsPerRoom {
			return ErrRoomFull
		}

		r.members = append(r.members, Member{PlayerID: playerID, Name: name, Role: role, JoinedAt: r.clock.Now()})
		if r.hostID == "" {
			r.hostID = playerID
		}
		r.issueReconnectToken(playerID)
		r.broadcastRoomUpdate()
		return nil
	})
}

func (r *Room) spectatorCount() int {
	n := 0
	for _, m := range r.members {
		if m.Role == RoleSpectator {
			n++
		}
	}
	return n
}

// Leave removes playerId's membership, triggers host succession, and
// destroys the room if it becomes empty. Returns true if the room is now
// empty and should be removed from the registry.
func (r *Room) Leave(playerID string) (empty bool) {
	return do(r, func() bool {
		idx := r.memberIndex(playerID)
		if idx < 0 {
			return len(r.members) == 0
		}
		r.members = append(r.members[:idx], r.members[idx+1:]...)

		if r.hostID == playerID {
			r.succeedHost()
		}

		drafts := []eventlog.Draft{{
			Type:    eventlog.TypeMemberLeft,
			Payload: eventlog.MemberLeftPayload{PlayerID: playerID},
		}}
		r.appendAndBroadcast(drafts)
		r.broadcastRoomUpdate()
		return len(r.members) == 0
	})
}

// succeedHost picks the deterministic successor per spec.md §3: earliest
// joined remaining player, else earliest joined spectator. Caller must hold
// the actor's serialization (only called from inside run()).
func (r *Room) succeedHost() {
	var best *Member
	for i := range r.members {
		m := &r.members[i]
		if m.Role != RolePlayer {
			continue
		}
		if best == nil || m.JoinedAt.Before(best.JoinedAt) {
			best = m
		}
	}
	if best == nil {
		for i := range r.members {
			m := &r.members[i]
			if best == nil || m.JoinedAt.Before(best.JoinedAt) {
				best = m
			}
		}
	}
	if best == nil {
		r.hostID = ""
		return
	}
	r.hostID = best.PlayerID
	r.appendAndBroadcast([]eventlog.Draft{{
		Type:    eventlog.TypeHostChanged,
		Payload: eventlog.HostChangedPayload{NewHostID: r.hostID},
	}})
}

// Kick removes targetId from the room at hostId's request.
func (r *Room) Kick(hostID, targetID string) error {
	return doErr(r, func() error {
		if hostID != r.hostID {
			return ErrNotHost
		}
		if targetID == hostID {
			return ErrKickSelf
		}
		idx := r.memberIndex(targetID)
		if idx < 0 {
			return ErrNotMember
		}
		r.members = append(r.members[:idx], r.members[idx+1:]...)
		r.broadcaster.SendTo(targetID, "you_were_kicked", eventlog.YouWereKickedPayload{RoomID: r.ID})
		r.appendAndBroadcast([]eventlog.Draft{{
			Type:    eventlog.TypeMemberKicked,
			Payload: eventlog.MemberKickedPayload{PlayerID: targetID},
		}})
		r.broadcastRoomUpdate()
		return nil
	})
}

// SetRole moves targetId between player and spectator while no game is
// active (spec.md §4.3).
func (r *Room) SetRole(hostID, targetID string, role MemberRole) error {
	return doErr(r, func() error {
		if hostID != r.hostID {
			return ErrNotHost
		}
		if r.phase != PhaseWaiting {
			return ErrGameInProgress
		}
		idx := r.memberIndex(targetID)
		if idx < 0 {
			return ErrNotMember
		}
		if role == RolePlayer && r.playerCount() >= maxPlayers {
			return ErrRoomFull
		}
		r.members[idx].Role = role
		r.appendAndBroadcast([]eventlog.Draft{{
			Type:    eventlog.TypeRoleChanged,
			Payload: eventlog.RoleChangedPayload{PlayerID: targetID, Role: string(role)},
		}})
		r.broadcastRoomUpdate()
		return nil
	})
}

// ToggleTimer enables or disables the per-turn timer outside an active game.
func (r *Room) ToggleTimer(hostID string, enabled bool) error {
	return doErr(r, func() error {
		if hostID != r.hostID {
			return ErrNotHost
		}
		if r.phase != PhaseWaiting {
			return ErrGameInProgress
		}
		r.timerOn = enabled
		r.broadcastRoomUpdate()
		return nil
	})
}

// SetTeamAssignment records the explicit 2v2_party team map.
func (r *Room) SetTeamAssignment(hostID string, team0, team1 []string) error {
	return doErr(r, func() error {
		if hostID != r.hostID {
			return ErrNotHost
		}
		if len(team0) != 2 || len(team1) != 2 {
			return errors.New("room: team assignment must be 2 and 2")
		}
		assign := make(map[string]int, 4)
		for _, p := range team0 {
			if r.memberIndex(p) < 0 {
				return ErrNotMember
			}
			assign[p] = 0
		}
		for _, p := range team1 {
			if r.memberIndex(p) < 0 {
				return ErrNotMember
			}
			assign[p] = 1
		}
		r.teamAssign = assign
		r.appendAndBroadcast([]eventlog.Draft{{
			Type:    eventlog.TypeTeamsUpdated,
			Actor:   hostID,
			Payload: eventlog.TeamsUpdatedPayload{Team0: team0, Team1: team1},
		}})
		r.broadcastRoomUpdate()
		return nil
	})
}

func (r *Room) broadcastRoomUpdate() {
	r.appendAndBroadcast([]eventlog.Draft{{
		Type:    eventlog.TypeRoomUpdate,
		Payload: r.snapshotLocked(),
	}})
}
