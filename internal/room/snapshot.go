package room

import (
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

// snapshotLocked builds the room_update payload from actor-goroutine state.
// Must only be called from inside run().
func (r *Room) snapshotLocked() eventlog.RoomUpdatePayload {
	views := make([]eventlog.MemberView, len(r.members))
	for i, m := range r.members {
		views[i] = eventlog.MemberView{
			PlayerID: m.PlayerID,
			Name:     m.Name,
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.UnixMilli(),
		}
	}
	return eventlog.RoomUpdatePayload{
		RoomID:       r.ID,
		Code:         r.Code,
		HostID:       r.hostID,
		TimerEnabled: r.timerOn,
		Phase:        string(r.phase),
		Members:      views,
	}
}

// Snapshot returns a point-in-time room_update view for a freshly-attached
// subscriber (spec.md §4.2 "a snapshot room_update describing current
// membership").
func (r *Room) Snapshot() eventlog.RoomUpdatePayload {
	return do(r, r.snapshotLocked)
}

// GameStateView is the game_state snapshot sent to a subscriber, with each
// player's own hand visible and every other player's hand redacted to a
// count (the wire contract never leaks opponents' cards).
type GameStateView struct {
	HandNumber          int                     `json:"handNumber"`
	DealerSeat          int                     `json:"dealerSeat"`
	CurrentTurnPlayerID string                  `json:"currentTurnPlayerId"`
	Talon               []string                `json:"talon"`
	Scores              eventlog.Scores         `json:"scores"`
	MatchTarget         int                     `json:"matchTarget"`
	Players             []GamePlayerView        `json:"players"`
	PausedUntilMs       int64                   `json:"pausedUntilMs,omitempty"`
}

type GamePlayerView struct {
	PlayerID  string   `json:"playerId"`
	Name      string   `json:"name"`
	Seat      int      `json:"seat"`
	Team      int      `json:"team"`
	HandSize  int      `json:"handSize"`
	Hand      []string `json:"hand,omitempty"` // populated only for the requesting player
	TakenSize int      `json:"takenSize"`
}

// GameStateFor builds the snapshot for viewerPlayerID, or a spectator-safe
// snapshot (no hand) when viewerPlayerID is empty or not seated.
func (r *Room) GameStateFor(viewerPlayerID string) *GameStateView {
	return do(r, func() *GameStateView {
		if r.game == nil {
			return nil
		}
		g := r.game
		v := &GameStateView{
			HandNumber:          g.HandNumber,
			DealerSeat:          g.DealerSeat,
			CurrentTurnPlayerID: g.CurrentTurnPlayerID,
			Talon:               eventlog.CardIDs(g.Talon),
			Scores:              eventlog.Scores{Team0: r.scores.Team0, Team1: r.scores.Team1},
			MatchTarget:         r.matchTarget,
		}
		if !r.pausedUntil.IsZero() && r.pausedUntil.After(r.clock.Now()) {
			v.PausedUntilMs = r.pausedUntil.UnixMilli()
		}
		for _, p := range g.Players {
			pv := GamePlayerView{
				PlayerID:  p.PlayerID,
				Name:      p.Name,
				Seat:      p.Seat,
				Team:      p.Team,
				HandSize:  len(p.Hand),
				TakenSize: len(p.Taken),
			}
			if p.PlayerID == viewerPlayerID {
				pv.Hand = eventlog.CardIDs(p.Hand)
			}
			v.Players = append(v.Players, pv)
		}
		return v
	})
}

// Tail returns every event after sinceSeq, for reconnect replay.
func (r *Room) Tail(sinceSeq int) []eventlog.Event {
	return r.log.Tail(sinceSeq)
}

func (r *Room) LastSeq() int {
	return r.log.LastSeq()
}
