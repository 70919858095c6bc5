package room

import (
	"errors"
	"math/rand"

	"github.com/Lukaa21/Zing-sub000/internal/engine"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

type StartMode string

const (
	Start1v1       StartMode = "1v1"
	Start2v2Random StartMode = "2v2_random"
	Start2v2Party  StartMode = "2v2_party"
)

var (
	ErrNotYourTurn   = errors.New("room: not_your_turn")
	ErrIllegalCard   = errors.New("room: illegal_card")
	ErrPaused        = errors.New("room: paused")
	ErrTurnExpired   = errors.New("room: turn_expired")
	ErrDevModeOff    = errors.New("room: dev_mode_disabled")
	ErrBadStartCount = errors.New("room: wrong player count for mode")
)

// Start begins a game in the given mode, per the preconditions table in
// spec.md §4.3.1.
func (r *Room) Start(hostID string, mode StartMode) error {
	return doErr(r, func() error {
		if hostID != r.hostID {
			return ErrNotHost
		}
		if r.phase != PhaseWaiting {
			return ErrAlreadyStarted
		}
		seeds, err := r.buildSeeds(mode)
		if err != nil {
			return err
		}
		r.beginRound(seeds, rand.Int63())
		return nil
	})
}

// StartMatchmade begins a game immediately with an explicit seat/team
// assignment, bypassing the host-click preconditions Start enforces — used
// only for matchmaking rooms, which auto-start as soon as their cohort is
// complete (spec.md §4.6) and have no host action driving Start.
func (r *Room) StartMatchmade(seeds []engine.PlayerSeed) error {
	return doErr(r, func() error {
		if r.phase != PhaseWaiting {
			return ErrAlreadyStarted
		}
		r.beginRound(seeds, rand.Int63())
		return nil
	})
}

func (r *Room) buildSeeds(mode StartMode) ([]engine.PlayerSeed, error) {
	var players []Member
	for _, m := range r.members {
		if m.Role == RolePlayer {
			players = append(players, m)
		}
	}
	switch mode {
	case Start1v1:
		if len(players) != 2 {
			return nil, ErrBadStartCount
		}
		return []engine.PlayerSeed{
			{PlayerID: players[0].PlayerID, Name: players[0].Name, Seat: 0, Team: 0},
			{PlayerID: players[1].PlayerID, Name: players[1].Name, Seat: 1, Team: 1},
		}, nil
	case Start2v2Random:
		if len(players) != 4 {
			return nil, ErrBadStartCount
		}
		order := rand.Perm(4)
		seeds := make([]engine.PlayerSeed, 4)
		for seat, playerIdx := range order {
			p := players[playerIdx]
			seeds[seat] = engine.PlayerSeed{PlayerID: p.PlayerID, Name: p.Name, Seat: seat, Team: seat % 2}
		}
		return seeds, nil
	case Start2v2Party:
		if len(players) != 4 {
			return nil, ErrBadStartCount
		}
		if len(r.teamAssign) != 4 {
			return nil, errors.New("room: team assignment required for 2v2_party")
		}
		seeds := make([]engine.PlayerSeed, 4)
		for i, p := range players {
			seeds[i] = engine.PlayerSeed{PlayerID: p.PlayerID, Name: p.Name, Seat: i, Team: r.teamAssign[p.PlayerID]}
		}
		return seeds, nil
	default:
		return nil, errors.New("room: unknown start mode")
	}
}

// beginRound runs initialDeal and transitions the room to playing. Must run
// on the actor goroutine.
func (r *Room) beginRound(seeds []engine.PlayerSeed, seed int64) {
	r.phase = PhasePlaying
	state, drafts := engine.NewRound(seeds, r.dealerSeat, seed)
	r.game = &state

	gameID := newRoomID()
	allDrafts := append([]eventlog.Draft{{
		Type:    eventlog.TypeGameStarted,
		Payload: eventlog.GameStartedPayload{GameID: gameID},
	}}, drafts...)
	r.appendAndBroadcast(allDrafts)
	for _, m := range r.members {
		r.issueReconnectToken(m.PlayerID)
	}
	r.startTurnTimer()
}

// PlayCard validates and applies a play_card intent (spec.md §4.3.2).
func (r *Room) PlayCard(playerID, cardID string) error {
	return doErr(r, func() error { return r.applyPlay(playerID, cardID) })
}

// PlayCardAs is the dev-only impersonation intent.
func (r *Room) PlayCardAs(callerID, asPlayerID, cardID string) error {
	return doErr(r, func() error {
		if !r.cfg.DevModeEnabled {
			return ErrDevModeOff
		}
		return r.applyPlay(asPlayerID, cardID)
	})
}

func (r *Room) applyPlay(playerID, cardID string) error {
	if r.phase != PhasePlaying || r.game == nil {
		return ErrGameInProgress
	}
	if r.isPaused() {
		return ErrPaused
	}
	if r.game.CurrentTurnPlayerID != playerID {
		return ErrNotYourTurn
	}
	idx := r.game.PlayerByID(playerID)
	if idx < 0 {
		return ErrNotMember
	}
	held := false
	for _, c := range r.game.Players[idx].Hand {
		if c.Id() == cardID {
			held = true
			break
		}
	}
	if !held {
		return ErrIllegalCard
	}

	r.stopTurnTimer()

	next, drafts, err := engine.ApplyPlayCard(*r.game, playerID, cardID)
	if err != nil {
		return ErrIllegalCard
	}
	r.game = &next
	r.appendAndBroadcast(drafts)

	talonTaken := false
	for _, d := range drafts {
		if d.Type == eventlog.TypeTalonTaken {
			talonTaken = true
		}
	}

	if next.RoundOver {
		r.finishRound()
		return nil
	}

	if talonTaken {
		r.startTalonPause()
	} else {
		r.startTurnTimer()
	}
	return nil
}

// finishRound scores the round, folds points into cumulative Scores, and
// decides whether to raise the target, end the match, or deal again
// (spec.md §4.3.3).
func (r *Room) finishRound() {
	result := engine.ScoreRound(*r.game)
	r.scores.Team0 += result.Scores.Team0
	r.scores.Team1 += result.Scores.Team1

	drafts := []eventlog.Draft{
		{Type: eventlog.TypeRoundEnd, Payload: result},
		{Type: eventlog.TypeScoresUpdated, Payload: eventlog.ScoresUpdatedPayload{Team0: r.scores.Team0, Team1: r.scores.Team1}},
	}
	r.appendAndBroadcast(drafts)

	team0Crossed := r.scores.Team0 >= r.matchTarget
	team1Crossed := r.scores.Team1 >= r.matchTarget

	switch {
	case team0Crossed && team1Crossed:
		r.matchTarget += r.cfg.MatchTargetStep
		r.startRecapPauseThen(r.dealNextRound)
	case team0Crossed || team1Crossed:
		winner := 0
		if team1Crossed {
			winner = 1
		}
		r.endMatch(winner)
	default:
		r.startRecapPauseThen(r.dealNextRound)
	}
}

func (r *Room) endMatch(winnerTeam int) {
	r.phase = PhasePostgame
	r.appendAndBroadcast([]eventlog.Draft{{
		Type: eventlog.TypeMatchEnd,
		Payload: eventlog.MatchEndPayload{
			WinnerTeam:  winnerTeam,
			FinalScores: eventlog.Scores{Team0: r.scores.Team0, Team1: r.scores.Team1},
		},
	}})
}

// dealNextRound reshuffles, rotates the dealer one seat clockwise, and
// re-deals, run after the recap pause lifts.
func (r *Room) dealNextRound() {
	if r.game == nil {
		return
	}
	n := len(r.game.Players)
	seeds := make([]engine.PlayerSeed, n)
	for i, p := range r.game.Players {
		seeds[i] = engine.PlayerSeed{PlayerID: p.PlayerID, Name: p.Name, Seat: p.Seat, Team: p.Team}
	}
	r.dealerSeat = (r.dealerSeat + 1) % n
	state, drafts := engine.NewRound(seeds, r.dealerSeat, rand.Int63())
	r.game = &state
	r.phase = PhasePlaying
	r.appendAndBroadcast(drafts)
	r.startTurnTimer()
}

func (r *Room) isPaused() bool {
	return !r.pausedUntil.IsZero() && r.pausedUntil.After(r.clock.Now())
}

// VoteSurrender records a surrender vote; when every living player on a
// team has voted, the opposing team wins (spec.md §4.3.4).
func (r *Room) VoteSurrender(playerID string) error {
	return doErr(r, func() error {
		if r.game == nil {
			return ErrGameInProgress
		}
		idx := r.game.PlayerByID(playerID)
		if idx < 0 {
			return ErrNotMember
		}
		team := r.game.Players[idx].Team
		r.surrenderVotes[team][playerID] = true

		teamMembers := 0
		for _, p := range r.game.Players {
			if p.Team == team {
				teamMembers++
			}
		}
		if len(r.surrenderVotes[team]) >= teamMembers {
			opponent := 1 - team
			r.endMatch(opponent)
			return nil
		}
		r.appendAndBroadcast([]eventlog.Draft{{
			Type:    eventlog.TypeSurrenderVote,
			Actor:   playerID,
			Payload: eventlog.SurrenderVotePayload{PlayerID: playerID, Team: team},
		}})
		return nil
	})
}

// VoteRematch records a rematch vote in postgame; once every player-role
// member has voted, a new game starts with the dealer rotated one seat.
func (r *Room) VoteRematch(playerID string) error {
	return doErr(r, func() error {
		if r.phase != PhasePostgame {
			return ErrGameInProgress
		}
		r.rematchVotes[playerID] = true
		total := r.playerCount()
		if len(r.rematchVotes) >= total {
			r.rematchVotes = map[string]bool{}
			r.scores = engine.RoundZings{}
			r.matchTarget = r.cfg.MatchTargetInitial
			r.dealerSeat = (r.dealerSeat + 1) % max(1, total)
			seeds, err := r.buildSeeds(r.lastModeGuess())
			if err != nil {
				return err
			}
			r.beginRound(seeds, rand.Int63())
			return nil
		}
		r.appendAndBroadcast([]eventlog.Draft{{
			Type:    eventlog.TypeRematchVote,
			Actor:   playerID,
			Payload: eventlog.RematchVotePayload{PlayerID: playerID},
		}})
		return nil
	})
}

// lastModeGuess infers the start mode from current player count, since
// rematch reuses the prior membership rather than asking the host again.
func (r *Room) lastModeGuess() StartMode {
	if r.playerCount() == 4 {
		return Start2v2Party
	}
	return Start1v1
}

// ExitGame classifies the exit per spec.md §4.3.4: in a matchmaking room the
// participant is removed from membership and stayed is false (no new room is
// created); a private room reverts to waiting while keeping membership.
func (r *Room) ExitGame(playerID string) (stayed bool, err error) {
	return do2(r, func() (bool, error) {
		if r.Visibility == VisibilityMatchmaking {
			idx := r.memberIndex(playerID)
			if idx >= 0 {
				r.members = append(r.members[:idx], r.members[idx+1:]...)
			}
			r.appendAndBroadcast([]eventlog.Draft{{
				Type:    eventlog.TypeGameExited,
				Actor:   playerID,
				Payload: eventlog.GameExitedPayload{PlayerID: playerID},
			}})
			return false, nil
		}
		r.phase = PhaseWaiting
		r.game = nil
		r.scores = engine.RoundZings{}
		r.matchTarget = r.cfg.MatchTargetInitial
		r.broadcastRoomUpdate()
		return true, nil
	})
}

