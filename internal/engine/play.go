package engine

import (
	"errors"

	"github.com/Lukaa21/Zing-sub000/internal/cards"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

var (
	ErrNotYourTurn    = errors.New("engine: not your turn")
	ErrCardNotInHand  = errors.New("engine: card not in hand")
	ErrRoundIsOver    = errors.New("engine: round is already over")
	ErrUnknownPlayer  = errors.New("engine: unknown player")
)

// ApplyPlayCard plays cardID from playerID's hand onto the Talon, resolves
// any capture, advances the turn, and deals the next hand or ends the round
// as needed. It never mutates state in place (spec.md §4.4 purity
// requirement) and returns the drafts the caller (the Room Actor, via its
// Log) should append in order.
func ApplyPlayCard(state State, playerID, cardID string) (State, []eventlog.Draft, error) {
	if state.RoundOver {
		return state, nil, ErrRoundIsOver
	}
	if state.CurrentTurnPlayerID != playerID {
		return state, nil, ErrNotYourTurn
	}
	idx := state.PlayerByID(playerID)
	if idx < 0 {
		return state, nil, ErrUnknownPlayer
	}

	s := state.clone()
	player := &s.Players[idx]

	cardIdx := -1
	for i, c := range player.Hand {
		if c.Id() == cardID {
			cardIdx = i
			break
		}
	}
	if cardIdx < 0 {
		return state, nil, ErrCardNotInHand
	}
	played := player.Hand[cardIdx]
	player.Hand = append(player.Hand[:cardIdx], player.Hand[cardIdx+1:]...)

	var drafts []eventlog.Draft
	drafts = append(drafts, eventlog.Draft{
		Type:   eventlog.TypeCardPlayed,
		Actor:  playerID,
		Payload: eventlog.CardPlayedPayload{PlayerID: playerID, CardID: cardID},
	})

	prevTalonSize := len(s.Talon)
	captures := played.Rank == cards.Jack || matchesTopOfTalon(played, s.Talon)

	s.lastPlayerID = playerID

	if captures {
		taken := append([]cards.Card(nil), s.Talon...)
		taken = append(taken, played)
		s.Talon = nil
		player.Taken = append(player.Taken, taken...)
		s.lastCapturerID = playerID

		zing := resolveZing(played, prevTalonSize, playerID, s.PendingZing)
		s.PendingZing = nil
		if zing != nil {
			s.RoundZings = s.RoundZings.add(player.Team, zing.Points)
		}

		drafts = append(drafts, eventlog.Draft{
			Type:  eventlog.TypeTalonTaken,
			Actor: playerID,
			Payload: eventlog.TalonTakenPayload{
				PlayerID: playerID,
				Taken:    eventlog.CardIDs(taken),
				Zing:     zing,
			},
		})
	} else {
		s.Talon = append(s.Talon, played)
		if len(s.Talon) == 1 {
			s.PendingZing = &PendingZing{CardID: played.Id(), PlayerID: playerID}
		}
	}

	s = advanceTurn(s, idx)

	if s.AllHandsEmpty() {
		if len(s.Deck) > 0 {
			var d eventlog.Draft
			s, d = dealNextHand(s)
			drafts = append(drafts, d)
		} else {
			s.RoundOver = true
			if len(s.Talon) > 0 {
				awardee := s.lastCapturerID
				if awardee == "" {
					awardee = s.lastPlayerID
				}
				awardIdx := s.PlayerByID(awardee)
				taken := append([]cards.Card(nil), s.Talon...)
				s.Players[awardIdx].Taken = append(s.Players[awardIdx].Taken, taken...)
				s.Talon = nil
				drafts = append(drafts, eventlog.Draft{
					Type:  eventlog.TypeTalonAwarded,
					Actor: awardee,
					Payload: eventlog.TalonAwardedPayload{
						PlayerID: awardee,
						Taken:    eventlog.CardIDs(taken),
					},
				})
			}
		}
	}

	return s, drafts, nil
}

// matchesTopOfTalon reports whether played captures by rank match against
// the talon's current top (last-played) card. An empty talon cannot be
// captured by rank, only by a Jack.
func matchesTopOfTalon(played cards.Card, talon []cards.Card) bool {
	if len(talon) == 0 {
		return false
	}
	top := talon[len(talon)-1]
	return top.Rank == played.Rank
}

// resolveZing decides whether the capture just made is a zing, per spec.md
// §3: a zing happens only when the talon held exactly one card (prevTalonSize
// == 1) immediately before this play. A Jack sweeping a single non-Jack card
// is explicitly excluded (the Jack is "taking the table", not matching it).
// A double zing — the Jack just played landing on a single pending Jack —
// scores 20; every other qualifying zing scores 10.
func resolveZing(played cards.Card, prevTalonSize int, playerID string, pending *PendingZing) *eventlog.ZingInfo {
	if prevTalonSize != 1 {
		return nil
	}
	if pending == nil {
		return nil
	}
	pendingWasJack := false
	if pc, err := cards.ParseId(pending.CardID); err == nil {
		pendingWasJack = pc.Rank == cards.Jack
	}
	if played.Rank == cards.Jack && !pendingWasJack {
		// Jack sweeping a single non-Jack card is not a zing.
		return nil
	}
	if played.Rank == cards.Jack && pendingWasJack {
		return &eventlog.ZingInfo{Points: 20, Double: true}
	}
	return &eventlog.ZingInfo{Points: 10, Double: false}
}

// advanceTurn moves CurrentTurnPlayerID to the next occupied seat, in seat
// order, whether or not that player still holds cards. fromIdx is the index
// of the player who just played.
func advanceTurn(s State, fromIdx int) State {
	n := len(s.Players)
	if n == 0 {
		return s
	}
	fromSeat := s.Players[fromIdx].Seat
	for i := 1; i <= n; i++ {
		seat := (fromSeat + i) % n
		idx := s.PlayerBySeat(seat)
		if idx < 0 {
			continue
		}
		s.CurrentTurnPlayerID = s.Players[idx].PlayerID
		break
	}
	return s
}
