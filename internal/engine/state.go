// Package engine implements the Zing rules as a pure function of
// (State, Intent) -> (State, []eventlog.Draft), per spec.md §4.4 and the
// "shared mutable game state -> pure engine + actor state" redesign flag in
// §9. The engine never mutates its receiver in place; every method returns
// a new State value. It never suspends, logs, or touches a clock: scoring,
// dealing, and capture are all deterministic given a seed and an intent
// sequence (spec.md §8 property 1), grounded on the copy-and-return style of
// the teacher's go/cards/golf GameState methods.
package engine

import "github.com/Lukaa21/Zing-sub000/internal/cards"

// Player is one seat's gameplay state. Seat and Team are fixed for the
// life of a round; Hand and Taken mutate as cards move.
type Player struct {
	PlayerID string
	Name     string
	Seat     int
	Team     int
	Hand     []cards.Card
	Taken    []cards.Card
}

func (p Player) clone() Player {
	cp := p
	cp.Hand = append([]cards.Card(nil), p.Hand...)
	cp.Taken = append([]cards.Card(nil), p.Taken...)
	return cp
}

// PendingZing records the card that left the talon at size 1, per spec.md
// §3; it is consumed (or cleared) by the next capture.
type PendingZing struct {
	CardID   string
	PlayerID string
}

// RoundZings accumulates zing points per team during the current round only
// (spec.md §3); it is reset by NewRound.
type RoundZings struct {
	Team0 int
	Team1 int
}

func (z RoundZings) add(team, points int) RoundZings {
	if team == 0 {
		z.Team0 += points
	} else {
		z.Team1 += points
	}
	return z
}

// State is the engine's complete view of one round in progress. It excludes
// the cumulative match Scores and MatchTarget, which the owning Room Actor
// carries across rounds (spec.md §4.4: "the engine is otherwise stateless
// between rounds except for the carried cumulative Scores in the owning
// room state").
type State struct {
	Players             []Player
	Deck                []cards.Card
	Talon               []cards.Card
	DealerSeat          int
	CurrentTurnPlayerID string
	HandNumber          int
	RoundZings          RoundZings
	PendingZing         *PendingZing

	// lastCapturerID is the most recent player to capture the talon this
	// round; it receives any uncaptured remainder at round end.
	lastCapturerID string
	// lastPlayerID is the most recent player to play a card at all, used
	// as the talon-award fallback on the vanishingly rare round with zero
	// captures.
	lastPlayerID string

	// RoundOver is set once every hand and the deck are exhausted; the
	// actor must not feed further PlayCard intents into this State.
	RoundOver bool
}

func (s State) clone() State {
	cp := s
	cp.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		cp.Players[i] = p.clone()
	}
	cp.Deck = append([]cards.Card(nil), s.Deck...)
	cp.Talon = append([]cards.Card(nil), s.Talon...)
	if s.PendingZing != nil {
		pz := *s.PendingZing
		cp.PendingZing = &pz
	}
	return cp
}

// PlayerByID returns the index of the player with the given id, or -1.
func (s State) PlayerByID(id string) int {
	for i, p := range s.Players {
		if p.PlayerID == id {
			return i
		}
	}
	return -1
}

// PlayerBySeat returns the index of the player sitting in seat, or -1.
func (s State) PlayerBySeat(seat int) int {
	for i, p := range s.Players {
		if p.Seat == seat {
			return i
		}
	}
	return -1
}

// CardCount returns |Deck| + Σ|hand| + |Talon| + Σ|taken|, which spec.md §8
// property 2 requires to equal 52 at every moment.
func (s State) CardCount() int {
	n := len(s.Deck) + len(s.Talon)
	for _, p := range s.Players {
		n += len(p.Hand) + len(p.Taken)
	}
	return n
}

// AllHandsEmpty reports whether every player has played their whole hand
// for the current dealing round.
func (s State) AllHandsEmpty() bool {
	for _, p := range s.Players {
		if len(p.Hand) != 0 {
			return false
		}
	}
	return true
}
