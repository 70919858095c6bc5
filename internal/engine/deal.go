package engine

import (
	"github.com/Lukaa21/Zing-sub000/internal/cards"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

// PlayerSeed is the minimal per-seat identity NewRound needs; Team and Seat
// are assigned by the caller (the Room Actor's start protocol, spec.md
// §4.3.1) before the round begins.
type PlayerSeed struct {
	PlayerID string
	Name     string
	Seat     int
	Team     int
}

const cardsPerDealingRound = 4

// NewRound builds a fresh deck for seed, performs the physical cut
// described in spec.md §4.4 (split into halves A and B; B's bottom card is
// reserved for the dealer and dealt last; the 4 cards following it become
// the initial face-up Talon; the remainder of Deck is A followed by what is
// left of B followed by the reserved card), deals the first hand, and
// returns the resulting State plus the hands_dealt event for hand #1.
func NewRound(seeds []PlayerSeed, dealerSeat int, seed int64) (State, []eventlog.Draft) {
	deck := cards.NewDeck()
	cards.Shuffle(deck, seed)

	half := len(deck) / 2
	a := deck[:half]
	b := deck[half:]

	reserved := b[0]
	talon := append([]cards.Card(nil), b[1:5]...)
	bRemainder := b[5:]

	remaining := make([]cards.Card, 0, len(a)+len(bRemainder)+1)
	remaining = append(remaining, a...)
	remaining = append(remaining, bRemainder...)
	remaining = append(remaining, reserved)

	players := make([]Player, len(seeds))
	for i, sd := range seeds {
		players[i] = Player{
			PlayerID: sd.PlayerID,
			Name:     sd.Name,
			Seat:     sd.Seat,
			Team:     sd.Team,
			Hand:     make([]cards.Card, 0, cardsPerDealingRound),
		}
	}

	state := State{
		Players:    players,
		Deck:       remaining,
		Talon:      talon,
		DealerSeat: dealerSeat,
		HandNumber: 0,
	}

	state, d := dealNextHand(state)
	return state, []eventlog.Draft{d}
}

// dealNextHand deals cardsPerDealingRound cards to every player, in seat
// order starting the seat after the dealer, from the top of Deck. It
// assumes every hand is currently empty and Deck holds enough cards, both
// guaranteed by the deal algorithm in spec.md §4.4.
func dealNextHand(s State) (State, eventlog.Draft) {
	s = s.clone()
	s.HandNumber++

	n := len(s.Players)
	start := (s.DealerSeat + 1) % n

	dealt := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		seat := (start + i) % n
		idx := s.PlayerBySeat(seat)
		hand := s.Deck[:cardsPerDealingRound]
		s.Deck = s.Deck[cardsPerDealingRound:]
		s.Players[idx].Hand = append(s.Players[idx].Hand, hand...)
		dealt[s.Players[idx].PlayerID] = eventlog.CardIDs(hand)
	}

	s.CurrentTurnPlayerID = s.Players[s.PlayerBySeat(start)].PlayerID

	d := eventlog.Draft{
		Type: eventlog.TypeHandsDealt,
		Payload: eventlog.HandsDealtPayload{
			HandNumber: s.HandNumber,
			Dealt:      dealt,
		},
	}
	return s, d
}
