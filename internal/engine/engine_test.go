package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lukaa21/Zing-sub000/internal/cards"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

func seeds2p() []PlayerSeed {
	return []PlayerSeed{
		{PlayerID: "p1", Name: "Alice", Seat: 0, Team: 0},
		{PlayerID: "p2", Name: "Bob", Seat: 1, Team: 1},
	}
}

// playAll drives ApplyPlayCard by always playing the current player's first
// card in hand, until the round ends or maxSteps is exceeded (a safety net
// against an infinite loop if a test's assumptions are wrong).
func playAll(t *testing.T, s State, maxSteps int) (State, []eventlog.Draft) {
	t.Helper()
	var all []eventlog.Draft
	for i := 0; i < maxSteps; i++ {
		if s.RoundOver {
			return s, all
		}
		idx := s.PlayerByID(s.CurrentTurnPlayerID)
		require.GreaterOrEqual(t, idx, 0)
		card := s.Players[idx].Hand[0]
		next, drafts, err := ApplyPlayCard(s, s.CurrentTurnPlayerID, card.Id())
		require.NoError(t, err)
		s = next
		all = append(all, drafts...)
	}
	t.Fatalf("round did not finish within %d steps", maxSteps)
	return s, all
}

func TestNewRoundIsDeterministicForSeed(t *testing.T) {
	s1, d1 := NewRound(seeds2p(), 0, 12345)
	s2, d2 := NewRound(seeds2p(), 0, 12345)

	require.Equal(t, s1, s2)
	require.Equal(t, len(d1), len(d2))
	require.Equal(t, d1[0].Payload, d2[0].Payload)
}

func TestNewRoundConservesAllCards(t *testing.T) {
	s, _ := NewRound(seeds2p(), 0, 1)
	require.Equal(t, 52, s.CardCount())
}

func TestCardCountConservedThroughoutPlay(t *testing.T) {
	s, _ := NewRound(seeds2p(), 0, 7)
	for i := 0; i < 48 && !s.RoundOver; i++ {
		idx := s.PlayerByID(s.CurrentTurnPlayerID)
		card := s.Players[idx].Hand[0]
		next, _, err := ApplyPlayCard(s, s.CurrentTurnPlayerID, card.Id())
		require.NoError(t, err)
		require.Equal(t, 52, next.CardCount())
		s = next
	}
}

func TestApplyPlayCardRejectsOutOfTurn(t *testing.T) {
	s, _ := NewRound(seeds2p(), 0, 1)
	wrongPlayer := "p2"
	if s.CurrentTurnPlayerID == "p2" {
		wrongPlayer = "p1"
	}
	card := s.Players[s.PlayerByID(wrongPlayer)].Hand[0]
	_, _, err := ApplyPlayCard(s, wrongPlayer, card.Id())
	require.ErrorIs(t, err, ErrNotYourTurn)
}

func TestApplyPlayCardRejectsCardNotHeld(t *testing.T) {
	s, _ := NewRound(seeds2p(), 0, 1)
	_, _, err := ApplyPlayCard(s, s.CurrentTurnPlayerID, "hearts-A")
	if s.Players[s.PlayerByID(s.CurrentTurnPlayerID)].Hand[0].Id() == "hearts-A" {
		require.NoError(t, err)
		return
	}
	require.ErrorIs(t, err, ErrCardNotInHand)
}

// buildState assembles a bare two-player State directly, bypassing NewRound,
// so capture/zing scenarios can set up exact hands and an exact talon.
func buildState(t *testing.T, p1Hand, p2Hand, talon []cards.Card, turn string) State {
	t.Helper()
	return State{
		Players: []Player{
			{PlayerID: "p1", Name: "Alice", Seat: 0, Team: 0, Hand: p1Hand},
			{PlayerID: "p2", Name: "Bob", Seat: 1, Team: 1, Hand: p2Hand},
		},
		Deck:                nil,
		Talon:               talon,
		DealerSeat:          1,
		CurrentTurnPlayerID: turn,
	}
}

func c(s cards.Suit, r cards.Rank) cards.Card { return cards.Card{Suit: s, Rank: r} }

// Z1: matching rank capture, talon was not size 1 beforehand -> no zing.
func TestZ1_MatchingRankCaptureNoZing(t *testing.T) {
	s := buildState(t,
		[]cards.Card{c(cards.Hearts, cards.Five)},
		[]cards.Card{c(cards.Clubs, cards.Nine)},
		[]cards.Card{c(cards.Spades, cards.Two), c(cards.Diamonds, cards.Five)},
		"p1",
	)
	next, drafts, err := ApplyPlayCard(s, "p1", "hearts-5")
	require.NoError(t, err)
	require.Empty(t, next.Talon)
	require.Len(t, next.Players[0].Taken, 3)

	taken := findEvent(drafts, eventlog.TypeTalonTaken).Payload.(eventlog.TalonTakenPayload)
	require.Nil(t, taken.Zing)
}

// Z2: talon holds exactly one card, next play captures it by matching rank
// -> a single (10pt) zing.
func TestZ2_SingleCardTalonMatchIsZing(t *testing.T) {
	s := buildState(t,
		[]cards.Card{c(cards.Hearts, cards.Five)},
		[]cards.Card{c(cards.Clubs, cards.Nine)},
		[]cards.Card{c(cards.Diamonds, cards.Five)},
		"p1",
	)
	s.PendingZing = &PendingZing{CardID: "diamonds-5", PlayerID: "p2"}
	next, drafts, err := ApplyPlayCard(s, "p1", "hearts-5")
	require.NoError(t, err)
	require.Equal(t, 10, next.RoundZings.Team0)

	taken := findEvent(drafts, eventlog.TypeTalonTaken).Payload.(eventlog.TalonTakenPayload)
	require.NotNil(t, taken.Zing)
	require.Equal(t, 10, taken.Zing.Points)
	require.False(t, taken.Zing.Double)
}

// Z3: a Jack sweeps a talon of exactly one non-Jack card. Excluded from
// zing scoring even though the talon was size 1.
func TestZ3_JackSweepingSingleNonJackIsNotZing(t *testing.T) {
	s := buildState(t,
		[]cards.Card{c(cards.Hearts, cards.Jack)},
		[]cards.Card{c(cards.Clubs, cards.Nine)},
		[]cards.Card{c(cards.Diamonds, cards.Five)},
		"p1",
	)
	s.PendingZing = &PendingZing{CardID: "diamonds-5", PlayerID: "p2"}
	next, drafts, err := ApplyPlayCard(s, "p1", "hearts-J")
	require.NoError(t, err)
	require.Equal(t, 0, next.RoundZings.Team0)

	taken := findEvent(drafts, eventlog.TypeTalonTaken).Payload.(eventlog.TalonTakenPayload)
	require.Nil(t, taken.Zing)
}

// Z4: a Jack lands on a talon whose single pending card was itself a Jack
// -> double zing, 20 points.
func TestZ4_DoubleJackZing(t *testing.T) {
	s := buildState(t,
		[]cards.Card{c(cards.Hearts, cards.Jack)},
		[]cards.Card{c(cards.Clubs, cards.Nine)},
		[]cards.Card{c(cards.Diamonds, cards.Jack)},
		"p1",
	)
	s.PendingZing = &PendingZing{CardID: "diamonds-J", PlayerID: "p2"}
	next, drafts, err := ApplyPlayCard(s, "p1", "hearts-J")
	require.NoError(t, err)
	require.Equal(t, 20, next.RoundZings.Team0)

	taken := findEvent(drafts, eventlog.TypeTalonTaken).Payload.(eventlog.TalonTakenPayload)
	require.NotNil(t, taken.Zing)
	require.Equal(t, 20, taken.Zing.Points)
	require.True(t, taken.Zing.Double)
}

// B1: one team takes strictly more cards -> +3 bonus to that team.
func TestB1_MajorityBonusToMoreCards(t *testing.T) {
	s := State{
		Players: []Player{
			{PlayerID: "p1", Team: 0, Taken: make([]cards.Card, 30)},
			{PlayerID: "p2", Team: 1, Taken: make([]cards.Card, 22)},
		},
	}
	result := ScoreRound(s)
	require.NotNil(t, result.Bonus)
	require.Equal(t, "most_cards", result.Bonus.Reason)
	require.Equal(t, 0, result.Bonus.AwardedToTeam)
}

// B2: 26/26 tie broken by whichever team's captures include the 2 of clubs.
func TestB2_TieBrokenByTwoOfClubs(t *testing.T) {
	p1Taken := make([]cards.Card, 25)
	p1Taken = append(p1Taken, c(cards.Clubs, cards.Two))
	s := State{
		Players: []Player{
			{PlayerID: "p1", Team: 0, Taken: p1Taken},
			{PlayerID: "p2", Team: 1, Taken: make([]cards.Card, 26)},
		},
	}
	result := ScoreRound(s)
	require.NotNil(t, result.Bonus)
	require.Equal(t, "tie_two_clubs", result.Bonus.Reason)
	require.Equal(t, 0, result.Bonus.AwardedToTeam)
}

func TestFullRoundDealsAndEndsWithAllCardsAccountedFor(t *testing.T) {
	s, _ := NewRound(seeds2p(), 0, 99)
	final, _ := playAll(t, s, 200)
	require.True(t, final.RoundOver)
	require.Equal(t, 52, final.CardCount())
	require.Empty(t, final.Talon)

	total := 0
	for _, p := range final.Players {
		total += len(p.Taken)
	}
	require.Equal(t, 52, total)
}

func findEvent(drafts []eventlog.Draft, typ eventlog.Type) *eventlog.Draft {
	for i := range drafts {
		if drafts[i].Type == typ {
			return &drafts[i]
		}
	}
	return nil
}
