package engine

import (
	"github.com/Lukaa21/Zing-sub000/internal/cards"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

// ScoreRound tallies base card values, zings, and the majority bonus for a
// round that has ended (state.RoundOver), per spec.md §4.4. It does not
// mutate or require State; the Room Actor is responsible for folding the
// returned per-team totals into its own cumulative Scores.
func ScoreRound(state State) eventlog.RoundEndPayload {
	var team0, team1 eventlog.TeamScore
	var takenCount [2]int
	var twoOfClubsTeam = -1

	for _, p := range state.Players {
		ts := &team0
		if p.Team == 1 {
			ts = &team1
		}
		ts.Players = append(ts.Players, p.PlayerID)
		ts.TotalTaken += len(p.Taken)
		takenCount[p.Team] += len(p.Taken)
		for _, c := range p.Taken {
			v := cards.BaseValue(c)
			if v > 0 {
				ts.ScoringCards++
				ts.TotalPoints += v
			}
			if cards.IsTwoOfClubs(c) {
				twoOfClubsTeam = p.Team
			}
		}
	}
	team0.Zings = state.RoundZings.Team0
	team1.Zings = state.RoundZings.Team1
	team0.TotalPoints += team0.Zings
	team1.TotalPoints += team1.Zings

	var bonus *eventlog.RoundBonus
	switch {
	case takenCount[0] > takenCount[1]:
		bonus = &eventlog.RoundBonus{Reason: "most_cards", AwardedToTeam: 0}
	case takenCount[1] > takenCount[0]:
		bonus = &eventlog.RoundBonus{Reason: "most_cards", AwardedToTeam: 1}
	default:
		// 26/26 tie: the team holding the 2 of clubs among its captures wins
		// the bonus (spec.md §4.4).
		if twoOfClubsTeam >= 0 {
			bonus = &eventlog.RoundBonus{Reason: "tie_two_clubs", AwardedToTeam: twoOfClubsTeam}
		}
	}
	if bonus != nil {
		if bonus.AwardedToTeam == 0 {
			team0.TotalPoints += 3
		} else {
			team1.TotalPoints += 3
		}
	}

	return eventlog.RoundEndPayload{
		Scores: eventlog.Scores{Team0: team0.TotalPoints, Team1: team1.TotalPoints},
		Teams: map[string]eventlog.TeamScore{
			"team0": team0,
			"team1": team1,
		},
		Bonus: bonus,
	}
}
