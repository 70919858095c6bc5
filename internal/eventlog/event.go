// Package eventlog defines the closed set of event types the Room Actor and
// Game Engine emit (spec.md §4.3.5) and the append-only per-room log that
// backs replay-on-rejoin. Every event type is a concrete payload struct
// rather than a bag of `any`, per the "dynamic payloads -> tagged variants"
// redesign flag in spec.md §9.
package eventlog

import "github.com/Lukaa21/Zing-sub000/internal/cards"

type Type string

const (
	TypeGameStarted       Type = "game_started"
	TypeHandsDealt        Type = "hands_dealt"
	TypeCardPlayed        Type = "card_played"
	TypeTalonTaken        Type = "talon_taken"
	TypeTalonAwarded      Type = "talon_awarded"
	TypeRoundEnd          Type = "round_end"
	TypeScoresUpdated     Type = "scores_updated"
	TypeMatchEnd          Type = "match_end"
	TypeTurnTimerStarted  Type = "turn_timer_started"
	TypeRoomUpdate        Type = "room_update"
	TypeHostChanged       Type = "host_changed"
	TypeRoleChanged       Type = "role_changed"
	TypeMemberKicked      Type = "member_kicked"
	TypeMemberLeft        Type = "member_left"
	TypeYouWereKicked     Type = "you_were_kicked"
	TypeSurrenderVote     Type = "surrender_vote_added"
	TypeTeamSurrendered   Type = "team_surrendered"
	TypeRematchVote       Type = "rematch_vote_added"
	TypeRematchStarted    Type = "rematch_started"
	TypeGameExited        Type = "game_exited"
	TypeReconnectToken    Type = "reconnect_token"
	TypeTeamsUpdated      Type = "teams_updated"
)

// Event is one entry in a room's append-only log. Payload is always one of
// the Payload structs below for the matching Type; the actor is the only
// writer and controls that pairing.
type Event struct {
	Seq     int         `json:"seq"`
	Type    Type        `json:"type"`
	Actor   string      `json:"actor,omitempty"`
	Payload interface{} `json:"payload"`
}

// Draft is an event the Game Engine or Room Actor wants appended, before it
// has been assigned a Seq. Only Log.Append (the single serialization point
// for a room, per spec.md §5) mints seq numbers, so engine code — which is
// pure and has no access to the log — produces Drafts rather than Events.
type Draft struct {
	Type    Type
	Actor   string
	Payload interface{}
}

type GameStartedPayload struct {
	GameID string `json:"gameId"`
}

// HandsDealtPayload carries the full deal (every player's new cards) for
// log/audit and replay purposes. Client-facing projections redact `Dealt`
// down to the subscriber's own cards; the log itself keeps the full record
// per spec.md §4.3.5.
type HandsDealtPayload struct {
	HandNumber int                 `json:"handNumber"`
	Dealt      map[string][]string `json:"dealt"`
}

type CardPlayedPayload struct {
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId"`
}

type ZingInfo struct {
	Points int  `json:"points"`
	Double bool `json:"double"`
}

type TalonTakenPayload struct {
	PlayerID string    `json:"playerId"`
	Taken    []string  `json:"taken"`
	Zing     *ZingInfo `json:"zing"`
}

type TalonAwardedPayload struct {
	PlayerID string   `json:"playerId"`
	Taken    []string `json:"taken"`
}

type TeamScore struct {
	ScoringCards int      `json:"scoringCards"`
	Zings        int      `json:"zings"`
	TotalTaken   int      `json:"totalTaken"`
	TotalPoints  int      `json:"totalPoints"`
	Players      []string `json:"players"`
}

type RoundBonus struct {
	Reason         string `json:"reason"` // most_cards | tie_two_clubs
	AwardedToTeam  int    `json:"awardedToTeam"`
}

type RoundEndPayload struct {
	Scores Scores               `json:"scores"`
	Teams  map[string]TeamScore `json:"teams"` // keys "team0","team1"
	Bonus  *RoundBonus          `json:"bonus"`
}

type Scores struct {
	Team0 int `json:"team0"`
	Team1 int `json:"team1"`
}

type ScoresUpdatedPayload struct {
	Team0 int `json:"team0"`
	Team1 int `json:"team1"`
}

type MatchEndPayload struct {
	WinnerTeam  int    `json:"winnerTeam"`
	FinalScores Scores `json:"finalScores"`
}

type TurnTimerStartedPayload struct {
	PlayerID  string `json:"playerId"`
	DurationMs int64 `json:"duration"`
	ExpiresAt  int64 `json:"expiresAt"` // unix millis
}

type MemberView struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	JoinedAt int64  `json:"joinedAt"`
}

type RoomUpdatePayload struct {
	RoomID        string       `json:"roomId"`
	Code          string       `json:"code,omitempty"`
	HostID        string       `json:"hostId"`
	TimerEnabled  bool         `json:"timerEnabled"`
	Phase         string       `json:"phase"`
	Members       []MemberView `json:"members"`
}

type HostChangedPayload struct {
	NewHostID string `json:"newHostId"`
}

type RoleChangedPayload struct {
	PlayerID string `json:"playerId"`
	Role     string `json:"role"`
}

type MemberKickedPayload struct {
	PlayerID string `json:"playerId"`
}

type MemberLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type YouWereKickedPayload struct {
	RoomID string `json:"roomId"`
}

type SurrenderVotePayload struct {
	PlayerID string `json:"playerId"`
	Team     int    `json:"team"`
}

type RematchVotePayload struct {
	PlayerID string `json:"playerId"`
}

type GameExitedPayload struct {
	PlayerID string `json:"playerId"`
}

type ReconnectTokenPayload struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token"`
}

type TeamsUpdatedPayload struct {
	Team0 []string `json:"team0"`
	Team1 []string `json:"team1"`
}

// CardIDs renders a slice of cards as their canonical wire ids, used when
// building event payloads from engine-internal []cards.Card slices.
func CardIDs(cs []cards.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Id()
	}
	return out
}
