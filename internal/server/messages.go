package server

import "encoding/json"

// envelope is the wire shape of every client -> server message (spec.md §6):
// a type tag at the message level wrapping a typed payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type authMsg struct {
	Token   string `json:"token"`
	GuestID string `json:"guestId"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

type createPrivateRoomMsg struct {
	Name string `json:"name"`
}

type joinRoomMsg struct {
	RoomID      string `json:"roomId"`
	Code        string `json:"code"`
	InviteToken string `json:"inviteToken"`
	GuestID     string `json:"guestId"`
	Name        string `json:"name"`
}

type rejoinRoomMsg struct {
	RoomID         string `json:"roomId"`
	PlayerID       string `json:"playerId"`
	ReconnectToken string `json:"reconnectToken"`
}

type roomOnlyMsg struct {
	RoomID string `json:"roomId"`
}

type kickMemberMsg struct {
	RoomID       string `json:"roomId"`
	TargetUserID string `json:"targetUserId"`
}

type setMemberRoleMsg struct {
	RoomID       string `json:"roomId"`
	TargetUserID string `json:"targetUserId"`
	Role         string `json:"role"`
}

type toggleTimerMsg struct {
	RoomID  string `json:"roomId"`
	Enabled bool   `json:"enabled"`
}

type setTeamAssignmentMsg struct {
	RoomID string   `json:"roomId"`
	Team0  []string `json:"team0"`
	Team1  []string `json:"team1"`
}

type intentPlayCardMsg struct {
	RoomID string `json:"roomId"`
	CardID string `json:"cardId"`
}

type intentPlayCardAsMsg struct {
	RoomID     string `json:"roomId"`
	CardID     string `json:"cardId"`
	AsPlayerID string `json:"asPlayerId"`
}

type findGameMsg struct {
	Mode string `json:"mode"`
}

type sendInviteMsg struct {
	FriendID string `json:"friendId"`
}

type inviteIDMsg struct {
	InviteID string `json:"inviteId"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
