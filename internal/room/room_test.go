package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lukaa21/Zing-sub000/internal/clock"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

// recordingBroadcaster stands in for internal/broadcast.Hub: it records
// every event a Room broadcasts instead of fanning out over a websocket,
// and discards targeted messages.
type recordingBroadcaster struct {
	events []eventlog.Event
}

func (b *recordingBroadcaster) BroadcastEvents(roomID string, events []eventlog.Event) {
	b.events = append(b.events, events...)
}

func (b *recordingBroadcaster) SendTo(sessionID string, typ string, payload interface{}) {}

func newTestRoom(t *testing.T) (*Room, *clock.TestClock) {
	t.Helper()
	clk := clock.NewTestClock(time.Unix(0, 0))
	r := New("room-1", "CODE01", "invite-1", VisibilityPrivate, "p1", "Alice", DefaultConfig(), clk, &recordingBroadcaster{})
	t.Cleanup(r.Close)
	return r, clk
}

// TestVoteRematch_DealerSeatRotatesByPlayerCountNotMemberCount guards a
// spectator-present room against a dealer seat computed modulo the total
// member count: the next deal only has as many seats as there are players.
func TestVoteRematch_DealerSeatRotatesByPlayerCountNotMemberCount(t *testing.T) {
	r, _ := newTestRoom(t)
	require.NoError(t, r.Join("p2", "Bob", RolePlayer))
	require.NoError(t, r.Join("p3", "Carol", RoleSpectator))

	require.NoError(t, r.Start("p1", Start1v1))
	require.NoError(t, r.VoteSurrender("p1")) // p1 is alone on team0; team1 wins immediately

	// Put the dealer seat somewhere that only the buggy (member-count)
	// modulo would push out of range for the 2-seat game about to be dealt.
	do(r, func() bool { r.dealerSeat = 1; return true })

	require.NoError(t, r.VoteRematch("p1"))
	require.NoError(t, r.VoteRematch("p2")) // triggers the rematch (2 of 2 players voted)

	state := r.GameStateFor("p1")
	require.NotNil(t, state)
	require.Less(t, state.DealerSeat, len(state.Players))
	require.Equal(t, 0, state.DealerSeat) // (1+1) % 2 players, not % 3 members
}

// issueReconnectToken honors the configured TTL, not a hardcoded constant.
func TestIssueReconnectToken_HonorsConfiguredTTL(t *testing.T) {
	clk := clock.NewTestClock(time.Unix(0, 0))
	cfg := DefaultConfig()
	cfg.ReconnectTokenTTL = 30 * time.Second
	r := New("room-1", "CODE01", "invite-1", VisibilityPrivate, "p1", "Alice", cfg, clk, &recordingBroadcaster{})
	t.Cleanup(r.Close)

	token := do(r, func() string { return r.issueReconnectToken("p1") })

	clk.Advance(31 * time.Second)
	_, err := r.Rejoin("p1", token)
	require.ErrorIs(t, err, errRejoinExpired)
}

func TestIssueReconnectToken_ValidWithinConfiguredTTL(t *testing.T) {
	clk := clock.NewTestClock(time.Unix(0, 0))
	cfg := DefaultConfig()
	cfg.ReconnectTokenTTL = 30 * time.Second
	r := New("room-1", "CODE01", "invite-1", VisibilityPrivate, "p1", "Alice", cfg, clk, &recordingBroadcaster{})
	t.Cleanup(r.Close)

	token := do(r, func() string { return r.issueReconnectToken("p1") })

	clk.Advance(10 * time.Second)
	_, err := r.Rejoin("p1", token)
	require.NoError(t, err)
}
