// Package room implements the Room Actor (spec.md §4.3): the single
// serialization point for one room's membership and gameplay. Every
// exported method except Tail and LastSeq (which read the mutex-guarded
// event log directly) and Close enqueues a closure onto the actor's own
// goroutine and blocks the caller until it runs, so callers never need
// their own locks around a Room (spec.md §5's "serialized queue/mailbox"
// discipline).
package room

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Lukaa21/Zing-sub000/internal/clock"
	"github.com/Lukaa21/Zing-sub000/internal/engine"
	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhasePostgame Phase = "postgame"
)

type MemberRole string

const (
	RolePlayer    MemberRole = "player"
	RoleSpectator MemberRole = "spectator"
)

type Visibility string

const (
	VisibilityPrivate     Visibility = "private"
	VisibilityMatchmaking Visibility = "matchmaking"
)

const maxPlayers = 4
const maxSpectatorsDefault = 8

// Member is one entry in the room's ordered membership list. Insertion
// order defines seat order at game start (spec.md §3).
type Member struct {
	PlayerID string
	Name     string
	Role     MemberRole
	JoinedAt time.Time
	Team     int // not populated; the 2v2_party team map is kept in Room.teamAssign
}

// Config holds the tunables spec.md §6 lists under "Configuration".
type Config struct {
	TurnDuration         time.Duration
	TalonPause           time.Duration
	RecapPause           time.Duration
	ReconnectTokenTTL    time.Duration
	MatchTargetInitial   int
	MatchTargetStep      int
	MaxSpectatorsPerRoom int
	DevModeEnabled       bool
}

func DefaultConfig() Config {
	return Config{
		TurnDuration:         12 * time.Second,
		TalonPause:           1500 * time.Millisecond,
		RecapPause:           9 * time.Second,
		ReconnectTokenTTL:    10 * time.Minute,
		MatchTargetInitial:   101,
		MatchTargetStep:      50,
		MaxSpectatorsPerRoom: maxSpectatorsDefault,
		DevModeEnabled:       false,
	}
}

// Broadcaster is how a Room tells the outside world about new events and
// membership snapshots. The Room Actor never touches a websocket directly;
// implementations fan out to subscribed sessions (spec.md §4.2, component K).
type Broadcaster interface {
	// BroadcastEvents delivers events, in order, to every session currently
	// subscribed to roomID.
	BroadcastEvents(roomID string, events []eventlog.Event)
	// SendTo delivers a single message to every live session of playerID
	// only (reconnect tokens, you_were_kicked).
	SendTo(playerID string, typ string, payload interface{})
}

// Room is the Room Actor. Construct with New; all mutation happens inside
// run, reached only through the ops channel.
type Room struct {
	ID          string
	Code        string
	InviteToken string
	Visibility  Visibility
	cfg         Config
	clock       clock.Clock
	broadcaster Broadcaster

	ops chan func()

	members    []Member
	hostID     string
	timerOn    bool
	phase      Phase
	dealerSeat int
	teamAssign map[string]int // 2v2_party explicit assignment, playerId -> team

	game        *engine.State
	scores      engine.RoundZings // reused shape: Team0/Team1 cumulative score
	matchTarget int

	log *eventlog.Log

	pausedUntil   time.Time
	pauseTimer    clock.Timer
	turnTimer     clock.Timer
	turnExpiresAt time.Time

	surrenderVotes map[int]map[string]bool // team -> playerId -> voted
	rematchVotes   map[string]bool

	reconnectTokens map[string]reconnectEntry // playerId -> token

	closed bool
}

type reconnectEntry struct {
	Token     string
	ExpiresAt time.Time
}

func New(id, code, inviteToken string, visibility Visibility, hostID, hostName string, cfg Config, clk clock.Clock, b Broadcaster) *Room {
	r := &Room{
		ID:              id,
		Code:            code,
		InviteToken:     inviteToken,
		Visibility:      visibility,
		cfg:             cfg,
		clock:           clk,
		broadcaster:     b,
		ops:             make(chan func(), 64),
		phase:           PhaseWaiting,
		hostID:          hostID,
		log:             eventlog.New(),
		matchTarget:     cfg.MatchTargetInitial,
		surrenderVotes:  map[int]map[string]bool{0: {}, 1: {}},
		rematchVotes:    map[string]bool{},
		reconnectTokens: map[string]reconnectEntry{},
	}
	r.members = append(r.members, Member{PlayerID: hostID, Name: hostName, Role: RolePlayer, JoinedAt: clk.Now()})
	go r.run()
	return r
}

func (r *Room) run() {
	for op := range r.ops {
		op()
	}
}

// do synchronously executes fn on the actor goroutine and returns its
// result, enforcing the single-operation-at-a-time discipline of spec.md §5.
func do[T any](r *Room, fn func() T) T {
	done := make(chan T, 1)
	r.ops <- func() { done <- fn() }
	return <-done
}

func doErr(r *Room, fn func() error) error {
	done := make(chan error, 1)
	r.ops <- func() { done <- fn() }
	return <-done
}

type pair[A any, B any] struct {
	a A
	b B
}

// do2 runs fn on the actor goroutine for operations that return two values
// (e.g. a result plus an error).
func do2[A any, B any](r *Room, fn func() (A, B)) (A, B) {
	done := make(chan pair[A, B], 1)
	r.ops <- func() {
		a, b := fn()
		done <- pair[A, B]{a, b}
	}
	p := <-done
	return p.a, p.b
}

// Close stops the actor's goroutine. Callers must not invoke any other
// method afterward.
func (r *Room) Close() {
	r.ops <- func() { r.closed = true }
	close(r.ops)
}

func newRoomID() string  { return uuid.New().String() }
func newToken() string   { return uuid.New().String() }

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // base-36-ish, no ambiguous glyphs

func newCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func (r *Room) appendAndBroadcast(drafts []eventlog.Draft) {
	if len(drafts) == 0 {
		return
	}
	events := r.log.AppendAll(drafts)
	r.broadcaster.BroadcastEvents(r.ID, events)
}

func (r *Room) memberIndex(playerID string) int {
	for i, m := range r.members {
		if m.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) playerCount() int {
	n := 0
	for _, m := range r.members {
		if m.Role == RolePlayer {
			n++
		}
	}
	return n
}

func (r *Room) logf(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...), "roomId", r.ID)
}
