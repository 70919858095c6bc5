// Package invite implements the Invite Store (spec.md §2 component G,
// §4.7): friend-to-friend room invites with a fixed TTL, swept lazily on
// access and periodically by internal/reconnect.Sweeper.
package invite

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lukaa21/Zing-sub000/internal/clock"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

var (
	ErrNotFound    = errors.New("invite: not_found")
	ErrNotPending  = errors.New("invite: not_pending")
	ErrNotInvitee  = errors.New("invite: not_invitee")
)

// Invite mirrors spec.md §3's Invite shape.
type Invite struct {
	InviteID  string
	InviterID string
	InviteeID string
	RoomID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Status    Status
}

// Store holds every live invite, indexed by id and by invitee for
// get_pending_invites.
type Store struct {
	clk clock.Clock
	ttl time.Duration

	mu       sync.Mutex
	byID     map[string]*Invite
	byInvitee map[string][]string // inviteeId -> inviteIds
}

func NewStore(clk clock.Clock, ttl time.Duration) *Store {
	return &Store{
		clk:       clk,
		ttl:       ttl,
		byID:      make(map[string]*Invite),
		byInvitee: make(map[string][]string),
	}
}

// Send creates a pending invite from inviter to invitee for roomID.
func (s *Store) Send(inviterID, inviteeID, roomID string) Invite {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	inv := &Invite{
		InviteID:  uuid.NewString(),
		InviterID: inviterID,
		InviteeID: inviteeID,
		RoomID:    roomID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Status:    StatusPending,
	}
	s.byID[inv.InviteID] = inv
	s.byInvitee[inviteeID] = append(s.byInvitee[inviteeID], inv.InviteID)
	return *inv
}

// Accept marks the invite accepted if it is pending, unexpired, and
// targets callerID.
func (s *Store) Accept(callerID, inviteID string) (Invite, error) {
	return s.resolve(callerID, inviteID, StatusAccepted)
}

func (s *Store) Decline(callerID, inviteID string) (Invite, error) {
	return s.resolve(callerID, inviteID, StatusDeclined)
}

func (s *Store) resolve(callerID, inviteID string, to Status) (Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[inviteID]
	if !ok {
		return Invite{}, ErrNotFound
	}
	if inv.InviteeID != callerID {
		return Invite{}, ErrNotInvitee
	}
	s.expireIfDueLocked(inv)
	if inv.Status != StatusPending {
		return Invite{}, ErrNotPending
	}
	inv.Status = to
	return *inv, nil
}

// CancelForRoom marks every pending invite for roomID cancelled, called
// when the target room is destroyed (spec.md §4.7
// "invite_cancelled { reason: room_deleted }").
func (s *Store) CancelForRoom(roomID string) []Invite {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cancelled []Invite
	for _, inv := range s.byID {
		if inv.RoomID == roomID && inv.Status == StatusPending {
			inv.Status = StatusCancelled
			cancelled = append(cancelled, *inv)
		}
	}
	return cancelled
}

// Pending returns every still-pending, unexpired invite targeting playerID.
func (s *Store) Pending(playerID string) []Invite {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	var out []Invite
	for _, id := range s.byInvitee[playerID] {
		inv, ok := s.byID[id]
		if !ok {
			continue
		}
		s.expireIfDueLocked(inv)
		if inv.Status == StatusPending && now.Before(inv.ExpiresAt) {
			out = append(out, *inv)
		}
	}
	return out
}

func (s *Store) expireIfDueLocked(inv *Invite) {
	if inv.Status == StatusPending && !s.clk.Now().Before(inv.ExpiresAt) {
		inv.Status = StatusExpired
	}
}

// SweepExpired implements reconnect.Sweepable: flip every overdue pending
// invite to expired and drop invites old enough to no longer matter.
func (s *Store) SweepExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const retention = 24 * time.Hour
	for id, inv := range s.byID {
		if inv.Status == StatusPending && !now.Before(inv.ExpiresAt) {
			inv.Status = StatusExpired
		}
		if now.Sub(inv.ExpiresAt) > retention {
			delete(s.byID, id)
		}
	}
}
