// Package repository defines the narrow collaborator interfaces spec.md §6
// places outside the game's core — bearer credential validation, match
// history persistence, and friend-list reads — plus a Postgres-backed
// implementation. The core treats every call here as best-effort: a
// database outage degrades to a logged warning, never a blocked room
// (spec.md §5, §7 "transient_persistence").
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

// ErrUnavailable is returned by every method when the backing store cannot
// be reached. Callers must treat it as non-fatal.
var ErrUnavailable = errors.New("repository: unavailable")

// AuthenticatedUser is the subset of an account record the Identity
// Resolver needs to stamp a registered PlayerId (spec.md §4.1).
type AuthenticatedUser struct {
	ID   string
	Name string
}

// AuthValidator exchanges a bearer credential for a registered user. It is
// the only collaborator the Identity Resolver is allowed to call.
type AuthValidator interface {
	ValidateToken(ctx context.Context, token string) (AuthenticatedUser, error)
}

// MatchResult is the record persisted when a match concludes, per spec.md
// §6 "(b) persist match results on match_end".
type MatchResult struct {
	RoomID      string
	WinnerTeam  int
	FinalTeam0  int
	FinalTeam1  int
	PlayerIDs   []string
}

// MatchHistoryWriter persists completed matches. Failures are logged by the
// caller and otherwise ignored.
type MatchHistoryWriter interface {
	RecordMatch(ctx context.Context, result MatchResult) error
}

// FriendReader answers "is b a friend of a", used to validate send_invite
// targets (spec.md §4.7).
type FriendReader interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

// EventLogWriter persists a room's event log opportunistically (spec.md §6
// "(c) persist event logs opportunistically"; §5 names this a fire-and-
// forget suspension point). The in-memory log served by
// internal/eventlog.Log remains authoritative for reconnection; this is a
// durability best-effort only, never on the gameplay critical path.
type EventLogWriter interface {
	PersistEvents(ctx context.Context, roomID string, events []eventlog.Event) error
}

// Store bundles every collaborator behind one Postgres-backed
// implementation, grounded on the teacher's go/r3dr/short_db.go
// database/sql + lib/pq usage.
type Store struct {
	db *sql.DB
}

// Open dials Postgres using connStr. The caller must call Close.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ValidateToken(ctx context.Context, token string) (AuthenticatedUser, error) {
	if s == nil {
		return AuthenticatedUser{}, ErrUnavailable
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, display_name FROM users WHERE session_token = $1`, token)
	var u AuthenticatedUser
	if err := row.Scan(&u.ID, &u.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AuthenticatedUser{}, errors.New("repository: invalid token")
		}
		slog.Warn("auth token lookup failed", "error", err)
		return AuthenticatedUser{}, ErrUnavailable
	}
	return u, nil
}

func (s *Store) RecordMatch(ctx context.Context, result MatchResult) error {
	if s == nil {
		return ErrUnavailable
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_history (room_id, winner_team, final_team0, final_team1, player_ids) VALUES ($1, $2, $3, $4, $5)`,
		result.RoomID, result.WinnerTeam, result.FinalTeam0, result.FinalTeam1, pq.Array(result.PlayerIDs))
	if err != nil {
		slog.Warn("match history write failed", "error", err, "roomId", result.RoomID)
		return ErrUnavailable
	}
	return nil
}

// PersistEvents appends a batch of already-sequenced room events to
// Postgres for durability. An event whose payload cannot be marshaled is
// logged and skipped; a failed insert is logged, stops the batch (rows
// already inserted stay) and returns ErrUnavailable, as the other methods
// do on a backing-store failure.
func (s *Store) PersistEvents(ctx context.Context, roomID string, events []eventlog.Event) error {
	if s == nil {
		return ErrUnavailable
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			slog.Warn("event payload marshal failed", "error", err, "roomId", roomID, "seq", ev.Seq)
			continue
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO event_log (room_id, seq, type, actor, payload) VALUES ($1, $2, $3, $4, $5)`,
			roomID, ev.Seq, string(ev.Type), ev.Actor, payload)
		if err != nil {
			slog.Warn("event log persist failed", "error", err, "roomId", roomID, "seq", ev.Seq)
			return ErrUnavailable
		}
	}
	return nil
}

func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if s == nil {
		return false, ErrUnavailable
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE (user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1))`, a, b)
	var ok bool
	if err := row.Scan(&ok); err != nil {
		slog.Warn("friend lookup failed", "error", err)
		return false, ErrUnavailable
	}
	return ok, nil
}
