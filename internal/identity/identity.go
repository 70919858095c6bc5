// Package identity implements the Identity Resolver (spec.md §4.1): mapping
// an incoming auth message to a stable PlayerId, registered or guest, and
// never falling back to matching by display name (the "double identity in
// the source -> single PlayerId" redesign flag in spec.md §9).
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/Lukaa21/Zing-sub000/internal/repository"
)

const maxNameLen = 20

type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// ErrAuthInvalid is returned when neither a valid bearer token nor a
// well-formed guestId is present.
var ErrAuthInvalid = errors.New("identity: auth_invalid")

// Stamped is the identity burned onto a Session once auth succeeds. Every
// later message on that session is evaluated against this value; any
// contradicting field in a later message is ignored (spec.md §4.1 "the
// stamp wins").
type Stamped struct {
	PlayerID   string
	Name       string
	Role       Role
	Registered bool
}

// AuthMessage is the client's `auth` payload (spec.md §6).
type AuthMessage struct {
	Token   string
	GuestID string
	Name    string
	Role    string
}

// Resolver stamps identities. It never creates or looks up accounts itself;
// credential validation is delegated to Validator.
type Resolver struct {
	Validator repository.AuthValidator
}

func NewResolver(v repository.AuthValidator) *Resolver {
	return &Resolver{Validator: v}
}

// Resolve implements spec.md §4.1's precedence: a valid bearer credential
// wins over a guestId; a blank/malformed guestId with no credential fails.
func (r *Resolver) Resolve(ctx context.Context, msg AuthMessage) (Stamped, error) {
	name := normalizeName(msg.Name)
	role := coerceRole(msg.Role)

	if msg.Token != "" && r.Validator != nil {
		user, err := r.Validator.ValidateToken(ctx, msg.Token)
		if err == nil {
			stampedName := name
			if stampedName == "" {
				stampedName = normalizeName(user.Name)
			}
			return Stamped{PlayerID: user.ID, Name: stampedName, Role: role, Registered: true}, nil
		}
		if !errors.Is(err, repository.ErrUnavailable) {
			return Stamped{}, ErrAuthInvalid
		}
		// Auth store is down: degrade to guest rather than block the
		// connection entirely, per spec.md §5 graceful-degradation policy.
	}

	guestID := strings.TrimSpace(msg.GuestID)
	if guestID == "" {
		return Stamped{}, ErrAuthInvalid
	}
	return Stamped{PlayerID: guestID, Name: name, Role: role, Registered: false}, nil
}

func normalizeName(raw string) string {
	n := strings.TrimSpace(raw)
	if len(n) > maxNameLen {
		n = n[:maxNameLen]
	}
	return n
}

func coerceRole(raw string) Role {
	if Role(raw) == RoleSpectator {
		return RoleSpectator
	}
	return RolePlayer
}
