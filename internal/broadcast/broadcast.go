// Package broadcast implements the Broadcaster (spec.md §2 component K):
// fan-out of room events and targeted messages to a room's connected
// sessions, in the order events were appended.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

// Deliverer is the minimal transport capability broadcast needs: queue raw
// bytes for one session, best-effort. internal/wsconn.Client satisfies this.
type Deliverer interface {
	Deliver(raw []byte) bool
}

// Envelope is the outer shape of every server -> client message (spec.md
// §6): a type tag at the message level wrapping a typed payload. A single
// game event is wrapped as {"type":"game_event","payload":<Event>}.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// subscriber pairs a session's transport with the identity it was
// subscribed under, so BroadcastEvents can redact player-private payloads
// (e.g. hands_dealt) per recipient instead of fanning out one shared blob.
type subscriber struct {
	d        Deliverer
	playerID string
}

// Hub fans events out to whichever sessions are currently subscribed to a
// room. Subscription membership is owned by the caller (internal/server),
// which calls Subscribe/Unsubscribe as sessions attach/detach from rooms.
type Hub struct {
	mu       sync.RWMutex
	byRoom   map[string]map[string]subscriber // roomId -> sessionId -> subscriber
	sessions map[string]Deliverer             // sessionId -> client, for SendTo
}

func NewHub() *Hub {
	return &Hub{
		byRoom:   make(map[string]map[string]subscriber),
		sessions: make(map[string]Deliverer),
	}
}

func (h *Hub) RegisterSession(sessionID string, d Deliverer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sessionID] = d
}

func (h *Hub) UnregisterSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
	for room, subs := range h.byRoom {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(h.byRoom, room)
		}
	}
}

// Subscribe attaches sessionID to roomID's fan-out under the given
// playerID, the identity BroadcastEvents uses to redact player-private
// event payloads for this recipient.
func (h *Hub) Subscribe(roomID, sessionID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	subs, ok := h.byRoom[roomID]
	if !ok {
		subs = make(map[string]subscriber)
		h.byRoom[roomID] = subs
	}
	subs[sessionID] = subscriber{d: d, playerID: playerID}
}

func (h *Hub) Unsubscribe(roomID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.byRoom[roomID]; ok {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(h.byRoom, roomID)
		}
	}
}

// BroadcastEvents implements room.Broadcaster: deliver every event, in
// order, to every session currently subscribed to roomID. hands_dealt
// carries every player's cards for the log and replay (eventlog.Event's
// doc comment), but spec.md:159 requires `dealt` hidden from non-owners in
// client-facing views, so that one event type is redacted per recipient
// instead of marshaled once and fanned out verbatim.
func (h *Hub) BroadcastEvents(roomID string, events []eventlog.Event) {
	h.mu.RLock()
	subs := h.byRoom[roomID]
	targets := make([]subscriber, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, ev := range events {
		if dealt, ok := ev.Payload.(eventlog.HandsDealtPayload); ok {
			h.deliverHandsDealt(roomID, ev, dealt, targets)
			continue
		}
		raw, err := json.Marshal(Envelope{Type: "game_event", Payload: ev})
		if err != nil {
			slog.Error("failed to marshal game_event", "error", err, "roomId", roomID)
			continue
		}
		for _, sub := range targets {
			sub.d.Deliver(raw)
		}
	}
}

// deliverHandsDealt marshals one copy of ev per distinct viewer: a player
// sees only their own entry in Dealt, a spectator (or anyone not in the
// deal) sees none. Recipients that own the same cards (none of them, ever,
// since hands are per-player) would share a cache entry; the cache here
// only saves the single "no cards" marshal shared by every spectator.
func (h *Hub) deliverHandsDealt(roomID string, ev eventlog.Event, dealt eventlog.HandsDealtPayload, targets []subscriber) {
	cache := make(map[string][]byte)
	for _, sub := range targets {
		cards, owns := dealt.Dealt[sub.playerID]
		cacheKey := ""
		if owns {
			cacheKey = sub.playerID
		}
		raw, cached := cache[cacheKey]
		if !cached {
			redacted := dealt
			redacted.Dealt = nil
			if owns {
				redacted.Dealt = map[string][]string{sub.playerID: cards}
			}
			view := ev
			view.Payload = redacted
			var err error
			raw, err = json.Marshal(Envelope{Type: "game_event", Payload: view})
			if err != nil {
				slog.Error("failed to marshal hands_dealt", "error", err, "roomId", roomID)
				continue
			}
			cache[cacheKey] = raw
		}
		sub.d.Deliver(raw)
	}
}

// SendTo delivers one targeted message to the session registered under
// playerOrSessionID. It is keyed by session id only: a player id that is not
// also a registered session id reaches nobody. Player-addressed delivery
// goes through internal/server's roomBroadcaster, which resolves a player's
// live sessions before calling SendTo.
func (h *Hub) SendTo(playerOrSessionID string, typ string, payload interface{}) {
	raw, err := json.Marshal(Envelope{Type: typ, Payload: payload})
	if err != nil {
		slog.Error("failed to marshal targeted message", "error", err, "type", typ)
		return
	}
	h.mu.RLock()
	d, ok := h.sessions[playerOrSessionID]
	h.mu.RUnlock()
	if ok {
		d.Deliver(raw)
	}
}
