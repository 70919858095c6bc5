package room

import (
	"errors"
	"time"

	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
	"github.com/Lukaa21/Zing-sub000/internal/metrics"
)

var (
	errRejoinInvalid = errors.New("room: rejoin_error invalid token")
	errRejoinExpired = errors.New("room: rejoin_error expired token")
)

// startTurnTimer starts a countdown for the current turn player if
// TimerEnabled, per spec.md §4.5. If a pause is active, starting is
// deferred until the pause lifts.
func (r *Room) startTurnTimer() {
	if !r.timerOn || r.game == nil || r.game.RoundOver {
		return
	}
	if r.isPaused() {
		// A resumed pause always re-invokes startTurnTimer from its
		// onResume callback, so a deferred start needs no bookkeeping here.
		return
	}
	player := r.game.CurrentTurnPlayerID
	expiresAt := r.clock.Now().Add(r.cfg.TurnDuration)
	r.turnExpiresAt = expiresAt
	r.turnTimer = r.clock.AfterFunc(r.cfg.TurnDuration, func() {
		r.ops <- func() { r.onTurnExpired(player) }
	})
	r.appendAndBroadcast([]eventlog.Draft{{
		Type: eventlog.TypeTurnTimerStarted,
		Payload: eventlog.TurnTimerStartedPayload{
			PlayerID:   player,
			DurationMs: r.cfg.TurnDuration.Milliseconds(),
			ExpiresAt:  expiresAt.UnixMilli(),
		},
	}})
}

func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}

// onTurnExpired is invoked on the actor goroutine (via r.ops) when a turn
// timer fires. It plays the leftmost legal card in the expired player's
// hand, per spec.md §4.5. The expiry path is idempotent: if the player
// already moved (the timer was stopped first), this is a no-op.
func (r *Room) onTurnExpired(player string) {
	if r.phase != PhasePlaying || r.game == nil || r.game.CurrentTurnPlayerID != player {
		return
	}
	if r.isPaused() {
		return
	}
	idx := r.game.PlayerByID(player)
	if idx < 0 || len(r.game.Players[idx].Hand) == 0 {
		return
	}
	card := r.game.Players[idx].Hand[0]
	metrics.ForcedPlays.Inc()
	_ = r.applyPlay(player, card.Id())
}

// startTalonPause blocks play_card intents for cfg.TalonPause, then resumes
// the turn timer (computing a fresh expiresAt from the resume moment), per
// spec.md §4.5.
func (r *Room) startTalonPause() {
	r.startPause(r.cfg.TalonPause, func() {
		if r.game != nil && !r.game.RoundOver {
			r.startTurnTimer()
		}
	})
}

// startRecapPauseThen blocks intents for cfg.RecapPause, suppressing any
// pending timer, then runs onResume (typically dealing the next round).
func (r *Room) startRecapPauseThen(onResume func()) {
	r.startPause(r.cfg.RecapPause, onResume)
}

func (r *Room) startPause(dur time.Duration, onResume func()) {
	r.pausedUntil = r.clock.Now().Add(dur)
	if r.pauseTimer != nil {
		r.pauseTimer.Stop()
	}
	r.pauseTimer = r.clock.AfterFunc(dur, func() {
		r.ops <- func() {
			r.pausedUntil = r.clock.Now()
			onResume()
		}
	})
}

// issueReconnectToken mints a fresh one-shot token for playerId, invalidating
// any prior token for that (room, player) pair (spec.md §4.8, §9).
func (r *Room) issueReconnectToken(playerID string) string {
	token := newToken()
	r.reconnectTokens[playerID] = reconnectEntry{Token: token, ExpiresAt: r.clock.Now().Add(r.cfg.ReconnectTokenTTL)}
	r.broadcaster.SendTo(playerID, "reconnect_token", eventlog.ReconnectTokenPayload{RoomID: r.ID, Token: token})
	return token
}

// Rejoin validates a reconnect token and, on success, re-attaches the
// session by returning the log's last seq (the caller replays the tail
// since the client's last-seen seq). On failure it returns an error and
// leaves membership and the current token untouched (spec.md §8 property
// 9); the one exception is an expired token, which is discarded.
func (r *Room) Rejoin(playerID, token string) (int, error) {
	return do2(r, func() (int, error) {
		entry, ok := r.reconnectTokens[playerID]
		if !ok || entry.Token != token {
			return 0, errRejoinInvalid
		}
		if r.clock.Now().After(entry.ExpiresAt) {
			delete(r.reconnectTokens, playerID)
			return 0, errRejoinExpired
		}
		if r.memberIndex(playerID) < 0 {
			return 0, errRejoinInvalid
		}
		r.issueReconnectToken(playerID)
		return r.log.LastSeq(), nil
	})
}
