// Package reconnect provides a periodic TTL sweeper (spec.md §5 "fixed TTLs
// enforced by a periodic sweeper and on access"). cmd/zingserver registers
// only the invite store with it. Reconnect tokens are not swept here: they
// are minted, validated and expired on access by the owning Room Actor
// (internal/room), since a one-shot (room, player) token is naturally
// single-writer state. This package is the generic sweep-on-interval
// mechanism a TTL'd store can plug into.
package reconnect

import (
	"time"

	"github.com/Lukaa21/Zing-sub000/internal/clock"
)

// Sweepable is anything with expiring entries that wants periodic cleanup.
type Sweepable interface {
	SweepExpired(now time.Time)
}

// Sweeper runs SweepExpired on every registered target at a fixed interval,
// using an injected Clock so tests can drive it without sleeping.
type Sweeper struct {
	clk      clock.Clock
	interval time.Duration
	targets  []Sweepable
	stopCh   chan struct{}
}

func NewSweeper(clk clock.Clock, interval time.Duration, targets ...Sweepable) *Sweeper {
	return &Sweeper{clk: clk, interval: interval, targets: targets, stopCh: make(chan struct{})}
}

// Start schedules the first sweep and reschedules itself after each run.
// Returns a stop function for graceful shutdown.
func (s *Sweeper) Start() (stop func()) {
	var tick func()
	tick = func() {
		select {
		case <-s.stopCh:
			return
		default:
		}
		now := s.clk.Now()
		for _, t := range s.targets {
			t.SweepExpired(now)
		}
		s.clk.AfterFunc(s.interval, tick)
	}
	s.clk.AfterFunc(s.interval, tick)
	return func() { close(s.stopCh) }
}
