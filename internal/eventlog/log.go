package eventlog

import "sync"

// Log is the append-only, monotonically-sequenced event history for one
// room (spec.md §3 EventLog, §4.2 broadcast tail semantics). It is owned
// exclusively by a room's single-threaded actor, but callers may take a
// read-only snapshot from other goroutines (e.g. the broadcaster) so it is
// guarded defensively.
type Log struct {
	mu     sync.RWMutex
	events []Event
}

func New() *Log {
	return &Log{events: make([]Event, 0, 64)}
}

// Append assigns the next seq (starting at 1) and stores the event.
func (l *Log) Append(typ Type, actor string, payload interface{}) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := Event{
		Seq:     len(l.events) + 1,
		Type:    typ,
		Actor:   actor,
		Payload: payload,
	}
	l.events = append(l.events, ev)
	return ev
}

// AppendDraft mints the next Seq for d and stores the resulting Event.
func (l *Log) AppendDraft(d Draft) Event {
	return l.Append(d.Type, d.Actor, d.Payload)
}

// AppendAll appends each draft in order, returning the sequenced Events.
func (l *Log) AppendAll(drafts []Draft) []Event {
	out := make([]Event, len(drafts))
	for i, d := range drafts {
		out[i] = l.AppendDraft(d)
	}
	return out
}

// Tail returns every event with Seq > sinceSeq, in order, satisfying the
// snapshot+tail replay contract of spec.md §8 property 8.
func (l *Log) Tail(sinceSeq int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if sinceSeq >= len(l.events) {
		return nil
	}
	if sinceSeq < 0 {
		sinceSeq = 0
	}
	out := make([]Event, len(l.events)-sinceSeq)
	copy(out, l.events[sinceSeq:])
	return out
}

// LastSeq returns the seq of the most recently appended event, or 0 if the
// log is empty.
func (l *Log) LastSeq() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
