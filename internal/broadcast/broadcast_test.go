package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lukaa21/Zing-sub000/internal/eventlog"
)

// captureDeliverer records every raw message it was asked to deliver.
type captureDeliverer struct {
	raw [][]byte
}

func (c *captureDeliverer) Deliver(raw []byte) bool {
	c.raw = append(c.raw, raw)
	return true
}

// wireEvent unwraps the nested {"type":"game_event","payload":{"seq":...,
// "type":"hands_dealt","payload":{...}}} shape BroadcastEvents produces.
type wireEvent struct {
	Type    string `json:"type"`
	Payload struct {
		Seq     int             `json:"seq"`
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	} `json:"payload"`
}

func dealtFor(t *testing.T, d *captureDeliverer) eventlog.HandsDealtPayload {
	t.Helper()
	require.Len(t, d.raw, 1)
	var w wireEvent
	require.NoError(t, json.Unmarshal(d.raw[0], &w))
	require.Equal(t, "hands_dealt", w.Payload.Type)
	var dealt eventlog.HandsDealtPayload
	require.NoError(t, json.Unmarshal(w.Payload.Payload, &dealt))
	return dealt
}

// TestBroadcastEvents_RedactsHandsDealtPerRecipient guards spec.md:159:
// `dealt` must be hidden from non-owners in client-facing views, even
// though the single Event appended to the log carries every hand.
func TestBroadcastEvents_RedactsHandsDealtPerRecipient(t *testing.T) {
	h := NewHub()

	p1, p2, spectator := &captureDeliverer{}, &captureDeliverer{}, &captureDeliverer{}
	h.RegisterSession("sess-p1", p1)
	h.RegisterSession("sess-p2", p2)
	h.RegisterSession("sess-spectator", spectator)

	h.Subscribe("room-1", "sess-p1", "p1")
	h.Subscribe("room-1", "sess-p2", "p2")
	h.Subscribe("room-1", "sess-spectator", "")

	h.BroadcastEvents("room-1", []eventlog.Event{{
		Seq:  1,
		Type: eventlog.TypeHandsDealt,
		Payload: eventlog.HandsDealtPayload{
			HandNumber: 1,
			Dealt: map[string][]string{
				"p1": {"clubs-ace", "clubs-2"},
				"p2": {"hearts-king", "hearts-queen"},
			},
		},
	}})

	p1View := dealtFor(t, p1)
	require.Equal(t, map[string][]string{"p1": {"clubs-ace", "clubs-2"}}, p1View.Dealt)

	p2View := dealtFor(t, p2)
	require.Equal(t, map[string][]string{"p2": {"hearts-king", "hearts-queen"}}, p2View.Dealt)

	spectatorView := dealtFor(t, spectator)
	require.Empty(t, spectatorView.Dealt)
	require.NotContains(t, spectatorView.Dealt, "p1")
	require.NotContains(t, spectatorView.Dealt, "p2")
}

// TestBroadcastEvents_OrdinaryEventsFanOutVerbatim checks that the
// redaction path is the exception, not the rule: any other event type is
// still delivered identically and in order to every subscriber.
func TestBroadcastEvents_OrdinaryEventsFanOutVerbatim(t *testing.T) {
	h := NewHub()

	p1, p2 := &captureDeliverer{}, &captureDeliverer{}
	h.RegisterSession("sess-p1", p1)
	h.RegisterSession("sess-p2", p2)
	h.Subscribe("room-1", "sess-p1", "p1")
	h.Subscribe("room-1", "sess-p2", "p2")

	h.BroadcastEvents("room-1", []eventlog.Event{
		{Seq: 1, Type: eventlog.TypeCardPlayed, Payload: eventlog.CardPlayedPayload{PlayerID: "p1", CardID: "clubs-ace"}},
		{Seq: 2, Type: eventlog.TypeCardPlayed, Payload: eventlog.CardPlayedPayload{PlayerID: "p2", CardID: "hearts-king"}},
	})

	require.Len(t, p1.raw, 2)
	require.Equal(t, p1.raw, p2.raw)
}

func TestUnsubscribe_StopsFurtherDelivery(t *testing.T) {
	h := NewHub()
	d := &captureDeliverer{}
	h.RegisterSession("sess-1", d)
	h.Subscribe("room-1", "sess-1", "p1")
	h.Unsubscribe("room-1", "sess-1")

	h.BroadcastEvents("room-1", []eventlog.Event{{Seq: 1, Type: eventlog.TypeGameStarted, Payload: eventlog.GameStartedPayload{GameID: "g1"}}})

	require.Empty(t, d.raw)
}
