// Package metrics exports the server's Prometheus counters and gauges.
// The teacher's prom_proxy consumes a Prometheus HTTP API as a client; here
// the same client_golang family is used the other way around — as the
// in-process exporter a prom_proxy (or a local Prometheus scraper) would
// later query — since spec.md's core has no external metrics backend to
// call as a client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zing_connected_sessions",
		Help: "Number of currently connected websocket sessions.",
	})
	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zing_active_rooms",
		Help: "Number of rooms currently tracked by the room registry.",
	})
	GamesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zing_games_started_total",
		Help: "Total number of games started across all rooms.",
	})
	MatchesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zing_matches_completed_total",
		Help: "Total number of matches that reached match_end.",
	})
	CardsPlayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zing_cards_played_total",
		Help: "Total number of play_card intents successfully applied.",
	})
	ForcedPlays = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zing_forced_plays_total",
		Help: "Total number of plays forced by turn timer expiry.",
	})
	RejectedIntents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zing_rejected_intents_total",
		Help: "Total number of intents rejected, by reason.",
	}, []string{"reason"})
	MatchmakingQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zing_matchmaking_queue_depth",
		Help: "Current depth of each matchmaking mode's queue.",
	}, []string{"mode"})
)

func init() {
	prometheus.MustRegister(
		ConnectedSessions,
		ActiveRooms,
		GamesStarted,
		MatchesCompleted,
		CardsPlayed,
		ForcedPlays,
		RejectedIntents,
		MatchmakingQueueDepth,
	)
}

// Handler exposes the standard Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
