package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lukaa21/Zing-sub000/internal/broadcast"
	"github.com/Lukaa21/Zing-sub000/internal/cache"
	"github.com/Lukaa21/Zing-sub000/internal/clock"
	"github.com/Lukaa21/Zing-sub000/internal/config"
	"github.com/Lukaa21/Zing-sub000/internal/httpproblem"
	"github.com/Lukaa21/Zing-sub000/internal/identity"
	"github.com/Lukaa21/Zing-sub000/internal/invite"
	"github.com/Lukaa21/Zing-sub000/internal/matchmaking"
	"github.com/Lukaa21/Zing-sub000/internal/metrics"
	"github.com/Lukaa21/Zing-sub000/internal/ratelimit"
	"github.com/Lukaa21/Zing-sub000/internal/reconnect"
	"github.com/Lukaa21/Zing-sub000/internal/registry"
	"github.com/Lukaa21/Zing-sub000/internal/repository"
	"github.com/Lukaa21/Zing-sub000/internal/room"
	"github.com/Lukaa21/Zing-sub000/internal/server"
	"github.com/Lukaa21/Zing-sub000/internal/wsconn"
)

func main() {
	log.SetFlags(0)
	cfg := &config.Config{}
	cmd := config.NewCmd(cfg, run)
	cobra.CheckErr(cmd.Execute())
}

func run(cmd *cobra.Command, _ []string, cfg *config.Config) error {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if cfg.Version {
		fmt.Println(cmd.Version)
		return nil
	}

	clk := clock.NewSystemClock()

	var validator repository.AuthValidator
	var history repository.MatchHistoryWriter
	var friends repository.FriendReader
	var events repository.EventLogWriter
	if cfg.DatabaseURL != "" {
		store, err := repository.Open(cfg.DatabaseURL)
		if err != nil {
			slog.Warn("database unreachable, running without persistence", "error", err)
		} else {
			defer store.Close()
			validator = cache.NewCachedAuthValidator(store, 4096, 2*time.Minute)
			friends = cache.NewCachedFriendReader(store, 4096, 5*time.Minute)
			history = store
			events = store
		}
	}

	conns := registry.NewConnections()
	rooms := registry.NewRooms()
	hub := broadcast.NewHub()
	resolver := identity.NewResolver(validator)
	queues := matchmaking.NewQueues()
	invites := invite.NewStore(clk, cfg.InviteTTL)
	limiter := ratelimit.NewPerSessionLimiters(30, 10)

	roomCfg := room.Config{
		TurnDuration:         cfg.TurnDuration,
		TalonPause:           cfg.TalonPause,
		RecapPause:           cfg.RecapPause,
		ReconnectTokenTTL:    cfg.ReconnectTokenTTL,
		MatchTargetInitial:   cfg.MatchTargetInitial,
		MatchTargetStep:      cfg.MatchTargetStep,
		MaxSpectatorsPerRoom: cfg.MaxSpectatorsPerRoom,
		DevModeEnabled:       cfg.DevModeEnabled,
	}

	srv := server.New(conns, rooms, hub, resolver, queues, invites, limiter, history, friends, events, clk, roomCfg)

	sweeper := reconnect.NewSweeper(clk, time.Minute, invites)
	stopSweeper := sweeper.Start()
	defer stopSweeper()

	upgrader := wsconn.NewUpgrader(cfg.AllowedOrigins, cfg.AllowAnyOrigin)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		upgrader.ServeWs(srv, w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", httpproblem.NotFoundHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
	}

	slog.Info("starting zing server", "addr", addr, "devMode", cfg.DevModeEnabled)
	if err := httpServer.ListenAndServe(); err != nil {
		slog.Error("server stopped", "error", err)
		return err
	}
	return nil
}
