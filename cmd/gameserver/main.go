// Package main implements the race game server.
//
// Architecture Overview:
// - Uses WebSocket for real-time bidirectional communication with clients
// - Each client races alone in a session with its own 60Hz physics loop
// - State updates are broadcast to the client at 20Hz
// - Finished races unlock the next level in the configured progress store
//
// Connection Flow:
// 1. Client connects via WebSocket to /ws endpoint
// 2. Client sends Join with its player id and the level to race (0 resumes)
// 3. Server creates a session and replies with SessionInfo
// 4. Client sends Input and Reset messages, server sends State and Outcome
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/race/minirace/config"
	"github.com/race/minirace/internal/lobby"
	"github.com/race/minirace/internal/logging"
	"github.com/race/minirace/internal/progress"
	"github.com/race/minirace/internal/session"
)

var configDir = flag.String("config", ".", "Directory holding "+config.FileName)

func main() {
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	serverCfg := config.GetServerConfig()
	gameCfg := config.GetGameConfig()

	log := newLogger(serverCfg.LogLevel)

	store, err := progress.Open(config.GetProgressConfig(), logging.Component(log, "progress"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open progress store")
	}
	defer store.Close()

	metrics, err := session.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	rooms := lobby.New(store, gameCfg, logging.Component(log, "lobby"), lobby.WithMetrics(metrics))
	server := NewGameServer(serverCfg, gameCfg, rooms, log)

	log.Info().
		Str("host", serverCfg.Host).
		Int("port", serverCfg.Port).
		Int("tickRate", gameCfg.TickRate).
		Int("broadcastRate", gameCfg.BroadcastRate).
		Int("maxSessions", gameCfg.MaxSessions).
		Str("progress", config.GetProgressConfig().Type).
		Msg("Race server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server error")
	}
	rooms.Shutdown()
	log.Info().Msg("Server stopped")
}

// newLogger writes colored console output to terminals and JSON otherwise
func newLogger(level string) zerolog.Logger {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return logging.NewConsole(level, os.Stdout, true)
	}
	return logging.New(level, os.Stdout)
}

// Run serves until ctx is cancelled
func (s *GameServer) Run(ctx context.Context) error {
	go s.housekeeping(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// housekeeping retires idle sessions and logs statistics while the server runs
func (s *GameServer) housekeeping(ctx context.Context) {
	cleanup := time.NewTicker(30 * time.Second)
	defer cleanup.Stop()
	statsTicker := time.NewTicker(5 * time.Minute)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-cleanup.C:
			if removed := s.lobby.CleanupIdle(now); removed > 0 {
				s.log.Info().Int("removed", removed).Msg("Cleaned up idle sessions")
			}

		case <-statsTicker.C:
			stats := s.lobby.Stats()
			if stats.TotalSessions > 0 {
				s.log.Info().Int("sessions", stats.TotalSessions).Int("racing", stats.Racing).Msg("Stats")
			}
		}
	}
}
