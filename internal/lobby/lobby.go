// Package lobby keeps track of the race sessions hosted by a server.
package lobby

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/race/minirace/config"
	"github.com/race/minirace/internal/game"
	"github.com/race/minirace/internal/session"
)

var ErrServerFull = errors.New("server full")

// Option configures a Lobby
type Option func(*Lobby)

// WithMetrics sets the counters handed to every session
func WithMetrics(m *session.Metrics) Option {
	return func(l *Lobby) {
		l.metrics = m
	}
}

// WithSessionOptions appends options applied to every new session
func WithSessionOptions(opts ...session.Option) Option {
	return func(l *Lobby) {
		l.sessionOpts = append(l.sessionOpts, opts...)
	}
}

// Lobby creates, finds and retires sessions
type Lobby struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session

	store       game.ProgressStore
	cfg         config.GameConfig
	metrics     *session.Metrics
	sessionOpts []session.Option
	log         zerolog.Logger
}

// New creates an empty lobby. store may be nil.
func New(store game.ProgressStore, cfg config.GameConfig, log zerolog.Logger, opts ...Option) *Lobby {
	l := &Lobby{
		sessions: make(map[string]*session.Session),
		store:    store,
		cfg:      cfg,
		log:      log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create starts a session for playerID on level (0 resumes saved progress)
func (l *Lobby) Create(playerID string, level int, conn session.Connection) (*session.Session, error) {
	if l.Count() >= l.cfg.MaxSessions {
		return nil, ErrServerFull
	}

	id := uuid.NewString()
	opts := append([]session.Option{
		session.WithLogger(l.log),
		session.WithMetrics(l.metrics),
		session.WithRates(l.cfg.TickRate, l.cfg.BroadcastRate),
	}, l.sessionOpts...)

	// Loads progress from the store, so it runs outside the lock
	s, err := session.New(id, playerID, level, conn, l.store, opts...)
	if err != nil {
		return nil, err
	}
	s.SetOnKick(func(s *session.Session, reason string) {
		l.Remove(s.ID)
	})

	l.mu.Lock()
	if len(l.sessions) >= l.cfg.MaxSessions {
		l.mu.Unlock()
		return nil, ErrServerFull
	}
	l.sessions[id] = s
	count := len(l.sessions)
	l.mu.Unlock()

	s.Start()

	l.log.Info().Str("session", id).Str("player", playerID).Int("race_level", s.Level()).
		Int("sessions", count).Msg("Session created")
	return s, nil
}

// Get gets a session by ID
func (l *Lobby) Get(id string) *session.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.sessions[id]
}

// Remove stops a session and closes its connection.
// Safe to call with unknown IDs.
func (l *Lobby) Remove(id string) {
	l.mu.Lock()
	s, ok := l.sessions[id]
	if ok {
		delete(l.sessions, id)
	}
	l.mu.Unlock()

	if ok {
		_ = s.Close()
		l.log.Info().Str("session", id).Msg("Session removed")
	}
}

// CleanupIdle removes sessions that stopped or have not heard from their
// client within the idle timeout
func (l *Lobby) CleanupIdle(now time.Time) int {
	l.mu.Lock()
	var stale []*session.Session
	for id, s := range l.sessions {
		if !s.IsRunning() || now.Sub(s.LastActive()) > l.cfg.IdleTimeout {
			stale = append(stale, s)
			delete(l.sessions, id)
		}
	}
	l.mu.Unlock()

	for _, s := range stale {
		_ = s.Close()
	}
	return len(stale)
}

// Count returns the number of live sessions
func (l *Lobby) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}

// Shutdown removes every session
func (l *Lobby) Shutdown() {
	l.mu.Lock()
	sessions := l.sessions
	l.sessions = make(map[string]*session.Session)
	l.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}

// Stats returns lobby statistics
func (l *Lobby) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{
		TotalSessions: len(l.sessions),
		MaxSessions:   l.cfg.MaxSessions,
		Sessions:      make([]SessionStats, 0, len(l.sessions)),
	}

	for id, s := range l.sessions {
		phase := s.Phase()
		if phase == game.PhaseRunning {
			stats.Racing++
		}
		stats.Sessions = append(stats.Sessions, SessionStats{
			ID:       id,
			PlayerID: s.PlayerID,
			Level:    s.Level(),
			Phase:    phase.String(),
			Ticks:    s.Ticks(),
		})
	}

	return stats
}

// Stats contains lobby statistics
type Stats struct {
	TotalSessions int            `json:"sessions"`
	MaxSessions   int            `json:"maxSessions"`
	Racing        int            `json:"racing"`
	Sessions      []SessionStats `json:"details"`
}

// SessionStats contains session statistics
type SessionStats struct {
	ID       string `json:"id"`
	PlayerID string `json:"playerId"`
	Level    int    `json:"level"`
	Phase    string `json:"phase"`
	Ticks    uint64 `json:"ticks"`
}
