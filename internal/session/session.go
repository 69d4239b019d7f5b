// Package session runs one player's race on the server: a goroutine owning a
// game.Machine, fed by client input and broadcasting state back to the client.
package session

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/race/minirace/config"
	"github.com/race/minirace/internal/game"
	"github.com/race/minirace/internal/network"
)

// Connection is the client end of a session
type Connection interface {
	Send(data []byte) error
	Close() error
	RemoteAddr() string
}

// Error definitions
var (
	ErrLevelLocked   = &SessionError{message: "level is locked"}
	ErrSessionClosed = &SessionError{message: "session closed"}
)

// SessionError represents an error related to session operations.
type SessionError struct {
	message string
}

func (e *SessionError) Error() string {
	return e.message
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithRand sets the randomness source handed to the race
func WithRand(r game.Rand) Option {
	return func(s *Session) {
		s.rnd = r
	}
}

// WithMetrics sets the counters the session reports to
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithRates sets the physics and broadcast frequencies in Hz
func WithRates(tickRate, broadcastRate int) Option {
	return func(s *Session) {
		if tickRate > 0 {
			s.tickRate = tickRate
		}
		if broadcastRate > 0 {
			s.broadcastRate = broadcastRate
		}
	}
}

type command struct {
	level int // 0 replays the current level
}

// Session is a single-player race hosted by the server.
//
// The race machine is confined to the loop goroutine. Other goroutines talk to
// it through the input and command channels; read-only stats are mirrored
// into atomics.
type Session struct {
	ID       string
	PlayerID string

	conn     Connection
	store    game.ProgressStore
	machine  *game.Machine
	protocol *network.Protocol
	guard    *Guard
	metrics  *Metrics
	log      zerolog.Logger
	rnd      game.Rand

	tickRate      int
	broadcastRate int

	inputs   chan network.InputMessage
	commands chan command

	unlocked    int
	outcomeSent bool
	lastPhase   game.Phase

	tickCount  atomic.Uint64
	level      atomic.Int32
	phase      atomic.Uint32
	lastActive atomic.Int64
	running    atomic.Bool
	stopped    atomic.Bool
	stopChan   chan struct{}

	onKick func(s *Session, reason string)
}

// New creates a session for playerID. level 0 resumes at the highest level the
// store has unlocked; asking for a level above it returns ErrLevelLocked.
func New(id, playerID string, level int, conn Connection, store game.ProgressStore, opts ...Option) (*Session, error) {
	s := &Session{
		ID:            id,
		PlayerID:      playerID,
		conn:          conn,
		store:         store,
		protocol:      network.NewProtocol(),
		guard:         NewGuard(),
		log:           zerolog.Nop(),
		tickRate:      config.PhysicsTickRate,
		broadcastRate: config.NetworkBroadcastRate,
		inputs:        make(chan network.InputMessage, config.InputQueueSize),
		commands:      make(chan command, 4),
		unlocked:      1,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", id).Str("player", playerID).Logger()

	if store != nil {
		unlocked, err := store.GetLevel(playerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}
		s.unlocked = max(1, min(unlocked, config.LevelCount))
	}

	if level == 0 {
		level = s.unlocked
	}
	if level > s.unlocked {
		return nil, ErrLevelLocked
	}

	machineOpts := []game.Option{game.WithLogger(s.log)}
	if s.rnd != nil {
		machineOpts = append(machineOpts, game.WithRand(s.rnd))
	}
	s.machine = game.NewMachine(game.LevelByNumber(level), playerID, store, machineOpts...)
	s.lastPhase = s.machine.Phase()
	s.publish()
	s.touch()

	return s, nil
}

// Start sends the session info and begins the race loop in a separate goroutine.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Session) Start() {
	if s.stopped.Load() || s.running.Swap(true) {
		return
	}

	s.sendSessionInfo()
	go s.loop()
	s.log.Info().Int("race_level", int(s.level.Load())).Msg("Session started")
}

// Stop ends the race loop. The connection is left open.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Session) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	s.running.Store(false)
	close(s.stopChan)
	s.log.Info().Msg("Session stopped")
}

// Close stops the session and closes its connection
func (s *Session) Close() error {
	s.Stop()
	return s.conn.Close()
}

// HandleInput queues a key event for the next physics tick
func (s *Session) HandleInput(msg *network.InputMessage) {
	if s.stopped.Load() {
		return
	}
	s.touch()

	if s.guard.ValidateInputRate() == ValidationIgnoreInput {
		s.metrics.inputDropped("rate")
		return
	}

	select {
	case s.inputs <- *msg:
	default:
		s.metrics.inputDropped("queue")
	}
}

// Restart replays the current level (level 0) or switches to another unlocked level
func (s *Session) Restart(level int) error {
	if s.stopped.Load() {
		return ErrSessionClosed
	}
	s.touch()

	select {
	case s.commands <- command{level: level}:
		return nil
	case <-s.stopChan:
		return ErrSessionClosed
	}
}

// SetOnKick sets a callback function called when the client is kicked.
func (s *Session) SetOnKick(callback func(s *Session, reason string)) {
	s.onKick = callback
}

// IsRunning reports whether the loop is active
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// LastActive returns the time of the last client message
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Level returns the level being raced
func (s *Session) Level() int {
	return int(s.level.Load())
}

// Phase returns the race phase as of the last tick
func (s *Session) Phase() game.Phase {
	return game.Phase(s.phase.Load())
}

// Ticks returns the number of physics ticks run
func (s *Session) Ticks() uint64 {
	return s.tickCount.Load()
}

// RemoteAddr returns the client's address
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr()
}

// loop is the race loop running in its own goroutine.
// It handles physics updates and state broadcasts at their configured rates.
func (s *Session) loop() {
	physicsTicker := time.NewTicker(time.Second / time.Duration(s.tickRate))
	broadcastTicker := time.NewTicker(time.Second / time.Duration(s.broadcastRate))
	defer physicsTicker.Stop()
	defer broadcastTicker.Stop()

	lastPhysicsTime := time.Now()

	for {
		select {
		case <-s.stopChan:
			return

		case cmd := <-s.commands:
			s.apply(cmd)

		case now := <-physicsTicker.C:
			dt := now.Sub(lastPhysicsTime).Seconds()
			lastPhysicsTime = now
			s.step(dt)

		case <-broadcastTicker.C:
			s.broadcastState()
		}
	}
}

// step runs one physics tick
func (s *Session) step(dt float64) {
	// Cap delta time to prevent jumps after pauses
	if dt > config.MaxDeltaSeconds {
		dt = config.MaxDeltaSeconds
	}

	s.drainInputs()
	if s.guard.EndTick() == ValidationKick {
		s.kick("Input flood")
		return
	}

	collisions := s.machine.Collisions()
	s.machine.Tick(dt)
	s.tickCount.Add(1)

	level := s.machine.Level().Number
	s.metrics.collided(level, s.machine.Collisions()-collisions)

	phase := s.machine.Phase()
	if s.lastPhase == game.PhaseCountdown && phase == game.PhaseRunning {
		s.metrics.raceStarted(level)
	}
	s.lastPhase = phase

	if o := s.machine.Outcome(); o != nil && !s.outcomeSent {
		s.outcomeSent = true
		if o.Saved {
			s.unlocked = max(s.unlocked, o.NextLevel)
		}
		s.metrics.raceCompleted(level, o.Victory)
		s.broadcastState()
		s.send(s.protocol.EncodeOutcome(outcomeMessage(o, s.machine.Vehicles())))
		if o.SaveErr != nil {
			s.send(s.protocol.EncodeError(network.ErrorCodeServerError, "Progress not saved"))
		}
	}

	s.publish()
}

// drainInputs applies every queued input to the race
func (s *Session) drainInputs() {
	for {
		select {
		case msg := <-s.inputs:
			key, ok := keyFromCode(msg.Key)
			if !ok {
				continue
			}
			s.machine.HandleInput(game.Input{Key: key, Pressed: msg.Pressed})
		default:
			return
		}
	}
}

// apply runs a restart command on the loop goroutine
func (s *Session) apply(cmd command) {
	current := s.machine.Level().Number

	switch {
	case cmd.level == 0 || cmd.level == current:
		s.machine.Reset()
	case cmd.level < 0 || cmd.level > s.unlocked:
		s.log.Warn().Int("race_level", cmd.level).Int("unlocked", s.unlocked).Msg("Rejected locked level")
		s.send(s.protocol.EncodeError(network.ErrorCodeLevelLocked, ErrLevelLocked.Error()))
		return
	default:
		s.machine.SetLevel(game.LevelByNumber(cmd.level))
	}

	s.outcomeSent = false
	s.lastPhase = s.machine.Phase()
	s.publish()
	s.sendSessionInfo()

	s.log.Info().Int("race_level", s.machine.Level().Number).Msg("Race restarted")
}

// broadcastState sends the current frame to the client
func (s *Session) broadcastState() {
	tick := uint16(s.tickCount.Load() & 0xFFFF)
	msg := stateMessage(tick, s.machine.Snapshot())
	s.send(s.protocol.EncodeState(msg))
}

func (s *Session) sendSessionInfo() {
	msg := sessionInfoMessage(s.ID, s.machine.Level().Number, s.unlocked, s.machine.Vehicles())
	s.send(s.protocol.EncodeSessionInfo(msg))
}

func (s *Session) send(data []byte) {
	if err := s.conn.Send(data); err != nil {
		// Log but don't disconnect - connection cleanup handles that
		s.log.Debug().Err(err).Msg("Failed to send")
	}
}

// kick drops the client after a guard violation
func (s *Session) kick(reason string) {
	s.log.Warn().Str("reason", reason).Int("dropped", s.guard.Dropped()).Msg("Kicking client")

	s.send(s.protocol.EncodeError(network.ErrorCodeKicked, reason))
	s.Stop()

	if s.onKick != nil {
		s.onKick(s, reason)
	}
}

// publish mirrors loop-owned state for other goroutines
func (s *Session) publish() {
	s.level.Store(int32(s.machine.Level().Number))
	s.phase.Store(uint32(s.machine.Phase()))
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}
