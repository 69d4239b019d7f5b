// Package game implements the race simulation: vehicles, road bounds,
// collision models, AI drift, finish tracking and the race state machine.
package game

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/race/minirace/config"
)

// ProgressStore persists the highest level a player has unlocked
type ProgressStore interface {
	GetLevel(playerID string) (int, error)
	SetLevel(playerID string, level int) error
}

// Key is a directional control
type Key uint8

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	default:
		return "unknown"
	}
}

// Input is a press or release of a directional key
type Input struct {
	Key     Key
	Pressed bool
}

// Snapshot is everything presentation needs for one frame, as plain data
type Snapshot struct {
	Level         int
	Phase         Phase
	CountdownText string
	ShowReady     bool // "get ready" prompt during the countdown
	ShowGo        bool // start banner, cleared one second after the start
	RaceTime      float64
	Vehicles      []VehicleState
	Leaderboard   []string
	Collisions    int
	Outcome       *Outcome
}

// Option configures a Machine
type Option func(*Machine)

// WithRand sets the randomness source used for spawn speeds, drift and collisions
func WithRand(r Rand) Option {
	return func(m *Machine) {
		m.rnd = r
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) {
		m.log = l
	}
}

// Machine runs one race: countdown, running and finished phases.
//
// A Machine is driven by a single goroutine calling Tick once per frame and is
// not safe for concurrent use.
type Machine struct {
	level    Level
	playerID string
	store    ProgressStore
	rnd      Rand
	log      zerolog.Logger

	vehicles []*Vehicle
	player   *Vehicle
	state    *RaceState
	bounds   RoadBounds
	resolver Resolver
	drift    *DriftController
	finish   *FinishTracker
	events   EventQueue

	countdownText string
	showGo        bool
	resultShown   bool
	endTime       float64
	collisions    int
	outcome       *Outcome
}

// NewMachine sets up a race on level for playerID. store may be nil, in which
// case victories are not persisted.
func NewMachine(level Level, playerID string, store ProgressStore, opts ...Option) *Machine {
	m := &Machine{
		level:    level,
		playerID: playerID,
		store:    store,
		rnd:      defaultRand{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.setup()
	return m
}

// setup builds fresh vehicles, state and collaborators for the current level
func (m *Machine) setup() {
	l := &m.level

	m.state = NewRaceState()
	m.events.Clear()
	m.countdownText = countdownText(m.state.Remaining)
	m.showGo = false
	m.resultShown = false
	m.endTime = 0
	m.collisions = 0
	m.outcome = nil

	m.bounds = ComputeBounds(l.Tracks, l.Axis, l.Fallback)
	m.finish = NewFinishTracker(l)
	m.drift = NewDriftController(l, m.rnd)
	if l.Collision == CollisionRadial {
		m.resolver = NewRadialResolver(m.rnd)
	} else {
		m.resolver = NewBumperResolver(l, m.bounds)
	}

	m.vehicles = make([]*Vehicle, 0, len(l.Spawns))
	m.player = nil
	for _, sp := range l.Spawns {
		v := &Vehicle{
			ID:       fmt.Sprintf("%s-%s", sp.Role, sp.Label),
			Label:    sp.Label,
			Role:     sp.Role,
			Position: sp.Position,
			Heading:  l.travelHeading(),
			Radius:   config.CollisionRadius,
		}
		if sp.Role == RolePlayer {
			v.Length, v.Width = config.PlayerLength, config.PlayerWidth
			if m.player == nil {
				m.player = v
			}
		} else {
			v.Length, v.Width = config.AILength, config.AIWidth
			v.ForwardSpeed = uniform(m.rnd, config.MinAISpawnSpeed, config.MaxAISpeed)
		}
		m.vehicles = append(m.vehicles, v)
	}

	m.log.Debug().Int("race_level", l.Number).Int("vehicles", len(m.vehicles)).
		Float64("boundsMin", m.bounds.Min).Float64("boundsMax", m.bounds.Max).
		Msg("Race set up")
}

// Reset discards the current race, including pending events, and starts a new countdown
func (m *Machine) Reset() {
	m.setup()
}

// SetLevel switches to another level and starts a new countdown
func (m *Machine) SetLevel(level Level) {
	m.level = level
	m.setup()
}

// HandleInput applies a key press or release to the player.
// Input is ignored until the race is running and after the player finished.
func (m *Machine) HandleInput(in Input) {
	if m.state.Phase != PhaseRunning || m.player == nil || m.player.Finished {
		return
	}

	speed := m.level.BaseSpeed
	p := m.player
	if in.Pressed {
		switch in.Key {
		case KeyUp:
			p.Intent.Y = speed
		case KeyDown:
			p.Intent.Y = -speed
		case KeyLeft:
			p.Intent.X = -speed
		case KeyRight:
			p.Intent.X = speed
		}
		return
	}

	switch in.Key {
	case KeyUp, KeyDown:
		p.Intent.Y = 0
	case KeyLeft, KeyRight:
		p.Intent.X = 0
	}
}

// Tick advances the race by dt simulated seconds
func (m *Machine) Tick(dt float64) {
	if dt < 0 {
		dt = 0
	}
	m.state.Elapsed += dt

	m.pollEvents()

	switch m.state.Phase {
	case PhaseCountdown:
		m.tickCountdown(dt)
	case PhaseRunning:
		m.tickRunning()
	}
}

func (m *Machine) tickCountdown(dt float64) {
	m.state.Remaining -= dt
	m.countdownText = countdownText(m.state.Remaining)
	if m.state.Remaining > 0 {
		return
	}

	m.state.Phase = PhaseRunning
	m.state.StartTime = m.state.Elapsed
	m.showGo = true
	m.events.Schedule(Event{Kind: EventGoBannerClear, FireAt: m.state.Elapsed + config.GoBannerSeconds})

	m.log.Info().Int("race_level", m.level.Number).Str("player", m.playerID).Msg("Race started")
}

// countdownText maps the remaining countdown onto the digit shown on screen
func countdownText(remaining float64) string {
	switch {
	case remaining > 2:
		return "3"
	case remaining > 1:
		return "2"
	case remaining > 0:
		return "1"
	default:
		return ""
	}
}

func (m *Machine) tickRunning() {
	l := &m.level

	// Motion
	m.movePlayer()
	m.drift.Step(m.vehicles, m.bounds)

	// Collisions, each unordered pair once
	m.collisions += ResolveAll(m.resolver, m.vehicles)

	// Containment
	for _, v := range m.vehicles {
		if v.Finished {
			continue
		}
		Clamp(v, m.bounds, l.Axis)
		if v.IsPlayer() {
			clampWorld(v, l.World)
		}
	}

	// Finish line
	for _, v := range m.vehicles {
		if !m.finish.CheckCrossing(v) {
			continue
		}
		if !m.finish.RecordFinish(v, m.state) {
			continue
		}
		m.log.Info().Str("vehicle", v.ID).Int("rank", v.FinishRank).
			Float64("time", v.FinishTime).Msg("Vehicle finished")

		if v.IsPlayer() && !m.events.Pending(EventShowResults) {
			m.events.Schedule(Event{
				Kind:    EventShowResults,
				FireAt:  m.state.Elapsed + config.ResultsDelaySeconds,
				Payload: v.ID,
			})
		}
	}

	if CheckCompletion(m.vehicles, m.state) {
		m.complete()
	}
}

// movePlayer applies the player's intent and updates its heading
func (m *Machine) movePlayer() {
	p := m.player
	if p == nil || p.Finished {
		return
	}
	p.Position = p.Position.Add(p.Intent)
	p.Heading = headingOf(p.Intent, p.Heading)
}

// pollEvents fires every event whose time has come
func (m *Machine) pollEvents() {
	for _, e := range m.events.Due(m.state.Elapsed) {
		switch e.Kind {
		case EventGoBannerClear:
			m.showGo = false
		case EventShowResults:
			if m.state.Phase == PhaseRunning {
				m.complete()
			}
		}
	}
}

// complete ends the race exactly once and hands the outcome to the progress store
func (m *Machine) complete() {
	if m.resultShown {
		return
	}
	m.resultShown = true
	m.events.Cancel(EventShowResults)

	m.endTime = m.state.Now()
	m.state.Phase = PhaseFinished
	m.outcome = buildOutcome(m.level.Number, m.vehicles, m.state)

	if m.outcome.Victory && m.store != nil {
		if err := m.store.SetLevel(m.playerID, m.outcome.NextLevel); err != nil {
			m.outcome.SaveErr = err
			m.log.Error().Err(err).Str("player", m.playerID).
				Int("race_level", m.outcome.NextLevel).Msg("Failed to save progress")
		} else {
			m.outcome.Saved = true
		}
	}

	m.log.Info().Int("race_level", m.level.Number).Bool("victory", m.outcome.Victory).
		Str("winner", m.outcome.WinnerID).Msg("Race finished")
}

// Snapshot returns the presentation state of the current frame
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		Level:         m.level.Number,
		Phase:         m.state.Phase,
		CountdownText: m.countdownText,
		ShowReady:     m.state.Phase == PhaseCountdown,
		ShowGo:        m.showGo,
		Collisions:    m.collisions,
		Vehicles:      make([]VehicleState, len(m.vehicles)),
		Outcome:       m.outcome,
	}

	switch m.state.Phase {
	case PhaseRunning:
		snap.RaceTime = m.state.Now()
	case PhaseFinished:
		snap.RaceTime = m.endTime
	}

	for i, v := range m.vehicles {
		snap.Vehicles[i] = v.State()
	}

	snap.Leaderboard = Leaderboard(standings(m.vehicles, m.state))

	return snap
}

// Vehicle returns the vehicle with the given id, or nil
func (m *Machine) Vehicle(id string) *Vehicle {
	for _, v := range m.vehicles {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// Vehicles returns the roster, player first
func (m *Machine) Vehicles() []*Vehicle {
	return m.vehicles
}

// Player returns the human-controlled vehicle
func (m *Machine) Player() *Vehicle {
	return m.player
}

// State returns the race bookkeeping
func (m *Machine) State() *RaceState {
	return m.state
}

// Phase returns the current lifecycle stage
func (m *Machine) Phase() Phase {
	return m.state.Phase
}

// CountdownText returns the digit currently displayed
func (m *Machine) CountdownText() string {
	return m.countdownText
}

// Bounds returns the road corridor of the current level
func (m *Machine) Bounds() RoadBounds {
	return m.bounds
}

// Level returns the current level
func (m *Machine) Level() Level {
	return m.level
}

// PlayerID returns the id the progress store knows the player by
func (m *Machine) PlayerID() string {
	return m.playerID
}

// Outcome returns the race result, nil until the race finished
func (m *Machine) Outcome() *Outcome {
	return m.outcome
}

// Collisions returns the number of contacts resolved since setup
func (m *Machine) Collisions() int {
	return m.collisions
}

// PendingEvents returns the number of scheduled events
func (m *Machine) PendingEvents() int {
	return m.events.Len()
}
