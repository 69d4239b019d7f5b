package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 1.0 / 60.0

// runUntilFinished ticks at 60 Hz until the race ends or maxTicks elapse
func runUntilFinished(t *testing.T, m *Machine, maxTicks int) {
	t.Helper()
	for i := 0; i < maxTicks && m.Phase() != PhaseFinished; i++ {
		m.Tick(frame)
	}
	require.Equal(t, PhaseFinished, m.Phase(), "race did not finish in %d ticks", maxTicks)
}

func stopAI(m *Machine) {
	for _, v := range m.Vehicles() {
		if !v.IsPlayer() {
			v.ForwardSpeed = 0
		}
	}
}

func TestNewMachine_InitialState(t *testing.T) {
	m := NewMachine(Level1(), "p1", nil, WithRand(calmRand()))

	assert.Equal(t, PhaseCountdown, m.Phase())
	assert.Equal(t, "3", m.CountdownText())
	assert.Equal(t, 3.0, m.State().Remaining)
	assert.Empty(t, m.State().FinishOrder)
	require.Len(t, m.Vehicles(), 3)

	p := m.Player()
	require.NotNil(t, p)
	assert.Equal(t, "player-yellow", p.ID)
	assert.Equal(t, Vec{X: 500, Y: 700}, p.Position)
	assert.Equal(t, 60.0, p.Length)

	red := m.Vehicle("ai-red")
	require.NotNil(t, red)
	assert.InDelta(t, 3.98, red.ForwardSpeed, 1e-9)
	assert.Equal(t, 12.0, red.Width)

	assert.Equal(t, RoadBounds{Min: 300, Max: 660}, m.Bounds())
}

func TestCountdown_TextSequence(t *testing.T) {
	m := NewMachine(Level1(), "p1", nil, WithRand(calmRand()))

	texts := []string{m.CountdownText()}
	for i := 1; i <= 6; i++ {
		m.Tick(0.5)
		texts = append(texts, m.CountdownText())
		if i < 6 {
			assert.Equal(t, PhaseCountdown, m.Phase(), "step %d", i)
		}
	}

	assert.Equal(t, []string{"3", "3", "2", "2", "1", "1", ""}, texts)
	assert.Equal(t, PhaseRunning, m.Phase())
	assert.Equal(t, 3.0, m.State().StartTime)

	snap := m.Snapshot()
	assert.True(t, snap.ShowGo)
	assert.False(t, snap.ShowReady)
}

func TestCountdown_GoBannerClearsAfterOneSecond(t *testing.T) {
	m := NewMachine(Level1(), "p1", nil, WithRand(calmRand()))
	for i := 0; i < 6; i++ {
		m.Tick(0.5)
	}
	require.True(t, m.Snapshot().ShowGo)

	m.Tick(0.5)
	assert.True(t, m.Snapshot().ShowGo)

	m.Tick(0.5)
	assert.False(t, m.Snapshot().ShowGo)
	assert.Equal(t, 0, m.PendingEvents())
}

func TestHandleInput_IgnoredBeforeStart(t *testing.T) {
	m := NewMachine(Level1(), "p1", nil, WithRand(calmRand()))

	m.HandleInput(Input{Key: KeyDown, Pressed: true})
	assert.Equal(t, Vec{}, m.Player().Intent)

	startRace(m)
	m.HandleInput(Input{Key: KeyDown, Pressed: true})
	m.HandleInput(Input{Key: KeyLeft, Pressed: true})
	assert.Equal(t, Vec{X: -5, Y: -5}, m.Player().Intent)

	m.HandleInput(Input{Key: KeyUp, Pressed: false})
	assert.Equal(t, Vec{X: -5, Y: 0}, m.Player().Intent)
	m.HandleInput(Input{Key: KeyRight, Pressed: false})
	assert.Equal(t, Vec{}, m.Player().Intent)
}

func TestRace_PlayerSoleFinisherWins(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(Level1(), "p1", store, WithRand(calmRand()))
	stopAI(m)

	startRace(m)
	m.HandleInput(Input{Key: KeyDown, Pressed: true})
	runUntilFinished(t, m, 1000)

	assert.Equal(t, []string{"player-yellow"}, m.State().FinishOrder)
	assert.Equal(t, 1, m.Player().FinishRank)
	assert.False(t, m.Vehicle("ai-red").Finished)
	assert.False(t, m.Vehicle("ai-blue").Finished)

	o := m.Outcome()
	require.NotNil(t, o)
	assert.True(t, o.Victory)
	assert.Equal(t, "player-yellow", o.WinnerID)
	assert.Equal(t, 1, o.PlayerRank)
	assert.True(t, o.Saved)
	assert.NoError(t, o.SaveErr)
	assert.Equal(t, []saveCall{{playerID: "p1", level: 2}}, store.calls)

	// Finished is terminal and the store is called once
	for i := 0; i < 300; i++ {
		m.Tick(frame)
	}
	assert.Equal(t, PhaseFinished, m.Phase())
	assert.Len(t, store.calls, 1)
}

func TestRace_AIWinIsDefeat(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(Level1(), "p1", store, WithRand(calmRand()))
	for _, v := range m.Vehicles() {
		if !v.IsPlayer() {
			v.ForwardSpeed = 8
		}
	}

	startRace(m)
	m.HandleInput(Input{Key: KeyDown, Pressed: true})
	runUntilFinished(t, m, 1000)

	assert.Equal(t, []string{"ai-red", "ai-blue", "player-yellow"}, m.State().FinishOrder)
	o := m.Outcome()
	require.NotNil(t, o)
	assert.False(t, o.Victory)
	assert.Equal(t, "ai-red", o.WinnerID)
	assert.Equal(t, 3, o.PlayerRank)
	assert.Contains(t, o.Message, "red")
	assert.Empty(t, store.calls)
}

func TestRace_SaveFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.err = errDiskFull
	m := NewMachine(Level1(), "p1", store, WithRand(calmRand()))
	stopAI(m)

	startRace(m)
	m.HandleInput(Input{Key: KeyDown, Pressed: true})
	runUntilFinished(t, m, 1000)

	o := m.Outcome()
	require.NotNil(t, o)
	assert.True(t, o.Victory)
	assert.False(t, o.Saved)
	assert.ErrorIs(t, o.SaveErr, errDiskFull)
	assert.Len(t, store.calls, 1)
}

func TestRace_FinishedVehicleIsFrozen(t *testing.T) {
	m := NewMachine(Level1(), "p1", nil, WithRand(calmRand()))
	stopAI(m)
	startRace(m)
	m.HandleInput(Input{Key: KeyDown, Pressed: true})

	p := m.Player()
	for i := 0; i < 1000 && !p.Finished; i++ {
		m.Tick(frame)
	}
	require.True(t, p.Finished)
	require.Equal(t, PhaseRunning, m.Phase())

	pos := p.Position
	m.HandleInput(Input{Key: KeyLeft, Pressed: true})
	for i := 0; i < 30; i++ {
		m.Tick(frame)
	}
	assert.Equal(t, pos, p.Position)
	assert.Equal(t, Vec{}, p.Intent)
	assert.True(t, p.Finished)
}

func TestRace_ResetFromFinished(t *testing.T) {
	m := NewMachine(Level1(), "p1", newFakeStore(), WithRand(calmRand()))
	stopAI(m)
	startRace(m)
	m.HandleInput(Input{Key: KeyDown, Pressed: true})
	runUntilFinished(t, m, 1000)

	m.Reset()

	fresh := NewMachine(Level1(), "p1", nil, WithRand(calmRand()))
	assert.Equal(t, PhaseCountdown, m.Phase())
	assert.Equal(t, 3.0, m.State().Remaining)
	assert.Equal(t, 0.0, m.State().Elapsed)
	assert.Empty(t, m.State().FinishOrder)
	assert.Empty(t, m.State().FinishTimes)
	assert.Equal(t, "3", m.CountdownText())
	assert.Nil(t, m.Outcome())
	assert.Equal(t, 0, m.PendingEvents())
	assert.Equal(t, fresh.Snapshot(), m.Snapshot())
	for _, v := range m.Vehicles() {
		assert.False(t, v.Finished)
		assert.Equal(t, 0, v.FinishRank)
	}
}

func TestRace_ResetCancelsPendingResults(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(Level1(), "p1", store, WithRand(calmRand()))
	stopAI(m)
	startRace(m)
	m.HandleInput(Input{Key: KeyDown, Pressed: true})

	for i := 0; i < 1000 && !m.Player().Finished; i++ {
		m.Tick(frame)
	}
	require.True(t, m.Player().Finished)
	require.Equal(t, 1, m.PendingEvents())

	m.Reset()
	for i := 0; i < 120; i++ {
		m.Tick(frame)
	}
	assert.NotEqual(t, PhaseFinished, m.Phase())
	assert.Nil(t, m.Outcome())
	assert.Empty(t, store.calls)
}

func TestRace_Level2RadialVictory(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(Level2(), "p1", store, WithRand(calmRand()))
	stopAI(m)

	startRace(m)
	m.HandleInput(Input{Key: KeyRight, Pressed: true})
	runUntilFinished(t, m, 1000)

	o := m.Outcome()
	require.NotNil(t, o)
	assert.True(t, o.Victory)
	assert.Equal(t, 2, o.Level)
	assert.Equal(t, 2, o.NextLevel)
	assert.Equal(t, []saveCall{{playerID: "p1", level: 2}}, store.calls)
	assert.Equal(t, 870.0, m.Player().Position.X)
}

func TestRace_SetLevelRestartsCountdown(t *testing.T) {
	m := NewMachine(Level1(), "p1", nil, WithRand(calmRand()))
	startRace(m)

	m.SetLevel(Level2())

	assert.Equal(t, 2, m.Level().Number)
	assert.Equal(t, PhaseCountdown, m.Phase())
	assert.Equal(t, Vec{X: 100, Y: 300}, m.Player().Position)
	assert.Equal(t, RoadBounds{Min: 192, Max: 408}, m.Bounds())
}

func TestRace_StandingInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		m := NewMachine(Level1(), "p1", nil, WithRand(NewSeededRand(seed)))
		startRace(m)
		m.HandleInput(Input{Key: KeyDown, Pressed: true})

		finished := make(map[string]bool)
		for i := 0; i < 3000 && m.Phase() != PhaseFinished; i++ {
			m.Tick(frame)

			order := m.State().FinishOrder
			assert.LessOrEqual(t, len(order), len(m.Vehicles()))

			seen := make(map[string]bool)
			for idx, id := range order {
				assert.False(t, seen[id], "duplicate %s in finish order", id)
				seen[id] = true
				assert.Equal(t, idx+1, m.Vehicle(id).FinishRank)
			}

			for _, v := range m.Vehicles() {
				if finished[v.ID] {
					assert.True(t, v.Finished, "%s unfinished again", v.ID)
				}
				finished[v.ID] = v.Finished
			}
		}
	}
}

func TestSnapshot_LeaderboardAndTimer(t *testing.T) {
	m := NewMachine(Level1(), "p1", nil, WithRand(calmRand()))
	stopAI(m)

	snap := m.Snapshot()
	assert.True(t, snap.ShowReady)
	assert.Equal(t, 0.0, snap.RaceTime)
	assert.Len(t, snap.Vehicles, 3)

	startRace(m)
	m.Tick(0.25)
	assert.InDelta(t, 0.25, m.Snapshot().RaceTime, 1e-9)

	m.HandleInput(Input{Key: KeyDown, Pressed: true})
	runUntilFinished(t, m, 1000)

	snap = m.Snapshot()
	require.Len(t, snap.Leaderboard, 1)
	assert.Regexp(t, `^1\. yellow \d+\.\d{2}s$`, snap.Leaderboard[0])
	require.NotNil(t, snap.Outcome)

	frozen := snap.RaceTime
	m.Tick(1)
	assert.Equal(t, frozen, m.Snapshot().RaceTime)
}
