package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/race/minirace/config"
	"github.com/race/minirace/internal/game"
	"github.com/race/minirace/internal/network"
	"github.com/race/minirace/internal/progress"
)

func TestNew_ResumesAtUnlockedLevel(t *testing.T) {
	store := progress.NewMemoryStore()
	require.NoError(t, store.SetLevel("p1", 2))

	s, _ := newTestSession(t, 0, store)
	assert.Equal(t, 2, s.Level())
	assert.Equal(t, game.PhaseCountdown, s.Phase())

	s, _ = newTestSession(t, 1, store)
	assert.Equal(t, 1, s.Level())
}

func TestNew_LockedLevel(t *testing.T) {
	_, err := New("s1", "p1", 2, &fakeConn{}, progress.NewMemoryStore())
	assert.ErrorIs(t, err, ErrLevelLocked)
}

func TestNew_StoreFailure(t *testing.T) {
	_, err := New("s1", "p1", 0, &fakeConn{}, failingStore{})
	assert.ErrorContains(t, err, "db down")
}

func TestNew_WithoutStoreStartsAtLevelOne(t *testing.T) {
	s, err := New("s1", "p1", 0, &fakeConn{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Level())
}

func TestSession_RaceToVictory(t *testing.T) {
	store := progress.NewMemoryStore()
	s, conn := newTestSession(t, 1, store)

	runCountdown(t, s)
	press(s, network.KeyDown)
	for i := 0; i < 1000 && s.Phase() != game.PhaseFinished; i++ {
		s.step(1.0 / 60)
	}
	require.Equal(t, game.PhaseFinished, s.Phase())

	outcomes := conn.ofType(network.MsgTypeOutcome)
	require.Len(t, outcomes, 1)

	p := network.NewProtocol()
	out, err := p.DecodeOutcome(outcomes[0])
	require.NoError(t, err)
	assert.NotZero(t, out.Flags&network.FlagVictory)
	assert.NotZero(t, out.Flags&network.FlagSaved)
	assert.Equal(t, uint8(1), out.PlayerRank)
	assert.Equal(t, uint8(0), out.WinnerSlot)
	assert.Equal(t, uint8(2), out.NextLevel)
	assert.Len(t, out.Standings, 3)

	level, err := store.GetLevel("p1")
	require.NoError(t, err)
	assert.Equal(t, 2, level)
	assert.Equal(t, 2, s.unlocked)

	// The outcome goes out once
	for i := 0; i < 60; i++ {
		s.step(1.0 / 60)
	}
	assert.Len(t, conn.ofType(network.MsgTypeOutcome), 1)
}

func TestSession_FailedSaveKeepsLevelLocked(t *testing.T) {
	s, conn := newTestSession(t, 1, saveFailingStore{})

	runCountdown(t, s)
	press(s, network.KeyDown)
	for i := 0; i < 1000 && s.Phase() != game.PhaseFinished; i++ {
		s.step(1.0 / 60)
	}
	require.Equal(t, game.PhaseFinished, s.Phase())
	require.True(t, s.machine.Outcome().Victory)
	assert.Equal(t, 1, s.unlocked)

	p := network.NewProtocol()
	outcomes := conn.ofType(network.MsgTypeOutcome)
	require.Len(t, outcomes, 1)
	out, err := p.DecodeOutcome(outcomes[0])
	require.NoError(t, err)
	assert.NotZero(t, out.Flags&network.FlagVictory)
	assert.Zero(t, out.Flags&network.FlagSaved)

	errs := conn.ofType(network.MsgTypeError)
	require.Len(t, errs, 1)
	msg, err := p.DecodeError(errs[0])
	require.NoError(t, err)
	assert.Equal(t, network.ErrorCodeServerError, msg.Code)

	s.apply(command{level: 2})
	assert.Equal(t, 1, s.Level())
	errs = conn.ofType(network.MsgTypeError)
	require.Len(t, errs, 2)
	msg, err = p.DecodeError(errs[1])
	require.NoError(t, err)
	assert.Equal(t, network.ErrorCodeLevelLocked, msg.Code)
}

func TestSession_RestartRules(t *testing.T) {
	s, conn := newTestSession(t, 1, progress.NewMemoryStore())
	p := network.NewProtocol()

	s.apply(command{level: 2})
	assert.Equal(t, 1, s.Level())
	errs := conn.ofType(network.MsgTypeError)
	require.Len(t, errs, 1)
	msg, err := p.DecodeError(errs[0])
	require.NoError(t, err)
	assert.Equal(t, network.ErrorCodeLevelLocked, msg.Code)

	runCountdown(t, s)
	s.apply(command{level: 0})
	assert.Equal(t, game.PhaseCountdown, s.Phase())
	assert.Equal(t, 1, s.Level())

	s.unlocked = 2
	s.apply(command{level: 2})
	assert.Equal(t, 2, s.Level())

	infos := conn.ofType(network.MsgTypeSessionInfo)
	require.NotEmpty(t, infos)
	info, err := p.DecodeSessionInfo(infos[len(infos)-1])
	require.NoError(t, err)
	assert.Equal(t, uint8(2), info.Level)
	assert.Equal(t, uint8(2), info.Unlocked)
	require.Len(t, info.Vehicles, 3)
	assert.Equal(t, "yellow", info.Vehicles[0].Label)
	assert.Equal(t, network.RolePlayer, info.Vehicles[0].Role)
}

func TestSession_BroadcastState(t *testing.T) {
	s, conn := newTestSession(t, 1, nil)

	s.broadcastState()

	states := conn.ofType(network.MsgTypeState)
	require.Len(t, states, 1)
	msg, err := network.NewProtocol().DecodeState(states[0])
	require.NoError(t, err)

	assert.Equal(t, network.PhaseCountdown, msg.Phase)
	assert.Equal(t, uint8(1), msg.Level)
	assert.Equal(t, uint8(3), msg.Countdown)
	assert.NotZero(t, msg.Flags&network.FlagShowReady)
	require.Len(t, msg.Vehicles, 3)
	assert.Equal(t, 500.0, network.UnscaleCoord(msg.Vehicles[0].X))
	assert.Equal(t, 700.0, network.UnscaleCoord(msg.Vehicles[0].Y))
	assert.Equal(t, network.RoleAI, msg.Vehicles[1].Role)
}

func TestSession_InputIgnoredDuringCountdown(t *testing.T) {
	s, _ := newTestSession(t, 1, nil)

	press(s, network.KeyDown)
	s.step(0.1)

	assert.Equal(t, game.Vec{}, s.machine.Player().Intent)
	assert.Equal(t, game.Vec{X: 500, Y: 700}, s.machine.Player().Position)
}

func TestSession_InputRateLimited(t *testing.T) {
	s, _ := newTestSession(t, 1, nil)

	for i := 0; i < config.MaxInputsPerTick+3; i++ {
		press(s, network.KeyDown)
	}
	assert.Equal(t, 3, s.guard.Dropped())
	assert.Len(t, s.inputs, config.MaxInputsPerTick)

	s.step(0.1)
	assert.Empty(t, s.inputs)
}

func TestSession_FloodKicks(t *testing.T) {
	s, conn := newTestSession(t, 1, nil)

	var kicked string
	s.SetOnKick(func(_ *Session, reason string) {
		kicked = reason
	})

	for tick := 0; tick <= config.MaxFloodTicks && kicked == ""; tick++ {
		for i := 0; i <= config.MaxInputsPerTick; i++ {
			press(s, network.KeyLeft)
		}
		s.step(0.1)
	}

	assert.Equal(t, "Input flood", kicked)
	errs := conn.ofType(network.MsgTypeError)
	require.Len(t, errs, 1)
	msg, err := network.NewProtocol().DecodeError(errs[0])
	require.NoError(t, err)
	assert.Equal(t, network.ErrorCodeKicked, msg.Code)

	assert.ErrorIs(t, s.Restart(0), ErrSessionClosed)
}

func TestSession_StartStop(t *testing.T) {
	conn := &fakeConn{}
	s, err := New("s1", "p1", 1, conn, nil, WithRates(200, 100))
	require.NoError(t, err)

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool {
		return len(conn.ofType(network.MsgTypeState)) > 0 && s.Ticks() > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, conn.ofType(network.MsgTypeSessionInfo), 1)

	require.NoError(t, s.Restart(0))

	require.NoError(t, s.Close())
	assert.False(t, s.IsRunning())
	assert.True(t, conn.isClosed())
	s.Stop()
}

func TestSession_LastActive(t *testing.T) {
	s, _ := newTestSession(t, 1, nil)
	before := s.LastActive()

	time.Sleep(2 * time.Millisecond)
	press(s, network.KeyUp)

	assert.True(t, s.LastActive().After(before))
}
