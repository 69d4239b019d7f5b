package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedState(order ...string) *RaceState {
	s := NewRaceState()
	s.Phase = PhaseRunning
	for i, id := range order {
		s.FinishOrder = append(s.FinishOrder, id)
		s.FinishTimes[id] = float64(10 + i)
	}
	return s
}

func TestBuildOutcome_Victory(t *testing.T) {
	p := newPlayer(500, 70)
	p.Finished, p.FinishRank, p.FinishTime = true, 1, 10
	red := newAI("red", 400, 70, 0)
	red.Finished, red.FinishRank, red.FinishTime = true, 2, 11

	o := buildOutcome(1, []*Vehicle{p, red}, finishedState(p.ID, red.ID))

	assert.True(t, o.Victory)
	assert.Equal(t, 2, o.NextLevel)
	assert.Equal(t, "player-yellow", o.WinnerID)
	assert.Equal(t, "yellow", o.WinnerLabel)
	assert.True(t, o.PlayerFinished)
	assert.Equal(t, 1, o.PlayerRank)
	assert.Equal(t, "Victory! You finished first in 10.00s", o.Message)
	require.Len(t, o.Standings, 2)
	assert.Equal(t, Standing{Rank: 2, ID: "ai-red", Label: "red", Role: RoleAI, Time: 11}, o.Standings[1])
}

func TestBuildOutcome_Defeat(t *testing.T) {
	p := newPlayer(500, 300)
	blue := newAI("blue", 600, 70, 0)
	blue.Finished, blue.FinishRank = true, 1

	o := buildOutcome(2, []*Vehicle{p, blue}, finishedState(blue.ID))

	assert.False(t, o.Victory)
	assert.False(t, o.PlayerFinished)
	assert.Equal(t, 0, o.PlayerRank)
	assert.Equal(t, 2, o.NextLevel)
	assert.Equal(t, "Defeat! The blue car won the race", o.Message)
}

func TestBuildOutcome_NobodyFinished(t *testing.T) {
	o := buildOutcome(1, []*Vehicle{newPlayer(0, 0)}, finishedState())

	assert.False(t, o.Victory)
	assert.Empty(t, o.WinnerID)
	assert.Empty(t, o.Standings)
	assert.Equal(t, "Race over", o.Message)
}

func TestLeaderboard(t *testing.T) {
	lines := Leaderboard([]Standing{
		{Rank: 1, Label: "red", Time: 7.5},
		{Rank: 2, Label: "yellow", Time: 8.123},
	})
	assert.Equal(t, []string{"1. red 7.50s", "2. yellow 8.12s"}, lines)
	assert.Empty(t, Leaderboard(nil))
}

func TestStandings_FollowFinishOrder(t *testing.T) {
	p := newPlayer(500, 70)
	red := newAI("red", 400, 70, 0)
	blue := newAI("blue", 600, 70, 0)
	s := finishedState(blue.ID, p.ID, "ai-ghost")

	got := standings([]*Vehicle{p, red, blue}, s)

	require.Len(t, got, 3)
	assert.Equal(t, Standing{Rank: 1, ID: "ai-blue", Label: "blue", Role: RoleAI, Time: 10}, got[0])
	assert.Equal(t, Standing{Rank: 2, ID: "player-yellow", Label: "yellow", Role: RolePlayer, Time: 11}, got[1])
	assert.Equal(t, Standing{Rank: 3, ID: "ai-ghost", Time: 12}, got[2], "unknown ids keep rank and time")

	o := buildOutcome(1, []*Vehicle{p, red, blue}, s)
	assert.Equal(t, got, o.Standings)
	assert.Equal(t, []string{"1. blue 10.00s", "2. yellow 11.00s", "3.  12.00s"}, Leaderboard(got))
}
