package game

import (
	"errors"
)

// scriptedRand returns values in order, then repeats fallback
type scriptedRand struct {
	values   []float64
	i        int
	fallback float64
}

func (r *scriptedRand) Float64() float64 {
	if r.i < len(r.values) {
		v := r.values[r.i]
		r.i++
		return v
	}
	return r.fallback
}

// calmRand never triggers drift and spawns AI at the top of the speed range
func calmRand() *scriptedRand {
	return &scriptedRand{fallback: 0.99}
}

type saveCall struct {
	playerID string
	level    int
}

type fakeStore struct {
	levels map[string]int
	calls  []saveCall
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{levels: make(map[string]int)}
}

func (s *fakeStore) GetLevel(playerID string) (int, error) {
	if l, ok := s.levels[playerID]; ok {
		return l, nil
	}
	return 1, nil
}

func (s *fakeStore) SetLevel(playerID string, level int) error {
	s.calls = append(s.calls, saveCall{playerID: playerID, level: level})
	if s.err != nil {
		return s.err
	}
	s.levels[playerID] = level
	return nil
}

var errDiskFull = errors.New("disk full")

func wideBounds() RoadBounds {
	return RoadBounds{Min: 0, Max: 1000}
}

func newPlayer(x, y float64) *Vehicle {
	return &Vehicle{
		ID: "player-yellow", Label: "yellow", Role: RolePlayer,
		Position: Vec{X: x, Y: y},
		Length:   60, Width: 30, Radius: 25,
	}
}

func newAI(label string, x, y, speed float64) *Vehicle {
	return &Vehicle{
		ID: "ai-" + label, Label: label, Role: RoleAI,
		Position:     Vec{X: x, Y: y},
		ForwardSpeed: speed,
		Length:       24, Width: 12, Radius: 25,
	}
}

// startRace runs the countdown to completion with whole-second ticks
func startRace(m *Machine) {
	for i := 0; i < 3; i++ {
		m.Tick(1.0)
	}
}
