package game

import (
	"github.com/race/minirace/config"
)

// Phase is the lifecycle stage of a race
type Phase uint8

const (
	PhaseCountdown Phase = iota
	PhaseRunning
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// RaceState is the bookkeeping of one race instance
type RaceState struct {
	Elapsed   float64 // Simulated seconds since setup
	StartTime float64 // Elapsed at the moment the race went live
	Remaining float64 // Countdown seconds left
	Phase     Phase

	FinishOrder []string           // Append-only
	FinishTimes map[string]float64 // Write-once per id
}

// NewRaceState returns a fresh state at the top of the countdown
func NewRaceState() *RaceState {
	return &RaceState{
		Remaining:   config.CountdownSeconds,
		Phase:       PhaseCountdown,
		FinishOrder: make([]string, 0, 4),
		FinishTimes: make(map[string]float64),
	}
}

// Now returns the race clock: seconds since the start signal
func (s *RaceState) Now() float64 {
	if s.Phase == PhaseCountdown {
		return 0
	}
	return s.Elapsed - s.StartTime
}

// FinishTracker decides when vehicles cross the line and records standings
type FinishTracker struct {
	axis      Axis
	direction float64
	line      FinishLine
}

// NewFinishTracker creates a tracker for a level's finish line
func NewFinishTracker(l *Level) *FinishTracker {
	return &FinishTracker{
		axis:      l.Axis,
		direction: l.Direction,
		line:      l.Finish,
	}
}

// CheckCrossing reports whether v is on the line interval and at or past the threshold
func (f *FinishTracker) CheckCrossing(v *Vehicle) bool {
	if v.Finished {
		return false
	}

	lat := v.Lateral(f.axis)
	if lat < f.line.Min || lat > f.line.Max {
		return false
	}

	edge := v.Along(f.axis)
	if f.line.LeadingEdge {
		edge, _ = v.bumpers(f.axis, f.direction)
	}
	return (edge-f.line.Threshold)*f.direction >= 0
}

// RecordFinish marks v as finished and appends it to the standings.
// Returns false if v had already finished.
func (f *FinishTracker) RecordFinish(v *Vehicle, s *RaceState) bool {
	if v.Finished {
		return false
	}
	if _, seen := s.FinishTimes[v.ID]; seen {
		return false
	}

	v.Finished = true
	v.Freeze()
	v.SetAlong(f.axis, f.line.Threshold+f.direction*config.FinishSnap)

	v.FinishTime = s.Elapsed - s.StartTime
	s.FinishOrder = append(s.FinishOrder, v.ID)
	s.FinishTimes[v.ID] = v.FinishTime
	v.FinishRank = len(s.FinishOrder)
	return true
}

// CheckCompletion reports whether every vehicle has finished a race that is
// not yet marked finished
func CheckCompletion(vehicles []*Vehicle, s *RaceState) bool {
	if s.Phase == PhaseFinished {
		return false
	}
	for _, v := range vehicles {
		if !v.Finished {
			return false
		}
	}
	return true
}
