package game

import (
	"fmt"

	"github.com/race/minirace/config"
)

// Standing is one line of the final leaderboard
type Standing struct {
	Rank  int
	ID    string
	Label string
	Role  Role
	Time  float64
}

// Outcome is the terminal result of a race, shared by every level
type Outcome struct {
	Level     int
	NextLevel int // Level saved on victory, capped at the level count

	Victory     bool
	WinnerID    string
	WinnerLabel string

	PlayerFinished bool
	PlayerTime     float64
	PlayerRank     int

	Standings []Standing
	Message   string

	// Progress store result; Saved is false when nothing was written
	Saved   bool
	SaveErr error
}

// buildOutcome derives the result from the finish order recorded so far
func buildOutcome(level int, vehicles []*Vehicle, s *RaceState) *Outcome {
	o := &Outcome{
		Level:     level,
		NextLevel: min(level+1, config.LevelCount),
	}

	for _, v := range vehicles {
		if v.IsPlayer() && v.Finished {
			o.PlayerFinished = true
			o.PlayerTime = v.FinishTime
			o.PlayerRank = v.FinishRank
		}
	}
	o.Standings = standings(vehicles, s)

	if len(o.Standings) > 0 {
		w := o.Standings[0]
		o.WinnerID = w.ID
		o.WinnerLabel = w.Label
		o.Victory = w.Role == RolePlayer
	}

	switch {
	case o.Victory:
		o.Message = fmt.Sprintf("Victory! You finished first in %.2fs", o.PlayerTime)
	case o.WinnerID != "":
		o.Message = fmt.Sprintf("Defeat! The %s car won the race", o.WinnerLabel)
	default:
		o.Message = "Race over"
	}
	return o
}

// standings lists the finish order with each vehicle's label, role and time
func standings(vehicles []*Vehicle, s *RaceState) []Standing {
	byID := make(map[string]*Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}

	out := make([]Standing, 0, len(s.FinishOrder))
	for i, id := range s.FinishOrder {
		st := Standing{Rank: i + 1, ID: id, Time: s.FinishTimes[id]}
		if v, ok := byID[id]; ok {
			st.Label = v.Label
			st.Role = v.Role
		}
		out = append(out, st)
	}
	return out
}

// Leaderboard formats standings as "<rank>. <label> <time>s" lines
func Leaderboard(standings []Standing) []string {
	lines := make([]string, 0, len(standings))
	for _, st := range standings {
		lines = append(lines, fmt.Sprintf("%d. %s %.2fs", st.Rank, st.Label, st.Time))
	}
	return lines
}
