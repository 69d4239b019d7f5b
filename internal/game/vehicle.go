package game

import (
	"math"
)

// Role tells the simulation who drives a vehicle
type Role uint8

const (
	RolePlayer Role = iota
	RoleAI
)

func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RoleAI:
		return "ai"
	default:
		return "unknown"
	}
}

// Vec is a 2D vector in world units (y grows upwards)
type Vec struct {
	X float64
	Y float64
}

// Add returns v + o
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * k
func (v Vec) Scale(k float64) Vec {
	return Vec{X: v.X * k, Y: v.Y * k}
}

// Len returns the euclidean length of v
func (v Vec) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Vehicle is a single car taking part in a race.
// Rendering code keeps a reference to a Vehicle, never the other way round.
type Vehicle struct {
	// Identity
	ID    string // role + color, e.g. "player-yellow"
	Label string // color, used in leaderboard lines
	Role  Role

	// Motion
	Position     Vec
	Intent       Vec     // Player only: per-tick velocity set by input
	ForwardSpeed float64 // AI only: units per tick along the travel direction
	Heading      float64 // Degrees, presentation only

	// Shape
	Length float64 // Along the travel axis (bumper model)
	Width  float64 // Across the travel axis (bumper model)
	Radius float64 // Radial model

	// Finish
	Finished   bool
	FinishTime float64
	FinishRank int
}

// IsPlayer reports whether the vehicle is driven by the human
func (v *Vehicle) IsPlayer() bool {
	return v.Role == RolePlayer
}

// Freeze zeroes every motion input. Called exactly once, when the vehicle finishes.
func (v *Vehicle) Freeze() {
	v.Intent = Vec{}
	v.ForwardSpeed = 0
}

// Lateral returns the coordinate across the travel axis
func (v *Vehicle) Lateral(axis Axis) float64 {
	if axis == AxisVertical {
		return v.Position.X
	}
	return v.Position.Y
}

// SetLateral moves the vehicle across the travel axis
func (v *Vehicle) SetLateral(axis Axis, value float64) {
	if axis == AxisVertical {
		v.Position.X = value
	} else {
		v.Position.Y = value
	}
}

// Along returns the coordinate on the travel axis
func (v *Vehicle) Along(axis Axis) float64 {
	if axis == AxisVertical {
		return v.Position.Y
	}
	return v.Position.X
}

// SetAlong moves the vehicle on the travel axis
func (v *Vehicle) SetAlong(axis Axis, value float64) {
	if axis == AxisVertical {
		v.Position.Y = value
	} else {
		v.Position.X = value
	}
}

// forwardIntent returns the player's intent along the travel direction (positive = forward)
func (v *Vehicle) forwardIntent(axis Axis, dir float64) float64 {
	if axis == AxisVertical {
		return v.Intent.Y * dir
	}
	return v.Intent.X * dir
}

func (v *Vehicle) setForwardIntent(axis Axis, dir, value float64) {
	if axis == AxisVertical {
		v.Intent.Y = value * dir
	} else {
		v.Intent.X = value * dir
	}
}

// zeroLateralIntent stops the player sliding into a wall
func (v *Vehicle) zeroLateralIntent(axis Axis) {
	if axis == AxisVertical {
		v.Intent.X = 0
	} else {
		v.Intent.Y = 0
	}
}

// bumpers returns the leading and trailing edge along the travel axis
func (v *Vehicle) bumpers(axis Axis, dir float64) (front, rear float64) {
	half := v.Length / 2
	c := v.Along(axis)
	return c + dir*half, c - dir*half
}

// VehicleState is a plain-data copy of a vehicle handed to presentation
type VehicleState struct {
	ID         string
	Label      string
	Role       Role
	X          float64
	Y          float64
	Heading    float64
	Finished   bool
	FinishRank int
	FinishTime float64
}

// State returns a snapshot of the vehicle
func (v *Vehicle) State() VehicleState {
	return VehicleState{
		ID:         v.ID,
		Label:      v.Label,
		Role:       v.Role,
		X:          v.Position.X,
		Y:          v.Position.Y,
		Heading:    v.Heading,
		Finished:   v.Finished,
		FinishRank: v.FinishRank,
		FinishTime: v.FinishTime,
	}
}

// headingOf converts a displacement into degrees, keeping prev when the vehicle stands still
func headingOf(d Vec, prev float64) float64 {
	if d.X == 0 && d.Y == 0 {
		return prev
	}
	return math.Atan2(d.Y, d.X) * 180 / math.Pi
}

// sign returns -1 or +1; zero counts as positive so coincident pairs still separate
func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
