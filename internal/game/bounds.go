package game

import (
	"math"

	"github.com/race/minirace/config"
)

// RoadBounds is the corridor across the travel axis a vehicle must stay in
type RoadBounds struct {
	Min float64
	Max float64
}

// DefaultBounds is used when a level carries no usable track geometry
func DefaultBounds() RoadBounds {
	return RoadBounds{Min: config.DefaultMinBound, Max: config.DefaultMaxBound}
}

// Contains reports whether a lateral coordinate lies inside the corridor
func (b RoadBounds) Contains(value float64) bool {
	return value >= b.Min && value <= b.Max
}

// ComputeBounds derives the corridor from track tile centers, padded inwards by 5%
// of its width. Without tiles the fallback corridor is returned.
func ComputeBounds(tiles []Tile, axis Axis, fallback RoadBounds) RoadBounds {
	if len(tiles) == 0 {
		return fallback
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range tiles {
		v := t.X
		if axis == AxisHorizontal {
			v = t.Y
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	pad := (hi - lo) * config.BoundsPadding
	return RoadBounds{Min: lo + pad, Max: hi - pad}
}

// Clamp snaps a vehicle that left the corridor back inside. AI cars lose speed
// against the wall, the player loses the lateral part of its intent.
// Returns true when the vehicle was outside.
func Clamp(v *Vehicle, b RoadBounds, axis Axis) bool {
	if v.Finished {
		return false
	}

	lat := v.Lateral(axis)
	switch {
	case lat < b.Min:
		v.SetLateral(axis, b.Min+config.WallSnap)
	case lat > b.Max:
		v.SetLateral(axis, b.Max-config.WallSnap)
	default:
		return false
	}

	if v.IsPlayer() {
		v.zeroLateralIntent(axis)
	} else {
		applyWallFriction(v)
	}
	return true
}

// applyWallFriction slows an AI car but never below the configured minimum.
// A speed already under the minimum is left alone.
func applyWallFriction(v *Vehicle) {
	if v.ForwardSpeed <= config.MinAISpeed {
		return
	}
	v.ForwardSpeed = math.Max(v.ForwardSpeed*config.WallFriction, config.MinAISpeed)
}

// clampWorld keeps a vehicle inside the level's world rectangle
func clampWorld(v *Vehicle, world Vec) {
	v.Position.X = math.Max(0, math.Min(v.Position.X, world.X))
	v.Position.Y = math.Max(0, math.Min(v.Position.Y, world.Y))
}
