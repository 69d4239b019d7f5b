package game

import (
	"github.com/race/minirace/config"
)

// Axis is the direction the track scrolls in
type Axis uint8

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

func (a Axis) String() string {
	if a == AxisVertical {
		return "vertical"
	}
	return "horizontal"
}

// CollisionModel selects the resolver used by a level
type CollisionModel uint8

const (
	CollisionBumper CollisionModel = iota
	CollisionRadial
)

// Tile is the center of a collidable track tile
type Tile struct {
	X float64
	Y float64
}

// FinishLine describes where a race ends. Min/Max bound the line across the
// travel axis, Threshold sits on the travel axis.
type FinishLine struct {
	Min       float64
	Max       float64
	Threshold float64
	// LeadingEdge checks the front bumper instead of the vehicle center
	LeadingEdge bool
}

// DriftTuning controls AI lateral wander
type DriftTuning struct {
	Chance       float64 // Per tick probability of a deviation
	MaxDeviation float64 // Deviation is uniform in [-MaxDeviation, MaxDeviation]
	Correction   float64 // Share of the deviation applied backwards near a wall
}

// Spawn is the starting slot of one vehicle
type Spawn struct {
	Label    string
	Role     Role
	Position Vec
}

// Level is the geometry and tuning of one track
type Level struct {
	Number    int
	Name      string
	Axis      Axis
	Direction float64 // +1 or -1 along Axis
	World     Vec     // World extents (width, height)
	Finish    FinishLine
	Spawns    []Spawn
	Tracks    []Tile
	Fallback  RoadBounds
	Collision CollisionModel
	Drift     DriftTuning
	BaseSpeed float64
}

// travelHeading is the heading in degrees of a vehicle driving straight ahead
func (l *Level) travelHeading() float64 {
	return headingOf(l.travelVec(1), 0)
}

// travelVec returns a vector of length k pointing in the travel direction
func (l *Level) travelVec(k float64) Vec {
	if l.Axis == AxisVertical {
		return Vec{Y: k * l.Direction}
	}
	return Vec{X: k * l.Direction}
}

// Level1 is the vertical-scrolling track: cars race down the screen and
// bump each other front to back.
func Level1() Level {
	return Level{
		Number:    1,
		Name:      "Downhill",
		Axis:      AxisVertical,
		Direction: -1,
		World:     Vec{X: config.ScreenWidth, Y: config.ScreenHeight},
		Finish: FinishLine{
			Min:         280,
			Max:         680,
			Threshold:   80,
			LeadingEdge: true,
		},
		Spawns: []Spawn{
			{Label: "yellow", Role: RolePlayer, Position: Vec{X: 500, Y: 700}},
			{Label: "red", Role: RoleAI, Position: Vec{X: 400, Y: 700}},
			{Label: "blue", Role: RoleAI, Position: Vec{X: 600, Y: 700}},
		},
		Tracks:    trackColumns(280, 680, 40, 0, config.ScreenHeight, 80),
		Fallback:  DefaultBounds(),
		Collision: CollisionBumper,
		Drift:     DriftTuning{Chance: 0.03, MaxDeviation: 10, Correction: 0.3},
		BaseSpeed: config.BaseSpeed,
	}
}

// Level2 is the horizontal-scrolling track with circular car hulls.
func Level2() Level {
	return Level{
		Number:    2,
		Name:      "Coastline",
		Axis:      AxisHorizontal,
		Direction: 1,
		World:     Vec{X: config.ScreenWidth, Y: config.ScreenHeight},
		Finish: FinishLine{
			Min:       180,
			Max:       420,
			Threshold: 860,
		},
		Spawns: []Spawn{
			{Label: "yellow", Role: RolePlayer, Position: Vec{X: 100, Y: 300}},
			{Label: "red", Role: RoleAI, Position: Vec{X: 100, Y: 240}},
			{Label: "blue", Role: RoleAI, Position: Vec{X: 100, Y: 360}},
		},
		Tracks:    trackRows(180, 420, 40, 0, config.ScreenWidth, 80),
		Fallback:  RoadBounds{Min: 190, Max: 410},
		Collision: CollisionRadial,
		Drift:     DriftTuning{Chance: 0.04, MaxDeviation: 15, Correction: 0.5},
		BaseSpeed: config.BaseSpeed,
	}
}

// LevelByNumber returns the built-in level n, falling back to level 1
func LevelByNumber(n int) Level {
	switch n {
	case 2:
		return Level2()
	default:
		return Level1()
	}
}

// trackColumns lays tiles on a grid whose lateral axis is X
func trackColumns(minX, maxX, stepX, minY, maxY, stepY float64) []Tile {
	var tiles []Tile
	for y := minY; y <= maxY; y += stepY {
		for x := minX; x <= maxX; x += stepX {
			tiles = append(tiles, Tile{X: x, Y: y})
		}
	}
	return tiles
}

// trackRows lays tiles on a grid whose lateral axis is Y
func trackRows(minY, maxY, stepY, minX, maxX, stepX float64) []Tile {
	var tiles []Tile
	for x := minX; x <= maxX; x += stepX {
		for y := minY; y <= maxY; y += stepY {
			tiles = append(tiles, Tile{X: x, Y: y})
		}
	}
	return tiles
}
