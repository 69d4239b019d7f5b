package game

import (
	"math"

	"github.com/race/minirace/config"
)

// Resolver detects and resolves overlap between two vehicles
type Resolver interface {
	// Collides reports whether a and b overlap. Finished vehicles never collide.
	Collides(a, b *Vehicle) bool
	// Resolve pushes an overlapping pair apart and adjusts their speeds.
	// Returns false and leaves both untouched when they do not overlap.
	Resolve(a, b *Vehicle) bool
}

// Pairs returns every unordered pair of non-finished vehicles exactly once,
// in roster order (the player first when it is first in the roster).
func Pairs(vehicles []*Vehicle) [][2]*Vehicle {
	var pairs [][2]*Vehicle
	for i := 0; i < len(vehicles); i++ {
		if vehicles[i].Finished {
			continue
		}
		for j := i + 1; j < len(vehicles); j++ {
			if vehicles[j].Finished {
				continue
			}
			pairs = append(pairs, [2]*Vehicle{vehicles[i], vehicles[j]})
		}
	}
	return pairs
}

// ResolveAll resolves each unordered pair once and returns how many collided
func ResolveAll(r Resolver, vehicles []*Vehicle) int {
	hits := 0
	for _, pair := range Pairs(vehicles) {
		if r.Resolve(pair[0], pair[1]) {
			hits++
		}
	}
	return hits
}

// impact is the bumper interval condition that fired for a pair
type impact uint8

const (
	impactNone impact = iota
	impactFrontIntoRear
	impactRearIntoFront
	impactSideBySide
)

// BumperResolver models cars as front/rear bumper intervals along the travel
// axis plus half widths across it.
type BumperResolver struct {
	Axis      Axis
	Direction float64
	Bounds    RoadBounds
	BaseSpeed float64
}

// NewBumperResolver creates a bumper resolver for a level
func NewBumperResolver(l *Level, bounds RoadBounds) *BumperResolver {
	return &BumperResolver{
		Axis:      l.Axis,
		Direction: l.Direction,
		Bounds:    bounds,
		BaseSpeed: l.BaseSpeed,
	}
}

// classify returns which bumper condition holds for a against b
func (r *BumperResolver) classify(a, b *Vehicle) impact {
	if a.Finished || b.Finished {
		return impactNone
	}

	lateralGap := math.Abs(a.Lateral(r.Axis) - b.Lateral(r.Axis))
	if lateralGap >= a.Width/2+b.Width/2 {
		return impactNone
	}

	aFront, aRear := a.bumpers(r.Axis, r.Direction)
	bFront, bRear := b.bumpers(r.Axis, r.Direction)
	bLo, bHi := math.Min(bFront, bRear), math.Max(bFront, bRear)
	aLo, aHi := math.Min(aFront, aRear), math.Max(aFront, aRear)

	switch {
	case aFront >= bLo && aFront <= bHi:
		return impactFrontIntoRear
	case aRear >= bLo && aRear <= bHi:
		return impactRearIntoFront
	case aLo < bLo && aHi > bHi:
		return impactSideBySide
	}
	return impactNone
}

// Collides implements Resolver
func (r *BumperResolver) Collides(a, b *Vehicle) bool {
	return r.classify(a, b) != impactNone
}

// Resolve implements Resolver
func (r *BumperResolver) Resolve(a, b *Vehicle) bool {
	var strength float64

	switch r.classify(a, b) {
	case impactFrontIntoRear:
		// a runs into b from behind
		r.damp(a, config.TrailingPlayerDamping, config.TrailingAIDamping)
		r.boost(b)
		strength = config.PushRearEnd
	case impactRearIntoFront:
		r.damp(a, config.FrontHitPlayerDamping, config.FrontHitAIDamping)
		r.nudgeBack(b)
		strength = config.PushFrontHit
	case impactSideBySide:
		dampAll(a, config.SidePlayerDamping, config.SideAIDamping)
		dampAll(b, config.SidePlayerDamping, config.SideAIDamping)
		strength = config.PushSideBySide
	default:
		return false
	}

	r.pushApart(a, b, strength)
	Clamp(a, r.Bounds, r.Axis)
	Clamp(b, r.Bounds, r.Axis)
	return true
}

// damp slows the forward motion of a vehicle
func (r *BumperResolver) damp(v *Vehicle, playerFactor, aiFactor float64) {
	if v.IsPlayer() {
		f := v.forwardIntent(r.Axis, r.Direction)
		v.setForwardIntent(r.Axis, r.Direction, f*playerFactor)
		return
	}
	v.ForwardSpeed *= aiFactor
}

// boost speeds up the vehicle that was hit from behind
func (r *BumperResolver) boost(v *Vehicle) {
	if v.IsPlayer() {
		f := v.forwardIntent(r.Axis, r.Direction)
		v.setForwardIntent(r.Axis, r.Direction, math.Max(f+config.LeadingPlayerKick, r.BaseSpeed))
		return
	}
	v.ForwardSpeed = math.Min(v.ForwardSpeed*config.LeadingBoost, 2*config.MaxAISpeed)
}

// nudgeBack pushes the forward motion of a vehicle backwards, with a floor
func (r *BumperResolver) nudgeBack(v *Vehicle) {
	if v.IsPlayer() {
		f := v.forwardIntent(r.Axis, r.Direction) - config.FrontHitNudge
		f = math.Max(-r.BaseSpeed, math.Min(f, r.BaseSpeed))
		v.setForwardIntent(r.Axis, r.Direction, f)
		return
	}
	v.ForwardSpeed = math.Max(v.ForwardSpeed-config.FrontHitNudge, config.MinAISpeed)
}

// pushApart separates the pair along both axes by the sign of their center delta
func (r *BumperResolver) pushApart(a, b *Vehicle, strength float64) {
	latShift := sign(a.Lateral(r.Axis)-b.Lateral(r.Axis)) * strength * config.LateralPushShare
	a.SetLateral(r.Axis, a.Lateral(r.Axis)+latShift)
	b.SetLateral(r.Axis, b.Lateral(r.Axis)-latShift)

	alongShift := sign(a.Along(r.Axis)-b.Along(r.Axis)) * strength * config.TravelPushShare
	a.SetAlong(r.Axis, a.Along(r.Axis)+alongShift)
	b.SetAlong(r.Axis, b.Along(r.Axis)-alongShift)
}

// dampAll scales the whole motion of a vehicle
func dampAll(v *Vehicle, playerFactor, aiFactor float64) {
	if v.IsPlayer() {
		v.Intent = v.Intent.Scale(playerFactor)
		return
	}
	v.ForwardSpeed *= aiFactor
}

// RadialResolver models cars as circles
type RadialResolver struct {
	rnd Rand
}

// NewRadialResolver creates a radial resolver. rnd picks the separation
// direction for cars sitting exactly on top of each other.
func NewRadialResolver(rnd Rand) *RadialResolver {
	if rnd == nil {
		rnd = defaultRand{}
	}
	return &RadialResolver{rnd: rnd}
}

// Collides implements Resolver. Touching circles do not collide.
func (r *RadialResolver) Collides(a, b *Vehicle) bool {
	if a.Finished || b.Finished {
		return false
	}
	return b.Position.Sub(a.Position).Len() < a.Radius+b.Radius
}

// Resolve implements Resolver
func (r *RadialResolver) Resolve(a, b *Vehicle) bool {
	if !r.Collides(a, b) {
		return false
	}

	// n points from a towards b
	d := b.Position.Sub(a.Position)
	dist := d.Len()
	var n Vec
	if dist == 0 {
		angle := r.rnd.Float64() * 2 * math.Pi
		n = Vec{X: math.Cos(angle), Y: math.Sin(angle)}
	} else {
		n = d.Scale(1 / dist)
	}

	r.repel(a, n)
	r.repel(b, n.Scale(-1))
	return true
}

// repel moves v away from the vehicle that lies in direction toward
func (r *RadialResolver) repel(v *Vehicle, toward Vec) {
	if v.IsPlayer() {
		v.Intent = v.Intent.Sub(toward.Scale(config.RadialPush * config.RadialIntentShare))
		v.Intent = v.Intent.Scale(config.RadialSpeedDamping)
		return
	}
	v.ForwardSpeed *= config.RadialSpeedDamping
	v.Position = v.Position.Sub(toward.Scale(config.RadialPush * config.RadialNudgeShare))
}
