package game

// DriftController moves AI cars forward and makes them wander across the road.
type DriftController struct {
	axis      Axis
	direction float64
	tuning    DriftTuning
	rnd       Rand
}

// NewDriftController creates the AI controller for a level
func NewDriftController(l *Level, rnd Rand) *DriftController {
	if rnd == nil {
		rnd = defaultRand{}
	}
	return &DriftController{
		axis:      l.Axis,
		direction: l.Direction,
		tuning:    l.Drift,
		rnd:       rnd,
	}
}

// Step advances every non-finished AI car by one tick
func (d *DriftController) Step(vehicles []*Vehicle, bounds RoadBounds) {
	for _, v := range vehicles {
		if v.Finished || v.IsPlayer() {
			continue
		}
		d.advance(v)
		d.wander(v, bounds)
	}
}

func (d *DriftController) advance(v *Vehicle) {
	v.SetAlong(d.axis, v.Along(d.axis)+v.ForwardSpeed*d.direction)
}

// wander applies a random lateral deviation. A deviation that would leave the
// road is replaced by a smaller correction the other way.
func (d *DriftController) wander(v *Vehicle, bounds RoadBounds) {
	if d.rnd.Float64() >= d.tuning.Chance {
		return
	}

	dev := uniform(d.rnd, -d.tuning.MaxDeviation, d.tuning.MaxDeviation)
	lat := v.Lateral(d.axis)
	if bounds.Contains(lat + dev) {
		v.SetLateral(d.axis, lat+dev)
		return
	}
	v.SetLateral(d.axis, lat-dev*d.tuning.Correction)
}
