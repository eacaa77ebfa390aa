// Package motion moves agents according to the speed and goal heading their
// controllers chose. It reads agent state and writes only the pose.
package motion

import (
	"math"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
)

// Terrain is what the actuator needs from the world.
type Terrain interface {
	HeightAt(x, z float64) float64
	Size() (width, depth float64)
}

// Actuator turns each agent toward its goal heading at a bounded rate,
// advances it along its heading, wraps it at the terrain edges and sticks it
// to the ground.
type Actuator struct {
	turnRate float64 // radians per second
	dt       float64
}

// NewActuator creates an actuator from config.
func NewActuator(cfg *config.Config) *Actuator {
	return &Actuator{turnRate: cfg.Motion.TurnRate, dt: cfg.Physics.DT}
}

// Apply moves one agent by one tick.
func (m *Actuator) Apply(a *agent.Agent, terrain Terrain) {
	p := &a.Pose

	diff := angleDiff(p.GoalHeading, p.Heading)
	maxTurn := m.turnRate * m.dt
	if diff > maxTurn {
		diff = maxTurn
	} else if diff < -maxTurn {
		diff = -maxTurn
	}
	p.Heading = normalizeAngle(p.Heading + diff)

	width, depth := terrain.Size()
	p.X = wrap(p.X+a.Speed*math.Cos(p.Heading), width)
	p.Z = wrap(p.Z+a.Speed*math.Sin(p.Heading), depth)
	p.Y = terrain.HeightAt(p.X, p.Z)
}

// angleDiff returns the signed shortest rotation from b to a in (-pi, pi].
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// normalizeAngle folds an angle into [0, 2pi).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func wrap(v, n float64) float64 {
	v = math.Mod(v, n)
	if v < 0 {
		v += n
	}
	if v >= n {
		v = 0
	}
	return v
}
