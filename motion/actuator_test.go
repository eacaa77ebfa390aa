package motion

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
)

type slopeTerrain struct{ w, d float64 }

func (s slopeTerrain) HeightAt(x, z float64) float64 { return x * 0.1 }
func (s slopeTerrain) Size() (float64, float64)      { return s.w, s.d }

func newTestAgent(t *testing.T, cfg *config.Config, pose agent.Pose) *agent.Agent {
	t.Helper()
	return agent.New(cfg, 1, pose, rand.New(rand.NewSource(42)))
}

func testConfig(turnRate, dt float64) *config.Config {
	cfg := config.Default().Clone()
	cfg.Motion.TurnRate = turnRate
	cfg.Physics.DT = dt
	cfg.Recompute()
	return cfg
}

func TestApplyMovesAlongHeading(t *testing.T) {
	cfg := testConfig(6, 0.1)
	m := NewActuator(cfg)
	a := newTestAgent(t, cfg, agent.Pose{X: 10, Z: 10, Heading: math.Pi / 2, GoalHeading: math.Pi / 2})
	a.Speed = 2

	m.Apply(a, slopeTerrain{w: 100, d: 100})

	if math.Abs(a.Pose.X-10) > 1e-9 || math.Abs(a.Pose.Z-12) > 1e-9 {
		t.Errorf("pose = (%v, %v), want (10, 12)", a.Pose.X, a.Pose.Z)
	}
	if math.Abs(a.Pose.Y-1) > 1e-9 {
		t.Errorf("Y = %v, want terrain height 1", a.Pose.Y)
	}
}

func TestApplyLimitsTurnRate(t *testing.T) {
	tests := []struct {
		name        string
		heading     float64
		goal        float64
		wantHeading float64
	}{
		{"small turn reaches goal", 0, 0.2, 0.2},
		{"large turn is capped", 0, 2, 0.6},
		{"turns the short way across zero", 0.1, 2*math.Pi - 0.1, 2*math.Pi - 0.1},
		{"negative turn is capped", 1, -1, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(6, 0.1) // at most 0.6 rad per tick
			m := NewActuator(cfg)
			a := newTestAgent(t, cfg, agent.Pose{Heading: tt.heading, GoalHeading: tt.goal})
			a.Speed = 0

			m.Apply(a, slopeTerrain{w: 100, d: 100})

			if math.Abs(a.Pose.Heading-tt.wantHeading) > 1e-9 {
				t.Errorf("Heading = %v, want %v", a.Pose.Heading, tt.wantHeading)
			}
		})
	}
}

func TestApplyWrapsAtEdges(t *testing.T) {
	cfg := testConfig(6, 0.1)
	m := NewActuator(cfg)
	a := newTestAgent(t, cfg, agent.Pose{X: 99.5, Z: 0.5, Heading: 0, GoalHeading: 0})
	a.Speed = 1

	m.Apply(a, slopeTerrain{w: 100, d: 50})
	if math.Abs(a.Pose.X-0.5) > 1e-9 {
		t.Errorf("X = %v, want 0.5 after wrapping", a.Pose.X)
	}

	a.Pose.Heading = 3 * math.Pi / 2
	a.Pose.GoalHeading = a.Pose.Heading
	m.Apply(a, slopeTerrain{w: 100, d: 50})
	if math.Abs(a.Pose.Z-49.5) > 1e-9 {
		t.Errorf("Z = %v, want 49.5 after wrapping", a.Pose.Z)
	}
}

func TestAngleDiff(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{1, 0, 1},
		{0, 1, -1},
		{0.1, 2*math.Pi - 0.1, 0.2},
		{math.Pi, 0, math.Pi},
	}
	for _, tt := range tests {
		if got := angleDiff(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("angleDiff(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
