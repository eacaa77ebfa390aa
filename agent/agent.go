// Package agent implements a single foraging organism: its energy economy,
// sensing, and the mapping from controller outputs to actions.
package agent

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/neural"
)

// Pose is the agent's place in the world. Heading is in radians, measured
// from +x toward +z.
type Pose struct {
	X, Y, Z     float64
	Heading     float64
	GoalHeading float64
}

// Agent is one organism. Fields are written only by Tick and by the motion
// actuator; presentation code reads them.
type Agent struct {
	ID         uint64
	Generation int
	Pose       Pose

	Speed       float64 // Target speed chosen this tick
	TurnAngle   float64 // Sampled turn in degrees
	Energy      float64
	WaterEnergy float64
	TimeAlive   float64
	AteThisTick bool

	Brain       *neural.Controller
	Vision      []float64 // One value per eye: 1/distance to the first resource seen, or 0
	LastOutputs []float64 // Raw controller outputs from the last tick

	input     []float64
	feedback  []float64
	goalTimer float64
	dead      bool

	cfg *config.Config
	rng *rand.Rand
}

// New creates a fresh agent with a randomly initialized controller.
// cfg must already be validated.
func New(cfg *config.Config, id uint64, pose Pose, rng *rand.Rand) *Agent {
	a := newAgent(cfg, id, pose, 0, rng)
	// config validation guarantees a known activation name
	act, _ := neural.ParseActivation(cfg.Neural.Activation)
	a.Brain = neural.New(cfg.Derived.Structure, initParams(cfg), act, rng)
	return a
}

// NewOffspring creates a child of parent at the parent's pose, one
// generation deeper, with a mutated copy of the parent's controller.
func NewOffspring(cfg *config.Config, id uint64, parent *Agent, rng *rand.Rand) *Agent {
	pose := parent.Pose
	pose.GoalHeading = pose.Heading
	a := newAgent(cfg, id, pose, parent.Generation+1, rng)
	a.InheritBrain(parent.Brain, true)
	return a
}

func newAgent(cfg *config.Config, id uint64, pose Pose, generation int, rng *rand.Rand) *Agent {
	energy := cfg.Energy.InitialEnergy
	if energy > cfg.Energy.MaxEnergy {
		energy = cfg.Energy.MaxEnergy
	}
	return &Agent{
		ID:          id,
		Generation:  generation,
		Pose:        pose,
		Energy:      energy,
		WaterEnergy: cfg.Energy.MaxWaterEnergy,
		Vision:      make([]float64, cfg.Vision.Eyes),
		LastOutputs: make([]float64, cfg.Derived.NumOutputs),
		input:       make([]float64, cfg.Derived.NumInputs),
		feedback:    make([]float64, cfg.Neural.Feedback),
		cfg:         cfg,
		rng:         rng,
	}
}

func initParams(cfg *config.Config) neural.InitParams {
	return neural.InitParams{Mean: cfg.Neural.InitMean, Std: cfg.Neural.InitStd}
}

// InheritBrain replaces the controller with a clone of parent. When mutate is
// set the clone is mutated once, with strength decaying by generation.
func (a *Agent) InheritBrain(parent *neural.Controller, mutate bool) {
	a.Brain = parent.Clone()
	if mutate {
		m := a.cfg.Mutation
		a.Brain.Mutate(a.rng, m.SwapRate, m.EpsRate, MutationStrength(m.Strength, m.Decay, a.Generation))
	}
}

// MutationStrength returns strength * decay^generation.
func MutationStrength(strength, decay float64, generation int) float64 {
	return strength * math.Pow(decay, float64(generation))
}

// Health is energy as a fraction of the maximum.
func (a *Agent) Health() float64 {
	return a.Energy / a.cfg.Energy.MaxEnergy
}

// Dead reports whether the agent decided to die. A dead agent ignores Tick.
func (a *Agent) Dead() bool {
	return a.dead
}

// Inputs returns the input vector fed to the controller on the last tick.
func (a *Agent) Inputs() []float64 {
	return a.input
}
