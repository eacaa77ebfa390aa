// Package sampling provides the Gaussian sampling shared by weight
// initialization, mutation, and action selection.
package sampling

import "math"

// Uniform is a source of uniform draws in [0, 1).
// *rand.Rand satisfies it.
type Uniform interface {
	Float64() float64
}

// BoxMuller maps two independent uniform draws in [0, 1) to one standard
// normal sample. u1 is reflected to (0, 1] so the logarithm stays finite.
func BoxMuller(u1, u2 float64) float64 {
	return math.Sqrt(-2*math.Log(1-u1)) * math.Sin(2*math.Pi*u2)
}

// Normal draws two uniforms from src and returns mean + std*z.
func Normal(src Uniform, mean, std float64) float64 {
	u1 := src.Float64()
	u2 := src.Float64()
	return mean + std*BoxMuller(u1, u2)
}

// Sequence replays a fixed list of uniform draws, wrapping around at the end.
// It exists so tests can pin every random decision.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence creates a Sequence over values. An empty list always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next value in the sequence.
func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws returns how many values have been consumed.
func (s *Sequence) Draws() int {
	return s.next
}
