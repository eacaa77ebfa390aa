// Package neural provides the fixed-topology feed-forward controller that
// drives each agent. Weights are only ever changed by Mutate; there is no
// training.
package neural

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/forage/sampling"
)

// InitScale is applied to every sampled weight on top of the configured
// mean and standard deviation.
const InitScale = 0.1

// InitParams configures the Gaussian used for fresh weights.
type InitParams struct {
	Mean float64
	Std  float64
}

// Controller is a feed-forward network with one weight matrix per layer
// transition. Matrix i has shape (structure[i]+1) x structure[i+1] and row 0
// holds the biases.
type Controller struct {
	structure  []int
	weights    []*mat.Dense
	results    [][]float64
	activation Activation
	init       InitParams
}

// ErrBadStructure is returned by NewChecked for malformed layer sizes.
var ErrBadStructure = errors.New("neural: bad structure")

// NewChecked validates structure and builds a randomly initialized controller.
func NewChecked(structure []int, init InitParams, act Activation, src sampling.Uniform) (*Controller, error) {
	if len(structure) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 layers, got %d", ErrBadStructure, len(structure))
	}
	for i, n := range structure {
		if n <= 0 {
			return nil, fmt.Errorf("%w: layer %d has size %d", ErrBadStructure, i, n)
		}
	}

	c := &Controller{
		structure:  append([]int(nil), structure...),
		weights:    make([]*mat.Dense, len(structure)-1),
		results:    make([][]float64, len(structure)),
		activation: act,
		init:       init,
	}
	for i, n := range structure {
		c.results[i] = make([]float64, n)
	}
	for i := range c.weights {
		w := mat.NewDense(structure[i]+1, structure[i+1], nil)
		data := w.RawMatrix().Data
		for k := range data {
			data[k] = c.sampleWeight(src)
		}
		c.weights[i] = w
	}
	return c, nil
}

// New is NewChecked for callers that have already validated the structure.
// It panics on a malformed structure.
func New(structure []int, init InitParams, act Activation, src sampling.Uniform) *Controller {
	c, err := NewChecked(structure, init, act, src)
	if err != nil {
		panic(err)
	}
	return c
}

// Clone returns a deep copy sharing no storage with c.
func (c *Controller) Clone() *Controller {
	out := &Controller{
		structure:  append([]int(nil), c.structure...),
		weights:    make([]*mat.Dense, len(c.weights)),
		results:    make([][]float64, len(c.results)),
		activation: c.activation,
		init:       c.init,
	}
	for i, w := range c.weights {
		out.weights[i] = mat.DenseCopyOf(w)
	}
	for i, r := range c.results {
		out.results[i] = append([]float64(nil), r...)
	}
	return out
}

// Infer runs a forward pass. The returned slice is the controller's output
// buffer and is overwritten by the next call.
// Panics if len(input) does not match the input layer.
func (c *Controller) Infer(input []float64) []float64 {
	if len(input) != c.structure[0] {
		panic(fmt.Sprintf("neural: Infer got %d inputs, want %d", len(input), c.structure[0]))
	}
	copy(c.results[0], input)

	last := len(c.weights) - 1
	for i, w := range c.weights {
		rows, cols := w.Dims()
		prev := mat.NewVecDense(len(c.results[i]), c.results[i])
		next := mat.NewVecDense(cols, c.results[i+1])

		next.MulVec(w.Slice(1, rows, 0, cols).T(), prev)

		bias := w.RawRowView(0)
		out := c.results[i+1]
		for j := range out {
			if i == last {
				out[j] = sigmoid(out[j] + bias[j])
			} else {
				out[j] = c.activation.apply(out[j] + bias[j])
			}
		}
	}
	return c.results[len(c.results)-1]
}

// Mutate walks every weight and draws one uniform r. r < swapRate resamples
// the weight; otherwise r < swapRate+epsRate adds a fresh sample scaled by
// epsStrength. Swap is checked first, so when swapRate+epsRate > 1 the eps
// branch only covers what is left above swapRate.
func (c *Controller) Mutate(src sampling.Uniform, swapRate, epsRate, epsStrength float64) {
	for _, w := range c.weights {
		data := w.RawMatrix().Data
		for k := range data {
			r := src.Float64()
			if r < swapRate {
				data[k] = c.sampleWeight(src)
			} else if r < swapRate+epsRate {
				data[k] += c.sampleWeight(src) * epsStrength
			}
		}
	}
}

func (c *Controller) sampleWeight(src sampling.Uniform) float64 {
	return sampling.Normal(src, c.init.Mean, c.init.Std) * InitScale
}

// Structure returns a copy of the layer sizes.
func (c *Controller) Structure() []int {
	return append([]int(nil), c.structure...)
}

// NumInputs returns the input layer size.
func (c *Controller) NumInputs() int { return c.structure[0] }

// NumOutputs returns the output layer size.
func (c *Controller) NumOutputs() int { return c.structure[len(c.structure)-1] }

// Activation returns the interior activation.
func (c *Controller) Activation() Activation { return c.activation }

// Weights returns copies of the weight matrices.
func (c *Controller) Weights() []*mat.Dense {
	out := make([]*mat.Dense, len(c.weights))
	for i, w := range c.weights {
		out[i] = mat.DenseCopyOf(w)
	}
	return out
}

// LayerValues returns copies of every layer buffer from the last Infer.
func (c *Controller) LayerValues() [][]float64 {
	out := make([][]float64, len(c.results))
	for i, r := range c.results {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

// Serialize renders all weights as JSON nested lists, one list of rows per
// layer, bias row first. The output is deterministic for a given controller.
func (c *Controller) Serialize() string {
	var b strings.Builder
	b.WriteString(`{"weights":[`)
	for i, w := range c.weights {
		if i > 0 {
			b.WriteByte(',')
		}
		rows, _ := w.Dims()
		b.WriteByte('[')
		for r := 0; r < rows; r++ {
			if r > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('[')
			for j, v := range w.RawRowView(r) {
				if j > 0 {
					b.WriteByte(',')
				}
				b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			}
			b.WriteByte(']')
		}
		b.WriteByte(']')
	}
	b.WriteString(`]}`)
	return b.String()
}
