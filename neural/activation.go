package neural

import (
	"fmt"
	"math"
)

// Activation selects the function applied to interior layers.
// The output layer is always a sigmoid.
type Activation int

const (
	Sigmoid Activation = iota
	ReLU
	Linear
)

// ParseActivation maps a config name to an Activation.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "", "sigmoid":
		return Sigmoid, nil
	case "relu":
		return ReLU, nil
	case "linear":
		return Linear, nil
	}
	return Sigmoid, fmt.Errorf("unknown activation %q", name)
}

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Linear:
		return "linear"
	default:
		return "sigmoid"
	}
}

func (a Activation) apply(x float64) float64 {
	switch a {
	case ReLU:
		if x < 0 {
			return 0
		}
		return x
	case Linear:
		return x
	default:
		return sigmoid(x)
	}
}

// sigmoid is the logistic function. Large negative inputs saturate to 0
// rather than overflowing exp.
func sigmoid(x float64) float64 {
	if x < -40 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}
