package model

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation selects the elementwise non-linearity of a Dense layer.
type Activation int

const (
	ReLU Activation = iota
	Softmax
)

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Softmax:
		return "softmax"
	}
	return "unknown"
}

// ParseActivation is the inverse of Activation.String.
func ParseActivation(s string) (Activation, error) {
	switch s {
	case "relu":
		return ReLU, nil
	case "softmax":
		return Softmax, nil
	}
	return 0, errors.Errorf("unknown activation %q", s)
}

// apply overwrites z with the activation of each row.
func (a Activation) apply(z *mat.Dense) {
	rows, _ := z.Dims()
	for i := 0; i < rows; i++ {
		row := z.RawRowView(i)
		switch a {
		case ReLU:
			for j, v := range row {
				if v < 0 {
					row[j] = 0
				}
			}
		case Softmax:
			softmax(row)
		}
	}
}

// softmax normalizes row in place into a probability distribution.
func softmax(row []float64) {
	maxLogit := floats.Max(row)
	for j, v := range row {
		row[j] = math.Exp(v - maxLogit)
	}
	floats.Scale(1/floats.Sum(row), row)
}

// reluGrad zeroes entries of grad where the layer output was not positive.
func reluGrad(grad, out *mat.Dense) {
	rows, _ := grad.Dims()
	for i := 0; i < rows; i++ {
		g, o := grad.RawRowView(i), out.RawRowView(i)
		for j := range g {
			if o[j] <= 0 {
				g[j] = 0
			}
		}
	}
}
