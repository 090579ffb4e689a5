package model

import "math"

// Param pairs a flat view of trainable values with their current gradient.
type Param struct {
	Value []float64
	Grad  []float64
}

// Optimizer applies one update to a fixed, ordered set of parameters.
type Optimizer interface {
	Update(params []Param)
	LearningRate() float64
}

// Adam implements adaptive moment estimation.
type Adam struct {
	LR      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	step int
	m, v [][]float64
}

// NewAdam returns Adam with the usual defaults and the given learning rate.
func NewAdam(lr float64) *Adam {
	return &Adam{LR: lr, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-7}
}

// LearningRate returns the base learning rate.
func (a *Adam) LearningRate() float64 { return a.LR }

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int { return a.step }

// Update moves every parameter against its gradient. Moment buffers are
// allocated on the first call and must match the parameter set afterwards.
func (a *Adam) Update(params []Param) {
	if a.m == nil {
		a.m = make([][]float64, len(params))
		a.v = make([][]float64, len(params))
		for i, p := range params {
			a.m[i] = make([]float64, len(p.Value))
			a.v[i] = make([]float64, len(p.Value))
		}
	}
	a.step++
	t := float64(a.step)
	lr := a.LR * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))
	for i, p := range params {
		m, v := a.m[i], a.v[i]
		for j, g := range p.Grad {
			m[j] = a.Beta1*m[j] + (1-a.Beta1)*g
			v[j] = a.Beta2*v[j] + (1-a.Beta2)*g*g
			p.Value[j] -= lr * m[j] / (math.Sqrt(v[j]) + a.Epsilon)
		}
	}
}
