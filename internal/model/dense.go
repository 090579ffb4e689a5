package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dense is a fully-connected layer computing act(x·W + b).
type Dense struct {
	In, Out int
	Act     Activation
	W       *mat.Dense
	B       *mat.VecDense

	x, out *mat.Dense
	dW     *mat.Dense
	dB     *mat.VecDense
}

// NewDense allocates a layer with Glorot-uniform weights and zero bias.
func NewDense(in, out int, act Activation, rng *rand.Rand) *Dense {
	limit := math.Sqrt(6 / float64(in+out))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	return &Dense{
		In:  in,
		Out: out,
		Act: act,
		W:   mat.NewDense(in, out, w),
		B:   mat.NewVecDense(out, nil),
	}
}

// NumParams is the number of trainable values in the layer.
func (d *Dense) NumParams() int { return d.In*d.Out + d.Out }

func (d *Dense) forward(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	out := mat.NewDense(rows, d.Out, nil)
	out.Mul(x, d.W)
	bias := d.B.RawVector().Data
	for i := 0; i < rows; i++ {
		floats.Add(out.RawRowView(i), bias)
	}
	d.Act.apply(out)
	d.x, d.out = x, out
	return out
}

// backward takes the gradient with respect to the pre-activation output and
// returns the gradient with respect to the layer input.
func (d *Dense) backward(dz *mat.Dense) *mat.Dense {
	rows, _ := dz.Dims()
	d.dW = mat.NewDense(d.In, d.Out, nil)
	d.dW.Mul(d.x.T(), dz)
	d.dB = mat.NewVecDense(d.Out, nil)
	db := d.dB.RawVector().Data
	for i := 0; i < rows; i++ {
		floats.Add(db, dz.RawRowView(i))
	}
	dx := mat.NewDense(rows, d.In, nil)
	dx.Mul(dz, d.W.T())
	return dx
}

func (d *Dense) params() []Param {
	return []Param{
		{Value: d.W.RawMatrix().Data, Grad: d.dW.RawMatrix().Data},
		{Value: d.B.RawVector().Data, Grad: d.dB.RawVector().Data},
	}
}
