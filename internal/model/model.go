package model

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Batch represents a minibatch of features, one-hot targets and labels.
type Batch struct {
	X      *mat.Dense
	Y      *mat.Dense
	Labels []int
}

// Size returns the number of samples in the batch.
func (b Batch) Size() int { return len(b.Labels) }

// Model defines the training and inference surface the trainer needs.
type Model interface {
	TrainStep(batch Batch) (StepResult, error)
	Predict(x *mat.Dense) *mat.Dense
}

// StepResult reports the outcome of one parameter update.
type StepResult struct {
	Loss    float64
	Correct int
}

// NewBatch gathers the rows named by idx into dense matrices.
func NewBatch(x, y [][]float32, labels []int, idx []int) (Batch, error) {
	if len(idx) == 0 {
		return Batch{}, errors.New("batch: no samples")
	}
	if len(x) != len(y) || len(x) != len(labels) {
		return Batch{}, errors.Errorf("batch: mismatched split lengths %d/%d/%d", len(x), len(y), len(labels))
	}
	if len(x) == 0 {
		return Batch{}, errors.New("batch: empty split")
	}
	in, out := len(x[0]), len(y[0])
	xd := mat.NewDense(len(idx), in, nil)
	yd := mat.NewDense(len(idx), out, nil)
	lbl := make([]int, len(idx))
	for r, i := range idx {
		if i < 0 || i >= len(x) {
			return Batch{}, errors.Errorf("batch: index %d out of range", i)
		}
		copyRow(xd.RawRowView(r), x[i])
		copyRow(yd.RawRowView(r), y[i])
		lbl[r] = labels[i]
	}
	return Batch{X: xd, Y: yd, Labels: lbl}, nil
}

func copyRow(dst []float64, src []float32) {
	for j, v := range src {
		dst[j] = float64(v)
	}
}
