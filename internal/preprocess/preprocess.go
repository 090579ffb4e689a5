// Package preprocess turns raw MNIST images and labels into the flat,
// normalized vectors and one-hot targets the network consumes.
package preprocess

import (
	"github.com/pkg/errors"

	"mnist-dnn/internal/dataset"
)

// Split is one preprocessed dataset split held in memory for the run.
type Split struct {
	X      [][]float32
	Y      [][]float32
	Labels []int
}

// Len returns the number of samples.
func (s *Split) Len() int { return len(s.X) }

// Flatten maps a 28x28 grid to a 784-element vector in row-major order.
func Flatten(g [dataset.Rows][dataset.Cols]byte) []byte {
	out := make([]byte, 0, dataset.Pixels)
	for y := range g {
		out = append(out, g[y][:]...)
	}
	return out
}

// Unflatten is the inverse of Flatten.
func Unflatten(v []byte) ([dataset.Rows][dataset.Cols]byte, error) {
	var g [dataset.Rows][dataset.Cols]byte
	if len(v) != dataset.Pixels {
		return g, errors.Errorf("unflatten: got %d values, want %d", len(v), dataset.Pixels)
	}
	for y := range g {
		copy(g[y][:], v[y*dataset.Cols:(y+1)*dataset.Cols])
	}
	return g, nil
}

// Normalize scales pixel intensities from [0,255] into [0,1].
func Normalize(pixels []byte) []float32 {
	out := make([]float32, len(pixels))
	for i, p := range pixels {
		out[i] = float32(p) / 255
	}
	return out
}

// OneHot encodes label k as a vector of length classes with a single 1.
func OneHot(k, classes int) ([]float32, error) {
	if k < 0 || k >= classes {
		return nil, errors.Errorf("one-hot: label %d outside [0,%d)", k, classes)
	}
	v := make([]float32, classes)
	v[k] = 1
	return v, nil
}

// Prepare flattens, normalizes and encodes a raw split.
func Prepare(images []dataset.Image, labels []byte) (*Split, error) {
	if len(images) != len(labels) {
		return nil, errors.Errorf("prepare: %d images but %d labels", len(images), len(labels))
	}
	s := &Split{
		X:      make([][]float32, len(images)),
		Y:      make([][]float32, len(images)),
		Labels: make([]int, len(images)),
	}
	for i := range images {
		s.X[i] = Normalize(Flatten(images[i].Grid()))
		y, err := OneHot(int(labels[i]), dataset.Classes)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", i)
		}
		s.Y[i] = y
		s.Labels[i] = int(labels[i])
	}
	return s, nil
}
