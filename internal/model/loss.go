package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const probEpsilon = 1e-7

// CrossEntropy returns the mean categorical cross-entropy between predicted
// distributions and one-hot targets, one sample per row.
func CrossEntropy(probs, targets *mat.Dense) float64 {
	rows, _ := probs.Dims()
	if rows == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < rows; i++ {
		p, y := probs.RawRowView(i), targets.RawRowView(i)
		for j, t := range y {
			if t == 0 {
				continue
			}
			q := math.Min(math.Max(p[j], probEpsilon), 1-probEpsilon)
			total -= t * math.Log(q)
		}
	}
	return total / float64(rows)
}

// Argmax returns the index of the largest value in each row.
func Argmax(m *mat.Dense) []int {
	rows, _ := m.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = floats.MaxIdx(m.RawRowView(i))
	}
	return out
}

// CountCorrect reports how many predicted classes match labels.
func CountCorrect(probs *mat.Dense, labels []int) int {
	correct := 0
	for i, c := range Argmax(probs) {
		if c == labels[i] {
			correct++
		}
	}
	return correct
}
