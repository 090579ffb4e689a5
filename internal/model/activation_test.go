package model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestSoftmaxStable(t *testing.T) {
	row := []float64{1000, 1001, 1002}
	softmax(row)
	if math.IsNaN(row[0]) || math.Abs(floats.Sum(row)-1) > 1e-12 {
		t.Fatalf("unstable softmax %v", row)
	}
	if !(row[2] > row[1] && row[1] > row[0]) {
		t.Fatalf("softmax changed ordering %v", row)
	}
}

func TestReLU(t *testing.T) {
	z := mat.NewDense(1, 3, []float64{-2, 0, 3})
	ReLU.apply(z)
	if !floats.Equal(z.RawRowView(0), []float64{0, 0, 3}) {
		t.Fatalf("relu = %v", z.RawRowView(0))
	}
}

func TestParseActivation(t *testing.T) {
	for _, a := range []Activation{ReLU, Softmax} {
		got, err := ParseActivation(a.String())
		if err != nil || got != a {
			t.Fatalf("ParseActivation(%q) = %v, %v", a, got, err)
		}
	}
	if _, err := ParseActivation("tanh"); err == nil {
		t.Fatal("expected error for tanh")
	}
}

func TestCrossEntropy(t *testing.T) {
	probs := mat.NewDense(2, 2, []float64{0.5, 0.5, 1, 0})
	y := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	got := CrossEntropy(probs, y)
	want := (-math.Log(0.5) - math.Log(probEpsilon)) / 2
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("CrossEntropy = %f, want %f", got, want)
	}
	if CountCorrect(probs, []int{0, 1}) != 1 {
		t.Fatal("expected one correct prediction")
	}
}
