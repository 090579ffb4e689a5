package trainer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"mnist-dnn/internal/model"
	"mnist-dnn/internal/preprocess"
)

// syntheticSplit builds n samples where class k lights a distinct band of
// pixels, plus uniform noise.
func syntheticSplit(t *testing.T, n int, seed int64) *preprocess.Split {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	s := &preprocess.Split{}
	band := model.InputSize / model.NumClasses
	for i := 0; i < n; i++ {
		k := i % model.NumClasses
		x := make([]float32, model.InputSize)
		for j := range x {
			x[j] = float32(rng.Float64() * 0.1)
		}
		for j := k * band; j < (k+1)*band; j++ {
			x[j] = 1
		}
		y, err := preprocess.OneHot(k, model.NumClasses)
		if err != nil {
			t.Fatalf("OneHot: %v", err)
		}
		s.X = append(s.X, x)
		s.Y = append(s.Y, y)
		s.Labels = append(s.Labels, k)
	}
	return s
}

func testConfig() Config {
	return Config{Epochs: 5, BatchSize: 32, LearningRate: 0.005, Shuffle: true, Seed: 1, LogEvery: 1000}
}

func TestFitBeatsChance(t *testing.T) {
	tr, err := New(model.NewDNN(1), testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	history, err := tr.Fit(context.Background(), syntheticSplit(t, 200, 1))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("expected 5 epoch snapshots, got %d", len(history))
	}
	if history[4].MeanLoss >= history[0].MeanLoss {
		t.Fatalf("loss did not decrease: %f -> %f", history[0].MeanLoss, history[4].MeanLoss)
	}
	if history[0].Samples != 200 {
		t.Fatalf("epoch saw %d samples, want 200", history[0].Samples)
	}

	score, err := tr.Evaluate(context.Background(), syntheticSplit(t, 100, 2))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if score.Accuracy <= 0.5 {
		t.Fatalf("accuracy %.2f does not beat chance", score.Accuracy)
	}
	if tr.State() != Evaluated {
		t.Fatalf("state = %s, want evaluated", tr.State())
	}
}

func TestStateTransitions(t *testing.T) {
	tr, err := New(model.NewDNN(1), Config{Epochs: 1, BatchSize: 16, LearningRate: 0.001})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.State() != Uninitialized {
		t.Fatalf("initial state %s", tr.State())
	}
	data := syntheticSplit(t, 20, 3)
	if _, err := tr.Evaluate(context.Background(), data); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState before Fit, got %v", err)
	}
	if _, err := tr.Fit(context.Background(), data); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if tr.State() != Training {
		t.Fatalf("state after Fit = %s", tr.State())
	}
	if _, err := tr.Fit(context.Background(), data); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second Fit, got %v", err)
	}
	if _, err := tr.Evaluate(context.Background(), data); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, err := tr.Evaluate(context.Background(), data); err != nil {
		t.Fatalf("repeated Evaluate: %v", err)
	}
}

func TestFitDetectsDivergence(t *testing.T) {
	tr, _ := New(model.NewDNN(1), Config{Epochs: 1, BatchSize: 4, LearningRate: 0.001})
	data := syntheticSplit(t, 8, 4)
	for i := range data.X {
		data.X[i][0] = float32(math.NaN())
	}
	if _, err := tr.Fit(context.Background(), data); !errors.Is(err, ErrDiverged) {
		t.Fatalf("expected ErrDiverged, got %v", err)
	}
}

func TestFitHonorsCancellation(t *testing.T) {
	tr, _ := New(model.NewDNN(1), Config{Epochs: 1, BatchSize: 4, LearningRate: 0.001})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Fit(ctx, syntheticSplit(t, 8, 5)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPredictClasses(t *testing.T) {
	tr, _ := New(model.NewDNN(1), Config{Epochs: 1, BatchSize: 7, LearningRate: 0.001})
	data := syntheticSplit(t, 30, 6)
	got, err := tr.PredictClasses(context.Background(), data, 20)
	if err != nil {
		t.Fatalf("PredictClasses: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 predictions, got %d", len(got))
	}
	for _, c := range got {
		if c < 0 || c >= model.NumClasses {
			t.Fatalf("class %d out of range", c)
		}
	}
	if _, err := tr.PredictClasses(context.Background(), data, 31); err == nil {
		t.Fatal("expected error when asking for more predictions than samples")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Epochs: 0, BatchSize: 1, LearningRate: 1},
		{Epochs: 1, BatchSize: 0, LearningRate: 1},
		{Epochs: 1, BatchSize: 1, LearningRate: 0},
	} {
		if _, err := New(model.NewDNN(1), cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestHostInfo(t *testing.T) {
	if HostInfo() == "" {
		t.Fatal("empty host info")
	}
}
