package trainer

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"

	"mnist-dnn/internal/dataset"
	"mnist-dnn/internal/metrics"
	"mnist-dnn/internal/model"
	"mnist-dnn/internal/preprocess"
)

var (
	// ErrInvalidState is returned when Fit or Evaluate is called out of order.
	ErrInvalidState = errors.New("trainer: invalid state")
	// ErrDiverged is returned when a batch loss is NaN or infinite.
	ErrDiverged = errors.New("trainer: loss diverged")
)

// State tracks where a Trainer is in its lifecycle.
type State int

const (
	Uninitialized State = iota
	Training
	Evaluated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Training:
		return "training"
	case Evaluated:
		return "evaluated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config captures the knobs required by the training loop.
type Config struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Shuffle      bool
	Seed         int64
	LogEvery     int
}

// Score is the outcome of an evaluation pass.
type Score struct {
	Loss     float64
	Accuracy float64
}

// Trainer fits a Network once and then evaluates it.
type Trainer struct {
	net    *model.Network
	cfg    Config
	state  State
	fitted bool
}

// New validates cfg and returns a Trainer for net.
func New(net *model.Network, cfg Config) (*Trainer, error) {
	if net == nil {
		return nil, errors.New("trainer: nil network")
	}
	if cfg.Epochs <= 0 {
		return nil, errors.New("trainer: epochs must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("trainer: batch size must be > 0")
	}
	if cfg.LearningRate <= 0 {
		return nil, errors.New("trainer: learning rate must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 100
	}
	return &Trainer{net: net, cfg: cfg}, nil
}

// State reports the current lifecycle state.
func (t *Trainer) State() State { return t.state }

// Fit trains the network on train for the configured number of epochs and
// returns one snapshot per epoch.
func (t *Trainer) Fit(ctx context.Context, train *preprocess.Split) ([]metrics.Snapshot, error) {
	if t.state != Uninitialized {
		return nil, errors.Wrapf(ErrInvalidState, "fit from %s", t.state)
	}
	sampler, err := dataset.NewSampler(dataset.SamplerOptions{
		Size:      train.Len(),
		BatchSize: t.cfg.BatchSize,
		Shuffle:   t.cfg.Shuffle,
		Seed:      t.cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	t.state = Training
	if t.net.Optimizer() == nil {
		t.net.Compile(model.NewAdam(t.cfg.LearningRate))
	}

	history := make([]metrics.Snapshot, 0, t.cfg.Epochs)
	var window metrics.Window
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		var epochWindow metrics.Window
		for step, idx := range sampler.Next() {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			startData := time.Now()
			batch, err := model.NewBatch(train.X, train.Y, train.Labels, idx)
			if err != nil {
				return history, err
			}
			dataTime := time.Since(startData)

			startCompute := time.Now()
			res, err := t.net.TrainStep(batch)
			if err != nil {
				return history, err
			}
			computeTime := time.Since(startCompute)
			if math.IsNaN(res.Loss) || math.IsInf(res.Loss, 0) {
				return history, errors.Wrapf(ErrDiverged, "epoch %d step %d", epoch, step+1)
			}

			window.Record(batch.Size(), res.Correct, dataTime, computeTime, res.Loss)
			epochWindow.Record(batch.Size(), res.Correct, dataTime, computeTime, res.Loss)

			if (step+1)%t.cfg.LogEvery == 0 {
				snap := window.Snapshot()
				log.Printf("epoch=%d step=%d/%d images_per_sec=%.1f data_ms=%.2f compute_ms=%.2f loss=%.4f",
					epoch,
					step+1,
					sampler.NumBatches(),
					snap.ImagesPerSec,
					snap.AvgDataMS,
					snap.AvgComputeMS,
					snap.LastLoss,
				)
			}
		}
		snap := epochWindow.Snapshot()
		history = append(history, snap)
		log.Printf("epoch=%d/%d loss=%.4f accuracy=%.4f images_per_sec=%.1f",
			epoch, t.cfg.Epochs, snap.MeanLoss, snap.Accuracy, snap.ImagesPerSec)
	}
	t.fitted = true
	return history, nil
}

// Evaluate scores the fitted network on test. It may be called repeatedly.
func (t *Trainer) Evaluate(ctx context.Context, test *preprocess.Split) (Score, error) {
	if !t.fitted {
		return Score{}, errors.Wrapf(ErrInvalidState, "evaluate from %s", t.state)
	}
	var window metrics.Window
	err := t.forEachBatch(ctx, test, func(batch model.Batch, classes []int, loss float64, elapsed time.Duration) {
		correct := 0
		for i, c := range classes {
			if c == batch.Labels[i] {
				correct++
			}
		}
		window.Record(batch.Size(), correct, 0, elapsed, loss)
	})
	if err != nil {
		return Score{}, err
	}
	snap := window.Snapshot()
	t.state = Evaluated
	return Score{Loss: snap.MeanLoss, Accuracy: snap.Accuracy}, nil
}

// PredictClasses returns the predicted class for the first n samples of s.
func (t *Trainer) PredictClasses(ctx context.Context, s *preprocess.Split, n int) ([]int, error) {
	if n > s.Len() {
		return nil, errors.Errorf("trainer: requested %d predictions from %d samples", n, s.Len())
	}
	head := &preprocess.Split{X: s.X[:n], Y: s.Y[:n], Labels: s.Labels[:n]}
	out := make([]int, 0, n)
	err := t.forEachBatch(ctx, head, func(_ model.Batch, classes []int, _ float64, _ time.Duration) {
		out = append(out, classes...)
	})
	return out, err
}

func (t *Trainer) forEachBatch(ctx context.Context, s *preprocess.Split, fn func(model.Batch, []int, float64, time.Duration)) error {
	if s.Len() == 0 {
		return nil
	}
	sampler, err := dataset.NewSampler(dataset.SamplerOptions{Size: s.Len(), BatchSize: t.cfg.BatchSize})
	if err != nil {
		return err
	}
	for _, idx := range sampler.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := model.NewBatch(s.X, s.Y, s.Labels, idx)
		if err != nil {
			return err
		}
		start := time.Now()
		probs := t.net.Predict(batch.X)
		loss := model.CrossEntropy(probs, batch.Y)
		fn(batch, model.Argmax(probs), loss, time.Since(start))
	}
	return nil
}

// HostInfo describes the CPU the run executes on.
func HostInfo() string {
	return fmt.Sprintf("cpu=%q cores=%d threads=%d avx2=%t fma3=%t",
		cpuid.CPU.BrandName,
		cpuid.CPU.PhysicalCores,
		cpuid.CPU.LogicalCores,
		cpuid.CPU.Supports(cpuid.AVX2),
		cpuid.CPU.Supports(cpuid.FMA3),
	)
}
