package dataset

import (
	"math/rand"

	"github.com/pkg/errors"
)

// SamplerOptions configures mini-batch sampling over one split. Seed is used
// as given, zero included.
type SamplerOptions struct {
	Size      int
	BatchSize int
	Shuffle   bool
	Seed      int64
}

// Sampler yields the mini-batch index order for successive epochs.
type Sampler struct {
	opts SamplerOptions
	rng  *rand.Rand
}

// NewSampler validates opts and returns a Sampler positioned before the
// first epoch.
func NewSampler(opts SamplerOptions) (*Sampler, error) {
	if opts.Size <= 0 {
		return nil, errors.New("sampler: empty split")
	}
	if opts.BatchSize <= 0 {
		return nil, errors.Errorf("sampler: batch size must be > 0 (got %d)", opts.BatchSize)
	}
	return &Sampler{opts: opts, rng: rand.New(rand.NewSource(opts.Seed))}, nil
}

// NumBatches is the number of batches per epoch, counting a trailing
// partial batch.
func (s *Sampler) NumBatches() int {
	return (s.opts.Size + s.opts.BatchSize - 1) / s.opts.BatchSize
}

// Next returns the batches for the next epoch. Every index in [0, Size)
// appears exactly once.
func (s *Sampler) Next() [][]int {
	order := buildOrder(s.opts.Size, s.rngIfShuffled())
	return chunk(order, s.opts.BatchSize)
}

func (s *Sampler) rngIfShuffled() *rand.Rand {
	if !s.opts.Shuffle {
		return nil
	}
	return s.rng
}

func buildOrder(n int, rng *rand.Rand) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if rng != nil {
		rng.Shuffle(n, func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

func chunk(order []int, size int) [][]int {
	batches := make([][]int, 0, (len(order)+size-1)/size)
	for start := 0; start < len(order); start += size {
		end := start + size
		if end > len(order) {
			end = len(order)
		}
		batches = append(batches, order[start:end])
	}
	return batches
}
