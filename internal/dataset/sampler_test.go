package dataset

import (
	"reflect"
	"sort"
	"testing"
)

func TestSamplerCoversEveryIndexOnce(t *testing.T) {
	s, err := NewSampler(SamplerOptions{Size: 300, BatchSize: 128, Shuffle: true, Seed: 7})
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	batches := s.Next()
	if len(batches) != 3 || s.NumBatches() != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[2]) != 300-256 {
		t.Fatalf("expected trailing batch of 44, got %d", len(batches[2]))
	}
	var all []int
	for _, b := range batches {
		all = append(all, b...)
	}
	sort.Ints(all)
	for i, v := range all {
		if v != i {
			t.Fatalf("index %d missing or duplicated", i)
		}
	}
}

func TestSamplerDeterministicForSeed(t *testing.T) {
	opts := SamplerOptions{Size: 50, BatchSize: 8, Shuffle: true, Seed: 123}
	a, _ := NewSampler(opts)
	b, _ := NewSampler(opts)
	for epoch := 0; epoch < 3; epoch++ {
		if !reflect.DeepEqual(a.Next(), b.Next()) {
			t.Fatalf("epoch %d order differs for equal seeds", epoch)
		}
	}
}

func TestSamplerSeedZeroIsDistinct(t *testing.T) {
	zero, _ := NewSampler(SamplerOptions{Size: 50, BatchSize: 50, Shuffle: true, Seed: 0})
	other, _ := NewSampler(SamplerOptions{Size: 50, BatchSize: 50, Shuffle: true, Seed: 42})
	if reflect.DeepEqual(zero.Next(), other.Next()) {
		t.Fatal("seed 0 produced the same order as seed 42")
	}
}

func TestSamplerReshufflesEachEpoch(t *testing.T) {
	s, _ := NewSampler(SamplerOptions{Size: 64, BatchSize: 64, Shuffle: true, Seed: 1})
	if reflect.DeepEqual(s.Next(), s.Next()) {
		t.Fatal("expected different order across epochs")
	}
}

func TestSamplerSequentialWithoutShuffle(t *testing.T) {
	s, _ := NewSampler(SamplerOptions{Size: 5, BatchSize: 2})
	want := [][]int{{0, 1}, {2, 3}, {4}}
	if got := s.Next(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNewSamplerRejectsBadOptions(t *testing.T) {
	if _, err := NewSampler(SamplerOptions{Size: 0, BatchSize: 1}); err == nil {
		t.Fatal("expected error for empty split")
	}
	if _, err := NewSampler(SamplerOptions{Size: 1, BatchSize: 0}); err == nil {
		t.Fatal("expected error for zero batch size")
	}
}
