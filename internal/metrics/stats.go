package metrics

import "time"

// Window accumulates loss, accuracy and timing across multiple steps.
type Window struct {
	samples  int
	correct  int
	lossSum  float64
	data     time.Duration
	compute  time.Duration
	steps    int
	lastLoss float64
}

// Record adds a new measurement to the window. loss is the batch mean.
func (w *Window) Record(batchSize, correct int, dataTime, computeTime time.Duration, loss float64) {
	w.samples += batchSize
	w.correct += correct
	w.lossSum += loss * float64(batchSize)
	w.data += dataTime
	w.compute += computeTime
	w.steps++
	w.lastLoss = loss
}

// Peek returns aggregated metrics without resetting the window.
func (w *Window) Peek() Snapshot {
	snap := Snapshot{Steps: w.steps, Samples: w.samples}
	total := w.data + w.compute
	if total > 0 {
		snap.ImagesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.steps)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
	}
	if w.samples > 0 {
		snap.MeanLoss = w.lossSum / float64(w.samples)
		snap.Accuracy = float64(w.correct) / float64(w.samples)
	}
	snap.LastLoss = w.lastLoss
	return snap
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := w.Peek()
	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps        int
	Samples      int
	ImagesPerSec float64
	AvgDataMS    float64
	AvgComputeMS float64
	MeanLoss     float64
	Accuracy     float64
	LastLoss     float64
}
