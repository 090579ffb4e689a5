package model

import (
	"bytes"
	"fmt"
	"math/rand"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	InputSize  = 784
	NumClasses = 10
)

// LayerSpec describes one Dense layer of a Network.
type LayerSpec struct {
	Units int
	Act   Activation
}

// DNNTopology is the classifier's fixed stack of hidden and output layers.
var DNNTopology = []LayerSpec{
	{Units: 512, Act: ReLU},
	{Units: 256, Act: ReLU},
	{Units: 124, Act: ReLU},
	{Units: NumClasses, Act: Softmax},
}

// Network is an ordered stack of Dense layers trained with cross-entropy.
type Network struct {
	Input  int
	Layers []*Dense

	opt Optimizer
}

// NewDNN builds the 784-512-256-124-10 classifier.
func NewDNN(seed int64) *Network {
	net, err := NewNetwork(InputSize, DNNTopology, seed)
	if err != nil {
		panic(err)
	}
	return net
}

// NewNetwork builds a Network. Only the final layer may use Softmax, and it
// must.
func NewNetwork(input int, specs []LayerSpec, seed int64) (*Network, error) {
	if input <= 0 {
		return nil, errors.Errorf("network: input size must be > 0 (got %d)", input)
	}
	if len(specs) == 0 {
		return nil, errors.New("network: no layers")
	}
	rng := rand.New(rand.NewSource(seed))
	net := &Network{Input: input}
	prev := input
	for i, s := range specs {
		if s.Units <= 0 {
			return nil, errors.Errorf("network: layer %d has %d units", i, s.Units)
		}
		last := i == len(specs)-1
		if (s.Act == Softmax) != last {
			return nil, errors.Errorf("network: layer %d: softmax must be exactly the output activation", i)
		}
		net.Layers = append(net.Layers, NewDense(prev, s.Units, s.Act, rng))
		prev = s.Units
	}
	return net, nil
}

// Compile attaches the optimizer used by TrainStep.
func (n *Network) Compile(opt Optimizer) { n.opt = opt }

// Optimizer returns the compiled optimizer, or nil.
func (n *Network) Optimizer() Optimizer { return n.opt }

// Classes is the width of the output layer.
func (n *Network) Classes() int { return n.Layers[len(n.Layers)-1].Out }

// Predict returns one probability distribution per input row.
func (n *Network) Predict(x *mat.Dense) *mat.Dense {
	out := x
	for _, l := range n.Layers {
		out = l.forward(out)
	}
	return out
}

// PredictClasses returns the highest-probability class per input row.
func (n *Network) PredictClasses(x *mat.Dense) []int {
	return Argmax(n.Predict(x))
}

// TrainStep runs a forward and backward pass over batch and applies one
// optimizer update. The returned loss is the pre-update batch loss.
func (n *Network) TrainStep(b Batch) (StepResult, error) {
	if n.opt == nil {
		return StepResult{}, errors.New("network: not compiled")
	}
	if b.Size() == 0 {
		return StepResult{}, errors.New("network: empty batch")
	}
	if _, c := b.X.Dims(); c != n.Input {
		return StepResult{}, errors.Errorf("network: input width %d, want %d", c, n.Input)
	}
	if _, c := b.Y.Dims(); c != n.Classes() {
		return StepResult{}, errors.Errorf("network: target width %d, want %d", c, n.Classes())
	}

	probs := n.Predict(b.X)
	res := StepResult{
		Loss:    CrossEntropy(probs, b.Y),
		Correct: CountCorrect(probs, b.Labels),
	}

	// softmax followed by cross-entropy has gradient (p - y) / batch.
	dz := mat.NewDense(b.Size(), n.Classes(), nil)
	dz.Sub(probs, b.Y)
	dz.Scale(1/float64(b.Size()), dz)
	for i := len(n.Layers) - 1; i >= 0; i-- {
		dx := n.Layers[i].backward(dz)
		if i > 0 {
			reluGrad(dx, n.Layers[i-1].out)
		}
		dz = dx
	}

	var params []Param
	for _, l := range n.Layers {
		params = append(params, l.params()...)
	}
	n.opt.Update(params)
	return res, nil
}

// LayerSummary is one row of Network.Summary.
type LayerSummary struct {
	Name   string
	Units  int
	Act    Activation
	Params int
}

// Summary lists the layers with their output widths and parameter counts.
func (n *Network) Summary() []LayerSummary {
	out := make([]LayerSummary, len(n.Layers))
	for i, l := range n.Layers {
		out[i] = LayerSummary{
			Name:   fmt.Sprintf("dense_%d", i+1),
			Units:  l.Out,
			Act:    l.Act,
			Params: l.NumParams(),
		}
	}
	return out
}

// NumParams is the total number of trainable values.
func (n *Network) NumParams() int {
	total := 0
	for _, l := range n.Layers {
		total += l.NumParams()
	}
	return total
}

// SummaryTable renders Summary as an aligned table.
func (n *Network) SummaryTable() string {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Layer\tOutput Shape\tActivation\tParam #")
	for _, s := range n.Summary() {
		fmt.Fprintf(tw, "%s\t(None, %d)\t%s\t%d\n", s.Name, s.Units, s.Act, s.Params)
	}
	fmt.Fprintf(tw, "Total params:\t%d\t\t\n", n.NumParams())
	tw.Flush()
	return buf.String()
}
