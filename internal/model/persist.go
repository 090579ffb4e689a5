package model

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const fileFormat = "mnist-dnn/v1"

type savedModel struct {
	Format       string
	Input        int
	Layers       []savedLayer
	Optimizer    string
	LearningRate float64
	Steps        int
}

type savedLayer struct {
	Units      int
	Activation string
	Weights    []byte
	Biases     []byte
}

// Save writes the topology and parameters of net to path, creating the
// parent directory. The file is written beside the target and renamed over
// it, so an existing model is replaced whole.
func Save(path string, net *Network) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "save: create model dir")
	}

	sm := savedModel{Format: fileFormat, Input: net.Input}
	if a, ok := net.opt.(*Adam); ok {
		sm.Optimizer, sm.LearningRate, sm.Steps = "adam", a.LR, a.Steps()
	}
	for i, l := range net.Layers {
		w, err := l.W.MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "save: layer %d weights", i)
		}
		b, err := l.B.MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "save: layer %d biases", i)
		}
		sm.Layers = append(sm.Layers, savedLayer{
			Units:      l.Out,
			Activation: l.Act.String(),
			Weights:    w,
			Biases:     b,
		})
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "save: create temp file")
	}
	defer os.Remove(tmp.Name())
	if err := gob.NewEncoder(tmp).Encode(&sm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "save: encode model")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "save: sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "save: close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "save: install model")
}

// Load restores a Network written by Save. A saved Adam optimizer is
// recompiled with its learning rate; its moment estimates are not kept.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load: open model")
	}
	defer f.Close()

	var sm savedModel
	if err := gob.NewDecoder(f).Decode(&sm); err != nil {
		return nil, errors.Wrap(err, "load: decode model")
	}
	if sm.Format != fileFormat {
		return nil, errors.Errorf("load: unsupported format %q", sm.Format)
	}

	net := &Network{Input: sm.Input}
	prev := sm.Input
	for i, sl := range sm.Layers {
		act, err := ParseActivation(sl.Activation)
		if err != nil {
			return nil, errors.Wrapf(err, "load: layer %d", i)
		}
		var w mat.Dense
		if err := w.UnmarshalBinary(sl.Weights); err != nil {
			return nil, errors.Wrapf(err, "load: layer %d weights", i)
		}
		var b mat.VecDense
		if err := b.UnmarshalBinary(sl.Biases); err != nil {
			return nil, errors.Wrapf(err, "load: layer %d biases", i)
		}
		if r, c := w.Dims(); r != prev || c != sl.Units || b.Len() != sl.Units {
			return nil, errors.Errorf("load: layer %d shape %dx%d does not chain from %d", i, r, c, prev)
		}
		net.Layers = append(net.Layers, &Dense{In: prev, Out: sl.Units, Act: act, W: &w, B: &b})
		prev = sl.Units
	}
	if len(net.Layers) == 0 {
		return nil, errors.New("load: model has no layers")
	}
	if sm.Optimizer == "adam" {
		net.Compile(NewAdam(sm.LearningRate))
	}
	return net, nil
}
