package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL      = "https://storage.googleapis.com/cvdf-datasets/mnist/"
	DefaultModelPath    = "./mnist_model/final_DNN_model.gob"
	DefaultEpochs       = 10
	DefaultBatchSize    = 128
	DefaultLearningRate = 0.001
	DefaultSeed         = 42
	DefaultLogEvery     = 100
	DefaultVisualize    = 30
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DataDir      string  `yaml:"data_dir"`
	BaseURL      string  `yaml:"base_url"`
	ModelPath    string  `yaml:"model_path"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         int64   `yaml:"seed"`
	Shuffle      bool    `yaml:"shuffle"`
	LogEvery     int     `yaml:"log_every"`
	Visualize    int     `yaml:"visualize"`
	FigureDir    string  `yaml:"figure_dir"`
	Offline      bool    `yaml:"offline"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataDir      string
	ModelPath    string
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         *int64 // nil keeps the configured seed; zero is a valid seed
	LogEvery     int
	Visualize    int
	FigureDir    string
	Offline      bool
}

// Default returns the configuration the classifier was tuned with.
func Default() *Config {
	return &Config{
		DataDir:      defaultDataDir(),
		BaseURL:      DefaultBaseURL,
		ModelPath:    DefaultModelPath,
		Epochs:       DefaultEpochs,
		BatchSize:    DefaultBatchSize,
		LearningRate: DefaultLearningRate,
		Seed:         DefaultSeed,
		Shuffle:      true,
		LogEvery:     DefaultLogEvery,
		Visualize:    DefaultVisualize,
	}
}

// Load reads and validates a Config from YAML. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override. Seed applies
// whenever it is set.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.ModelPath != "" {
		c.ModelPath = o.ModelPath
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.Visualize > 0 {
		c.Visualize = o.Visualize
	}
	if o.FigureDir != "" {
		c.FigureDir = o.FigureDir
	}
	if o.Offline {
		c.Offline = true
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.ModelPath == "" {
		return errors.New("model_path must be set")
	}
	if c.BaseURL == "" && !c.Offline {
		return errors.New("base_url must be set unless offline")
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Visualize < 0 || c.Visualize%5 != 0 {
		return errors.Errorf("visualize must be a multiple of 5 (got %d)", c.Visualize)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = DefaultLogEvery
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	return nil
}

func parseYAML(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}
	return cfg, nil
}

func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mnist")
	}
	return filepath.Join(dir, "mnist-dnn")
}
