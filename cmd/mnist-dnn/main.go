package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"mnist-dnn/internal/config"
	"mnist-dnn/internal/dataset"
	"mnist-dnn/internal/model"
	"mnist-dnn/internal/preprocess"
	"mnist-dnn/internal/trainer"
	"mnist-dnn/internal/visual"
)

func main() {
	cfgPath := flag.String("config", "configs/default.yaml", "Path to YAML config")
	dataDir := flag.String("data-dir", "", "Override dataset cache directory")
	modelPath := flag.String("model", "", "Override model output path")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	lr := flag.Float64("lr", 0, "Adam learning rate")
	seed := flag.Int64("seed", 0, "PRNG seed")
	logEvery := flag.Int("log-every", 0, "Log every N steps")
	visualize := flag.Int("visualize", 0, "Number of test predictions to render (multiple of 5)")
	figureDir := flag.String("figure-dir", "", "Write PNG figures to this directory")
	offline := flag.Bool("offline", false, "Never download the dataset")

	flag.Parse()

	var seedOverride *int64
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedOverride = seed
		}
	})

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		DataDir:      *dataDir,
		ModelPath:    *modelPath,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *lr,
		Seed:         seedOverride,
		LogEvery:     *logEvery,
		Visualize:    *visualize,
		FigureDir:    *figureDir,
		Offline:      *offline,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("run failed: %+v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Printf("host %s", trainer.HostInfo())

	raw, err := dataset.Load(ctx, dataset.Options{
		DataDir: cfg.DataDir,
		BaseURL: cfg.BaseURL,
		Offline: cfg.Offline,
	})
	if err != nil {
		return err
	}
	fmt.Println(raw.TrainLabels[0])
	fmt.Printf("(%d, %d, %d) (%d,)\n", len(raw.TrainImages), dataset.Rows, dataset.Cols, len(raw.TrainLabels))
	fmt.Printf("(%d, %d, %d) (%d,)\n", len(raw.TestImages), dataset.Rows, dataset.Cols, len(raw.TestLabels))

	if err := preview(cfg, raw.TrainImages); err != nil {
		return err
	}

	train, err := preprocess.Prepare(raw.TrainImages, raw.TrainLabels)
	if err != nil {
		return err
	}
	test, err := preprocess.Prepare(raw.TestImages, raw.TestLabels)
	if err != nil {
		return err
	}
	fmt.Println(train.Y[0])
	fmt.Printf("x_train (%d, %d) x_test (%d, %d)\n", train.Len(), model.InputSize, test.Len(), model.InputSize)

	net := model.NewDNN(cfg.Seed)
	fmt.Print(net.SummaryTable())

	tr, err := trainer.New(net, trainer.Config{
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		LearningRate: cfg.LearningRate,
		Shuffle:      cfg.Shuffle,
		Seed:         cfg.Seed,
		LogEvery:     cfg.LogEvery,
	})
	if err != nil {
		return err
	}
	if _, err := tr.Fit(ctx, train); err != nil {
		return err
	}

	score, err := tr.Evaluate(ctx, test)
	if err != nil {
		return err
	}
	fmt.Println("Test loss:", score.Loss)
	fmt.Println("Test accuracy:", score.Accuracy)

	if err := model.Save(cfg.ModelPath, net); err != nil {
		return err
	}
	log.Printf("saved model path=%s", cfg.ModelPath)

	if cfg.Visualize == 0 {
		return nil
	}
	return showPredictions(ctx, cfg, tr, raw.TestImages, test)
}

func preview(cfg *config.Config, images []dataset.Image) error {
	fig, err := visual.Preview(images, 9)
	if err != nil {
		return err
	}
	text, err := visual.ASCIIGrid(images[:9], nil, 3)
	if err != nil {
		return err
	}
	fmt.Println("first 9 training images:")
	fmt.Print(text)

	if cfg.FigureDir == "" {
		return nil
	}
	return visual.WritePNG(filepath.Join(cfg.FigureDir, "train_preview.png"), fig)
}

func showPredictions(ctx context.Context, cfg *config.Config, tr *trainer.Trainer, images []dataset.Image, test *preprocess.Split) error {
	n := cfg.Visualize
	preds, err := tr.PredictClasses(ctx, test, n)
	if err != nil {
		return err
	}
	fig, err := visual.Grid(images, preds, n)
	if err != nil {
		return err
	}

	captions := make([]string, n)
	for i, p := range preds {
		captions[i] = fmt.Sprintf("Pred: %d", p)
	}
	text, err := visual.ASCIIGrid(images[:n], captions, visual.Columns)
	if err != nil {
		return err
	}
	fmt.Printf("prediction results of the first %d images:\n", n)
	fmt.Print(text)

	if cfg.FigureDir == "" {
		return nil
	}
	return visual.WritePNG(filepath.Join(cfg.FigureDir, "test_predictions.png"), fig)
}
