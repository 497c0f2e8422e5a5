package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"genegraph/adjacency"
	"genegraph/dataset"
	"genegraph/model"
	"genegraph/training"
)

// flagExp receives the command-line values; YAML fills the rest.
var flagExp = defaultExperiment()

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on a synthetic benchmark",
	Long: `Trains one model end to end: generates the dataset, applies the adjacency
transforms, runs the epoch loop, and reports the best validation epoch.

Example:
  genegraph train --model gcn --dataset percolate --num-layer 3 --use-gate 0.01`,
	RunE: runTrain,
}

func init() {
	f := trainCmd.Flags()

	f.StringVar(&flagExp.Model, "model", flagExp.Model, "model to train (gcn|sgc|lcg|slr|lr|mlp)")
	f.StringVar(&flagExp.Dataset, "dataset", flagExp.Dataset, "benchmark to generate (random|percolate)")

	f.IntVar(&flagExp.Epochs, "epochs", flagExp.Epochs, "number of training epochs")
	f.IntVar(&flagExp.BatchSize, "batch-size", flagExp.BatchSize, "minibatch size")
	f.Int64Var(&flagExp.Seed, "seed", flagExp.Seed, "seed for data generation, init, and shuffling")
	f.Float64Var(&flagExp.LearningRate, "lr", flagExp.LearningRate, "Adam learning rate")
	f.Float64Var(&flagExp.WeightDecay, "weight-decay", flagExp.WeightDecay, "L2 weight decay inside the Adam step")
	f.Float64Var(&flagExp.L1Lambda, "l1-loss-lambda", flagExp.L1Lambda, "L1 penalty on the read-out weights")
	f.Float64Var(&flagExp.RegLambda, "reg-lambda", flagExp.RegLambda, "structural penalty lambda (slr Laplacian)")

	f.IntVar(&flagExp.NumChannel, "num-channel", flagExp.NumChannel, "channels per convolution layer")
	f.IntVar(&flagExp.NumLayer, "num-layer", flagExp.NumLayer, "number of convolution layers")
	f.Float64Var(&flagExp.KeepPercent, "keep-percent", flagExp.KeepPercent, "percent of strongest edges to keep")
	f.BoolVar(&flagExp.AddSelf, "add-self", flagExp.AddSelf, "add self loops before normalization")
	f.BoolVar(&flagExp.NormAdj, "norm-adj", flagExp.NormAdj, "symmetrically normalize the adjacency")
	f.StringVar(&flagExp.PoolGraph, "pool-graph", flagExp.PoolGraph, "graph coarsening between layers (hierarchy)")
	f.IntVar(&flagExp.UseEmb, "use-emb", flagExp.UseEmb, "node embedding width (0 disables)")
	f.Float64Var(&flagExp.UseGate, "use-gate", flagExp.UseGate, "gate lambda; 0 disables gating")
	f.IntVar(&flagExp.AttentionHeads, "attention-head", flagExp.AttentionHeads, "attention pooling heads (0 flattens)")
	f.BoolVar(&flagExp.Dropout, "dropout", flagExp.Dropout, "enable per-node dropout")
	f.IntVar(&flagExp.SGCDegree, "sgc-degree", flagExp.SGCDegree, "propagation power for sgc (0 uses the default)")

	f.BoolVar(&flagExp.ScaleFree, "scale-free", flagExp.ScaleFree, "scale-free random adjacency")
	f.IntVar(&flagExp.NumSamples, "nb-examples", flagExp.NumSamples, "number of generated samples")
	f.IntVar(&flagExp.NumNodes, "nb-nodes", flagExp.NumNodes, "graph size of the random benchmark")
	f.IntVar(&flagExp.NumClasses, "nb-class", flagExp.NumClasses, "label cardinality of the random benchmark")
	f.IntVar(&flagExp.GridSize, "grid-size", flagExp.GridSize, "side length of the percolation grid")
	f.Float64Var(&flagExp.TrainRatio, "train-ratio", flagExp.TrainRatio, "fraction of samples used for training")
	f.Float64Var(&flagExp.ValidRatio, "valid-ratio", flagExp.ValidRatio, "fraction of samples used for validation")

	f.StringVar(&flagExp.Checkpoint, "checkpoint", flagExp.Checkpoint, "path to write the best snapshot (gob)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	exp := flagExp
	if cfgPath != "" {
		fileExp, err := loadExperiment(cfgPath)
		if err != nil {
			return err
		}
		exp = overrideChanged(cmd, fileExp)
	}

	runID := uuid.NewString()
	log := logger.With(zap.String("run_id", runID), zap.String("model", exp.Model), zap.String("dataset", exp.Dataset))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := buildDataset(exp)
	if err != nil {
		return err
	}
	log.Info("dataset ready",
		zap.Int("samples", ds.Len()),
		zap.Int("nodes", ds.NumNodes()),
		zap.Int("classes", ds.NumClasses()),
	)

	train, valid, test, err := dataset.Split(ds, exp.TrainRatio, exp.ValidRatio, exp.Seed)
	if err != nil {
		return err
	}

	pool, err := parsePool(exp.PoolGraph)
	if err != nil {
		return err
	}

	channels := make([]int, exp.NumLayer)
	for i := range channels {
		channels[i] = exp.NumChannel
	}

	m, err := model.New(exp.Model, model.Config{
		Adjacency:      ds.Adjacency(),
		InputDim:       1,
		Channels:       channels,
		NumClasses:     ds.NumClasses(),
		Embedding:      exp.UseEmb,
		UseGate:        exp.UseGate,
		Dropout:        exp.Dropout,
		AttentionHeads: exp.AttentionHeads,
		SelfLoops:      exp.AddSelf,
		Normalize:      exp.NormAdj,
		KeepPercent:    exp.KeepPercent,
		Pooling:        pool,
		SGCDegree:      exp.SGCDegree,
		Mode:           model.ModeSupervised,
		Seed:           exp.Seed,
	})
	if err != nil {
		return err
	}

	trainer, err := training.New(m,
		training.WithEpochs(exp.Epochs),
		training.WithBatchSize(exp.BatchSize),
		training.WithLearningRate(exp.LearningRate),
		training.WithWeightDecay(exp.WeightDecay),
		training.WithRegLambda(exp.RegLambda),
		training.WithL1Lambda(exp.L1Lambda),
		training.WithSeed(exp.Seed),
		training.WithLogger(log),
	)
	if err != nil {
		return err
	}

	hist, err := trainer.Run(ctx, train, valid)
	if err != nil {
		return err
	}

	// Evaluate the best epoch's parameters on the held-out split.
	m.Restore(hist.Best)
	testAcc, err := trainer.Evaluate(ctx, test)
	if err != nil {
		return err
	}
	log.Info("run complete",
		zap.Int("best_epoch", hist.BestEpoch),
		zap.Float64("test_acc", testAcc),
	)

	if exp.Checkpoint != "" {
		cp := training.Checkpoint{
			RunID:     runID,
			ModelName: exp.Model,
			BestEpoch: hist.BestEpoch,
			Params:    hist.Best,
		}
		if err = training.SaveCheckpoint(exp.Checkpoint, cp); err != nil {
			return err
		}
		log.Info("checkpoint written", zap.String("path", exp.Checkpoint))
	}

	return nil
}

// overrideChanged lays explicitly set flags over a YAML-derived experiment.
func overrideChanged(cmd *cobra.Command, base experiment) experiment {
	apply := map[string]func(){
		"model":          func() { base.Model = flagExp.Model },
		"dataset":        func() { base.Dataset = flagExp.Dataset },
		"epochs":         func() { base.Epochs = flagExp.Epochs },
		"batch-size":     func() { base.BatchSize = flagExp.BatchSize },
		"seed":           func() { base.Seed = flagExp.Seed },
		"lr":             func() { base.LearningRate = flagExp.LearningRate },
		"weight-decay":   func() { base.WeightDecay = flagExp.WeightDecay },
		"l1-loss-lambda": func() { base.L1Lambda = flagExp.L1Lambda },
		"reg-lambda":     func() { base.RegLambda = flagExp.RegLambda },
		"num-channel":    func() { base.NumChannel = flagExp.NumChannel },
		"num-layer":      func() { base.NumLayer = flagExp.NumLayer },
		"keep-percent":   func() { base.KeepPercent = flagExp.KeepPercent },
		"add-self":       func() { base.AddSelf = flagExp.AddSelf },
		"norm-adj":       func() { base.NormAdj = flagExp.NormAdj },
		"pool-graph":     func() { base.PoolGraph = flagExp.PoolGraph },
		"use-emb":        func() { base.UseEmb = flagExp.UseEmb },
		"use-gate":       func() { base.UseGate = flagExp.UseGate },
		"attention-head": func() { base.AttentionHeads = flagExp.AttentionHeads },
		"dropout":        func() { base.Dropout = flagExp.Dropout },
		"sgc-degree":     func() { base.SGCDegree = flagExp.SGCDegree },
		"scale-free":     func() { base.ScaleFree = flagExp.ScaleFree },
		"nb-examples":    func() { base.NumSamples = flagExp.NumSamples },
		"nb-nodes":       func() { base.NumNodes = flagExp.NumNodes },
		"nb-class":       func() { base.NumClasses = flagExp.NumClasses },
		"grid-size":      func() { base.GridSize = flagExp.GridSize },
		"train-ratio":    func() { base.TrainRatio = flagExp.TrainRatio },
		"valid-ratio":    func() { base.ValidRatio = flagExp.ValidRatio },
		"checkpoint":     func() { base.Checkpoint = flagExp.Checkpoint },
	}
	for name, set := range apply {
		if cmd.Flags().Changed(name) {
			set()
		}
	}

	return base
}

// buildDataset generates the configured benchmark.
func buildDataset(exp experiment) (dataset.Dataset, error) {
	switch exp.Dataset {
	case "random":
		opts := []dataset.Option{
			dataset.WithSamples(exp.NumSamples),
			dataset.WithNodes(exp.NumNodes),
			dataset.WithClasses(exp.NumClasses),
			dataset.WithSeed(exp.Seed),
		}
		if exp.ScaleFree {
			opts = append(opts, dataset.WithScaleFree())
		}

		return dataset.NewRandom(opts...)
	case "percolate":
		return dataset.NewPercolate(
			dataset.WithSamples(exp.NumSamples),
			dataset.WithGridSize(exp.GridSize),
			dataset.WithSeed(exp.Seed),
		)
	default:
		return nil, fmt.Errorf("unknown dataset %q (random|percolate)", exp.Dataset)
	}
}

// parsePool maps the CLI spelling to the adjacency pool mode.
func parsePool(s string) (adjacency.PoolMode, error) {
	switch s {
	case "", "ignore":
		return adjacency.PoolNone, nil
	case "hierarchy":
		return adjacency.PoolHierarchy, nil
	default:
		return adjacency.PoolNone, fmt.Errorf("unknown pool mode %q (ignore|hierarchy)", s)
	}
}
