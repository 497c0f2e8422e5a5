package training

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"genegraph/dataset"
	"genegraph/model"
)

// EpochStats is one epoch's summary.
type EpochStats struct {
	Epoch        int
	Loss         float64 // cross-entropy + penalties, averaged over batches
	CrossEntropy float64
	Penalty      float64 // structural + L1 contribution
	TrainAcc     float64
	ValidAcc     float64
	LearningRate float64
	Duration     time.Duration
}

// History is a completed run: per-epoch summaries plus the best validation
// epoch and the parameter snapshot taken there.
type History struct {
	Epochs    []EpochStats
	BestEpoch int
	Best      model.Snapshot
}

// Trainer owns one optimization run over a model.
type Trainer struct {
	model model.Model
	opt   *adam
	sched Schedule
	rng   *rand.Rand
	cfg   options
	log   *zap.Logger
}

// New wires a trainer around the model. Hyperparameters come from options;
// nonsensical option values panic in their constructors, a nil model is a
// runtime error.
func New(m model.Model, opts ...Option) (*Trainer, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	o := gatherOptions(opts...)

	return &Trainer{
		model: m,
		opt:   newAdam(m.Params(), o.weightDecay),
		sched: o.newSchedule(),
		rng:   rand.New(rand.NewSource(o.seed)),
		cfg:   o,
		log:   o.logger,
	}, nil
}

// Run trains for the configured epoch count, evaluating on valid after every
// epoch when it is non-nil. The context is checked between batches; a
// canceled run returns the history gathered so far alongside ctx.Err().
func (t *Trainer) Run(ctx context.Context, train, valid dataset.Dataset) (*History, error) {
	if train == nil {
		return nil, ErrNilDataset
	}

	hist := &History{BestEpoch: -1}
	bestAcc := math.Inf(-1)

	step := 0
	for epoch := 0; epoch < t.cfg.epochs; epoch++ {
		start := time.Now()

		batches, err := train.Batches(t.cfg.batchSize, t.rng)
		if err != nil {
			return hist, err
		}

		var lossSum, ceSum, penSum, lr float64
		t.model.SetTraining(true)
		for _, batch := range batches {
			if err = ctx.Err(); err != nil {
				return hist, err
			}

			step++
			lr = t.sched.LearningRate(step)

			loss, ce, pen, err := t.step(batch, lr)
			if err != nil {
				return hist, err
			}
			lossSum += loss
			ceSum += ce
			penSum += pen
		}
		t.model.SetTraining(false)

		stats := EpochStats{
			Epoch:        epoch,
			Loss:         lossSum / float64(len(batches)),
			CrossEntropy: ceSum / float64(len(batches)),
			Penalty:      penSum / float64(len(batches)),
			LearningRate: lr,
			Duration:     time.Since(start),
		}
		if stats.TrainAcc, err = t.Evaluate(ctx, train); err != nil {
			return hist, err
		}

		monitored := stats.TrainAcc
		if valid != nil {
			if stats.ValidAcc, err = t.Evaluate(ctx, valid); err != nil {
				return hist, err
			}
			monitored = stats.ValidAcc
		}
		if monitored > bestAcc {
			bestAcc = monitored
			hist.BestEpoch = epoch
			hist.Best = t.model.Snapshot()
		}

		hist.Epochs = append(hist.Epochs, stats)
		t.log.Info("epoch",
			zap.Int("epoch", epoch),
			zap.Float64("loss", stats.Loss),
			zap.Float64("cross_entropy", stats.CrossEntropy),
			zap.Float64("penalty", stats.Penalty),
			zap.Float64("train_acc", stats.TrainAcc),
			zap.Float64("valid_acc", stats.ValidAcc),
			zap.Float64("lr", stats.LearningRate),
			zap.Duration("took", stats.Duration),
		)
	}

	return hist, nil
}

// step runs one forward/backward/update cycle and returns the batch's total
// loss, cross-entropy, and penalty terms.
func (t *Trainer) step(batch dataset.Batch, lr float64) (loss, ce, pen float64, err error) {
	logits, err := t.model.Forward(batch.Samples)
	if err != nil {
		return 0, 0, 0, err
	}

	ce, grad, err := CrossEntropy(logits, batch.Labels)
	if err != nil {
		return 0, 0, 0, err
	}
	pen = t.model.Regularization(t.cfg.regLambda) + t.model.L1Penalty(t.cfg.l1Lambda)

	zeroGrads(t.model.Params())
	if _, err = t.model.Backward(grad); err != nil {
		return 0, 0, 0, err
	}
	t.model.AddRegGrad(t.cfg.regLambda)
	t.model.AddL1Grad(t.cfg.l1Lambda)

	t.opt.Step(t.model.Params(), lr)

	return ce + pen, ce, pen, nil
}

// Evaluate computes accuracy over ds in eval mode (dropout disabled).
func (t *Trainer) Evaluate(ctx context.Context, ds dataset.Dataset) (float64, error) {
	if ds == nil {
		return 0, ErrNilDataset
	}
	t.model.SetTraining(false)

	// Deterministic order; shuffling does not change the metric.
	batches, err := ds.Batches(t.cfg.batchSize, rand.New(rand.NewSource(0)))
	if err != nil {
		return 0, err
	}

	correct, total := 0.0, 0
	for _, batch := range batches {
		if err = ctx.Err(); err != nil {
			return 0, err
		}

		logits, err := t.model.Forward(batch.Samples)
		if err != nil {
			return 0, err
		}
		acc, err := Accuracy(logits, batch.Labels)
		if err != nil {
			return 0, err
		}
		correct += acc * float64(len(batch.Labels))
		total += len(batch.Labels)
	}
	if total == 0 {
		return 0, nil
	}

	return correct / float64(total), nil
}
