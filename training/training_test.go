package training_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"genegraph/dataset"
	"genegraph/model"
	"genegraph/tensor"
	"genegraph/training"
)

// TestCrossEntropy_Uniform verifies the closed form: equal logits over k
// classes lose ln(k), and the gradient rows sum to zero.
func TestCrossEntropy_Uniform(t *testing.T) {
	logits := tensor.New(2, 4)

	loss, grad, err := training.CrossEntropy(logits, []int{0, 3})
	require.NoError(t, err)
	require.InDelta(t, math.Log(4), loss, 1e-12)

	for b := 0; b < 2; b++ {
		sum := 0.0
		for k := 0; k < 4; k++ {
			sum += grad.At(b, k)
		}
		require.InDelta(t, 0.0, sum, 1e-12, "softmax gradient rows sum to zero")
	}
}

// TestCrossEntropy_LargeLogitsStable verifies the max-shifted log-sum-exp
// survives logits that would overflow a naive exp.
func TestCrossEntropy_LargeLogitsStable(t *testing.T) {
	logits, err := tensor.FromSlice([]float64{1000, 995}, 1, 2)
	require.NoError(t, err)

	loss, grad, err := training.CrossEntropy(logits, []int{0})
	require.NoError(t, err)
	require.False(t, math.IsNaN(loss) || math.IsInf(loss, 0))
	require.False(t, tensor.HasNaNInf(grad))
	require.InDelta(t, math.Log(1+math.Exp(-5)), loss, 1e-9)
}

// TestCrossEntropy_GradFiniteDiff checks the analytic gradient numerically.
func TestCrossEntropy_GradFiniteDiff(t *testing.T) {
	const h = 1e-6
	logits, err := tensor.FromSlice([]float64{0.3, -1.2, 2.0, 0.1, 0.0, -0.4}, 2, 3)
	require.NoError(t, err)
	labels := []int{2, 0}

	_, grad, err := training.CrossEntropy(logits, labels)
	require.NoError(t, err)

	data := logits.Data()
	for i := range data {
		orig := data[i]
		data[i] = orig + h
		plus, _, err := training.CrossEntropy(logits, labels)
		require.NoError(t, err)
		data[i] = orig - h
		minus, _, err := training.CrossEntropy(logits, labels)
		require.NoError(t, err)
		data[i] = orig

		require.InDelta(t, (plus-minus)/(2*h), grad.Data()[i], 1e-6)
	}
}

// TestCrossEntropy_Errors covers the shape and label guards.
func TestCrossEntropy_Errors(t *testing.T) {
	_, _, err := training.CrossEntropy(tensor.New(2, 3), []int{0})
	require.ErrorIs(t, err, training.ErrLogitsShape)

	_, _, err = training.CrossEntropy(tensor.New(1, 3), []int{5})
	require.ErrorIs(t, err, training.ErrLogitsShape)
}

// TestAccuracy verifies argmax matching.
func TestAccuracy(t *testing.T) {
	logits, err := tensor.FromSlice([]float64{
		2, 1, 0,
		0, 3, 1,
		1, 0, 5,
	}, 3, 3)
	require.NoError(t, err)

	acc, err := training.Accuracy(logits, []int{0, 1, 0})
	require.NoError(t, err)
	require.InDelta(t, 2.0/3.0, acc, 1e-12)
}

// TestTrainer_RunProducesHistory trains a small model end to end and checks
// the bookkeeping: one stats row per epoch, finite losses, a best snapshot.
func TestTrainer_RunProducesHistory(t *testing.T) {
	ds, err := dataset.NewRandom(
		dataset.WithSamples(60),
		dataset.WithNodes(12),
		dataset.WithSeed(21),
	)
	require.NoError(t, err)

	m, err := model.New("gcn", model.Config{
		Adjacency:  ds.Adjacency(),
		InputDim:   1,
		Channels:   []int{4},
		NumClasses: ds.NumClasses(),
		SelfLoops:  true,
		Normalize:  true,
		Seed:       21,
	})
	require.NoError(t, err)

	trainer, err := training.New(m,
		training.WithEpochs(3),
		training.WithBatchSize(16),
		training.WithSeed(21),
	)
	require.NoError(t, err)

	hist, err := trainer.Run(context.Background(), ds, nil)
	require.NoError(t, err)
	require.Len(t, hist.Epochs, 3)
	require.GreaterOrEqual(t, hist.BestEpoch, 0)
	require.NotEmpty(t, hist.Best)

	for _, e := range hist.Epochs {
		require.False(t, math.IsNaN(e.Loss) || math.IsInf(e.Loss, 0))
		require.GreaterOrEqual(t, e.TrainAcc, 0.0)
		require.LessOrEqual(t, e.TrainAcc, 1.0)
		require.Greater(t, e.LearningRate, 0.0)
	}
}

// TestTrainer_NilGuards covers the construction and run guards.
func TestTrainer_NilGuards(t *testing.T) {
	_, err := training.New(nil)
	require.ErrorIs(t, err, training.ErrNilModel)

	ds, err := dataset.NewRandom(dataset.WithSamples(10), dataset.WithNodes(4), dataset.WithSeed(1))
	require.NoError(t, err)
	m, err := model.New("lr", model.Config{
		Adjacency:  ds.Adjacency(),
		InputDim:   1,
		NumClasses: 2,
		Seed:       1,
	})
	require.NoError(t, err)

	trainer, err := training.New(m)
	require.NoError(t, err)
	_, err = trainer.Run(context.Background(), nil, nil)
	require.ErrorIs(t, err, training.ErrNilDataset)
}

// TestTrainer_ContextCancel verifies a canceled context stops the run.
func TestTrainer_ContextCancel(t *testing.T) {
	ds, err := dataset.NewRandom(dataset.WithSamples(30), dataset.WithNodes(6), dataset.WithSeed(2))
	require.NoError(t, err)
	m, err := model.New("lr", model.Config{
		Adjacency:  ds.Adjacency(),
		InputDim:   1,
		NumClasses: 2,
		Seed:       2,
	})
	require.NoError(t, err)

	trainer, err := training.New(m, training.WithEpochs(100))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = trainer.Run(ctx, ds, nil)
	require.ErrorIs(t, err, context.Canceled)
}

// TestCheckpoint_RoundTrip verifies gob persistence of the best snapshot.
func TestCheckpoint_RoundTrip(t *testing.T) {
	ds, err := dataset.NewRandom(dataset.WithSamples(10), dataset.WithNodes(4), dataset.WithSeed(3))
	require.NoError(t, err)
	m, err := model.New("lr", model.Config{
		Adjacency:  ds.Adjacency(),
		InputDim:   1,
		NumClasses: 2,
		Seed:       3,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.ckpt")
	want := training.Checkpoint{
		RunID:     "test-run",
		ModelName: "lr",
		BestEpoch: 4,
		Params:    m.Snapshot(),
	}
	require.NoError(t, training.SaveCheckpoint(path, want))

	got, err := training.LoadCheckpoint(path)
	require.NoError(t, err)
	require.Equal(t, want.RunID, got.RunID)
	require.Equal(t, want.BestEpoch, got.BestEpoch)
	require.Equal(t, want.Params, got.Params)

	_, err = training.LoadCheckpoint(filepath.Join(t.TempDir(), "missing.ckpt"))
	require.Error(t, err)
}
