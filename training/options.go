package training

import (
	"math"

	"go.uber.org/zap"
)

// Defaults — single source of truth for trainer behavior.
const (
	// DefaultEpochs is the run length when none is configured.
	DefaultEpochs = 10

	// DefaultBatchSize is the minibatch size.
	DefaultBatchSize = 100

	// DefaultLearningRate is Adam's base step size.
	DefaultLearningRate = 1e-3

	// DefaultBeta1 and DefaultBeta2 are Adam's moment decay rates.
	DefaultBeta1 = 0.9
	DefaultBeta2 = 0.999

	// DefaultAdamEpsilon guards the second-moment root.
	DefaultAdamEpsilon = 1e-8

	// DefaultSeed fixes batch shuffling when no seed is supplied.
	DefaultSeed = 1993
)

const (
	panicBadLearningRate = "training: WithLearningRate: lr must be finite and positive"
	panicBadEpochs       = "training: WithEpochs: epochs must be positive"
	panicBadBatchSize    = "training: WithBatchSize: batch size must be positive"
	panicBadLambda       = "training: lambda must be finite and non-negative"
	panicBadSchedule     = "training: WithCosineSchedule: decaySteps must exceed warmupSteps"
)

// Option mutates the trainer configuration. Setters are idempotent;
// constructors panic only on nonsensical values (programmer error).
type Option func(*options)

type options struct {
	epochs      int
	batchSize   int
	lr          float64
	weightDecay float64
	regLambda   float64
	l1Lambda    float64
	seed        int64
	logger      *zap.Logger

	cosine      bool
	warmupSteps int
	decaySteps  int
	minLR       float64
}

// WithEpochs sets the run length.
func WithEpochs(n int) Option {
	if n <= 0 {
		panic(panicBadEpochs)
	}

	return func(o *options) { o.epochs = n }
}

// WithBatchSize sets the minibatch size.
func WithBatchSize(n int) Option {
	if n <= 0 {
		panic(panicBadBatchSize)
	}

	return func(o *options) { o.batchSize = n }
}

// WithLearningRate sets Adam's base step size.
func WithLearningRate(lr float64) Option {
	if math.IsNaN(lr) || math.IsInf(lr, 0) || lr <= 0 {
		panic(panicBadLearningRate)
	}

	return func(o *options) { o.lr = lr }
}

// WithWeightDecay adds decoupled L2 shrinkage inside the Adam step.
func WithWeightDecay(wd float64) Option {
	if math.IsNaN(wd) || math.IsInf(wd, 0) || wd < 0 {
		panic(panicBadLambda)
	}

	return func(o *options) { o.weightDecay = wd }
}

// WithRegLambda scales the model's structural penalty (the Laplacian term of
// the sparse-logistic variant).
func WithRegLambda(lambda float64) Option {
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) || lambda < 0 {
		panic(panicBadLambda)
	}

	return func(o *options) { o.regLambda = lambda }
}

// WithL1Lambda scales the read-out L1 penalty.
func WithL1Lambda(lambda float64) Option {
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) || lambda < 0 {
		panic(panicBadLambda)
	}

	return func(o *options) { o.l1Lambda = lambda }
}

// WithSeed fixes batch shuffling and any model dropout fed by the trainer.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithCosineSchedule replaces the constant learning rate with linear warmup
// followed by cosine decay to minLR.
func WithCosineSchedule(warmupSteps, decaySteps int, minLR float64) Option {
	if decaySteps <= warmupSteps || warmupSteps < 0 {
		panic(panicBadSchedule)
	}

	return func(o *options) {
		o.cosine = true
		o.warmupSteps = warmupSteps
		o.decaySteps = decaySteps
		o.minLR = minLR
	}
}

// WithLogger routes the per-epoch summaries to a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// gatherOptions resolves setters against the documented defaults.
func gatherOptions(opts ...Option) options {
	o := options{
		epochs:    DefaultEpochs,
		batchSize: DefaultBatchSize,
		lr:        DefaultLearningRate,
		seed:      DefaultSeed,
	}
	for _, set := range opts {
		set(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return o
}

// newSchedule materializes the configured learning-rate policy.
func (o options) newSchedule() Schedule {
	if o.cosine {
		return newCosineSchedule(o.lr, o.minLR, o.warmupSteps, o.decaySteps)
	}

	return constantSchedule(o.lr)
}
