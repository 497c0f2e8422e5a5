package adjacency

import "math"

// Defaults — single source of truth for zero-value pipeline behavior.
const (
	// DefaultEpsilon is added to every vertex degree before normalization so
	// isolated nodes never divide by zero.
	DefaultEpsilon = 1e-5

	// DefaultSymmetryEps is the tolerance used when validating symmetry on ingestion.
	DefaultSymmetryEps = 1e-9

	// DefaultKeepPercent keeps the full edge set (pruning disabled).
	DefaultKeepPercent = 100.0

	// DefaultLayers builds a single-layer pipeline.
	DefaultLayers = 1
)

// PoolMode selects how (and whether) the graph is coarsened between layers.
type PoolMode int

const (
	// PoolNone reuses the same transformed adjacency at every layer.
	PoolNone PoolMode = iota

	// PoolHierarchy coarsens the node set between layers via heavy-edge
	// matching; the adjacency is re-derived for each level.
	PoolHierarchy
)

const (
	panicBadEpsilon     = "adjacency: WithEpsilon: eps must be finite and non-negative"
	panicBadKeepPercent = "adjacency: WithKeepPercent: percent must be in [0, 100]"
	panicBadPoolMode    = "adjacency: WithPooling: unknown pool mode"
)

// Option mutates the pipeline configuration. Setters are idempotent;
// constructors panic only on nonsensical values (programmer error).
type Option func(*options)

type options struct {
	eps         float64 // degree guard, >= 0
	symEps      float64 // symmetry tolerance on ingestion
	selfLoops   bool
	normalize   bool
	keepPercent float64 // (0, 100]; 100 = identity
	pool        PoolMode
	layers      int
}

// WithEpsilon overrides the degree guard added before normalization.
func WithEpsilon(eps float64) Option {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps < 0 {
		panic(panicBadEpsilon)
	}

	return func(o *options) { o.eps = eps }
}

// WithSelfLoops sets the diagonal to 1 before normalization, letting every
// node propagate its own signal.
func WithSelfLoops() Option {
	return func(o *options) { o.selfLoops = true }
}

// WithNormalize enables symmetric degree normalization D^-1/2·A·D^-1/2.
func WithNormalize() Option {
	return func(o *options) { o.normalize = true }
}

// WithKeepPercent retains only the strongest percent of nonzero edges by
// weight and zeroes the rest, trading connectivity for reduced
// over-smoothing. percent=100 is an identity.
func WithKeepPercent(percent float64) Option {
	if math.IsNaN(percent) || percent <= 0 || percent > 100 {
		panic(panicBadKeepPercent)
	}

	return func(o *options) { o.keepPercent = percent }
}

// WithPooling selects the coarsening mode applied between layers.
func WithPooling(mode PoolMode) Option {
	if mode != PoolNone && mode != PoolHierarchy {
		panic(panicBadPoolMode)
	}

	return func(o *options) { o.pool = mode }
}

// WithLayers sets how many per-layer propagation matrices the pipeline
// produces. Validated in Transform (user input, not programmer error).
func WithLayers(n int) Option {
	return func(o *options) { o.layers = n }
}

// gatherOptions resolves setters against the documented defaults.
func gatherOptions(opts ...Option) options {
	o := options{
		eps:         DefaultEpsilon,
		symEps:      DefaultSymmetryEps,
		keepPercent: DefaultKeepPercent,
		pool:        PoolNone,
		layers:      DefaultLayers,
	}
	for _, set := range opts {
		set(&o)
	}

	return o
}
