package dataset

import "math"

// Defaults — single source of truth for generator behavior.
const (
	// DefaultSamples is the number of examples a generator emits.
	DefaultSamples = 1000

	// DefaultNodes is the graph size of the random benchmark.
	DefaultNodes = 100

	// DefaultClasses is the label cardinality.
	DefaultClasses = 2

	// DefaultEdgeProb is the off-diagonal edge probability of the random
	// (non-scale-free) adjacency.
	DefaultEdgeProb = 0.05

	// DefaultAttach is how many preferential-attachment edges each new node
	// adds in the scale-free adjacency.
	DefaultAttach = 2

	// DefaultGridSize is the side length of the percolation grid.
	DefaultGridSize = 10

	// DefaultNoise is the standard deviation of the additive feature noise.
	DefaultNoise = 0.1

	// DefaultSignalNodes is how many nodes carry the class mean shift in the
	// random benchmark.
	DefaultSignalNodes = 10

	// DefaultSeed fixes generation when no seed is supplied.
	DefaultSeed = 1993
)

const (
	panicBadEdgeProb = "dataset: WithEdgeProb: p must be in (0, 1]"
	panicBadNoise    = "dataset: WithNoise: sigma must be finite and non-negative"
)

// Option mutates the generator configuration. Setters are idempotent;
// constructors panic only on nonsensical values (programmer error).
type Option func(*options)

type options struct {
	samples     int
	nodes       int
	classes     int
	gridSize    int
	seed        int64
	scaleFree   bool
	attach      int
	edgeProb    float64
	noise       float64
	signalNodes int
}

// WithSamples sets how many examples to generate. Validated at construction
// (user input, not programmer error).
func WithSamples(n int) Option {
	return func(o *options) { o.samples = n }
}

// WithNodes sets the random benchmark's graph size.
func WithNodes(n int) Option {
	return func(o *options) { o.nodes = n }
}

// WithClasses sets the label cardinality.
func WithClasses(n int) Option {
	return func(o *options) { o.classes = n }
}

// WithGridSize sets the percolation grid's side length.
func WithGridSize(n int) Option {
	return func(o *options) { o.gridSize = n }
}

// WithSeed fixes the generator's random source.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithScaleFree swaps the uniform random adjacency for a preferential-
// attachment one, whose degree distribution follows a power law.
func WithScaleFree() Option {
	return func(o *options) { o.scaleFree = true }
}

// WithEdgeProb overrides the off-diagonal edge probability of the uniform
// random adjacency.
func WithEdgeProb(p float64) Option {
	if math.IsNaN(p) || p <= 0 || p > 1 {
		panic(panicBadEdgeProb)
	}

	return func(o *options) { o.edgeProb = p }
}

// WithNoise overrides the additive feature noise's standard deviation.
func WithNoise(sigma float64) Option {
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma < 0 {
		panic(panicBadNoise)
	}

	return func(o *options) { o.noise = sigma }
}

// gatherOptions resolves setters against the documented defaults.
func gatherOptions(opts ...Option) options {
	o := options{
		samples:     DefaultSamples,
		nodes:       DefaultNodes,
		classes:     DefaultClasses,
		gridSize:    DefaultGridSize,
		seed:        DefaultSeed,
		attach:      DefaultAttach,
		edgeProb:    DefaultEdgeProb,
		noise:       DefaultNoise,
		signalNodes: DefaultSignalNodes,
	}
	for _, set := range opts {
		set(&o)
	}

	return o
}
