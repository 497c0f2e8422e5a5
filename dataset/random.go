package dataset

import (
	"fmt"
	"math/rand"

	"genegraph/adjacency"
	"genegraph/tensor"
)

// Random is a synthetic expression benchmark: Gaussian noise on every node,
// plus a class-dependent mean shift on a fixed subset of signal nodes. The
// adjacency is either uniform random or scale-free and carries no label
// information, which makes Random a sanity benchmark for the graph models
// rather than a showcase.
type Random struct {
	table
	signal []int // nodes carrying the class shift
}

// NewRandom generates a Random dataset. Sizes are validated; generation is
// deterministic under the configured seed.
func NewRandom(opts ...Option) (*Random, error) {
	o := gatherOptions(opts...)
	if o.samples <= 0 || o.nodes <= 0 || o.classes < 2 {
		return nil, fmt.Errorf("dataset: random with samples=%d nodes=%d classes=%d: %w",
			o.samples, o.nodes, o.classes, ErrBadSize)
	}

	rng := rand.New(rand.NewSource(o.seed))

	var (
		adj *adjacency.Adjacency
		err error
	)
	if o.scaleFree {
		adj, err = scaleFreeAdjacency(o.nodes, o.attach, rng)
	} else {
		adj, err = uniformAdjacency(o.nodes, o.edgeProb, rng)
	}
	if err != nil {
		return nil, err
	}

	signal := rng.Perm(o.nodes)[:min(o.signalNodes, o.nodes)]

	samples := tensor.New(o.samples, o.nodes, 1)
	labels := make([]int, o.samples)
	for i := 0; i < o.samples; i++ {
		label := rng.Intn(o.classes)
		labels[i] = label

		for node := 0; node < o.nodes; node++ {
			samples.Set(o.noise*rng.NormFloat64(), i, node, 0)
		}
		// Shift the signal nodes by the class index so the task is separable.
		for _, node := range signal {
			samples.Set(samples.At(i, node, 0)+float64(label), i, node, 0)
		}
	}

	return &Random{
		table:  table{samples: samples, labels: labels, adj: adj, classes: o.classes},
		signal: signal,
	}, nil
}

// SignalNodes returns the node indices carrying the class shift, in the
// order they were drawn.
func (d *Random) SignalNodes() []int {
	out := make([]int, len(d.signal))
	copy(out, d.signal)

	return out
}

// uniformAdjacency draws each undirected edge independently with probability p.
func uniformAdjacency(n int, p float64, rng *rand.Rand) (*adjacency.Adjacency, error) {
	adj, err := adjacency.New(n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < p {
				adj.Set(i, j, 1)
				adj.Set(j, i, 1)
			}
		}
	}

	return adj, nil
}

// scaleFreeAdjacency grows a preferential-attachment graph: each new node
// attaches to `attach` existing nodes sampled proportionally to degree.
func scaleFreeAdjacency(n, attach int, rng *rand.Rand) (*adjacency.Adjacency, error) {
	adj, err := adjacency.New(n)
	if err != nil {
		return nil, err
	}
	if attach < 1 {
		attach = 1
	}

	// endpoints repeats every edge endpoint, so sampling from it is
	// degree-proportional.
	seed := min(attach+1, n)
	endpoints := make([]int, 0, 2*attach*n)
	for i := 0; i < seed; i++ {
		for j := i + 1; j < seed; j++ {
			adj.Set(i, j, 1)
			adj.Set(j, i, 1)
			endpoints = append(endpoints, i, j)
		}
	}

	for v := seed; v < n; v++ {
		attached := map[int]bool{}
		for len(attached) < min(attach, v) {
			u := endpoints[rng.Intn(len(endpoints))]
			if u == v || attached[u] {
				continue
			}
			attached[u] = true
			adj.Set(v, u, 1)
			adj.Set(u, v, 1)
			endpoints = append(endpoints, v, u)
		}
	}

	return adj, nil
}
