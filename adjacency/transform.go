package adjacency

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"genegraph/tensor"
)

// Aggregator coarsens a (batch, nodes, channels) feature tensor to a smaller
// node set, averaging member nodes into their cluster. It is invoked
// layer-by-layer inside the network when pooling is enabled; Backward
// redistributes cluster gradients to members so the surrounding network can
// train through the coarsening.
type Aggregator struct {
	assign []int     // member node -> cluster
	counts []float64 // cluster sizes
	in     int       // fine node count
	out    int       // coarse node count
}

// Pipeline holds the per-layer propagation matrices produced by Transform,
// plus the aggregation functions used between layers when pooling is on.
type Pipeline struct {
	layers     []*Adjacency
	aggs       []*Aggregator
	finalNodes int
}

// NumLayers returns the number of per-layer propagation matrices.
func (p *Pipeline) NumLayers() int { return len(p.layers) }

// Layer returns the propagation matrix for convolution layer i.
func (p *Pipeline) Layer(i int) *Adjacency { return p.layers[i] }

// Aggregator returns the coarsening function applied after layer i, or nil
// when the node set is unchanged.
func (p *Pipeline) Aggregator(i int) *Aggregator { return p.aggs[i] }

// FinalNodes returns the node count after the last aggregation step; with
// pooling disabled it equals the input node count.
func (p *Pipeline) FinalNodes() int { return p.finalNodes }

// Transform derives the propagation operators for a stack of convolution
// layers from a raw adjacency.
//
// Stage 1 (Validate): adjacency non-nil, layer count positive.
// Stage 2 (Per layer): prune by keep-percent, add self-loops, normalize.
// Stage 3 (Pooling): coarsen the raw graph between layers via heavy-edge
// matching and record the matching Aggregator.
//
// The input adjacency is never mutated.
//
// Complexity: O(L·n²) without pooling; coarsening adds O(n²) per level.
func Transform(adj *Adjacency, opts ...Option) (*Pipeline, error) {
	if adj == nil {
		return nil, ErrNilAdjacency
	}
	o := gatherOptions(opts...)
	if o.layers <= 0 {
		return nil, fmt.Errorf("adjacency: %d layers: %w", o.layers, ErrBadLayerCount)
	}

	p := &Pipeline{
		layers: make([]*Adjacency, o.layers),
		aggs:   make([]*Aggregator, o.layers),
	}

	raw := adj.Clone()
	for i := 0; i < o.layers; i++ {
		p.layers[i] = polish(raw, o)

		if o.pool == PoolHierarchy && raw.NumNodes() > 1 {
			coarse, agg := coarsen(raw)
			p.aggs[i] = agg
			raw = coarse
		}
	}
	p.finalNodes = raw.NumNodes()

	return p, nil
}

// polish applies the per-layer edge transforms: keep-percent pruning, then
// self-loops, then symmetric degree normalization.
func polish(a *Adjacency, o options) *Adjacency {
	out := a.Clone()
	n := out.NumNodes()

	if o.keepPercent < 100 {
		pruneKeepPercent(out, o.keepPercent)
	}

	if o.selfLoops {
		for i := 0; i < n; i++ {
			out.Set(i, i, 1)
		}
	}

	if o.normalize {
		normalize(out, o.eps)
	}

	return out
}

// pruneKeepPercent zeroes every off-diagonal edge below the weight threshold
// that retains the strongest `percent` of nonzero edges. Diagonal entries are
// left alone so self-loops survive pruning.
func pruneKeepPercent(a *Adjacency, percent float64) {
	n := a.NumNodes()
	weights := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && a.At(i, j) > 0 {
				weights = append(weights, a.At(i, j))
			}
		}
	}
	if len(weights) == 0 {
		return
	}
	sort.Float64s(weights)
	threshold := stat.Quantile((100-percent)/100, stat.Empirical, weights, nil)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && a.At(i, j) < threshold {
				a.Set(i, j, 0)
			}
		}
	}
}

// normalize rescales a to D^-1/2·A·D^-1/2 in place. eps joins every degree,
// so a fully disconnected node yields finite (zero) rows rather than NaN.
func normalize(a *Adjacency, eps float64) {
	n := a.NumNodes()
	invSqrt := make([]float64, n)
	for i, d := range a.Degrees() {
		invSqrt[i] = 1.0 / math.Sqrt(d+eps)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, a.At(i, j)*invSqrt[i]*invSqrt[j])
		}
	}
}

// coarsen merges nodes via heavy-edge matching: every unmatched node pairs
// with its heaviest unmatched neighbor (smallest index on ties), unmatched
// leftovers stay singletons. Cluster weights are summed, and the returned
// Aggregator averages member features per cluster.
//
// The matching visits nodes in index order, so the result is deterministic.
func coarsen(a *Adjacency) (*Adjacency, *Aggregator) {
	n := a.NumNodes()
	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	next := 0
	for i := 0; i < n; i++ {
		if assign[i] >= 0 {
			continue
		}
		best, bestW := -1, 0.0
		for j := 0; j < n; j++ {
			if j == i || assign[j] >= 0 {
				continue
			}
			if w := a.At(i, j); w > bestW {
				best, bestW = j, w
			}
		}
		assign[i] = next
		if best >= 0 {
			assign[best] = next
		}
		next++
	}

	coarse, _ := New(next)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			ci, cj := assign[i], assign[j]
			if ci != cj {
				coarse.Set(ci, cj, coarse.At(ci, cj)+a.At(i, j))
			}
		}
	}

	counts := make([]float64, next)
	for _, c := range assign {
		counts[c]++
	}

	return coarse, &Aggregator{assign: assign, counts: counts, in: n, out: next}
}

// InNodes returns the fine node count the aggregator consumes.
func (a *Aggregator) InNodes() int { return a.in }

// OutNodes returns the coarse node count the aggregator produces.
func (a *Aggregator) OutNodes() int { return a.out }

// Apply averages member-node features into their cluster.
func (a *Aggregator) Apply(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 3 {
		return nil, fmt.Errorf("adjacency: aggregator wants rank-3 input: %w", tensor.ErrShape)
	}
	if x.Dim(1) != a.in {
		return nil, fmt.Errorf("adjacency: aggregator wants %d nodes, got %d: %w", a.in, x.Dim(1), tensor.ErrDimensionMismatch)
	}
	batch, ch := x.Dim(0), x.Dim(2)

	out := tensor.New(batch, a.out, ch)
	for b := 0; b < batch; b++ {
		for node := 0; node < a.in; node++ {
			c := a.assign[node]
			for k := 0; k < ch; k++ {
				out.Set(out.At(b, c, k)+x.At(b, node, k)/a.counts[c], b, c, k)
			}
		}
	}

	return out, nil
}

// Backward maps a coarse-node gradient back to member nodes, dividing by the
// cluster size to mirror the forward mean.
func (a *Aggregator) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if grad == nil || grad.Rank() != 3 {
		return nil, fmt.Errorf("adjacency: aggregator wants rank-3 gradient: %w", tensor.ErrShape)
	}
	if grad.Dim(1) != a.out {
		return nil, fmt.Errorf("adjacency: aggregator wants %d clusters, got %d: %w", a.out, grad.Dim(1), tensor.ErrDimensionMismatch)
	}
	batch, ch := grad.Dim(0), grad.Dim(2)

	dx := tensor.New(batch, a.in, ch)
	for b := 0; b < batch; b++ {
		for node := 0; node < a.in; node++ {
			c := a.assign[node]
			for k := 0; k < ch; k++ {
				dx.Set(grad.At(b, c, k)/a.counts[c], b, node, k)
			}
		}
	}

	return dx, nil
}
