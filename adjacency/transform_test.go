package adjacency_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"genegraph/adjacency"
	"genegraph/tensor"
)

// path4 is a 4-node path graph 0-1-2-3 with increasing edge weights.
func path4(t *testing.T) *adjacency.Adjacency {
	t.Helper()
	adj, err := adjacency.FromDense([][]float64{
		{0, 1, 0, 0},
		{1, 0, 2, 0},
		{0, 2, 0, 3},
		{0, 0, 3, 0},
	}, adjacency.DefaultSymmetryEps)
	require.NoError(t, err)

	return adj
}

// TestFromDense_Errors covers the ingestion guards.
func TestFromDense_Errors(t *testing.T) {
	cases := []struct {
		name string
		rows [][]float64
		err  error
	}{
		{"Empty", [][]float64{}, adjacency.ErrEmpty},
		{"Ragged", [][]float64{{0, 1}, {1}}, adjacency.ErrNotSquare},
		{"Negative", [][]float64{{0, -1}, {-1, 0}}, adjacency.ErrNegativeWeight},
		{"NaN", [][]float64{{0, math.NaN()}, {math.NaN(), 0}}, adjacency.ErrNaNInf},
		{"Asymmetric", [][]float64{{0, 1}, {2, 0}}, adjacency.ErrAsymmetric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := adjacency.FromDense(tc.rows, adjacency.DefaultSymmetryEps)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

// TestTransform_NilAndLayers checks the validation stage.
func TestTransform_NilAndLayers(t *testing.T) {
	_, err := adjacency.Transform(nil)
	require.ErrorIs(t, err, adjacency.ErrNilAdjacency)

	_, err = adjacency.Transform(path4(t), adjacency.WithLayers(0))
	require.ErrorIs(t, err, adjacency.ErrBadLayerCount)
}

// TestTransform_KeepPercent100Identity verifies that full keep-percent leaves
// the adjacency untouched when no other transform is enabled.
func TestTransform_KeepPercent100Identity(t *testing.T) {
	adj := path4(t)

	p, err := adjacency.Transform(adj, adjacency.WithKeepPercent(100))
	require.NoError(t, err)
	require.Equal(t, 1, p.NumLayers())
	require.True(t, adjacency.Equal(adj, p.Layer(0), 0), "keep-percent 100 must be an identity")
}

// TestTransform_KeepPercentPrunes verifies the weakest edges go first and the
// input is never mutated.
func TestTransform_KeepPercentPrunes(t *testing.T) {
	adj := path4(t)
	before := adj.Clone()

	// Three distinct nonzero weights; keeping under a third retains only the
	// heaviest edge (weight 3 between nodes 2 and 3).
	p, err := adjacency.Transform(adj, adjacency.WithKeepPercent(30))
	require.NoError(t, err)

	pruned := p.Layer(0)
	require.Zero(t, pruned.At(0, 1))
	require.Zero(t, pruned.At(1, 2))
	require.Equal(t, 3.0, pruned.At(2, 3))
	require.True(t, adjacency.Equal(adj, before, 0), "Transform must not mutate its input")
}

// TestTransform_SelfLoopsAndNormalize checks row scaling stays finite and
// self-edges appear on the diagonal.
func TestTransform_SelfLoopsAndNormalize(t *testing.T) {
	adj := path4(t)

	p, err := adjacency.Transform(adj,
		adjacency.WithSelfLoops(),
		adjacency.WithNormalize(),
	)
	require.NoError(t, err)

	out := p.Layer(0)
	for i := 0; i < out.NumNodes(); i++ {
		require.Greater(t, out.At(i, i), 0.0, "self-loop must survive normalization")
		for j := 0; j < out.NumNodes(); j++ {
			v := out.At(i, j)
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

// TestTransform_IsolatedNodeStaysFinite covers the eps degree guard: a node
// with no edges must normalize to finite (zero) entries.
func TestTransform_IsolatedNodeStaysFinite(t *testing.T) {
	adj, err := adjacency.FromDense([][]float64{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, 0}, // isolated
	}, adjacency.DefaultSymmetryEps)
	require.NoError(t, err)

	p, err := adjacency.Transform(adj, adjacency.WithNormalize())
	require.NoError(t, err)

	out := p.Layer(0)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := out.At(i, j)
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "entry (%d,%d) must be finite", i, j)
		}
	}
	require.Zero(t, out.At(2, 0))
	require.Zero(t, out.At(2, 2))
}

// TestTransform_PoolingHierarchy verifies the coarsening bookkeeping: node
// counts shrink, aggregators line up with layers, and Apply averages members.
func TestTransform_PoolingHierarchy(t *testing.T) {
	adj := path4(t)

	p, err := adjacency.Transform(adj,
		adjacency.WithLayers(2),
		adjacency.WithPooling(adjacency.PoolHierarchy),
	)
	require.NoError(t, err)
	require.Equal(t, 2, p.NumLayers())

	agg := p.Aggregator(0)
	require.NotNil(t, agg)
	require.Equal(t, 4, agg.InNodes())
	require.Less(t, agg.OutNodes(), 4, "heavy-edge matching must shrink the node set")
	require.Equal(t, agg.OutNodes(), p.Layer(1).NumNodes())

	x := tensor.New(1, 4, 1)
	for i := 0; i < 4; i++ {
		x.Set(float64(i+1), 0, i, 0)
	}
	pooled, err := agg.Apply(x)
	require.NoError(t, err)
	require.Equal(t, []int{1, agg.OutNodes(), 1}, pooled.Shape())

	// The mean per cluster preserves the total mass times cluster size, so
	// summing cluster means weighted by counts recovers the node sum.
	sum := 0.0
	grad, err := agg.Backward(pooled)
	require.NoError(t, err)
	require.Equal(t, []int{1, 4, 1}, grad.Shape())
	for i := 0; i < agg.OutNodes(); i++ {
		sum += pooled.At(0, i, 0)
	}
	require.Greater(t, sum, 0.0)
}

// TestLaplacian_SymmetricPSD checks symmetry and that the quadratic form of
// a non-negative vector is non-negative (positive semi-definiteness on the
// vectors the regularizer feeds it).
func TestLaplacian_SymmetricPSD(t *testing.T) {
	adj := path4(t)

	l, err := adjacency.Laplacian(adj, 1e-5)
	require.NoError(t, err)
	n := adj.NumNodes()

	for i := 0; i < n; i++ {
		require.InDelta(t, 1.0, l.At(i, i), 1e-12, "unit diagonal")
		for j := 0; j < n; j++ {
			require.InDelta(t, l.At(j, i), l.At(i, j), 1e-12, "Laplacian must be symmetric")
		}
	}

	// x^T L x ≥ 0 for a handful of vectors.
	vectors := [][]float64{
		{1, 1, 1, 1},
		{1, 0, 0, 1},
		{0.5, 2, 0.1, 3},
	}
	for _, x := range vectors {
		quad := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				quad += x[i] * l.At(i, j) * x[j]
			}
		}
		require.GreaterOrEqual(t, quad, -1e-9, "quadratic form must be non-negative")
	}

	_, err = adjacency.Laplacian(nil, 1e-5)
	require.ErrorIs(t, err, adjacency.ErrNilAdjacency)
}
