package dataset_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"genegraph/adjacency"
	"genegraph/dataset"
)

// TestNewRandom_Deterministic verifies the same seed reproduces samples,
// labels, and adjacency.
func TestNewRandom_Deterministic(t *testing.T) {
	opts := []dataset.Option{
		dataset.WithSamples(50),
		dataset.WithNodes(20),
		dataset.WithSeed(7),
	}

	a, err := dataset.NewRandom(opts...)
	require.NoError(t, err)
	b, err := dataset.NewRandom(opts...)
	require.NoError(t, err)

	require.Equal(t, a.SignalNodes(), b.SignalNodes())
	require.True(t, adjacency.Equal(a.Adjacency(), b.Adjacency(), 0))
	for i := 0; i < a.Len(); i++ {
		xa, la := a.Example(i)
		xb, lb := b.Example(i)
		require.Equal(t, la, lb)
		require.Equal(t, xa.Data(), xb.Data())
	}
}

// TestNewRandom_Errors covers the size guard.
func TestNewRandom_Errors(t *testing.T) {
	_, err := dataset.NewRandom(dataset.WithSamples(0))
	require.ErrorIs(t, err, dataset.ErrBadSize)

	_, err = dataset.NewRandom(dataset.WithClasses(1))
	require.ErrorIs(t, err, dataset.ErrBadSize)
}

// TestNewRandom_ScaleFree sanity-checks the preferential-attachment graph:
// symmetric, no self-edges, every late node has at least the attach degree.
func TestNewRandom_ScaleFree(t *testing.T) {
	ds, err := dataset.NewRandom(
		dataset.WithSamples(5),
		dataset.WithNodes(30),
		dataset.WithScaleFree(),
		dataset.WithSeed(11),
	)
	require.NoError(t, err)

	adj := ds.Adjacency()
	n := adj.NumNodes()
	for i := 0; i < n; i++ {
		require.Zero(t, adj.At(i, i), "no self-edges")
		degree := 0.0
		for j := 0; j < n; j++ {
			require.Equal(t, adj.At(i, j), adj.At(j, i))
			degree += adj.At(i, j)
		}
		require.GreaterOrEqual(t, degree, float64(dataset.DefaultAttach))
	}
}

// TestBatches_CoverAllSamples verifies batching partitions the dataset and
// respects the size cap.
func TestBatches_CoverAllSamples(t *testing.T) {
	ds, err := dataset.NewRandom(dataset.WithSamples(23), dataset.WithNodes(5), dataset.WithSeed(3))
	require.NoError(t, err)

	batches, err := ds.Batches(10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, batches, 3)

	total := 0
	for _, b := range batches {
		require.LessOrEqual(t, len(b.Labels), 10)
		require.Equal(t, len(b.Labels), b.Samples.Dim(0))
		require.Equal(t, 5, b.Samples.Dim(1))
		total += len(b.Labels)
	}
	require.Equal(t, 23, total)

	_, err = ds.Batches(0, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, dataset.ErrBatchSize)
}

// TestSplit_Partition verifies the three views are disjoint and exhaustive.
func TestSplit_Partition(t *testing.T) {
	ds, err := dataset.NewRandom(dataset.WithSamples(100), dataset.WithNodes(5), dataset.WithSeed(5))
	require.NoError(t, err)

	train, valid, test, err := dataset.Split(ds, 0.6, 0.2, 9)
	require.NoError(t, err)
	require.Equal(t, 60, train.Len())
	require.Equal(t, 20, valid.Len())
	require.Equal(t, 20, test.Len())
	require.Equal(t, ds.NumNodes(), train.NumNodes())

	// Same seed, same partition.
	train2, _, _, err := dataset.Split(ds, 0.6, 0.2, 9)
	require.NoError(t, err)
	for i := 0; i < train.Len(); i++ {
		xa, la := train.Example(i)
		xb, lb := train2.Example(i)
		require.Equal(t, la, lb)
		require.Equal(t, xa.Data(), xb.Data())
	}

	_, _, _, err = dataset.Split(ds, 0.9, 0.2, 9)
	require.ErrorIs(t, err, dataset.ErrBadSplit)
}

// TestNewPercolate_LabelsMatchCrossing verifies every positive example
// actually crosses and every negative does not, using the node signal
// thresholded at the activation level.
func TestNewPercolate_LabelsMatchCrossing(t *testing.T) {
	ds, err := dataset.NewPercolate(
		dataset.WithSamples(40),
		dataset.WithGridSize(8),
		dataset.WithNoise(0.05),
		dataset.WithSeed(13),
	)
	require.NoError(t, err)
	require.Equal(t, 2, ds.NumClasses())
	require.Equal(t, 64, ds.NumNodes())

	size := ds.GridSize()
	for i := 0; i < ds.Len(); i++ {
		x, label := ds.Example(i)

		active := make([]bool, size*size)
		for n := 0; n < size*size; n++ {
			active[n] = x.At(0, n, 0) > 0.5
		}
		require.Equal(t, label == 1, gridCrosses(active, size),
			"sample %d label %d must match its crossing state", i, label)
	}
}

// gridCrosses re-derives the left-to-right reachability independently of the
// generator's own check.
func gridCrosses(active []bool, size int) bool {
	seen := make([]bool, len(active))
	var stack []int
	for y := 0; y < size; y++ {
		if idx := y * size; active[idx] {
			seen[idx] = true
			stack = append(stack, idx)
		}
	}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := u%size, u/size
		if x == size-1 {
			return true
		}
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || nx >= size || ny < 0 || ny >= size {
				continue
			}
			v := ny*size + nx
			if active[v] && !seen[v] {
				seen[v] = true
				stack = append(stack, v)
			}
		}
	}

	return false
}

// TestNewPercolate_GridAdjacency verifies 4-connectivity of the lattice.
func TestNewPercolate_GridAdjacency(t *testing.T) {
	ds, err := dataset.NewPercolate(dataset.WithSamples(2), dataset.WithGridSize(3), dataset.WithSeed(17))
	require.NoError(t, err)

	adj := ds.Adjacency()
	require.Equal(t, 9, adj.NumNodes())
	require.Equal(t, 1.0, adj.At(0, 1), "horizontal neighbor")
	require.Equal(t, 1.0, adj.At(0, 3), "vertical neighbor")
	require.Zero(t, adj.At(0, 4), "no diagonal edges")
	require.Zero(t, adj.At(0, 8))
}
