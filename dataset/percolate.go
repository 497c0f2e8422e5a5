package dataset

import (
	"fmt"
	"math/rand"

	"genegraph/adjacency"
	"genegraph/tensor"
)

// Percolate is a grid benchmark: nodes are the cells of a size×size lattice
// with 4-connectivity, the signal marks activated cells, and the label says
// whether the activated cells form a left-to-right crossing. Positive
// examples carve a random crossing path; negative examples scatter the same
// number of activated cells and reject draws that cross by accident.
type Percolate struct {
	table
	size int
}

// maxRejects bounds the resampling loop for negative examples. Hitting it
// means the grid is so dense that almost every draw percolates.
const maxRejects = 1000

// NewPercolate generates a Percolate dataset; always two classes.
func NewPercolate(opts ...Option) (*Percolate, error) {
	o := gatherOptions(opts...)
	if o.samples <= 0 || o.gridSize < 2 {
		return nil, fmt.Errorf("dataset: percolate with samples=%d grid=%d: %w",
			o.samples, o.gridSize, ErrBadSize)
	}

	rng := rand.New(rand.NewSource(o.seed))
	size := o.gridSize
	nodes := size * size

	adj, err := gridAdjacency(size)
	if err != nil {
		return nil, err
	}

	samples := tensor.New(o.samples, nodes, 1)
	labels := make([]int, o.samples)
	for i := 0; i < o.samples; i++ {
		label := rng.Intn(2)
		labels[i] = label

		var active []bool
		if label == 1 {
			active = carveCrossing(size, rng)
		} else {
			active, err = scatterNonCrossing(size, rng)
			if err != nil {
				return nil, err
			}
		}

		for node := 0; node < nodes; node++ {
			v := o.noise * rng.NormFloat64()
			if active[node] {
				v++
			}
			samples.Set(v, i, node, 0)
		}
	}

	return &Percolate{
		table: table{samples: samples, labels: labels, adj: adj, classes: 2},
		size:  size,
	}, nil
}

// GridSize returns the lattice side length.
func (d *Percolate) GridSize() int { return d.size }

// gridAdjacency builds the 4-connectivity lattice (unit weights).
func gridAdjacency(size int) (*adjacency.Adjacency, error) {
	adj, err := adjacency.New(size * size)
	if err != nil {
		return nil, err
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			u := y*size + x
			if x+1 < size {
				adj.Set(u, u+1, 1)
				adj.Set(u+1, u, 1)
			}
			if y+1 < size {
				adj.Set(u, u+size, 1)
				adj.Set(u+size, u, 1)
			}
		}
	}

	return adj, nil
}

// carveCrossing activates a random monotone-ish walk from the left edge to
// the right edge, wandering vertically with probability 1/2 per step.
func carveCrossing(size int, rng *rand.Rand) []bool {
	active := make([]bool, size*size)

	y := rng.Intn(size)
	for x := 0; x < size; x++ {
		active[y*size+x] = true
		for rng.Float64() < 0.5 {
			dy := 1
			if rng.Intn(2) == 0 {
				dy = -1
			}
			if ny := y + dy; ny >= 0 && ny < size {
				y = ny
				active[y*size+x] = true
			}
		}
	}

	return active
}

// scatterNonCrossing activates roughly as many cells as a crossing path
// would, rejecting draws where the activated set percolates.
func scatterNonCrossing(size int, rng *rand.Rand) ([]bool, error) {
	budget := size + size/2

	for attempt := 0; attempt < maxRejects; attempt++ {
		active := make([]bool, size*size)
		for _, idx := range rng.Perm(size * size)[:budget] {
			active[idx] = true
		}
		if !crosses(active, size) {
			return active, nil
		}
	}

	return nil, fmt.Errorf("dataset: percolate grid %d too dense for negatives: %w", size, ErrBadSize)
}

// crosses reports whether the activated cells connect the left and right
// edges under 4-connectivity (BFS from the left column).
func crosses(active []bool, size int) bool {
	seen := make([]bool, len(active))
	var queue []int
	for y := 0; y < size; y++ {
		if idx := y * size; active[idx] {
			seen[idx] = true
			queue = append(queue, idx)
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
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
				queue = append(queue, v)
			}
		}
	}

	return false
}
