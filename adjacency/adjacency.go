package adjacency

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adjacency is a dense, row-major n×n matrix of non-negative edge weights
// over gene nodes. It is mutated only by the transform pipeline at model
// construction time and treated as immutable afterwards.
type Adjacency struct {
	n    int
	data []float64 // flat backing storage, length n*n
}

// New allocates a zero n×n adjacency.
// Stage 1 (Validate): n must be positive.
// Stage 2 (Allocate): flat n*n slice.
func New(n int) (*Adjacency, error) {
	if n <= 0 {
		return nil, ErrEmpty
	}

	return &Adjacency{n: n, data: make([]float64, n*n)}, nil
}

// FromDense ingests a row-major dense matrix, validating squareness,
// finiteness, non-negativity, and symmetry within eps.
//
// Complexity: O(n²).
func FromDense(rows [][]float64, eps float64) (*Adjacency, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrEmpty
	}
	a, _ := New(n)
	var v float64
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("adjacency: row %d has %d columns, want %d: %w", i, len(row), n, ErrNotSquare)
		}
		for j := 0; j < n; j++ {
			v = row[j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("adjacency: entry (%d,%d): %w", i, j, ErrNaNInf)
			}
			if v < 0 {
				return nil, fmt.Errorf("adjacency: entry (%d,%d)=%g: %w", i, j, v, ErrNegativeWeight)
			}
			a.data[i*n+j] = v
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(a.data[i*n+j]-a.data[j*n+i]) > eps {
				return nil, fmt.Errorf("adjacency: (%d,%d) vs (%d,%d): %w", i, j, j, i, ErrAsymmetric)
			}
		}
	}

	return a, nil
}

// NumNodes returns the node count n.
func (a *Adjacency) NumNodes() int { return a.n }

// At returns the weight of edge (i, j). Panics on out-of-range indices.
func (a *Adjacency) At(i, j int) float64 {
	a.check(i, j)

	return a.data[i*a.n+j]
}

// Set assigns the weight of edge (i, j). Panics on out-of-range indices.
func (a *Adjacency) Set(i, j int, v float64) {
	a.check(i, j)
	a.data[i*a.n+j] = v
}

func (a *Adjacency) check(i, j int) {
	if i < 0 || i >= a.n || j < 0 || j >= a.n {
		panic(fmt.Sprintf("adjacency: index (%d,%d) out of range for %d nodes", i, j, a.n))
	}
}

// Clone returns a deep copy.
func (a *Adjacency) Clone() *Adjacency {
	c, _ := New(a.n)
	copy(c.data, a.data)

	return c
}

// Matrix returns a gonum view sharing the adjacency's storage.
func (a *Adjacency) Matrix() *mat.Dense {
	return mat.NewDense(a.n, a.n, a.data)
}

// Degrees returns the weighted degree (row sum) of every node.
func (a *Adjacency) Degrees() []float64 {
	deg := make([]float64, a.n)
	for i := 0; i < a.n; i++ {
		s := 0.0
		for j := 0; j < a.n; j++ {
			s += a.data[i*a.n+j]
		}
		deg[i] = s
	}

	return deg
}

// Equal reports elementwise equality within eps.
func Equal(a, b *Adjacency, eps float64) bool {
	if a == nil || b == nil || a.n != b.n {
		return false
	}
	for i := range a.data {
		if math.Abs(a.data[i]-b.data[i]) > eps {
			return false
		}
	}

	return true
}
