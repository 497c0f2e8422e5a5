package adjacency

import (
	"math"

	"genegraph/tensor"
)

// Laplacian derives the normalized graph Laplacian
//
//	L = I - D^-1/2·A·D^-1/2
//
// from the adjacency, with the diagonal of A zeroed first and eps added to
// every degree. The result is symmetric and positive semi-definite up to
// floating-point error, and is cached by the sparse-logistic model as a fixed
// smoothness regularizer.
//
// Complexity: O(n²).
func Laplacian(adj *Adjacency, eps float64) (*tensor.Tensor, error) {
	if adj == nil {
		return nil, ErrNilAdjacency
	}
	n := adj.NumNodes()

	a := adj.Clone()
	for i := 0; i < n; i++ {
		a.Set(i, i, 0)
	}

	invSqrt := make([]float64, n)
	for i, d := range a.Degrees() {
		invSqrt[i] = 1.0 / math.Sqrt(d+eps)
	}

	l := tensor.New(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -a.At(i, j) * invSqrt[i] * invSqrt[j]
			if i == j {
				v = 1
			}
			l.Set(v, i, j)
		}
	}

	return l, nil
}
