package adjacency_test

import (
	"fmt"

	"genegraph/adjacency"
)

// ExampleTransform demonstrates keep-percent pruning on a weighted path
// graph 0-1-2-3: keeping under a third of the edges retains only the
// heaviest one.
func ExampleTransform() {
	adj, _ := adjacency.FromDense([][]float64{
		{0, 1, 0, 0},
		{1, 0, 2, 0},
		{0, 2, 0, 3},
		{0, 0, 3, 0},
	}, adjacency.DefaultSymmetryEps)

	p, _ := adjacency.Transform(adj, adjacency.WithKeepPercent(30))

	out := p.Layer(0)
	for i := 0; i < out.NumNodes(); i++ {
		for j := i + 1; j < out.NumNodes(); j++ {
			if w := out.At(i, j); w > 0 {
				fmt.Printf("edge %d-%d weight %.0f\n", i, j, w)
			}
		}
	}
	// Output:
	// edge 2-3 weight 3
}

// ExampleLaplacian shows the unit diagonal of the normalized Laplacian.
func ExampleLaplacian() {
	adj, _ := adjacency.FromDense([][]float64{
		{0, 1},
		{1, 0},
	}, adjacency.DefaultSymmetryEps)

	l, _ := adjacency.Laplacian(adj, 1e-5)
	fmt.Printf("diag: %.0f %.0f\n", l.At(0, 0), l.At(1, 1))
	// Output:
	// diag: 1 1
}
