package model_test

import (
	"fmt"

	"genegraph/adjacency"
	"genegraph/model"
	"genegraph/tensor"
)

// ExampleNew builds a two-layer GCN over a three-gene path graph and runs
// one forward pass. An all-zero signal propagates to the read-out bias,
// which starts at zero, so the logits are exact.
func ExampleNew() {
	adj, _ := adjacency.FromDense([][]float64{
		{0, 1, 0},
		{1, 0, 1},
		{0, 1, 0},
	}, 1e-9)

	m, err := model.New("gcn", model.Config{
		Adjacency:  adj,
		InputDim:   1,
		Channels:   []int{4, 4},
		NumClasses: 2,
		SelfLoops:  true,
		Normalize:  true,
		Seed:       1993,
	})
	if err != nil {
		panic(err)
	}

	logits, err := m.Forward(tensor.New(1, 3, 1))
	if err != nil {
		panic(err)
	}
	fmt.Println("shape:", logits.Shape())
	fmt.Println("logits:", logits.At(0, 0), logits.At(0, 1))
	// Output:
	// shape: [1 2]
	// logits: 0 0
}
