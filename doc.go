// Package genegraph implements graph convolutional networks over
// gene-interaction graphs, with manual forward and backward passes and no
// autodiff framework.
//
// The module is organized by concern:
//
//	tensor/    — small dense rank-2/3 tensors bridging to gonum matrices
//	adjacency/ — graph ingestion, per-layer transforms (self-loops,
//	             normalization, keep-percent pruning), hierarchical pooling,
//	             and the normalized Laplacian
//	layer/     — convolution variants (GCN, SGC, LCG), gates, attention and
//	             soft pooling, embeddings, activations
//	model/     — the GraphNetwork pipeline with supervised, semi-supervised,
//	             and gene-inference modes, plus the flat baselines (slr, lr,
//	             mlp) behind one registry
//	dataset/   — synthetic benchmarks (random expression, grid percolation)
//	training/  — Adam, cross-entropy, learning-rate schedules, checkpoints
//	cmd/       — the genegraph CLI
//
// Start with model.New to build a classifier and training.New to fit it:
//
//	m, err := model.New("gcn", model.Config{
//		Adjacency:  adj,
//		InputDim:   1,
//		Channels:   []int{32},
//		NumClasses: 2,
//		SelfLoops:  true,
//		Normalize:  true,
//	})
//	if err != nil { ... }
//	trainer, err := training.New(m, training.WithEpochs(10))
//	hist, err := trainer.Run(ctx, trainSet, validSet)
package genegraph
