// Package model composes the gene-graph layers into trainable classifiers.
//
// The closed set of model names accepted by New is:
//
//	gcn – message-passing graph network (GraphNetwork over layer.GCN)
//	sgc – simplified graph convolution (GraphNetwork over layer.SGC)
//	lcg – localized-combination convolution (GraphNetwork over layer.LCG)
//	slr – sparse logistic regression with a Laplacian smoothness penalty
//	lr  – plain logistic regression over the flattened signal
//	mlp – multilayer perceptron baseline
//
// An unknown name is an immediate construction error (ErrUnknownModel);
// there is no runtime fallback.
//
// GraphNetwork supports three inference modes. Supervised ends in
// graph-level class logits (softmax is applied by the loss, not the model).
// Semi-supervised ends in a per-node read-out for node-level label
// propagation, skipping gates and dropout. Gene-inference mirrors the
// supervised pipeline but its Backward additionally returns per-layer input
// gradients keyed by layer name, for attributing predictions back to genes.
// Gradient capture is an explicit return value, never hidden layer state.
//
// Every model exposes Regularization(regLambda) — identically zero except
// for slr, whose Laplacian penalty is non-negative — plus an optional L1
// penalty over read-out weights, a Representation() introspection map, and a
// parameter Snapshot/Restore pair where restores are best-effort: unknown
// keys are ignored and shape-incompatible entries are skipped per parameter.
package model
