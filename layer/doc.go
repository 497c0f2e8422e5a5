// Package layer implements the learnable units of the gene-graph networks:
// the graph-convolution variants (GCN, SGC, LCG), the dense read-out, node
// embeddings, sigmoid gates, attention pooling, and dropout.
//
// Every unit satisfies the Layer interface:
//
//	Forward(x)  – compute the layer output, caching whatever the backward
//	              pass needs;
//	Backward(g) – given the loss gradient w.r.t. the output, accumulate
//	              parameter gradients and return the input gradient;
//	Params()    – expose learnable parameters to the optimizer;
//	Trace()     – last input/output pair, an introspection hook for the
//	              monitoring side (not part of the mathematical contract).
//
// The three convolution variants form a closed set behind the GraphLayer
// interface, selected at construction time; there is no runtime type
// inspection. Dimension mismatches between a layer's declared channels and
// its input are construction- or forward-time errors, never silent
// broadcasts.
//
// Gradients are computed manually, layer by layer; there is no autodiff
// graph. All randomness (weight init, dropout masks) flows through explicit
// seeded *rand.Rand values, keeping forward passes bit-reproducible.
package layer
