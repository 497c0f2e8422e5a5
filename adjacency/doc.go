// Package adjacency ingests a weighted gene-interaction graph and derives the
// propagation operators consumed by the graph-convolution layers.
//
// The raw input is a square, symmetric, non-negative adjacency matrix. A
// Transform pipeline, configured through functional options and applied once
// at model construction, produces one propagation matrix per convolution
// layer plus an optional Aggregator that coarsens node features between
// layers:
//
//   - WithSelfLoops     – set the diagonal to 1 before normalization.
//   - WithNormalize     – symmetric degree normalization D^-1/2·A·D^-1/2,
//     with a small epsilon added to every degree so isolated nodes never
//     produce NaN or Inf.
//   - WithKeepPercent   – retain only the strongest k percent of edges by
//     weight; k=100 keeps the graph untouched.
//   - WithPooling       – heavy-edge coarsening between layers; adjacency is
//     re-derived for each coarsened node set.
//
// The package also derives the normalized Laplacian
// I - D^-1/2·A·D^-1/2 used as a smoothness regularizer; it is symmetric and
// positive semi-definite up to floating-point error.
//
// Errors are sentinel values (ErrNilAdjacency, ErrNotSquare, ...) matched via
// errors.Is; option constructors panic only on nonsensical parameters
// (programmer error).
package adjacency
