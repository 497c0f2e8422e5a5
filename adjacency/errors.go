package adjacency

import "errors"

// Sentinel errors returned by the adjacency constructors and transforms.
// All messages are prefixed with "adjacency:" for consistent grepping; match
// them with errors.Is.
var (
	// ErrNilAdjacency indicates that a nil *Adjacency was passed in.
	ErrNilAdjacency = errors.New("adjacency: adjacency is nil")

	// ErrNotSquare indicates that the input matrix is not square.
	ErrNotSquare = errors.New("adjacency: matrix is not square")

	// ErrEmpty indicates a zero-node adjacency where at least one node is required.
	ErrEmpty = errors.New("adjacency: matrix has no nodes")

	// ErrNegativeWeight indicates a negative edge weight; weights must be >= 0.
	ErrNegativeWeight = errors.New("adjacency: negative edge weight")

	// ErrNaNInf indicates a NaN or ±Inf entry in the input matrix.
	ErrNaNInf = errors.New("adjacency: NaN or Inf entry")

	// ErrAsymmetric indicates that the matrix violates symmetry within eps.
	ErrAsymmetric = errors.New("adjacency: matrix is not symmetric within eps")

	// ErrBadLayerCount indicates a non-positive layer count for a pipeline.
	ErrBadLayerCount = errors.New("adjacency: layer count must be positive")
)
