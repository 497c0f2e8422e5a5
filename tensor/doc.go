// Package tensor provides the dense numeric primitives shared by the graph
// layers and models: float64 tensors shaped (batch, nodes, channels) or
// (rows, cols), stored row-major in a flat slice.
//
// Design:
//   - Flat backing storage for cache friendliness; per-example views are
//     exposed as gonum *mat.Dense without copying, so heavy operations
//     (matrix products) run through gonum.
//   - No global state and no implicit randomness: every initializer takes an
//     explicit *rand.Rand, which makes forward passes bit-reproducible under
//     a fixed seed.
//   - Shape violations between collaborating layers are reported with the
//     sentinel errors ErrShape and ErrDimensionMismatch; out-of-range element
//     access panics (programmer error).
//
// Complexity: element access O(1); MatMul O(r·c·k) delegated to gonum.
package tensor
