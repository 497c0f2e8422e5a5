// Package dataset provides the synthetic benchmarks the models train on:
// graph-structured classification problems with a fixed adjacency and a
// per-node expression signal.
//
// What the package offers
//
//   - Dataset: the minimal contract a trainer needs (sample count, node and
//     class counts, the shared adjacency, and shuffled minibatches).
//   - Random: noise features over a random or scale-free adjacency, with a
//     class-dependent mean shift on a subset of signal nodes so the task is
//     learnable.
//   - Percolate: a W×W grid graph where the label says whether the activated
//     cells form a left-to-right crossing path.
//   - Split: deterministic train/validation/test partitioning by index.
//
// Determinism
//
// Every source of randomness is an explicit seed or *rand.Rand; the same
// seed yields byte-identical samples, labels, and batch order.
package dataset
