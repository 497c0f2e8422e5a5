package dataset

import "errors"

var (
	// ErrBatchSize indicates a non-positive minibatch size.
	ErrBatchSize = errors.New("dataset: batch size must be positive")

	// ErrBadSplit indicates split fractions that are negative or sum past 1.
	ErrBadSplit = errors.New("dataset: split fractions must be non-negative and sum to at most 1")

	// ErrEmptySubset indicates a subset with no sample indices.
	ErrEmptySubset = errors.New("dataset: subset must contain at least one sample")

	// ErrBadSize indicates non-positive sample, node, or class counts.
	ErrBadSize = errors.New("dataset: sample, node, and class counts must be positive")
)
