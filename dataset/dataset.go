package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"genegraph/adjacency"
	"genegraph/tensor"
)

// Batch is one shuffled minibatch: Samples is (batch, nodes, 1) and Labels
// holds the matching class indices.
type Batch struct {
	Samples *tensor.Tensor
	Labels  []int
}

// Dataset is the contract a trainer needs: sizes, the shared adjacency, and
// shuffled minibatches.
type Dataset interface {
	// Len returns the number of examples.
	Len() int

	// NumNodes returns the graph size.
	NumNodes() int

	// NumClasses returns the label cardinality.
	NumClasses() int

	// Adjacency returns the graph every example shares.
	Adjacency() *adjacency.Adjacency

	// Batches shuffles the examples with rng and cuts them into minibatches
	// of at most batchSize. The final batch may be short.
	Batches(batchSize int, rng *rand.Rand) ([]Batch, error)

	// Example returns one (1, nodes, 1) sample and its label.
	Example(i int) (*tensor.Tensor, int)
}

// table is the in-memory backing store shared by the generators.
type table struct {
	samples *tensor.Tensor // (len, nodes, 1)
	labels  []int
	adj     *adjacency.Adjacency
	classes int
}

func (t *table) Len() int                        { return len(t.labels) }
func (t *table) NumNodes() int                   { return t.adj.NumNodes() }
func (t *table) NumClasses() int                 { return t.classes }
func (t *table) Adjacency() *adjacency.Adjacency { return t.adj }

// Example copies the i-th sample out of the store.
func (t *table) Example(i int) (*tensor.Tensor, int) {
	n := t.NumNodes()
	x := tensor.New(1, n, 1)
	for node := 0; node < n; node++ {
		x.Set(t.samples.At(i, node, 0), 0, node, 0)
	}

	return x, t.labels[i]
}

// Batches implements Dataset via a Fisher-Yates shuffle of the index set.
func (t *table) Batches(batchSize int, rng *rand.Rand) ([]Batch, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size %d: %w", batchSize, ErrBatchSize)
	}

	order := rng.Perm(t.Len())
	n := t.NumNodes()

	var batches []Batch
	for start := 0; start < len(order); start += batchSize {
		end := min(start+batchSize, len(order))

		x := tensor.New(end-start, n, 1)
		labels := make([]int, 0, end-start)
		for row, idx := range order[start:end] {
			for node := 0; node < n; node++ {
				x.Set(t.samples.At(idx, node, 0), row, node, 0)
			}
			labels = append(labels, t.labels[idx])
		}
		batches = append(batches, Batch{Samples: x, Labels: labels})
	}

	return batches, nil
}

// Subset is an index view over another Dataset, produced by Split.
type Subset struct {
	parent Dataset
	idx    []int
}

func (s *Subset) Len() int                        { return len(s.idx) }
func (s *Subset) NumNodes() int                   { return s.parent.NumNodes() }
func (s *Subset) NumClasses() int                 { return s.parent.NumClasses() }
func (s *Subset) Adjacency() *adjacency.Adjacency { return s.parent.Adjacency() }

// Example implements Dataset.
func (s *Subset) Example(i int) (*tensor.Tensor, int) { return s.parent.Example(s.idx[i]) }

// Batches implements Dataset over the subset's index view.
func (s *Subset) Batches(batchSize int, rng *rand.Rand) ([]Batch, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size %d: %w", batchSize, ErrBatchSize)
	}

	order := rng.Perm(len(s.idx))
	n := s.NumNodes()

	var batches []Batch
	for start := 0; start < len(order); start += batchSize {
		end := min(start+batchSize, len(order))

		x := tensor.New(end-start, n, 1)
		labels := make([]int, 0, end-start)
		for row, pos := range order[start:end] {
			sample, label := s.parent.Example(s.idx[pos])
			for node := 0; node < n; node++ {
				x.Set(sample.At(0, node, 0), row, node, 0)
			}
			labels = append(labels, label)
		}
		batches = append(batches, Batch{Samples: x, Labels: labels})
	}

	return batches, nil
}

// Split partitions ds into train/validation/test views by shuffled index.
// trainFrac and validFrac must be non-negative and sum to at most 1; the
// remainder becomes the test split. Deterministic under a fixed seed.
func Split(ds Dataset, trainFrac, validFrac float64, seed int64) (train, valid, test *Subset, err error) {
	if trainFrac < 0 || validFrac < 0 || trainFrac+validFrac > 1 ||
		math.IsNaN(trainFrac) || math.IsNaN(validFrac) {
		return nil, nil, nil, fmt.Errorf("dataset: train=%g valid=%g: %w", trainFrac, validFrac, ErrBadSplit)
	}

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(ds.Len())

	nTrain := int(trainFrac * float64(len(order)))
	nValid := int(validFrac * float64(len(order)))

	cut := func(idx []int) (*Subset, error) {
		if len(idx) == 0 {
			return nil, ErrEmptySubset
		}

		return &Subset{parent: ds, idx: idx}, nil
	}

	if train, err = cut(order[:nTrain]); err != nil {
		return nil, nil, nil, err
	}
	if valid, err = cut(order[nTrain : nTrain+nValid]); err != nil {
		return nil, nil, nil, err
	}
	if test, err = cut(order[nTrain+nValid:]); err != nil {
		return nil, nil, nil, err
	}

	return train, valid, test, nil
}
