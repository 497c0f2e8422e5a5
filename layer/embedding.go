package layer

import (
	"fmt"
	"math"
	"math/rand"

	"genegraph/tensor"
)

// Embedding expands the raw one-channel node signal into a learned per-node
// embedding: y[b,n,:] = x[b,n,0] · emb[n,:]. Used as an optional first stage
// of the graph networks.
type Embedding struct {
	trace
	name  string
	emb   *Param // (nodes, size)
	nodes int
	size  int
	lastX *tensor.Tensor
}

// NewEmbedding builds per-node embeddings of the given size, initialized from
// U(-s, s) with s = 1/sqrt(size).
func NewEmbedding(nodes, size int, rng *rand.Rand) (*Embedding, error) {
	if nodes <= 0 || size <= 0 {
		return nil, fmt.Errorf("layer: Embedding %d nodes × %d: %w", nodes, size, ErrChannels)
	}
	s := 1.0 / math.Sqrt(float64(size))

	return &Embedding{
		name:  "emb",
		emb:   newParam("emb.weight", tensor.Uniform(rng, -s, s, nodes, size)),
		nodes: nodes,
		size:  size,
	}, nil
}

// Name implements Layer.
func (l *Embedding) Name() string { return l.name }

// Size returns the embedding width.
func (l *Embedding) Size() int { return l.size }

// Params implements Layer.
func (l *Embedding) Params() []*Param { return []*Param{l.emb} }

// Forward scales each node's embedding row by the node's scalar signal.
// x must be (batch, nodes, 1).
func (l *Embedding) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkGraphInput(x, l.nodes, 1); err != nil {
		return nil, err
	}
	batch := x.Dim(0)

	y := tensor.New(batch, l.nodes, l.size)
	for b := 0; b < batch; b++ {
		for n := 0; n < l.nodes; n++ {
			v := x.At(b, n, 0)
			for k := 0; k < l.size; k++ {
				y.Set(v*l.emb.Value.At(n, k), b, n, k)
			}
		}
	}

	l.lastX = x
	l.record(x, y)

	return y, nil
}

// Backward distributes gradients to both the embedding table and the scalar
// input signal.
func (l *Embedding) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	if err := checkGraphInput(grad, l.nodes, l.size); err != nil {
		return nil, err
	}
	batch := grad.Dim(0)

	dx := tensor.New(batch, l.nodes, 1)
	for b := 0; b < batch; b++ {
		for n := 0; n < l.nodes; n++ {
			v := l.lastX.At(b, n, 0)
			s := 0.0
			for k := 0; k < l.size; k++ {
				g := grad.At(b, n, k)
				l.emb.Grad.Set(l.emb.Grad.At(n, k)+v*g, n, k)
				s += l.emb.Value.At(n, k) * g
			}
			dx.Set(s, b, n, 0)
		}
	}

	return dx, nil
}
