package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"genegraph/adjacency"
	"genegraph/tensor"
)

// GCN is the message-passing graph convolution: A'·(x·W) + b, where A' is the
// transformed adjacency, W mixes channels, and b is a per-channel bias.
type GCN struct {
	trace
	name     string
	adj      *adjacency.Adjacency
	w, b     *Param
	cin, c   int // c = channels out
	lastX, h *tensor.Tensor
}

// NewGCN builds a GCN layer over adj mapping cin input channels to cout
// output channels. index names the layer within its network ("layer_<i>").
func NewGCN(adj *adjacency.Adjacency, cin, cout, index int, rng *rand.Rand) (*GCN, error) {
	if adj == nil {
		return nil, ErrNilAdjacency
	}
	if cin <= 0 || cout <= 0 {
		return nil, fmt.Errorf("layer: GCN %d→%d channels: %w", cin, cout, ErrChannels)
	}
	name := fmt.Sprintf("layer_%d", index)

	return &GCN{
		name: name,
		adj:  adj,
		w:    newParam(name+".weight", tensor.XavierUniform(rng, cin, cout)),
		b:    newParam(name+".bias", tensor.New(1, cout)),
		cin:  cin,
		c:    cout,
	}, nil
}

// Name implements Layer.
func (l *GCN) Name() string { return l.name }

// Adjacency implements GraphLayer.
func (l *GCN) Adjacency() *adjacency.Adjacency { return l.adj }

// Params implements Layer.
func (l *GCN) Params() []*Param { return []*Param{l.w, l.b} }

// Forward computes y = A'·(x·W) + b per example.
// x is (batch, nodes, cin); the output is (batch, nodes, cout).
func (l *GCN) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkGraphInput(x, l.adj.NumNodes(), l.cin); err != nil {
		return nil, err
	}
	batch, n := x.Dim(0), x.Dim(1)

	h := tensor.New(batch, n, l.cin)
	y := tensor.New(batch, n, l.c)
	adjM := l.adj.Matrix()
	wM := l.w.Value.Matrix()
	for b := 0; b < batch; b++ {
		hb := h.Example(b)
		hb.Mul(adjM, x.Example(b))
		y.Example(b).Mul(hb, wM)
	}
	addRowBias(y, l.b.Value)

	l.lastX, l.h = x, h
	l.record(x, y)

	return y, nil
}

// Backward accumulates dW = Σ_b Hᵇᵀ·Gᵇ, db = Σ row sums, and returns
// dX with dXᵇ = A'ᵀ·(Gᵇ·Wᵀ).
func (l *GCN) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	if err := checkGraphInput(grad, l.adj.NumNodes(), l.c); err != nil {
		return nil, err
	}
	batch, n := grad.Dim(0), grad.Dim(1)

	dx := tensor.New(batch, n, l.cin)
	var dW, dH mat.Dense
	adjT := l.adj.Matrix().T()
	wT := l.w.Value.Matrix().T()
	for b := 0; b < batch; b++ {
		gb := grad.Example(b)
		dW.Mul(l.h.Example(b).T(), gb)
		l.w.accumGrad(&dW)

		dH.Mul(gb, wT)
		dx.Example(b).Mul(adjT, &dH)
	}
	accumColSums(l.b.Grad, grad)

	return dx, nil
}

// checkGraphInput validates a (batch, nodes, channels) tensor against the
// layer's node and channel counts.
func checkGraphInput(x *tensor.Tensor, nodes, channels int) error {
	if x == nil || x.Rank() != 3 {
		return ErrBadInput
	}
	if x.Dim(1) != nodes {
		return fmt.Errorf("layer: %d nodes, want %d: %w", x.Dim(1), nodes, ErrBadInput)
	}
	if x.Dim(2) != channels {
		return fmt.Errorf("layer: %d channels, want %d: %w", x.Dim(2), channels, ErrChannels)
	}

	return nil
}

// addRowBias adds a (1, c) bias to every node row of a rank-3 tensor.
func addRowBias(y, bias *tensor.Tensor) {
	batch, n, c := y.Dim(0), y.Dim(1), y.Dim(2)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			for k := 0; k < c; k++ {
				y.Set(y.At(b, node, k)+bias.At(0, k), b, node, k)
			}
		}
	}
}

// accumColSums adds the per-channel column sums of a rank-3 gradient into a
// (1, c) bias gradient.
func accumColSums(dst *tensor.Tensor, grad *tensor.Tensor) {
	batch, n, c := grad.Dim(0), grad.Dim(1), grad.Dim(2)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			for k := 0; k < c; k++ {
				dst.Set(dst.At(0, k)+grad.At(b, node, k), 0, k)
			}
		}
	}
}
