package layer

import (
	"fmt"
	"math/rand"

	"genegraph/tensor"
)

// ReLU is a stateless rectifier kept as a Layer so the network loop stays
// uniform. It caches the pre-activation input for the backward mask.
type ReLU struct {
	trace
	name  string
	lastX *tensor.Tensor
}

// NewReLU builds a named rectifier ("relu_<i>").
func NewReLU(index int) *ReLU {
	return &ReLU{name: fmt.Sprintf("relu_%d", index)}
}

// Name implements Layer.
func (l *ReLU) Name() string { return l.name }

// Params implements Layer.
func (l *ReLU) Params() []*Param { return nil }

// Forward computes max(x, 0).
func (l *ReLU) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil {
		return nil, ErrBadInput
	}
	y := tensor.ReLU(x)
	l.lastX = x
	l.record(x, y)

	return y, nil
}

// Backward zeroes gradients where the pre-activation was non-positive.
func (l *ReLU) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}

	return tensor.ReLUBackward(l.lastX, grad)
}

// Dropout zeroes whole nodes with probability p during training, scaling the
// survivors by 1/(1-p). In eval mode it is the identity, which keeps forward
// passes deterministic.
type Dropout struct {
	trace
	name     string
	p        float64
	rng      *rand.Rand
	training bool
	mask     *tensor.Tensor // (batch, nodes), scaled keep mask
}

// NewDropout builds a node dropout layer with drop probability p in [0, 1).
func NewDropout(p float64, index int, rng *rand.Rand) (*Dropout, error) {
	if p < 0 || p >= 1 {
		return nil, fmt.Errorf("layer: dropout p=%g: %w", p, ErrBadInput)
	}

	return &Dropout{name: fmt.Sprintf("dropout_%d", index), p: p, rng: rng}, nil
}

// Name implements Layer.
func (l *Dropout) Name() string { return l.name }

// Params implements Layer.
func (l *Dropout) Params() []*Param { return nil }

// SetTraining toggles mask sampling; eval mode passes inputs through.
func (l *Dropout) SetTraining(training bool) { l.training = training }

// Forward samples a per-node keep mask in training mode and applies it to
// every channel.
func (l *Dropout) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 3 {
		return nil, ErrBadInput
	}
	if !l.training || l.p == 0 {
		l.mask = nil
		l.record(x, x)

		return x, nil
	}
	batch, n, ch := x.Dim(0), x.Dim(1), x.Dim(2)

	scale := 1.0 / (1.0 - l.p)
	mask := tensor.New(batch, n)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			if l.rng.Float64() >= l.p {
				mask.Set(scale, b, node)
			}
		}
	}

	y := tensor.New(batch, n, ch)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			m := mask.At(b, node)
			for k := 0; k < ch; k++ {
				y.Set(m*x.At(b, node, k), b, node, k)
			}
		}
	}

	l.mask = mask
	l.record(x, y)

	return y, nil
}

// Backward replays the keep mask over the incoming gradient.
func (l *Dropout) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if grad == nil || grad.Rank() != 3 {
		return nil, ErrBadInput
	}
	if l.mask == nil {
		return grad, nil
	}
	batch, n, ch := grad.Dim(0), grad.Dim(1), grad.Dim(2)

	dx := tensor.New(batch, n, ch)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			m := l.mask.At(b, node)
			for k := 0; k < ch; k++ {
				dx.Set(m*grad.At(b, node, k), b, node, k)
			}
		}
	}

	return dx, nil
}
