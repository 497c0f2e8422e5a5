package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"genegraph/tensor"
)

// Linear is a dense layer y = x·W + b over (batch, features) inputs, used as
// the read-out head of every model.
type Linear struct {
	trace
	name    string
	w, b    *Param
	in, out int
	lastX   *tensor.Tensor
}

// NewLinear builds a dense layer mapping in features to out features.
func NewLinear(name string, in, out int, rng *rand.Rand) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("layer: Linear %d→%d: %w", in, out, ErrChannels)
	}

	return &Linear{
		name: name,
		w:    newParam(name+".weight", tensor.XavierUniform(rng, in, out)),
		b:    newParam(name+".bias", tensor.New(1, out)),
		in:   in,
		out:  out,
	}, nil
}

// Name implements Layer.
func (l *Linear) Name() string { return l.name }

// Params implements Layer.
func (l *Linear) Params() []*Param { return []*Param{l.w, l.b} }

// Weight exposes the mixing matrix, used by the L1 and Laplacian penalties.
func (l *Linear) Weight() *Param { return l.w }

// Forward computes y = x·W + b for a rank-2 input.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 2 {
		return nil, ErrBadInput
	}
	if x.Dim(1) != l.in {
		return nil, fmt.Errorf("layer: %s: %d features, want %d: %w", l.name, x.Dim(1), l.in, ErrChannels)
	}
	batch := x.Dim(0)

	y := tensor.New(batch, l.out)
	y.Matrix().Mul(x.Matrix(), l.w.Value.Matrix())
	for b := 0; b < batch; b++ {
		for k := 0; k < l.out; k++ {
			y.Set(y.At(b, k)+l.b.Value.At(0, k), b, k)
		}
	}

	l.lastX = x
	l.record(x, y)

	return y, nil
}

// Backward accumulates dW = xᵀ·g, db = column sums of g, and returns g·Wᵀ.
func (l *Linear) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	if grad == nil || grad.Rank() != 2 || grad.Dim(1) != l.out {
		return nil, ErrBadInput
	}
	batch := grad.Dim(0)

	var dW mat.Dense
	dW.Mul(l.lastX.Matrix().T(), grad.Matrix())
	l.w.accumGrad(&dW)
	for b := 0; b < batch; b++ {
		for k := 0; k < l.out; k++ {
			l.b.Grad.Set(l.b.Grad.At(0, k)+grad.At(b, k), 0, k)
		}
	}

	dx := tensor.New(batch, l.in)
	dx.Matrix().Mul(grad.Matrix(), l.w.Value.Matrix().T())

	return dx, nil
}
