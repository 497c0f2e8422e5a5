package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"genegraph/adjacency"
	"genegraph/tensor"
)

// DefaultSGCDegree is the propagation power used when none is given.
const DefaultSGCDegree = 2

// SGC is the simplified graph convolution: a fixed power k of the
// propagation operator applied before a single linear mixing, with no
// intermediate non-linearity. Fewer parameters and a cheaper aggregation
// than GCN, at the cost of expressiveness.
type SGC struct {
	trace
	name     string
	adj      *adjacency.Adjacency
	prop     *mat.Dense // A'^k, fixed at construction
	w, b     *Param
	cin, c   int
	degree   int
	lastX, h *tensor.Tensor
}

// NewSGC builds an SGC layer propagating through adj^degree.
func NewSGC(adj *adjacency.Adjacency, cin, cout, index, degree int, rng *rand.Rand) (*SGC, error) {
	if adj == nil {
		return nil, ErrNilAdjacency
	}
	if cin <= 0 || cout <= 0 {
		return nil, fmt.Errorf("layer: SGC %d→%d channels: %w", cin, cout, ErrChannels)
	}
	if degree <= 0 {
		degree = DefaultSGCDegree
	}

	prop := mat.DenseCopyOf(adj.Matrix())
	for p := 1; p < degree; p++ {
		var next mat.Dense
		next.Mul(prop, adj.Matrix())
		prop = &next
	}

	name := fmt.Sprintf("layer_%d", index)

	return &SGC{
		name:   name,
		adj:    adj,
		prop:   prop,
		w:      newParam(name+".weight", tensor.XavierUniform(rng, cin, cout)),
		b:      newParam(name+".bias", tensor.New(1, cout)),
		cin:    cin,
		c:      cout,
		degree: degree,
	}, nil
}

// Name implements Layer.
func (l *SGC) Name() string { return l.name }

// Adjacency implements GraphLayer.
func (l *SGC) Adjacency() *adjacency.Adjacency { return l.adj }

// Degree returns the fixed propagation power k.
func (l *SGC) Degree() int { return l.degree }

// Params implements Layer.
func (l *SGC) Params() []*Param { return []*Param{l.w, l.b} }

// Forward computes y = (A'^k)·x·W + b per example.
func (l *SGC) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkGraphInput(x, l.adj.NumNodes(), l.cin); err != nil {
		return nil, err
	}
	batch, n := x.Dim(0), x.Dim(1)

	h := tensor.New(batch, n, l.cin)
	y := tensor.New(batch, n, l.c)
	wM := l.w.Value.Matrix()
	for b := 0; b < batch; b++ {
		hb := h.Example(b)
		hb.Mul(l.prop, x.Example(b))
		y.Example(b).Mul(hb, wM)
	}
	addRowBias(y, l.b.Value)

	l.lastX, l.h = x, h
	l.record(x, y)

	return y, nil
}

// Backward mirrors GCN.Backward with A'^k in place of A'.
func (l *SGC) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	if err := checkGraphInput(grad, l.adj.NumNodes(), l.c); err != nil {
		return nil, err
	}
	batch, n := grad.Dim(0), grad.Dim(1)

	dx := tensor.New(batch, n, l.cin)
	var dW, dH mat.Dense
	propT := l.prop.T()
	wT := l.w.Value.Matrix().T()
	for b := 0; b < batch; b++ {
		gb := grad.Example(b)
		dW.Mul(l.h.Example(b).T(), gb)
		l.w.accumGrad(&dW)

		dH.Mul(gb, wT)
		dx.Example(b).Mul(propT, &dH)
	}
	accumColSums(l.b.Grad, grad)

	return dx, nil
}
