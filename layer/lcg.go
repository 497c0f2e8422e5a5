package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"genegraph/adjacency"
	"genegraph/tensor"
)

// LCG is the localized-combination graph convolution: instead of propagating
// through the fixed adjacency weights, each nonzero entry of A' carries its
// own learnable coefficient, so a node's update is a learned linear
// combination restricted to its neighborhood. A shared channel-mixing matrix
// follows, as in GCN.
type LCG struct {
	trace
	name     string
	adj      *adjacency.Adjacency
	src, dst []int  // edge list over the support of A'
	coeff    *Param // (1, E) per-edge coefficients
	w, b     *Param
	cin, c   int
	lastX, h *tensor.Tensor
}

// NewLCG builds an LCG layer over the support of adj. Coefficients start at
// the adjacency weights, so an untrained LCG propagates exactly like the
// fixed operator.
func NewLCG(adj *adjacency.Adjacency, cin, cout, index int, rng *rand.Rand) (*LCG, error) {
	if adj == nil {
		return nil, ErrNilAdjacency
	}
	if cin <= 0 || cout <= 0 {
		return nil, fmt.Errorf("layer: LCG %d→%d channels: %w", cin, cout, ErrChannels)
	}

	n := adj.NumNodes()
	var src, dst []int
	var init []float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if w := adj.At(i, j); w != 0 {
				src = append(src, i)
				dst = append(dst, j)
				init = append(init, w)
			}
		}
	}

	name := fmt.Sprintf("layer_%d", index)
	coeffs := tensor.New(1, max(len(init), 1))
	copy(coeffs.Data(), init)

	return &LCG{
		name:  name,
		adj:   adj,
		src:   src,
		dst:   dst,
		coeff: newParam(name+".coeff", coeffs),
		w:     newParam(name+".weight", tensor.XavierUniform(rng, cin, cout)),
		b:     newParam(name+".bias", tensor.New(1, cout)),
		cin:   cin,
		c:     cout,
	}, nil
}

// Name implements Layer.
func (l *LCG) Name() string { return l.name }

// Adjacency implements GraphLayer.
func (l *LCG) Adjacency() *adjacency.Adjacency { return l.adj }

// Params implements Layer.
func (l *LCG) Params() []*Param { return []*Param{l.coeff, l.w, l.b} }

// Forward computes H[i] = Σ_{(i,j)∈E} c_e·x[j] over the adjacency support,
// then y = H·W + b.
func (l *LCG) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkGraphInput(x, l.adj.NumNodes(), l.cin); err != nil {
		return nil, err
	}
	batch, n := x.Dim(0), x.Dim(1)

	h := tensor.New(batch, n, l.cin)
	coeff := l.coeff.Value.Data()
	for b := 0; b < batch; b++ {
		for e := range l.src {
			i, j, ce := l.src[e], l.dst[e], coeff[e]
			for k := 0; k < l.cin; k++ {
				h.Set(h.At(b, i, k)+ce*x.At(b, j, k), b, i, k)
			}
		}
	}

	y := tensor.New(batch, n, l.c)
	wM := l.w.Value.Matrix()
	for b := 0; b < batch; b++ {
		y.Example(b).Mul(h.Example(b), wM)
	}
	addRowBias(y, l.b.Value)

	l.lastX, l.h = x, h
	l.record(x, y)

	return y, nil
}

// Backward routes gradients through both the shared mixing matrix and the
// per-edge coefficients: dc_e = Σ_b ⟨dH[i], x[j]⟩, dx[j] += c_e·dH[i].
func (l *LCG) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	if err := checkGraphInput(grad, l.adj.NumNodes(), l.c); err != nil {
		return nil, err
	}
	batch, n := grad.Dim(0), grad.Dim(1)

	dh := tensor.New(batch, n, l.cin)
	var dW, dHb mat.Dense
	wT := l.w.Value.Matrix().T()
	for b := 0; b < batch; b++ {
		gb := grad.Example(b)
		dW.Mul(l.h.Example(b).T(), gb)
		l.w.accumGrad(&dW)

		dHb.Mul(gb, wT)
		dh.Example(b).Copy(&dHb)
	}
	accumColSums(l.b.Grad, grad)

	dx := tensor.New(batch, n, l.cin)
	coeff := l.coeff.Value.Data()
	dcoeff := l.coeff.Grad.Data()
	x := l.lastX
	for b := 0; b < batch; b++ {
		for e := range l.src {
			i, j, ce := l.src[e], l.dst[e], coeff[e]
			for k := 0; k < l.cin; k++ {
				g := dh.At(b, i, k)
				dcoeff[e] += g * x.At(b, j, k)
				dx.Set(dx.At(b, j, k)+ce*g, b, j, k)
			}
		}
	}

	return dx, nil
}
