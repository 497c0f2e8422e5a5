package layer

import (
	"fmt"
	"math/rand"

	"genegraph/tensor"
)

// ElementwiseGate computes a per-node scalar in (0,1) from a sigmoid of a
// learned linear projection of the node's features, and multiplies the input
// by it. A soft node-selection mechanism, trained end-to-end with the rest
// of the network.
type ElementwiseGate struct {
	trace
	name  string
	w, b  *Param // w: (cin, 1), b: (1, 1)
	cin   int
	lastX *tensor.Tensor
	gate  *tensor.Tensor // (batch, nodes, 1)
}

// NewElementwiseGate builds a gate over cin-channel node features.
// index names the gate within its network ("gate_<i>").
func NewElementwiseGate(cin, index int, rng *rand.Rand) (*ElementwiseGate, error) {
	if cin <= 0 {
		return nil, fmt.Errorf("layer: gate over %d channels: %w", cin, ErrChannels)
	}
	name := fmt.Sprintf("gate_%d", index)

	return &ElementwiseGate{
		name: name,
		w:    newParam(name+".weight", tensor.XavierUniform(rng, cin, 1)),
		b:    newParam(name+".bias", tensor.New(1, 1)),
		cin:  cin,
	}, nil
}

// Name implements Layer.
func (l *ElementwiseGate) Name() string { return l.name }

// Params implements Layer.
func (l *ElementwiseGate) Params() []*Param { return []*Param{l.w, l.b} }

// Weights returns the per-node gate values from the last Forward pass.
func (l *ElementwiseGate) Weights() *tensor.Tensor { return l.gate }

// Forward computes g[b,n] = σ(x[b,n,:]·w + b) and returns g ⊙ x.
// The trace records the gate values, not the product, so monitoring sees the
// node-selection weights directly.
func (l *ElementwiseGate) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 3 || x.Dim(2) != l.cin {
		return nil, fmt.Errorf("layer: %s input: %w", l.name, ErrBadInput)
	}
	batch, n := x.Dim(0), x.Dim(1)

	g := tensor.New(batch, n, 1)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			s := l.b.Value.At(0, 0)
			for k := 0; k < l.cin; k++ {
				s += x.At(b, node, k) * l.w.Value.At(k, 0)
			}
			g.Set(s, b, node, 0)
		}
	}
	g = tensor.Sigmoid(g)

	y := tensor.New(batch, n, l.cin)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			gv := g.At(b, node, 0)
			for k := 0; k < l.cin; k++ {
				y.Set(gv*x.At(b, node, k), b, node, k)
			}
		}
	}

	l.lastX, l.gate = x, g
	l.record(x, g)

	return y, nil
}

// Backward routes gradients through both the product and the sigmoid
// projection path.
func (l *ElementwiseGate) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	if grad == nil || grad.Rank() != 3 || grad.Dim(2) != l.cin {
		return nil, ErrBadInput
	}
	batch, n := grad.Dim(0), grad.Dim(1)
	x := l.lastX

	dx := tensor.New(batch, n, l.cin)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			gv := l.gate.At(b, node, 0)

			// dL/dg through the product, then through the sigmoid.
			dg := 0.0
			for k := 0; k < l.cin; k++ {
				dg += grad.At(b, node, k) * x.At(b, node, k)
			}
			ds := dg * gv * (1 - gv)

			l.b.Grad.Set(l.b.Grad.At(0, 0)+ds, 0, 0)
			for k := 0; k < l.cin; k++ {
				l.w.Grad.Set(l.w.Grad.At(k, 0)+ds*x.At(b, node, k), k, 0)
				dx.Set(gv*grad.At(b, node, k)+ds*l.w.Value.At(k, 0), b, node, k)
			}
		}
	}

	return dx, nil
}

// StaticGate is the input-independent ablation variant: one shared sigmoid
// scalar per node, applied to every example and channel.
type StaticGate struct {
	trace
	name  string
	v     *Param // (nodes, 1) pre-sigmoid values
	nodes int
	lastX *tensor.Tensor
}

// NewStaticGate builds a static gate sized to the node count, starting fully
// open (pre-sigmoid value 1).
func NewStaticGate(nodes, index int) (*StaticGate, error) {
	if nodes <= 0 {
		return nil, fmt.Errorf("layer: static gate over %d nodes: %w", nodes, ErrBadInput)
	}
	name := fmt.Sprintf("gate_%d", index)
	v := tensor.New(nodes, 1)
	v.Fill(1)

	return &StaticGate{name: name, v: newParam(name+".weight", v), nodes: nodes}, nil
}

// Name implements Layer.
func (l *StaticGate) Name() string { return l.name }

// Params implements Layer.
func (l *StaticGate) Params() []*Param { return []*Param{l.v} }

// Forward multiplies every example by the shared per-node sigmoid gate.
func (l *StaticGate) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 3 || x.Dim(1) != l.nodes {
		return nil, fmt.Errorf("layer: %s input: %w", l.name, ErrBadInput)
	}
	batch, ch := x.Dim(0), x.Dim(2)

	g := tensor.Sigmoid(l.v.Value)
	y := tensor.New(batch, l.nodes, ch)
	for b := 0; b < batch; b++ {
		for node := 0; node < l.nodes; node++ {
			gv := g.At(node, 0)
			for k := 0; k < ch; k++ {
				y.Set(gv*x.At(b, node, k), b, node, k)
			}
		}
	}

	l.lastX = x
	l.record(x, g)

	return y, nil
}

// Backward accumulates the shared gate gradient across examples and channels.
func (l *StaticGate) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	if grad == nil || grad.Rank() != 3 || grad.Dim(1) != l.nodes {
		return nil, ErrBadInput
	}
	batch, ch := grad.Dim(0), grad.Dim(2)

	g := tensor.Sigmoid(l.v.Value)
	dx := tensor.New(batch, l.nodes, ch)
	for node := 0; node < l.nodes; node++ {
		gv := g.At(node, 0)
		dg := 0.0
		for b := 0; b < batch; b++ {
			for k := 0; k < ch; k++ {
				dg += grad.At(b, node, k) * l.lastX.At(b, node, k)
				dx.Set(gv*grad.At(b, node, k), b, node, k)
			}
		}
		l.v.Grad.Set(l.v.Grad.At(node, 0)+dg*gv*(1-gv), node, 0)
	}

	return dx, nil
}
