package layer

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"genegraph/adjacency"
	"genegraph/tensor"
)

// Sentinel errors shared by the layer constructors and passes.
var (
	// ErrChannels indicates a mismatch between declared channels and the
	// constructed weight shape, or non-positive channel counts.
	ErrChannels = errors.New("layer: channel count mismatch")

	// ErrNilAdjacency indicates that a graph layer was built without a graph.
	ErrNilAdjacency = errors.New("layer: adjacency is nil")

	// ErrNoForward indicates Backward was called before any Forward pass.
	ErrNoForward = errors.New("layer: backward before forward")

	// ErrBadInput indicates an input tensor of unexpected rank or size.
	ErrBadInput = errors.New("layer: unexpected input shape")
)

// Param is a named learnable tensor with its accumulated gradient. Params are
// created at layer construction, updated by the optimizer, and live as long
// as the layer.
type Param struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

func newParam(name string, value *tensor.Tensor) *Param {
	return &Param{Name: name, Value: value, Grad: tensor.New(value.Shape()...)}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() { p.Grad.Zero() }

// accumGrad adds m elementwise into the rank-2 accumulated gradient. It
// writes through the tensor directly: gonum's Add rejects a destination
// that aliases one of its operands, so Grad can never be both.
func (p *Param) accumGrad(m mat.Matrix) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			p.Grad.Set(p.Grad.At(i, j)+m.At(i, j), i, j)
		}
	}
}

// Layer is one differentiable unit in a network.
type Layer interface {
	// Name identifies the layer in traces, gradients, and snapshots.
	Name() string

	// Forward computes the layer output for x, caching backward state.
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)

	// Backward consumes the gradient w.r.t. the last Forward output,
	// accumulates parameter gradients, and returns the input gradient.
	Backward(grad *tensor.Tensor) (*tensor.Tensor, error)

	// Params returns the learnable parameters, possibly empty.
	Params() []*Param

	// Trace returns the last input/output pair, or nils before any Forward.
	Trace() (in, out *tensor.Tensor)
}

// GraphLayer is a Layer that propagates node features across a transformed
// adjacency. The concrete variants are GCN, SGC, and LCG.
type GraphLayer interface {
	Layer

	// Adjacency returns the propagation matrix the layer was built on.
	Adjacency() *adjacency.Adjacency
}

// trace implements the introspection hook shared by all layers.
type trace struct {
	lastIn  *tensor.Tensor
	lastOut *tensor.Tensor
}

func (t *trace) record(in, out *tensor.Tensor) {
	t.lastIn, t.lastOut = in, out
}

// Trace returns the last recorded input/output pair.
func (t *trace) Trace() (in, out *tensor.Tensor) { return t.lastIn, t.lastOut }
