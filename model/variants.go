package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"genegraph/adjacency"
	"genegraph/layer"
	"genegraph/tensor"
)

// laplacianEps guards degrees when deriving the cached Laplacian.
const laplacianEps = 1e-5

// SparseLogisticRegression flattens the node signal into one logistic layer
// and regularizes the weights with the normalized graph Laplacian, pushing
// connected genes toward similar coefficients.
type SparseLogisticRegression struct {
	nodes     int
	readout   *layer.Linear
	laplacian *tensor.Tensor // (nodes, nodes), fixed at construction
}

func newSparseLogistic(cfg Config) (*SparseLogisticRegression, error) {
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	if cfg.InputDim != 1 {
		return nil, fmt.Errorf("model: slr wants a 1-channel signal, got %d: %w", cfg.InputDim, ErrBadConfig)
	}

	lap, err := adjacency.Laplacian(cfg.Adjacency, laplacianEps)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	nodes := cfg.Adjacency.NumNodes()
	readout, err := layer.NewLinear("logistic", nodes, cfg.NumClasses, rng)
	if err != nil {
		return nil, err
	}

	return &SparseLogisticRegression{nodes: nodes, readout: readout, laplacian: lap}, nil
}

// Name implements Model.
func (m *SparseLogisticRegression) Name() string { return "slr" }

// SetTraining implements Model; slr has no training-only behavior.
func (m *SparseLogisticRegression) SetTraining(bool) {}

// Params implements Model.
func (m *SparseLogisticRegression) Params() []*layer.Param { return m.readout.Params() }

// Forward flattens (batch, nodes, 1) into the logistic layer.
func (m *SparseLogisticRegression) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	flat, err := flattenSignal(x, m.nodes)
	if err != nil {
		return nil, err
	}

	return m.readout.Forward(flat)
}

// Backward implements Model.
func (m *SparseLogisticRegression) Backward(grad *tensor.Tensor) (Gradients, error) {
	if _, err := m.readout.Backward(grad); err != nil {
		return nil, err
	}

	return Gradients{}, nil
}

// Regularization returns regLambda·Σ (|W|ᵀ·L ∘ |W|ᵀ): the Laplacian
// smoothness of each class's absolute weight vector. Non-negative because L
// is positive semi-definite.
func (m *SparseLogisticRegression) Regularization(regLambda float64) float64 {
	if regLambda == 0 {
		return 0
	}
	w := m.readout.Weight().Value // (nodes, classes)
	absW := absTensor(w)

	var lw mat.Dense
	lw.Mul(m.laplacian.Matrix(), absW.Matrix())

	sum := 0.0
	for i, v := range absW.Data() {
		sum += v * lw.RawMatrix().Data[i]
	}

	return regLambda * sum
}

// AddRegGrad accumulates d/dW of the Laplacian penalty:
// sign(W) ∘ 2·(L·|W|), scaled by regLambda.
func (m *SparseLogisticRegression) AddRegGrad(regLambda float64) {
	if regLambda == 0 {
		return
	}
	w := m.readout.Weight()
	absW := absTensor(w.Value)

	var lw mat.Dense
	lw.Mul(m.laplacian.Matrix(), absW.Matrix())

	grad := w.Grad.Data()
	for i, v := range w.Value.Data() {
		g := 2 * regLambda * lw.RawMatrix().Data[i]
		switch {
		case v > 0:
			grad[i] += g
		case v < 0:
			grad[i] -= g
		}
	}
}

// L1Penalty implements Model.
func (m *SparseLogisticRegression) L1Penalty(lambda float64) float64 {
	return l1Penalty(lambda, m.readout.Params())
}

// AddL1Grad implements Model.
func (m *SparseLogisticRegression) AddL1Grad(lambda float64) {
	addL1Grad(lambda, m.readout.Params())
}

// Representation implements Model.
func (m *SparseLogisticRegression) Representation() map[string]Activation {
	return singleActivation(m.readout)
}

// Snapshot implements Model.
func (m *SparseLogisticRegression) Snapshot() Snapshot { return snapshotParams(m.Params()) }

// Restore implements Model.
func (m *SparseLogisticRegression) Restore(s Snapshot) { restoreParams(m.Params(), s) }

// LogisticRegression is the unregularized flat baseline.
type LogisticRegression struct {
	nodes   int
	inDim   int
	readout *layer.Linear
}

func newLogistic(cfg Config) (*LogisticRegression, error) {
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	nodes := cfg.Adjacency.NumNodes()
	readout, err := layer.NewLinear("logistic", nodes*cfg.InputDim, cfg.NumClasses, rng)
	if err != nil {
		return nil, err
	}

	return &LogisticRegression{nodes: nodes, inDim: cfg.InputDim, readout: readout}, nil
}

// Name implements Model.
func (m *LogisticRegression) Name() string { return "lr" }

// SetTraining implements Model.
func (m *LogisticRegression) SetTraining(bool) {}

// Params implements Model.
func (m *LogisticRegression) Params() []*layer.Param { return m.readout.Params() }

// Forward implements Model.
func (m *LogisticRegression) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	flat, err := flattenSignal(x, m.nodes*m.inDim)
	if err != nil {
		return nil, err
	}

	return m.readout.Forward(flat)
}

// Backward implements Model.
func (m *LogisticRegression) Backward(grad *tensor.Tensor) (Gradients, error) {
	if _, err := m.readout.Backward(grad); err != nil {
		return nil, err
	}

	return Gradients{}, nil
}

// Regularization implements Model; always 0.
func (m *LogisticRegression) Regularization(float64) float64 { return 0 }

// AddRegGrad implements Model.
func (m *LogisticRegression) AddRegGrad(float64) {}

// L1Penalty implements Model.
func (m *LogisticRegression) L1Penalty(lambda float64) float64 {
	return l1Penalty(lambda, m.readout.Params())
}

// AddL1Grad implements Model.
func (m *LogisticRegression) AddL1Grad(lambda float64) {
	addL1Grad(lambda, m.readout.Params())
}

// Representation implements Model.
func (m *LogisticRegression) Representation() map[string]Activation {
	return singleActivation(m.readout)
}

// Snapshot implements Model.
func (m *LogisticRegression) Snapshot() Snapshot { return snapshotParams(m.Params()) }

// Restore implements Model.
func (m *LogisticRegression) Restore(s Snapshot) { restoreParams(m.Params(), s) }

// MLP is the graph-free baseline: flatten, hidden linear+ReLU blocks with
// optional dropout, then a dense read-out.
type MLP struct {
	inDim   int // flattened feature count
	hidden  []*layer.Linear
	relus   []*layer.ReLU
	drops   []*layer.Dropout
	readout *layer.Linear
}

// mlpDropout is the fixed drop probability of the MLP baseline.
const mlpDropout = 0.5

func newMLP(cfg Config) (*MLP, error) {
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	if cfg.Adjacency == nil {
		return nil, fmt.Errorf("model: mlp needs the node count from the adjacency: %w", ErrBadConfig)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	m := &MLP{inDim: cfg.Adjacency.NumNodes() * cfg.InputDim}

	dims := append([]int{m.inDim}, cfg.Channels...)
	for i := 0; i < len(cfg.Channels); i++ {
		h, err := layer.NewLinear(fmt.Sprintf("layer_%d", i), dims[i], dims[i+1], rng)
		if err != nil {
			return nil, err
		}
		m.hidden = append(m.hidden, h)
		m.relus = append(m.relus, layer.NewReLU(i))

		var drop *layer.Dropout
		if cfg.Dropout {
			if drop, err = layer.NewDropout(mlpDropout, i, rng); err != nil {
				return nil, err
			}
		}
		m.drops = append(m.drops, drop)
	}

	readout, err := layer.NewLinear("logistic", dims[len(dims)-1], cfg.NumClasses, rng)
	if err != nil {
		return nil, err
	}
	m.readout = readout

	return m, nil
}

// Name implements Model.
func (m *MLP) Name() string { return "mlp" }

// SetTraining implements Model.
func (m *MLP) SetTraining(training bool) {
	for _, d := range m.drops {
		if d != nil {
			d.SetTraining(training)
		}
	}
}

// Params implements Model.
func (m *MLP) Params() []*layer.Param {
	var params []*layer.Param
	for _, h := range m.hidden {
		params = append(params, h.Params()...)
	}
	params = append(params, m.readout.Params()...)

	return params
}

// Forward implements Model.
func (m *MLP) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	flat, err := flattenSignal(x, m.inDim)
	if err != nil {
		return nil, err
	}

	for i, h := range m.hidden {
		if flat, err = h.Forward(flat); err != nil {
			return nil, err
		}
		if flat, err = m.relus[i].Forward(flat); err != nil {
			return nil, err
		}
		if m.drops[i] != nil {
			if flat, err = dropout2D(m.drops[i], flat); err != nil {
				return nil, err
			}
		}
	}

	return m.readout.Forward(flat)
}

// Backward implements Model.
func (m *MLP) Backward(grad *tensor.Tensor) (Gradients, error) {
	g, err := m.readout.Backward(grad)
	if err != nil {
		return nil, err
	}
	for i := len(m.hidden) - 1; i >= 0; i-- {
		if m.drops[i] != nil {
			if g, err = dropout2DBackward(m.drops[i], g); err != nil {
				return nil, err
			}
		}
		if g, err = m.relus[i].Backward(g); err != nil {
			return nil, err
		}
		if g, err = m.hidden[i].Backward(g); err != nil {
			return nil, err
		}
	}

	return Gradients{}, nil
}

// Regularization implements Model; always 0.
func (m *MLP) Regularization(float64) float64 { return 0 }

// AddRegGrad implements Model.
func (m *MLP) AddRegGrad(float64) {}

// L1Penalty covers the read-out and the first hidden layer, matching the
// penalty scope of the flat baselines.
func (m *MLP) L1Penalty(lambda float64) float64 {
	return l1Penalty(lambda, m.l1Params())
}

// AddL1Grad implements Model.
func (m *MLP) AddL1Grad(lambda float64) {
	addL1Grad(lambda, m.l1Params())
}

func (m *MLP) l1Params() []*layer.Param {
	params := m.readout.Params()
	if len(m.hidden) > 0 {
		params = append(params, m.hidden[0].Params()...)
	}

	return params
}

// Representation implements Model.
func (m *MLP) Representation() map[string]Activation {
	rep := map[string]Activation{}
	for _, h := range m.hidden {
		if in, out := h.Trace(); in != nil {
			rep[h.Name()] = Activation{Input: in, Output: out}
		}
	}
	for name, act := range singleActivation(m.readout) {
		rep[name] = act
	}

	return rep
}

// Snapshot implements Model.
func (m *MLP) Snapshot() Snapshot { return snapshotParams(m.Params()) }

// Restore implements Model.
func (m *MLP) Restore(s Snapshot) { restoreParams(m.Params(), s) }

// flattenSignal reshapes (batch, nodes, channels) into (batch, features) and
// validates the flattened width.
func flattenSignal(x *tensor.Tensor, want int) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 3 {
		return nil, layer.ErrBadInput
	}
	if got := x.Dim(1) * x.Dim(2); got != want {
		return nil, fmt.Errorf("model: %d flattened features, want %d: %w", got, want, layer.ErrChannels)
	}

	return x.Reshape(x.Dim(0), want)
}

// dropout2D routes a rank-2 activation through the rank-3 dropout layer by
// treating features as nodes.
func dropout2D(d *layer.Dropout, x *tensor.Tensor) (*tensor.Tensor, error) {
	x3, err := x.Reshape(x.Dim(0), x.Dim(1), 1)
	if err != nil {
		return nil, err
	}
	y, err := d.Forward(x3)
	if err != nil {
		return nil, err
	}

	return y.Reshape(y.Dim(0), y.Dim(1))
}

func dropout2DBackward(d *layer.Dropout, grad *tensor.Tensor) (*tensor.Tensor, error) {
	g3, err := grad.Reshape(grad.Dim(0), grad.Dim(1), 1)
	if err != nil {
		return nil, err
	}
	dx, err := d.Backward(g3)
	if err != nil {
		return nil, err
	}

	return dx.Reshape(dx.Dim(0), dx.Dim(1))
}

// absTensor returns |t| as a fresh tensor.
func absTensor(t *tensor.Tensor) *tensor.Tensor {
	out := t.Clone()
	for i, v := range out.Data() {
		if v < 0 {
			out.Data()[i] = -v
		}
	}

	return out
}

// singleActivation wraps one layer's trace into a representation map.
func singleActivation(l layer.Layer) map[string]Activation {
	in, out := l.Trace()
	if in == nil {
		return map[string]Activation{}
	}

	return map[string]Activation{l.Name(): {Input: in, Output: out}}
}
