package model

import (
	"fmt"
	"math/rand"

	"genegraph/adjacency"
	"genegraph/layer"
	"genegraph/tensor"
)

// maxDropout caps the per-block dropout probability; blocks deeper in the
// stack drop more nodes, up to this ceiling.
const maxDropout = 0.4

// GraphNetwork stacks {conv, gate, relu, dropout} blocks over a transformed
// adjacency, then pools (attention) or flattens into a dense read-out.
type GraphNetwork struct {
	name string
	mode InferenceMode

	emb   *layer.Embedding
	convs []layer.GraphLayer
	gates []*layer.ElementwiseGate // nil entries when gating is off
	relus []*layer.ReLU
	drops []*layer.Dropout // nil entries when dropout is off
	aggs  []*adjacency.Aggregator

	attn        *layer.Attention
	readout     *layer.Linear // graph-level head ("logistic")
	semiReadout *layer.Linear // node-level head, semi-supervised mode only

	finalNodes int
	lastCh     int

	// backward bookkeeping for the flatten step
	flatNodes, flatCh int
}

// newGraphNetwork builds a gcn/sgc/lcg network from cfg.
func newGraphNetwork(name string, cfg Config) (*GraphNetwork, error) {
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	net := &GraphNetwork{name: name, mode: cfg.Mode}

	inputDim := cfg.InputDim
	if cfg.Embedding > 0 {
		emb, err := layer.NewEmbedding(cfg.Adjacency.NumNodes(), cfg.Embedding, rng)
		if err != nil {
			return nil, err
		}
		net.emb = emb
		inputDim = emb.Size()
	}

	dims := append([]int{inputDim}, cfg.Channels...)
	net.lastCh = dims[len(dims)-1]
	net.finalNodes = cfg.Adjacency.NumNodes()

	if len(cfg.Channels) > 0 {
		pipeline, err := buildPipeline(cfg, len(cfg.Channels))
		if err != nil {
			return nil, err
		}
		net.finalNodes = pipeline.FinalNodes()

		for i := 0; i < len(cfg.Channels); i++ {
			conv, err := newConv(name, pipeline.Layer(i), dims[i], dims[i+1], i, cfg.SGCDegree, rng)
			if err != nil {
				return nil, err
			}
			net.convs = append(net.convs, conv)
			net.aggs = append(net.aggs, pipeline.Aggregator(i))
			net.relus = append(net.relus, layer.NewReLU(i))

			var gate *layer.ElementwiseGate
			if cfg.UseGate > 0 {
				if gate, err = layer.NewElementwiseGate(dims[i+1], i, rng); err != nil {
					return nil, err
				}
			}
			net.gates = append(net.gates, gate)

			var drop *layer.Dropout
			if cfg.Dropout {
				p := min(float64(i+1)/10, maxDropout)
				if drop, err = layer.NewDropout(p, i, rng); err != nil {
					return nil, err
				}
			}
			net.drops = append(net.drops, drop)
		}
	}

	readoutIn := net.finalNodes * net.lastCh
	if cfg.AttentionHeads > 0 {
		attn, err := layer.NewAttention(net.lastCh, cfg.AttentionHeads, rng)
		if err != nil {
			return nil, err
		}
		net.attn = attn
		readoutIn = cfg.AttentionHeads * net.lastCh
	}

	readout, err := layer.NewLinear("logistic", readoutIn, cfg.NumClasses, rng)
	if err != nil {
		return nil, err
	}
	net.readout = readout

	if cfg.Mode == ModeSemiSupervised {
		semi, err := layer.NewLinear("semi_logistic", net.lastCh, cfg.NumClasses, rng)
		if err != nil {
			return nil, err
		}
		net.semiReadout = semi
	}

	return net, nil
}

// buildPipeline translates Config knobs into a Transform call.
func buildPipeline(cfg Config, layers int) (*adjacency.Pipeline, error) {
	opts := []adjacency.Option{adjacency.WithLayers(layers), adjacency.WithPooling(cfg.Pooling)}
	if cfg.SelfLoops {
		opts = append(opts, adjacency.WithSelfLoops())
	}
	if cfg.Normalize {
		opts = append(opts, adjacency.WithNormalize())
	}
	if cfg.KeepPercent > 0 {
		opts = append(opts, adjacency.WithKeepPercent(cfg.KeepPercent))
	}

	return adjacency.Transform(cfg.Adjacency, opts...)
}

// newConv dispatches over the closed convolution-variant set.
func newConv(name string, adj *adjacency.Adjacency, cin, cout, index, sgcDegree int, rng *rand.Rand) (layer.GraphLayer, error) {
	switch name {
	case "gcn":
		return layer.NewGCN(adj, cin, cout, index, rng)
	case "sgc":
		return layer.NewSGC(adj, cin, cout, index, sgcDegree, rng)
	case "lcg":
		return layer.NewLCG(adj, cin, cout, index, rng)
	default:
		return nil, fmt.Errorf("model: %q: %w", name, ErrUnknownModel)
	}
}

// Name implements Model.
func (m *GraphNetwork) Name() string { return m.name }

// SetTraining implements Model.
func (m *GraphNetwork) SetTraining(training bool) {
	for _, d := range m.drops {
		if d != nil {
			d.SetTraining(training)
		}
	}
}

// Params implements Model.
func (m *GraphNetwork) Params() []*layer.Param {
	var params []*layer.Param
	if m.emb != nil {
		params = append(params, m.emb.Params()...)
	}
	for _, c := range m.convs {
		params = append(params, c.Params()...)
	}
	for _, g := range m.gates {
		if g != nil {
			params = append(params, g.Params()...)
		}
	}
	if m.attn != nil {
		params = append(params, m.attn.Params()...)
	}
	params = append(params, m.readout.Params()...)
	if m.semiReadout != nil {
		params = append(params, m.semiReadout.Params()...)
	}

	return params
}

// Forward implements Model, dispatching on the inference mode.
func (m *GraphNetwork) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if m.mode == ModeSemiSupervised {
		return m.forwardSemi(x)
	}

	return m.forwardSupervised(x)
}

// forwardSupervised runs the full pipeline to graph-level logits.
func (m *GraphNetwork) forwardSupervised(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	if m.emb != nil {
		if x, err = m.emb.Forward(x); err != nil {
			return nil, err
		}
	}

	for i, conv := range m.convs {
		if x, err = conv.Forward(x); err != nil {
			return nil, err
		}
		if m.gates[i] != nil {
			if x, err = m.gates[i].Forward(x); err != nil {
				return nil, err
			}
		}
		if x, err = m.relus[i].Forward(x); err != nil {
			return nil, err
		}
		if m.drops[i] != nil {
			if x, err = m.drops[i].Forward(x); err != nil {
				return nil, err
			}
		}
		if m.aggs[i] != nil {
			if x, err = m.aggs[i].Apply(x); err != nil {
				return nil, err
			}
		}
	}

	if m.attn != nil {
		if x, err = m.attn.Forward(x); err != nil {
			return nil, err
		}
	} else {
		m.flatNodes, m.flatCh = x.Dim(1), x.Dim(2)
		if x, err = x.Reshape(x.Dim(0), m.flatNodes*m.flatCh); err != nil {
			return nil, err
		}
	}

	return m.readout.Forward(x)
}

// forwardSemi runs convolutions without gates or dropout and ends in a
// per-node read-out.
func (m *GraphNetwork) forwardSemi(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	if m.emb != nil {
		if x, err = m.emb.Forward(x); err != nil {
			return nil, err
		}
	}
	for i, conv := range m.convs {
		if x, err = conv.Forward(x); err != nil {
			return nil, err
		}
		if x, err = m.relus[i].Forward(x); err != nil {
			return nil, err
		}
		if m.aggs[i] != nil {
			if x, err = m.aggs[i].Apply(x); err != nil {
				return nil, err
			}
		}
	}

	batch, n, ch := x.Dim(0), x.Dim(1), x.Dim(2)
	flat, err := x.Reshape(batch*n, ch)
	if err != nil {
		return nil, err
	}
	out, err := m.semiReadout.Forward(flat)
	if err != nil {
		return nil, err
	}

	return out.Reshape(batch, n, out.Dim(1))
}

// Backward implements Model. In gene-inference mode the returned Gradients
// holds the loss gradient w.r.t. the logits ("logistic"), each post-block
// activation ("layer_<i>"), and the embedding output ("emb").
func (m *GraphNetwork) Backward(grad *tensor.Tensor) (Gradients, error) {
	if m.mode == ModeSemiSupervised {
		return m.backwardSemi(grad)
	}

	captured := Gradients{}
	capturing := m.mode == ModeGeneInference
	if capturing {
		captured["logistic"] = grad.Clone()
	}

	g, err := m.readout.Backward(grad)
	if err != nil {
		return nil, err
	}

	if m.attn != nil {
		if g, err = m.attn.Backward(g); err != nil {
			return nil, err
		}
	} else {
		if g, err = g.Reshape(g.Dim(0), m.flatNodes, m.flatCh); err != nil {
			return nil, err
		}
	}

	for i := len(m.convs) - 1; i >= 0; i-- {
		if m.aggs[i] != nil {
			if g, err = m.aggs[i].Backward(g); err != nil {
				return nil, err
			}
		}
		if m.drops[i] != nil {
			if g, err = m.drops[i].Backward(g); err != nil {
				return nil, err
			}
		}
		if capturing {
			captured[fmt.Sprintf("layer_%d", i)] = g.Clone()
		}
		if g, err = m.relus[i].Backward(g); err != nil {
			return nil, err
		}
		if m.gates[i] != nil {
			if g, err = m.gates[i].Backward(g); err != nil {
				return nil, err
			}
		}
		if g, err = m.convs[i].Backward(g); err != nil {
			return nil, err
		}
	}

	if m.emb != nil {
		if capturing {
			captured["emb"] = g.Clone()
		}
		if _, err = m.emb.Backward(g); err != nil {
			return nil, err
		}
	}

	return captured, nil
}

// backwardSemi mirrors forwardSemi in reverse.
func (m *GraphNetwork) backwardSemi(grad *tensor.Tensor) (Gradients, error) {
	batch, n, out := grad.Dim(0), grad.Dim(1), grad.Dim(2)
	flat, err := grad.Reshape(batch*n, out)
	if err != nil {
		return nil, err
	}
	g, err := m.semiReadout.Backward(flat)
	if err != nil {
		return nil, err
	}
	if g, err = g.Reshape(batch, n, g.Dim(1)); err != nil {
		return nil, err
	}

	for i := len(m.convs) - 1; i >= 0; i-- {
		if m.aggs[i] != nil {
			if g, err = m.aggs[i].Backward(g); err != nil {
				return nil, err
			}
		}
		if g, err = m.relus[i].Backward(g); err != nil {
			return nil, err
		}
		if g, err = m.convs[i].Backward(g); err != nil {
			return nil, err
		}
	}
	if m.emb != nil {
		if _, err = m.emb.Backward(g); err != nil {
			return nil, err
		}
	}

	return Gradients{}, nil
}

// Regularization implements Model; the plain graph networks carry no
// structural penalty.
func (m *GraphNetwork) Regularization(float64) float64 { return 0 }

// AddRegGrad implements Model; nothing to accumulate.
func (m *GraphNetwork) AddRegGrad(float64) {}

// L1Penalty implements Model over the read-out parameters.
func (m *GraphNetwork) L1Penalty(lambda float64) float64 {
	return l1Penalty(lambda, m.l1Params())
}

// AddL1Grad implements Model.
func (m *GraphNetwork) AddL1Grad(lambda float64) {
	addL1Grad(lambda, m.l1Params())
}

func (m *GraphNetwork) l1Params() []*layer.Param {
	params := m.readout.Params()
	if m.semiReadout != nil {
		params = append(params, m.semiReadout.Params()...)
	}

	return params
}

// Representation implements Model, mirroring the layer naming used in
// gradients: emb, layer_<i>, gate_<i>, attention, logistic.
func (m *GraphNetwork) Representation() map[string]Activation {
	rep := map[string]Activation{}
	add := func(l layer.Layer) {
		in, out := l.Trace()
		if in != nil {
			rep[l.Name()] = Activation{Input: in, Output: out}
		}
	}

	if m.emb != nil {
		add(m.emb)
	}
	for i, conv := range m.convs {
		add(conv)
		if m.gates[i] != nil {
			add(m.gates[i])
		}
	}
	if m.attn != nil {
		add(m.attn)
	}
	add(m.readout)
	if m.semiReadout != nil {
		add(m.semiReadout)
	}

	return rep
}

// Snapshot implements Model.
func (m *GraphNetwork) Snapshot() Snapshot { return snapshotParams(m.Params()) }

// Restore implements Model; best-effort per parameter.
func (m *GraphNetwork) Restore(s Snapshot) { restoreParams(m.Params(), s) }
