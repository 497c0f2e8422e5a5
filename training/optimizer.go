package training

import (
	"math"

	"genegraph/layer"
	"genegraph/tensor"
)

// adam holds the per-parameter moment state of the Adam update:
//
//	m_t = β1·m + (1-β1)·g        v_t = β2·v + (1-β2)·g²
//	p  -= lr · (m_t/(1-β1^t)) / (√(v_t/(1-β2^t)) + ε)
//
// with the weight-decay term folded into g.
type adam struct {
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64

	m, v map[string]*tensor.Tensor // keyed by parameter name
	t    int
}

func newAdam(params []*layer.Param, weightDecay float64) *adam {
	opt := &adam{
		beta1:       DefaultBeta1,
		beta2:       DefaultBeta2,
		eps:         DefaultAdamEpsilon,
		weightDecay: weightDecay,
		m:           make(map[string]*tensor.Tensor, len(params)),
		v:           make(map[string]*tensor.Tensor, len(params)),
	}
	for _, p := range params {
		opt.m[p.Name] = tensor.New(p.Value.Shape()...)
		opt.v[p.Name] = tensor.New(p.Value.Shape()...)
	}

	return opt
}

// Step applies one bias-corrected update to every parameter and advances the
// time step.
func (opt *adam) Step(params []*layer.Param, lr float64) {
	opt.t++
	bias1 := 1 - math.Pow(opt.beta1, float64(opt.t))
	bias2 := 1 - math.Pow(opt.beta2, float64(opt.t))

	for _, p := range params {
		m := opt.m[p.Name].Data()
		v := opt.v[p.Name].Data()
		value := p.Value.Data()
		grad := p.Grad.Data()

		for j := range value {
			g := grad[j] + opt.weightDecay*value[j]

			m[j] = opt.beta1*m[j] + (1-opt.beta1)*g
			v[j] = opt.beta2*v[j] + (1-opt.beta2)*g*g

			value[j] -= lr * (m[j] / bias1) / (math.Sqrt(v[j]/bias2) + opt.eps)
		}
	}
}

// zeroGrads clears every parameter gradient before the next batch.
func zeroGrads(params []*layer.Param) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
