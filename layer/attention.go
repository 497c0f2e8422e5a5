package layer

import (
	"fmt"
	"math"
	"math/rand"

	"genegraph/tensor"
)

// DefaultTemperature scales attention scores before exponentiation.
const DefaultTemperature = 1.0

// Attention pools node features into a fixed-size, head-indexed
// representation. For each of H heads it scores every node with a linear
// projection, exponentiates, and normalizes over nodes, so the per-head
// weights sum to 1 for every example. The pooled output is (batch, cin·H),
// which makes the read-out width depend on the head count instead of the
// node count.
type Attention struct {
	trace
	name        string
	w, b        *Param // w: (cin, heads), b: (1, heads)
	cin, heads  int
	temperature float64
	lastX       *tensor.Tensor
	alpha       *tensor.Tensor // (batch, nodes, heads), rows sum to 1 per head
}

// NewAttention builds an attention pooling layer with the given head count.
func NewAttention(cin, heads int, rng *rand.Rand) (*Attention, error) {
	if cin <= 0 {
		return nil, fmt.Errorf("layer: attention over %d channels: %w", cin, ErrChannels)
	}
	if heads <= 0 {
		return nil, fmt.Errorf("layer: attention with %d heads: %w", heads, ErrBadInput)
	}

	return &Attention{
		name:        "attention",
		w:           newParam("attention.weight", tensor.XavierUniform(rng, cin, heads)),
		b:           newParam("attention.bias", tensor.New(1, heads)),
		cin:         cin,
		heads:       heads,
		temperature: DefaultTemperature,
	}, nil
}

// Name implements Layer.
func (l *Attention) Name() string { return l.name }

// Heads returns the attention head count.
func (l *Attention) Heads() int { return l.heads }

// Params implements Layer.
func (l *Attention) Params() []*Param { return []*Param{l.w, l.b} }

// Weights returns the normalized per-node, per-head weights from the last
// Forward pass.
func (l *Attention) Weights() *tensor.Tensor { return l.alpha }

// Forward computes α = softmax over nodes of τ·(x·w + b) per head, and pools
// pooled[b, c·H+h] = Σ_n x[b,n,c]·α[b,n,h].
func (l *Attention) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 3 || x.Dim(2) != l.cin {
		return nil, fmt.Errorf("layer: attention input: %w", ErrBadInput)
	}
	batch, n := x.Dim(0), x.Dim(1)

	alpha := l.scores(x)

	pooled := tensor.New(batch, l.cin*l.heads)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			for c := 0; c < l.cin; c++ {
				xv := x.At(b, node, c)
				for h := 0; h < l.heads; h++ {
					idx := c*l.heads + h
					pooled.Set(pooled.At(b, idx)+xv*alpha.At(b, node, h), b, idx)
				}
			}
		}
	}

	l.lastX, l.alpha = x, alpha
	l.record(x, pooled)

	return pooled, nil
}

// scores computes the normalized per-head node weights. The max score per
// (example, head) is subtracted before exponentiation for numeric stability;
// normalization cancels the shift.
func (l *Attention) scores(x *tensor.Tensor) *tensor.Tensor {
	batch, n := x.Dim(0), x.Dim(1)

	z := tensor.New(batch, n, l.heads)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			for h := 0; h < l.heads; h++ {
				s := l.b.Value.At(0, h)
				for c := 0; c < l.cin; c++ {
					s += x.At(b, node, c) * l.w.Value.At(c, h)
				}
				z.Set(s*l.temperature, b, node, h)
			}
		}
	}

	alpha := tensor.New(batch, n, l.heads)
	for b := 0; b < batch; b++ {
		for h := 0; h < l.heads; h++ {
			maxZ := math.Inf(-1)
			for node := 0; node < n; node++ {
				if v := z.At(b, node, h); v > maxZ {
					maxZ = v
				}
			}
			sum := 0.0
			for node := 0; node < n; node++ {
				e := math.Exp(z.At(b, node, h) - maxZ)
				alpha.Set(e, b, node, h)
				sum += e
			}
			for node := 0; node < n; node++ {
				alpha.Set(alpha.At(b, node, h)/sum, b, node, h)
			}
		}
	}

	return alpha
}

// Backward routes the pooled gradient through the weighting product and the
// per-head softmax normalization.
func (l *Attention) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	if grad == nil || grad.Rank() != 2 || grad.Dim(1) != l.cin*l.heads {
		return nil, ErrBadInput
	}
	batch, n := l.lastX.Dim(0), l.lastX.Dim(1)
	x, alpha := l.lastX, l.alpha

	dx := tensor.New(batch, n, l.cin)
	dAlpha := tensor.New(batch, n, l.heads)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			for c := 0; c < l.cin; c++ {
				xv := x.At(b, node, c)
				acc := 0.0
				for h := 0; h < l.heads; h++ {
					g := grad.At(b, c*l.heads+h)
					dAlpha.Set(dAlpha.At(b, node, h)+xv*g, b, node, h)
					acc += alpha.At(b, node, h) * g
				}
				dx.Set(acc, b, node, c)
			}
		}
	}

	// Through the softmax: dz = τ·α·(dα - Σ_m α_m·dα_m) per (example, head).
	dz := tensor.New(batch, n, l.heads)
	for b := 0; b < batch; b++ {
		for h := 0; h < l.heads; h++ {
			dot := 0.0
			for node := 0; node < n; node++ {
				dot += alpha.At(b, node, h) * dAlpha.At(b, node, h)
			}
			for node := 0; node < n; node++ {
				a := alpha.At(b, node, h)
				dz.Set(l.temperature*a*(dAlpha.At(b, node, h)-dot), b, node, h)
			}
		}
	}

	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			for h := 0; h < l.heads; h++ {
				g := dz.At(b, node, h)
				l.b.Grad.Set(l.b.Grad.At(0, h)+g, 0, h)
				for c := 0; c < l.cin; c++ {
					l.w.Grad.Set(l.w.Grad.At(c, h)+g*x.At(b, node, c), c, h)
					dx.Set(dx.At(b, node, c)+g*l.w.Value.At(c, h), b, node, c)
				}
			}
		}
	}

	return dx, nil
}

// SoftPooling is the mask variant of Attention: the per-head normalized
// weights are summed into one scalar per node, and the input is multiplied
// by that mask instead of being pooled away.
type SoftPooling struct {
	trace
	attn  *Attention
	mask  *tensor.Tensor // (batch, nodes, 1)
	lastX *tensor.Tensor
}

// DefaultSoftPoolingHeads matches the head count the soft-pooling mask sums over.
const DefaultSoftPoolingHeads = 10

// NewSoftPooling builds a soft-pooling mask layer over cin channels.
func NewSoftPooling(cin, heads int, rng *rand.Rand) (*SoftPooling, error) {
	if heads <= 0 {
		heads = DefaultSoftPoolingHeads
	}
	attn, err := NewAttention(cin, heads, rng)
	if err != nil {
		return nil, err
	}
	attn.name = "softpool"
	attn.w.Name = "softpool.weight"
	attn.b.Name = "softpool.bias"

	return &SoftPooling{attn: attn}, nil
}

// Name implements Layer.
func (l *SoftPooling) Name() string { return l.attn.name }

// Params implements Layer.
func (l *SoftPooling) Params() []*Param { return l.attn.Params() }

// Mask returns the per-node mask from the last Forward pass.
func (l *SoftPooling) Mask() *tensor.Tensor { return l.mask }

// Forward computes m[b,n] = Σ_h α[b,n,h] and returns m ⊙ x.
func (l *SoftPooling) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 3 || x.Dim(2) != l.attn.cin {
		return nil, fmt.Errorf("layer: softpool input: %w", ErrBadInput)
	}
	batch, n, ch := x.Dim(0), x.Dim(1), x.Dim(2)

	alpha := l.attn.scores(x)
	mask := tensor.New(batch, n, 1)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			s := 0.0
			for h := 0; h < l.attn.heads; h++ {
				s += alpha.At(b, node, h)
			}
			mask.Set(s, b, node, 0)
		}
	}

	y := tensor.New(batch, n, ch)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			m := mask.At(b, node, 0)
			for k := 0; k < ch; k++ {
				y.Set(m*x.At(b, node, k), b, node, k)
			}
		}
	}

	l.lastX, l.mask = x, mask
	l.attn.lastX, l.attn.alpha = x, alpha
	l.record(x, mask)

	return y, nil
}

// Backward splits the gradient between the masked features and the mask
// itself, then reuses the attention softmax backward for the mask path.
func (l *SoftPooling) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastX == nil {
		return nil, ErrNoForward
	}
	batch, n, ch := l.lastX.Dim(0), l.lastX.Dim(1), l.lastX.Dim(2)
	if grad == nil || grad.Rank() != 3 || grad.Dim(1) != n || grad.Dim(2) != ch {
		return nil, ErrBadInput
	}
	x, alpha := l.lastX, l.attn.alpha
	heads, temp := l.attn.heads, l.attn.temperature

	dx := tensor.New(batch, n, ch)
	dMask := tensor.New(batch, n, 1)
	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			m := l.mask.At(b, node, 0)
			dm := 0.0
			for k := 0; k < ch; k++ {
				g := grad.At(b, node, k)
				dm += g * x.At(b, node, k)
				dx.Set(m*g, b, node, k)
			}
			dMask.Set(dm, b, node, 0)
		}
	}

	// Every head receives the same mask gradient; softmax backward per head.
	dz := tensor.New(batch, n, heads)
	for b := 0; b < batch; b++ {
		for h := 0; h < heads; h++ {
			dot := 0.0
			for node := 0; node < n; node++ {
				dot += alpha.At(b, node, h) * dMask.At(b, node, 0)
			}
			for node := 0; node < n; node++ {
				a := alpha.At(b, node, h)
				dz.Set(temp*a*(dMask.At(b, node, 0)-dot), b, node, h)
			}
		}
	}

	for b := 0; b < batch; b++ {
		for node := 0; node < n; node++ {
			for h := 0; h < heads; h++ {
				g := dz.At(b, node, h)
				l.attn.b.Grad.Set(l.attn.b.Grad.At(0, h)+g, 0, h)
				for c := 0; c < ch; c++ {
					l.attn.w.Grad.Set(l.attn.w.Grad.At(c, h)+g*x.At(b, node, c), c, h)
					dx.Set(dx.At(b, node, c)+g*l.attn.w.Value.At(c, h), b, node, c)
				}
			}
		}
	}

	return dx, nil
}
