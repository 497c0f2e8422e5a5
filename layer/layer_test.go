package layer_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"genegraph/adjacency"
	"genegraph/layer"
	"genegraph/tensor"
)

// triangle3 is a weighted 3-node triangle used as the propagation operator.
func triangle3(t *testing.T) *adjacency.Adjacency {
	t.Helper()
	adj, err := adjacency.FromDense([][]float64{
		{0, 1, 0.5},
		{1, 0, 2},
		{0.5, 2, 0},
	}, adjacency.DefaultSymmetryEps)
	require.NoError(t, err)

	return adj
}

// randomInput fills a (batch, nodes, channels) tensor from a fixed seed.
func randomInput(batch, nodes, ch int, seed int64) *tensor.Tensor {
	return tensor.Uniform(rand.New(rand.NewSource(seed)), -1, 1, batch, nodes, ch)
}

// sumLoss treats the scalar sum of y as the loss, so dL/dy is all ones.
func sumLoss(y *tensor.Tensor) (float64, *tensor.Tensor) {
	total := 0.0
	for _, v := range y.Data() {
		total += v
	}
	grad := y.Clone()
	grad.Fill(1)

	return total, grad
}

// checkParamGradients compares analytic parameter gradients against central
// finite differences of the sum loss.
func checkParamGradients(t *testing.T, l layer.Layer, x *tensor.Tensor) {
	t.Helper()
	const h = 1e-6

	y, err := l.Forward(x)
	require.NoError(t, err)
	_, grad := sumLoss(y)

	for _, p := range l.Params() {
		p.ZeroGrad()
	}
	_, err = l.Backward(grad)
	require.NoError(t, err)

	for _, p := range l.Params() {
		data := p.Value.Data()
		for i := range data {
			orig := data[i]

			data[i] = orig + h
			yp, err := l.Forward(x)
			require.NoError(t, err)
			lossP, _ := sumLoss(yp)

			data[i] = orig - h
			ym, err := l.Forward(x)
			require.NoError(t, err)
			lossM, _ := sumLoss(ym)

			data[i] = orig
			numeric := (lossP - lossM) / (2 * h)
			require.InDelta(t, numeric, p.Grad.Data()[i], 1e-4,
				"%s[%d]: analytic %g vs numeric %g", p.Name, i, p.Grad.Data()[i], numeric)
		}
	}
}

// TestGCN_ForwardShape verifies output dimensions and the channel guard.
func TestGCN_ForwardShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l, err := layer.NewGCN(triangle3(t), 2, 4, 0, rng)
	require.NoError(t, err)
	require.Equal(t, "layer_0", l.Name())

	y, err := l.Forward(randomInput(5, 3, 2, 2))
	require.NoError(t, err)
	require.Equal(t, []int{5, 3, 4}, y.Shape())

	_, err = l.Forward(randomInput(5, 3, 3, 2))
	require.ErrorIs(t, err, layer.ErrChannels)
}

// TestGCN_Gradients runs a finite-difference check on weight and bias.
func TestGCN_Gradients(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	l, err := layer.NewGCN(triangle3(t), 2, 3, 0, rng)
	require.NoError(t, err)

	checkParamGradients(t, l, randomInput(2, 3, 2, 4))
}

// TestSGC_Gradients checks the precomputed-power propagation path.
func TestSGC_Gradients(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	l, err := layer.NewSGC(triangle3(t), 2, 3, 0, 2, rng)
	require.NoError(t, err)

	checkParamGradients(t, l, randomInput(2, 3, 2, 6))
}

// TestLCG_CoeffMatchesOperator verifies the untrained LCG propagates exactly
// like a GCN over the same adjacency, then checks its gradients.
func TestLCG_CoeffMatchesOperator(t *testing.T) {
	adj := triangle3(t)

	lcg, err := layer.NewLCG(adj, 1, 2, 0, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	gcn, err := layer.NewGCN(adj, 1, 2, 0, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	x := randomInput(3, 3, 1, 8)
	yl, err := lcg.Forward(x)
	require.NoError(t, err)
	yg, err := gcn.Forward(x)
	require.NoError(t, err)
	require.True(t, tensor.AllClose(yl, yg, 1e-9),
		"freshly built LCG must reproduce the fixed operator")

	checkParamGradients(t, lcg, x)
}

// TestLinear_Gradients checks the dense read-out.
func TestLinear_Gradients(t *testing.T) {
	l, err := layer.NewLinear("logistic", 4, 3, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	x := tensor.Uniform(rand.New(rand.NewSource(10)), -1, 1, 2, 4)
	checkParamGradients(t, l, x)
}

// TestBackward_AccumulatesAcrossCalls verifies that repeated backward passes
// add into the weight gradient: two identical passes leave exactly twice the
// gradient of one.
func TestBackward_AccumulatesAcrossCalls(t *testing.T) {
	l, err := layer.NewLinear("logistic", 3, 2, rand.New(rand.NewSource(13)))
	require.NoError(t, err)

	x := tensor.Uniform(rand.New(rand.NewSource(14)), -1, 1, 4, 3)
	y, err := l.Forward(x)
	require.NoError(t, err)
	_, grad := sumLoss(y)

	_, err = l.Backward(grad)
	require.NoError(t, err)
	once := l.Weight().Grad.Clone()

	_, err = l.Backward(grad)
	require.NoError(t, err)
	for i, v := range l.Weight().Grad.Data() {
		require.InDelta(t, 2*once.Data()[i], v, 1e-12)
	}
}

// TestElementwiseGate_Range verifies gate values live strictly in (0, 1) and
// that the trace exposes them.
func TestElementwiseGate_Range(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	l, err := layer.NewElementwiseGate(2, 0, rng)
	require.NoError(t, err)

	_, err = l.Forward(randomInput(3, 5, 2, 12))
	require.NoError(t, err)

	g := l.Weights()
	require.NotNil(t, g)
	for _, v := range g.Data() {
		require.Greater(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

// TestElementwiseGate_Gradients runs the finite-difference check through the
// sigmoid product.
func TestElementwiseGate_Gradients(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	l, err := layer.NewElementwiseGate(2, 0, rng)
	require.NoError(t, err)

	checkParamGradients(t, l, randomInput(2, 4, 2, 14))
}

// TestStaticGate_SharedAcrossBatch verifies one gate vector applies to every
// example.
func TestStaticGate_SharedAcrossBatch(t *testing.T) {
	l, err := layer.NewStaticGate(4, 0)
	require.NoError(t, err)

	x := randomInput(3, 4, 2, 15)
	y, err := l.Forward(x)
	require.NoError(t, err)

	// v starts at 1, so every element is scaled by sigmoid(1).
	for b := 0; b < 3; b++ {
		for n := 0; n < 4; n++ {
			for c := 0; c < 2; c++ {
				ratio := y.At(b, n, c) / x.At(b, n, c)
				require.InDelta(t, 0.7310585786300049, ratio, 1e-12)
			}
		}
	}
}

// TestAttention_WeightsSumToOne verifies per-example, per-head normalization.
func TestAttention_WeightsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	l, err := layer.NewAttention(3, 4, rng)
	require.NoError(t, err)

	y, err := l.Forward(randomInput(2, 6, 3, 18))
	require.NoError(t, err)
	require.Equal(t, []int{2, 4 * 3}, y.Shape(), "pooled width is heads×channels")

	alpha := l.Weights()
	require.Equal(t, []int{2, 6, 4}, alpha.Shape())
	for b := 0; b < 2; b++ {
		for h := 0; h < 4; h++ {
			sum := 0.0
			for n := 0; n < 6; n++ {
				sum += alpha.At(b, n, h)
			}
			require.InDelta(t, 1.0, sum, 1e-9, "head %d of example %d", h, b)
		}
	}
}

// TestAttention_Gradients runs the finite-difference check through the
// softmax pooling.
func TestAttention_Gradients(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	l, err := layer.NewAttention(2, 2, rng)
	require.NoError(t, err)

	checkParamGradients(t, l, randomInput(2, 4, 2, 20))
}

// TestSoftPooling_MaskShape verifies the node mask sums the head weights and
// the output keeps the input shape.
func TestSoftPooling_MaskShape(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	l, err := layer.NewSoftPooling(2, 3, rng)
	require.NoError(t, err)

	x := randomInput(2, 5, 2, 22)
	y, err := l.Forward(x)
	require.NoError(t, err)
	require.Equal(t, x.Shape(), y.Shape())

	mask := l.Mask()
	require.Equal(t, []int{2, 5, 1}, mask.Shape())
	for b := 0; b < 2; b++ {
		sum := 0.0
		for n := 0; n < 5; n++ {
			sum += mask.At(b, n, 0)
		}
		// Each of the 3 heads sums to 1 over nodes.
		require.InDelta(t, 3.0, sum, 1e-9)
	}
}

// TestEmbedding_Broadcast verifies y[b,n,:] = x[b,n,0]·emb[n,:].
func TestEmbedding_Broadcast(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	l, err := layer.NewEmbedding(3, 4, rng)
	require.NoError(t, err)

	x := randomInput(2, 3, 1, 24)
	y, err := l.Forward(x)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 4}, y.Shape())

	emb := l.Params()[0].Value
	for b := 0; b < 2; b++ {
		for n := 0; n < 3; n++ {
			for k := 0; k < 4; k++ {
				require.InDelta(t, x.At(b, n, 0)*emb.At(n, k), y.At(b, n, k), 1e-12)
			}
		}
	}

	checkParamGradients(t, l, x)
}

// TestDropout_EvalIdentity verifies dropout is a no-op outside training and
// scales surviving nodes during it.
func TestDropout_EvalIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(25))
	l, err := layer.NewDropout(0.4, 0, rng)
	require.NoError(t, err)

	x := randomInput(2, 10, 2, 26)
	y, err := l.Forward(x)
	require.NoError(t, err)
	require.True(t, tensor.AllClose(x, y, 0), "eval mode must be the identity")

	l.SetTraining(true)
	y, err = l.Forward(x)
	require.NoError(t, err)

	scale := 1.0 / 0.6
	for b := 0; b < 2; b++ {
		for n := 0; n < 10; n++ {
			for c := 0; c < 2; c++ {
				v := y.At(b, n, c)
				if v != 0 {
					require.InDelta(t, x.At(b, n, c)*scale, v, 1e-12)
				}
			}
		}
	}

	_, err = layer.NewDropout(1.0, 0, rng)
	require.ErrorIs(t, err, layer.ErrBadInput)
}

// TestBackwardBeforeForward verifies the ErrNoForward guard.
func TestBackwardBeforeForward(t *testing.T) {
	rng := rand.New(rand.NewSource(27))
	l, err := layer.NewGCN(triangle3(t), 1, 1, 0, rng)
	require.NoError(t, err)

	_, err = l.Backward(tensor.New(1, 3, 1))
	require.ErrorIs(t, err, layer.ErrNoForward)
}
