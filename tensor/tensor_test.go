package tensor_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"genegraph/tensor"
)

// TestFromSlice_Errors verifies that FromSlice rejects element counts that
// disagree with the requested shape.
func TestFromSlice_Errors(t *testing.T) {
	_, err := tensor.FromSlice([]float64{1, 2, 3}, 2, 2)
	require.ErrorIs(t, err, tensor.ErrShape, "3 elements cannot fill a 2×2 tensor")
}

// TestAtSet_RowMajor checks that At/Set agree with row-major indexing for
// both supported ranks.
func TestAtSet_RowMajor(t *testing.T) {
	m := tensor.New(2, 3)
	m.Set(7, 1, 2)
	require.Equal(t, 7.0, m.At(1, 2))
	require.Equal(t, 7.0, m.Data()[1*3+2])

	c := tensor.New(2, 3, 4)
	c.Set(-1, 1, 2, 3)
	require.Equal(t, -1.0, c.At(1, 2, 3))
	require.Equal(t, -1.0, c.Data()[1*12+2*4+3])
}

// TestReshape_SharesStorage verifies the view semantics: writes through a
// reshaped tensor land in the original.
func TestReshape_SharesStorage(t *testing.T) {
	x := tensor.New(2, 6)
	view, err := x.Reshape(2, 3, 2)
	require.NoError(t, err)

	view.Set(5, 1, 2, 1)
	require.Equal(t, 5.0, x.At(1, 5), "reshape must alias the backing array")

	_, err = x.Reshape(5, 2)
	require.ErrorIs(t, err, tensor.ErrDimensionMismatch, "element count must be preserved")
}

// TestMatMul covers the happy path and both failure modes.
func TestMatMul(t *testing.T) {
	a, err := tensor.FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float64{5, 6, 7, 8}, 2, 2)
	require.NoError(t, err)

	got, err := tensor.MatMul(a, b)
	require.NoError(t, err)
	require.Equal(t, []float64{19, 22, 43, 50}, got.Data())

	_, err = tensor.MatMul(a, tensor.New(3, 2))
	require.ErrorIs(t, err, tensor.ErrDimensionMismatch)

	_, err = tensor.MatMul(a, tensor.New(2, 2, 2))
	require.ErrorIs(t, err, tensor.ErrShape)
}

// TestReLU_Backward checks the mask: gradients pass only where the
// pre-activation was positive.
func TestReLU_Backward(t *testing.T) {
	x, err := tensor.FromSlice([]float64{-1, 0, 2, 3}, 2, 2)
	require.NoError(t, err)

	y := tensor.ReLU(x)
	require.Equal(t, []float64{0, 0, 2, 3}, y.Data())

	grad, err := tensor.FromSlice([]float64{10, 10, 10, 10}, 2, 2)
	require.NoError(t, err)
	dx, err := tensor.ReLUBackward(x, grad)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 10, 10}, dx.Data())
}

// TestSigmoid_Range verifies outputs never leave [0, 1] and stay strictly
// inside away from saturation. At ±50 the float64 result rounds to the
// boundary, so the closed interval is the right bound there.
func TestSigmoid_Range(t *testing.T) {
	x, err := tensor.FromSlice([]float64{-50, -1, 0, 1, 50}, 1, 5)
	require.NoError(t, err)

	y := tensor.Sigmoid(x)
	for _, v := range y.Data() {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
	require.Greater(t, y.At(0, 1), 0.0)
	require.Less(t, y.At(0, 3), 1.0)
	require.InDelta(t, 0.5, y.At(0, 2), 1e-12)
}

// TestXavierUniform_Deterministic verifies bit-identical init under the same
// seed and bounded magnitude.
func TestXavierUniform_Deterministic(t *testing.T) {
	a := tensor.XavierUniform(rand.New(rand.NewSource(7)), 4, 8)
	b := tensor.XavierUniform(rand.New(rand.NewSource(7)), 4, 8)
	require.Equal(t, a.Data(), b.Data(), "same seed must reproduce the init")

	limit := math.Sqrt(6.0 / (4 + 8))
	for _, v := range a.Data() {
		require.LessOrEqual(t, math.Abs(v), limit)
	}
}

// TestHasNaNInf flags non-finite entries.
func TestHasNaNInf(t *testing.T) {
	x := tensor.New(2, 2)
	require.False(t, tensor.HasNaNInf(x))

	x.Set(math.Inf(1), 0, 1)
	require.True(t, tensor.HasNaNInf(x))

	x.Set(math.NaN(), 0, 1)
	require.True(t, tensor.HasNaNInf(x))
}

// TestAccumAdd verifies in-place accumulation and the shape guard.
func TestAccumAdd(t *testing.T) {
	dst, err := tensor.FromSlice([]float64{1, 1}, 1, 2)
	require.NoError(t, err)
	src, err := tensor.FromSlice([]float64{2, 3}, 1, 2)
	require.NoError(t, err)

	require.NoError(t, tensor.AccumAdd(dst, src))
	require.Equal(t, []float64{3, 4}, dst.Data())

	require.ErrorIs(t, tensor.AccumAdd(dst, tensor.New(2, 1)), tensor.ErrDimensionMismatch)
}
