package tensor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors returned by tensor constructors and operations.
var (
	// ErrShape indicates a non-positive or unsupported shape request.
	ErrShape = errors.New("tensor: invalid shape")

	// ErrDimensionMismatch indicates incompatible shapes between operands.
	ErrDimensionMismatch = errors.New("tensor: dimension mismatch")
)

// Tensor is a dense float64 tensor of rank 2 or 3, stored row-major.
// Rank-3 tensors follow the (batch, nodes, channels) convention used by the
// graph layers; rank-2 tensors are plain (rows, cols) matrices.
type Tensor struct {
	shape []int
	data  []float64
}

// New allocates a zero-filled tensor of the given shape.
// Panics on a non-positive dimension or an unsupported rank; both are
// programmer errors at construction sites.
func New(shape ...int) *Tensor {
	if len(shape) < 2 || len(shape) > 3 {
		panic(fmt.Sprintf("tensor: rank %d not supported", len(shape)))
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("tensor: non-positive dimension in shape %v", shape))
		}
		size *= d
	}
	s := make([]int, len(shape))
	copy(s, shape)

	return &Tensor{shape: s, data: make([]float64, size)}
}

// FromSlice builds a tensor over a copy of data, validating the element count.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	t := New(shape...)
	if len(data) != len(t.data) {
		return nil, fmt.Errorf("tensor: %d elements for shape %v: %w", len(data), shape, ErrShape)
	}
	copy(t.data, data)

	return t, nil
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	s := make([]int, len(t.shape))
	copy(s, t.shape)

	return s
}

// Rank returns the number of dimensions (2 or 3).
func (t *Tensor) Rank() int { return len(t.shape) }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Len returns the total number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data exposes the flat backing slice. Mutations are visible to all views.
func (t *Tensor) Data() []float64 { return t.data }

// offset computes the flat index for the given coordinates.
func (t *Tensor) offset(idx ...int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= t.shape[d] {
			panic(fmt.Sprintf("tensor: index %d out of range for dim %d (size %d)", i, d, t.shape[d]))
		}
		off = off*t.shape[d] + i
	}

	return off
}

// At returns the element at the given coordinates.
func (t *Tensor) At(idx ...int) float64 { return t.data[t.offset(idx...)] }

// Set assigns v at the given coordinates.
func (t *Tensor) Set(v float64, idx ...int) { t.data[t.offset(idx...)] = v }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := New(t.shape...)
	copy(c.data, t.data)

	return c
}

// Zero resets all elements to 0 in place.
func (t *Tensor) Zero() {
	for i := range t.data {
		t.data[i] = 0
	}
}

// Fill sets all elements to v in place.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Scale multiplies every element by v in place.
func (t *Tensor) Scale(v float64) {
	for i := range t.data {
		t.data[i] *= v
	}
}

// Matrix returns a gonum view over a rank-2 tensor. The view shares storage.
func (t *Tensor) Matrix() *mat.Dense {
	if len(t.shape) != 2 {
		panic("tensor: Matrix requires a rank-2 tensor")
	}

	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

// Example returns a gonum view over example b of a rank-3 tensor, shaped
// (nodes, channels). The view shares storage with the tensor.
func (t *Tensor) Example(b int) *mat.Dense {
	if len(t.shape) != 3 {
		panic("tensor: Example requires a rank-3 tensor")
	}
	if b < 0 || b >= t.shape[0] {
		panic(fmt.Sprintf("tensor: example %d out of range (batch %d)", b, t.shape[0]))
	}
	n, c := t.shape[1], t.shape[2]

	return mat.NewDense(n, c, t.data[b*n*c:(b+1)*n*c])
}

// Reshape returns a view with a new shape over the same backing storage.
// The element count must be preserved.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if len(shape) < 2 || len(shape) > 3 {
		return nil, fmt.Errorf("tensor: reshape to rank %d: %w", len(shape), ErrShape)
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("tensor: reshape to %v: %w", shape, ErrShape)
		}
		size *= d
	}
	if size != len(t.data) {
		return nil, fmt.Errorf("tensor: reshape %v to %v: %w", t.shape, shape, ErrDimensionMismatch)
	}
	s := make([]int, len(shape))
	copy(s, shape)

	return &Tensor{shape: s, data: t.data}, nil
}

// SameShape reports whether two tensors have identical shapes.
func SameShape(a, b *Tensor) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}

	return true
}

// Add returns a + b elementwise.
func Add(a, b *Tensor) (*Tensor, error) {
	if !SameShape(a, b) {
		return nil, fmt.Errorf("tensor: Add %v vs %v: %w", a.shape, b.shape, ErrDimensionMismatch)
	}
	out := a.Clone()
	for i := range out.data {
		out.data[i] += b.data[i]
	}

	return out, nil
}

// Mul returns a ⊙ b elementwise (Hadamard product).
func Mul(a, b *Tensor) (*Tensor, error) {
	if !SameShape(a, b) {
		return nil, fmt.Errorf("tensor: Mul %v vs %v: %w", a.shape, b.shape, ErrDimensionMismatch)
	}
	out := a.Clone()
	for i := range out.data {
		out.data[i] *= b.data[i]
	}

	return out, nil
}

// AccumAdd adds src into dst in place. Shapes must match.
func AccumAdd(dst, src *Tensor) error {
	if !SameShape(dst, src) {
		return fmt.Errorf("tensor: AccumAdd %v vs %v: %w", dst.shape, src.shape, ErrDimensionMismatch)
	}
	for i := range dst.data {
		dst.data[i] += src.data[i]
	}

	return nil
}

// MatMul returns a·b for rank-2 tensors via gonum.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, fmt.Errorf("tensor: MatMul requires rank-2 operands: %w", ErrShape)
	}
	if a.shape[1] != b.shape[0] {
		return nil, fmt.Errorf("tensor: MatMul %v × %v: %w", a.shape, b.shape, ErrDimensionMismatch)
	}
	out := New(a.shape[0], b.shape[1])
	out.Matrix().Mul(a.Matrix(), b.Matrix())

	return out, nil
}

// ReLU returns max(x, 0) elementwise.
func ReLU(x *Tensor) *Tensor {
	out := x.Clone()
	for i, v := range out.data {
		if v < 0 {
			out.data[i] = 0
		}
	}

	return out
}

// ReLUBackward masks grad by the sign of the pre-activation input:
// positions where x <= 0 receive zero gradient.
func ReLUBackward(x, grad *Tensor) (*Tensor, error) {
	if !SameShape(x, grad) {
		return nil, fmt.Errorf("tensor: ReLUBackward %v vs %v: %w", x.shape, grad.shape, ErrDimensionMismatch)
	}
	out := grad.Clone()
	for i := range out.data {
		if x.data[i] <= 0 {
			out.data[i] = 0
		}
	}

	return out, nil
}

// Sigmoid returns 1/(1+exp(-x)) elementwise.
func Sigmoid(x *Tensor) *Tensor {
	out := x.Clone()
	for i, v := range out.data {
		out.data[i] = 1.0 / (1.0 + math.Exp(-v))
	}

	return out
}

// AllClose reports whether a and b agree elementwise within eps.
func AllClose(a, b *Tensor, eps float64) bool {
	if !SameShape(a, b) {
		return false
	}
	for i := range a.data {
		if math.Abs(a.data[i]-b.data[i]) > eps {
			return false
		}
	}

	return true
}

// HasNaNInf reports whether any element is NaN or ±Inf.
func HasNaNInf(t *Tensor) bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}

	return false
}

// XavierUniform draws a (rows, cols) weight tensor from U(-s, s) with
// s = sqrt(6/(rows+cols)), the usual fan-balanced range for linear layers.
func XavierUniform(rng *rand.Rand, rows, cols int) *Tensor {
	t := New(rows, cols)
	s := math.Sqrt(6.0 / float64(rows+cols))
	for i := range t.data {
		t.data[i] = rng.Float64()*2*s - s
	}

	return t
}

// Uniform draws every element from U(lo, hi).
func Uniform(rng *rand.Rand, lo, hi float64, shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.data {
		t.data[i] = rng.Float64()*(hi-lo) + lo
	}

	return t
}
