package array

import (
	"fmt"
	"math"
)

// apply2 performs an element-wise binary operation with broadcasting.
func apply2(name string, a, b *NDArray, fn func(x, y float64) float64) (*NDArray, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%s: input array is nil", name)
	}
	shape, err := Broadcast(a.shape, b.shape)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	out := Zeros(shape)
	stride := shape.Strides()
	index := make([]int, len(shape))
	for i := range out.data {
		// Decompose the flat output offset into a multi-index.
		rem := i
		for d := range index {
			index[d] = rem / stride[d]
			rem %= stride[d]
		}
		out.data[i] = fn(a.broadcastAt(index, shape), b.broadcastAt(index, shape))
	}
	return out, nil
}

// broadcastAt reads the element that position index of the broadcast
// shape maps to, treating size-1 and missing dimensions as repeated.
func (a *NDArray) broadcastAt(index []int, shape Shape) float64 {
	off := 0
	skip := len(shape) - len(a.shape)
	for d, idx := range index {
		if d < skip {
			continue
		}
		if a.shape[d-skip] == 1 {
			continue
		}
		off += idx * a.stride[d-skip]
	}
	return a.data[off]
}

// Add returns a + b element-wise with broadcasting.
func Add(a, b *NDArray) (*NDArray, error) {
	return apply2("Add", a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b element-wise with broadcasting.
func Sub(a, b *NDArray) (*NDArray, error) {
	return apply2("Sub", a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns a * b element-wise with broadcasting.
func Mul(a, b *NDArray) (*NDArray, error) {
	return apply2("Mul", a, b, func(x, y float64) float64 { return x * y })
}

// Div returns a / b element-wise with broadcasting.
func Div(a, b *NDArray) (*NDArray, error) {
	return apply2("Div", a, b, func(x, y float64) float64 { return x / y })
}

// Map applies fn to every element and returns a new array.
func (a *NDArray) Map(fn func(float64) float64) *NDArray {
	out := Zeros(a.shape)
	for i, v := range a.data {
		out.data[i] = fn(v)
	}
	return out
}

// Neg returns -a element-wise.
func Neg(a *NDArray) *NDArray {
	return a.Map(func(v float64) float64 { return -v })
}

// Exp returns e**a element-wise.
func Exp(a *NDArray) *NDArray {
	return a.Map(math.Exp)
}

// Log returns the natural logarithm element-wise.
func Log(a *NDArray) *NDArray {
	return a.Map(math.Log)
}

// Sigmoid returns 1/(1+e**-a) element-wise.
func Sigmoid(a *NDArray) *NDArray {
	return a.Map(func(v float64) float64 { return 1.0 / (1.0 + math.Exp(-v)) })
}

// MatMul multiplies a (M, K) matrix by a (K, N) matrix.
func MatMul(a, b *NDArray) (*NDArray, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("MatMul: input array is nil")
	}
	if len(a.shape) != 2 || len(b.shape) != 2 {
		return nil, fmt.Errorf("MatMul: expected 2-D inputs, got %v and %v", a.shape, b.shape)
	}
	m, k := a.shape[0], a.shape[1]
	k2, n := b.shape[0], b.shape[1]
	if k != k2 {
		return nil, fmt.Errorf("MatMul: inner dimensions do not match: %v vs %v", a.shape, b.shape)
	}

	out := Zeros(Shape{m, n})
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for l := 0; l < k; l++ {
				sum += a.data[i*k+l] * b.data[l*n+j]
			}
			out.data[i*n+j] = sum
		}
	}
	return out, nil
}

// Sum reduces all elements to a scalar.
func (a *NDArray) Sum() float64 {
	sum := 0.0
	for _, v := range a.data {
		sum += v
	}
	return sum
}

// Max returns the largest element. Panics on an empty array; shapes are
// validated to be non-empty at construction.
func (a *NDArray) Max() float64 {
	max := a.data[0]
	for _, v := range a.data[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
