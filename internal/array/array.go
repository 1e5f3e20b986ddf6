// Package array implements the dense float64 n-dimensional array that
// backs graph constants, sampled values, placeholder feeds, and the
// numeric utilities. Data is stored row-major.
package array

import (
	"fmt"
	"math"
)

// NDArray is a dense row-major float64 array.
type NDArray struct {
	data   []float64
	shape  Shape
	stride []int
}

// New allocates a zero-filled array with the given shape.
func New(shape Shape) (*NDArray, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &NDArray{
		data:   make([]float64, shape.NumElements()),
		shape:  shape.Clone(),
		stride: shape.Strides(),
	}, nil
}

// Zeros allocates a zero-filled array. Panics on an invalid shape;
// use New when the shape comes from untrusted input.
func Zeros(shape Shape) *NDArray {
	a, err := New(shape)
	if err != nil {
		panic(err)
	}
	return a
}

// Ones allocates an array filled with ones.
func Ones(shape Shape) *NDArray {
	return Full(shape, 1.0)
}

// Full allocates an array filled with value.
func Full(shape Shape, value float64) *NDArray {
	a := Zeros(shape)
	for i := range a.data {
		a.data[i] = value
	}
	return a
}

// Scalar wraps a single value as a 0-D array.
func Scalar(value float64) *NDArray {
	a := Zeros(Shape{})
	a.data[0] = value
	return a
}

// FromSlice builds an array from data interpreted with the given shape.
func FromSlice(data []float64, shape Shape) (*NDArray, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	a := Zeros(shape)
	copy(a.data, data)
	return a, nil
}

// Vector builds a 1-D array from data.
func Vector(data ...float64) *NDArray {
	a := Zeros(Shape{len(data)})
	copy(a.data, data)
	return a
}

// Shape returns the array's shape.
func (a *NDArray) Shape() Shape {
	return a.shape
}

// Data returns the underlying flat storage.
func (a *NDArray) Data() []float64 {
	return a.data
}

// NumElements returns the total number of elements.
func (a *NDArray) NumElements() int {
	return len(a.data)
}

// At returns the element at the given multi-index.
func (a *NDArray) At(index ...int) float64 {
	return a.data[a.offset(index)]
}

// Set stores value at the given multi-index.
func (a *NDArray) Set(value float64, index ...int) {
	a.data[a.offset(index)] = value
}

func (a *NDArray) offset(index []int) int {
	if len(index) != len(a.shape) {
		panic(fmt.Sprintf("index rank %d does not match array rank %d", len(index), len(a.shape)))
	}
	off := 0
	for i, idx := range index {
		if idx < 0 || idx >= a.shape[i] {
			panic(fmt.Sprintf("index %d out of range for dimension %d (size %d)", idx, i, a.shape[i]))
		}
		off += idx * a.stride[i]
	}
	return off
}

// Item returns the value of a single-element array.
func (a *NDArray) Item() (float64, error) {
	if len(a.data) != 1 {
		return 0, fmt.Errorf("Item: array has %d elements, want 1", len(a.data))
	}
	return a.data[0], nil
}

// Clone returns a deep copy.
func (a *NDArray) Clone() *NDArray {
	c := Zeros(a.shape)
	copy(c.data, a.data)
	return c
}

// Equal reports whether two arrays have identical shape and elements.
func (a *NDArray) Equal(other *NDArray) bool {
	if !a.shape.Equal(other.shape) {
		return false
	}
	for i := range a.data {
		if a.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// AllFinite reports whether every element is finite (no Inf or NaN).
func (a *NDArray) AllFinite() bool {
	for _, v := range a.data {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// AllPositive reports whether every element is strictly positive.
func (a *NDArray) AllPositive() bool {
	for _, v := range a.data {
		if !(v > 0) {
			return false
		}
	}
	return true
}

// String formats the array for debugging.
func (a *NDArray) String() string {
	return fmt.Sprintf("NDArray(shape=%v, data=%v)", a.shape, a.data)
}
