// Copyright 2026 The Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package array provides the dense float64 n-dimensional array used for
// graph constants, sampled values, placeholder feeds, and the numeric
// utilities.
//
// Example:
//
//	x := array.Vector(1, 2, 3)
//	m, err := array.FromSlice([]float64{1, 2, 3, 4}, array.Shape{2, 2})
//	s := array.Scalar(2.0)
package array

import (
	"github.com/graft-ml/graft/internal/array"
)

// Shape describes the dimensions of an array. An empty Shape is a scalar.
type Shape = array.Shape

// NDArray is a dense row-major float64 array.
type NDArray = array.NDArray

// New allocates a zero-filled array with the given shape.
func New(shape Shape) (*NDArray, error) {
	return array.New(shape)
}

// Zeros allocates a zero-filled array. Panics on an invalid shape.
func Zeros(shape Shape) *NDArray {
	return array.Zeros(shape)
}

// Ones allocates an array filled with ones.
func Ones(shape Shape) *NDArray {
	return array.Ones(shape)
}

// Full allocates an array filled with value.
func Full(shape Shape, value float64) *NDArray {
	return array.Full(shape, value)
}

// Scalar wraps a single value as a 0-D array.
func Scalar(value float64) *NDArray {
	return array.Scalar(value)
}

// Vector builds a 1-D array from data.
func Vector(data ...float64) *NDArray {
	return array.Vector(data...)
}

// FromSlice builds an array from data interpreted with the given shape.
func FromSlice(data []float64, shape Shape) (*NDArray, error) {
	return array.FromSlice(data, shape)
}

// Broadcast computes the common shape of a and b under NumPy rules.
func Broadcast(a, b Shape) (Shape, error) {
	return array.Broadcast(a, b)
}
