// Copyright 2026 The Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mathutil provides stateless numeric utilities on dense
// arrays. Every function validates finiteness and positivity/range
// preconditions and fails with an error wrapping ErrInvalidDomain.
//
// Example:
//
//	x := array.Vector(0.1, 0.5, 0.9)
//	l, err := mathutil.Logit(x)
package mathutil

import (
	"github.com/graft-ml/graft/internal/array"
	"github.com/graft-ml/graft/internal/mathutil"
)

// ErrInvalidDomain is returned when an input has non-finite values or
// violates a positivity/range precondition.
var ErrInvalidDomain = mathutil.ErrInvalidDomain

// AllAxes selects reduction over every dimension.
const AllAxes = mathutil.AllAxes

// ScalarFunc evaluates a scalar objective at the given parameters.
type ScalarFunc = mathutil.ScalarFunc

// CumProd computes the cumulative product along the outer dimension.
func CumProd(xs *array.NDArray) (*array.NDArray, error) {
	return mathutil.CumProd(xs)
}

// Dot computes the product between a matrix and a vector (either order).
func Dot(x, y *array.NDArray) (*array.NDArray, error) {
	return mathutil.Dot(x, y)
}

// Hessian computes the second-derivative matrix of f with respect to
// every element of xs by central finite differences.
func Hessian(f ScalarFunc, xs []*array.NDArray) (*array.NDArray, error) {
	return mathutil.Hessian(f, xs)
}

// KLMultivariateNormal computes the KL divergence between diagonal
// Gaussians; nil locTwo/scaleTwo select the standard normal.
func KLMultivariateNormal(locOne, scaleOne, locTwo, scaleTwo *array.NDArray) (*array.NDArray, error) {
	return mathutil.KLMultivariateNormal(locOne, scaleOne, locTwo, scaleTwo)
}

// LogSumExp computes log(sum(exp(x))) along axis (AllAxes for all).
func LogSumExp(x *array.NDArray, axis int, keepDims bool) (*array.NDArray, error) {
	return mathutil.LogSumExp(x, axis, keepDims)
}

// LogMeanExp computes log(mean(exp(x))) along axis (AllAxes for all).
func LogMeanExp(x *array.NDArray, axis int, keepDims bool) (*array.NDArray, error) {
	return mathutil.LogMeanExp(x, axis, keepDims)
}

// RBF evaluates the squared-exponential kernel element-wise. y, sigma,
// and l may be nil, defaulting to 0, 1, and 1.
func RBF(x, y, sigma, l *array.NDArray) (*array.NDArray, error) {
	return mathutil.RBF(x, y, sigma, l)
}

// MultivariateRBF evaluates the squared-exponential kernel over whole
// vectors, returning a 0-D array.
func MultivariateRBF(x, y, sigma, l *array.NDArray) (*array.NDArray, error) {
	return mathutil.MultivariateRBF(x, y, sigma, l)
}

// Logit evaluates log(x / (1-x)) element-wise on inputs in (0, 1).
func Logit(x *array.NDArray) (*array.NDArray, error) {
	return mathutil.Logit(x)
}

// Softplus evaluates log(1 + exp(x)) element-wise with overflow guards.
func Softplus(x *array.NDArray) (*array.NDArray, error) {
	return mathutil.Softplus(x)
}

// ToSimplex transforms an unconstrained vector of length K-1 to a
// K-simplex by backward stick breaking; 2-D input transforms row-wise.
func ToSimplex(x *array.NDArray) (*array.NDArray, error) {
	return mathutil.ToSimplex(x)
}
