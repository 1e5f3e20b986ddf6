// Package mathutil implements stateless numeric utilities on dense
// arrays: cumulative products, matrix-vector products, numeric
// Hessians, Gaussian KL divergence, log-sum-exp reductions, RBF
// kernels, logit/softplus, and a stick-breaking simplex transform.
// Every function validates its domain preconditions and fails with an
// ErrInvalidDomain-wrapped error; none touch the graph.
package mathutil

import (
	"errors"
	"fmt"
	"math"

	"github.com/graft-ml/graft/internal/array"
)

// ErrInvalidDomain is returned when an input has non-finite values or
// violates a positivity/range precondition. Check with errors.Is.
var ErrInvalidDomain = errors.New("invalid domain")

// checkFinite fails when any input has Inf or NaN values.
func checkFinite(op string, inputs ...*array.NDArray) error {
	for _, in := range inputs {
		if in == nil {
			return fmt.Errorf("%s: input array is nil", op)
		}
		if !in.AllFinite() {
			return fmt.Errorf("%s: %w: input has non-finite values", op, ErrInvalidDomain)
		}
	}
	return nil
}

// checkPositive fails when any input has a non-positive or non-finite
// element.
func checkPositive(op string, inputs ...*array.NDArray) error {
	for _, in := range inputs {
		if in == nil {
			return fmt.Errorf("%s: input array is nil", op)
		}
		if !in.AllFinite() || !in.AllPositive() {
			return fmt.Errorf("%s: %w: input must be finite and positive", op, ErrInvalidDomain)
		}
	}
	return nil
}

// CumProd computes the cumulative product along the outer dimension:
// out[i] = xs[0] * xs[1] * ... * xs[i], element-wise over the remaining
// dimensions. xs must be 1-D or higher.
func CumProd(xs *array.NDArray) (*array.NDArray, error) {
	if err := checkFinite("CumProd", xs); err != nil {
		return nil, err
	}
	if xs.Shape().IsScalar() {
		return nil, fmt.Errorf("CumProd: %w: input must be 1-D or higher", ErrInvalidDomain)
	}

	out := xs.Clone()
	block := xs.NumElements() / xs.Shape()[0]
	data := out.Data()
	for i := block; i < len(data); i++ {
		data[i] *= data[i-block]
	}
	return out, nil
}

// Dot computes the product between a matrix and a vector. For a
// (M, N) matrix and an N-vector the result is an M-vector; for an
// M-vector and a (M, N) matrix the result is an N-vector.
func Dot(x, y *array.NDArray) (*array.NDArray, error) {
	if err := checkFinite("Dot", x, y); err != nil {
		return nil, err
	}

	xs, ys := x.Shape(), y.Shape()
	switch {
	case len(xs) == 2 && len(ys) == 1:
		if xs[1] != ys[0] {
			return nil, fmt.Errorf("Dot: %w: matrix %v incompatible with vector %v",
				ErrInvalidDomain, xs, ys)
		}
		out := array.Zeros(array.Shape{xs[0]})
		for i := 0; i < xs[0]; i++ {
			sum := 0.0
			for j := 0; j < xs[1]; j++ {
				sum += x.At(i, j) * y.At(j)
			}
			out.Set(sum, i)
		}
		return out, nil

	case len(xs) == 1 && len(ys) == 2:
		if xs[0] != ys[0] {
			return nil, fmt.Errorf("Dot: %w: vector %v incompatible with matrix %v",
				ErrInvalidDomain, xs, ys)
		}
		out := array.Zeros(array.Shape{ys[1]})
		for j := 0; j < ys[1]; j++ {
			sum := 0.0
			for i := 0; i < ys[0]; i++ {
				sum += x.At(i) * y.At(i, j)
			}
			out.Set(sum, j)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("Dot: %w: expected a matrix and a vector, got %v and %v",
			ErrInvalidDomain, xs, ys)
	}
}

// KLMultivariateNormal computes KL(N(locOne, scaleOne²) || N(locTwo,
// scaleTwo²)) for Gaussians with diagonal covariance. locTwo and
// scaleTwo may be nil, selecting the standard normal. For 0-D or 1-D
// inputs the result is a 0-D array; for (M, n) inputs it is an
// M-vector of row-wise divergences.
func KLMultivariateNormal(locOne, scaleOne, locTwo, scaleTwo *array.NDArray) (*array.NDArray, error) {
	if err := checkFinite("KLMultivariateNormal", locOne); err != nil {
		return nil, err
	}
	if err := checkPositive("KLMultivariateNormal", scaleOne); err != nil {
		return nil, err
	}

	var out *array.NDArray
	if locTwo == nil && scaleTwo == nil {
		// KL against the standard normal: scale1² + loc1² - 1 - 2 log scale1.
		out = array.Zeros(locOne.Shape())
		for i := range out.Data() {
			l, s := locOne.Data()[i], elemAt(scaleOne, i)
			out.Data()[i] = s*s + l*l - 1.0 - 2.0*math.Log(s)
		}
	} else {
		if locTwo == nil || scaleTwo == nil {
			return nil, fmt.Errorf("KLMultivariateNormal: %w: locTwo and scaleTwo must both be set or both nil",
				ErrInvalidDomain)
		}
		if err := checkFinite("KLMultivariateNormal", locTwo); err != nil {
			return nil, err
		}
		if err := checkPositive("KLMultivariateNormal", scaleTwo); err != nil {
			return nil, err
		}
		out = array.Zeros(locOne.Shape())
		for i := range out.Data() {
			l1, s1 := locOne.Data()[i], elemAt(scaleOne, i)
			l2, s2 := elemAt(locTwo, i), elemAt(scaleTwo, i)
			r := s1 / s2
			d := (l2 - l1) / s2
			out.Data()[i] = r*r + d*d - 1.0 + 2.0*math.Log(s2) - 2.0*math.Log(s1)
		}
	}

	if len(out.Shape()) <= 1 {
		return array.Scalar(0.5 * out.Sum()), nil
	}
	// Row-wise reduction for batched inputs.
	rows, cols := out.Shape()[0], out.Shape()[1]
	res := array.Zeros(array.Shape{rows})
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += out.At(i, j)
		}
		res.Set(0.5*sum, i)
	}
	return res, nil
}

// elemAt reads element i, repeating a single-element array across the
// location's shape.
func elemAt(a *array.NDArray, i int) float64 {
	if a.NumElements() == 1 {
		return a.Data()[0]
	}
	return a.Data()[i%a.NumElements()]
}

// RBF evaluates the squared-exponential kernel element-wise:
//
//	k(x, y) = sigma² * exp(-(x-y)² / (2l²))
//
// y, sigma, and l may be nil, defaulting to 0, 1, and 1.
func RBF(x, y, sigma, l *array.NDArray) (*array.NDArray, error) {
	y, sigma, l = rbfDefaults(y, sigma, l)
	if err := checkFinite("RBF", x, y); err != nil {
		return nil, err
	}
	if err := checkPositive("RBF", sigma, l); err != nil {
		return nil, err
	}

	diff, err := array.Sub(x, y)
	if err != nil {
		return nil, fmt.Errorf("RBF: %w", err)
	}
	sq, _ := array.Mul(diff, diff)
	twoL2, err := array.Mul(l, l)
	if err != nil {
		return nil, fmt.Errorf("RBF: %w", err)
	}
	twoL2 = twoL2.Map(func(v float64) float64 { return 2 * v })
	frac, err := array.Div(sq, twoL2)
	if err != nil {
		return nil, fmt.Errorf("RBF: %w", err)
	}
	sigmaSq, _ := array.Mul(sigma, sigma)
	out, err := array.Mul(sigmaSq, array.Exp(array.Neg(frac)))
	if err != nil {
		return nil, fmt.Errorf("RBF: %w", err)
	}
	return out, nil
}

// MultivariateRBF evaluates the squared-exponential kernel over whole
// vectors:
//
//	k(x, y) = sigma² * exp(-sum_i (x_i-y_i)² / (2l²))
//
// sigma and l must be scalars; y, sigma, and l may be nil, defaulting
// to 0, 1, and 1. The result is a 0-D array.
func MultivariateRBF(x, y, sigma, l *array.NDArray) (*array.NDArray, error) {
	y, sigma, l = rbfDefaults(y, sigma, l)
	if err := checkFinite("MultivariateRBF", x, y); err != nil {
		return nil, err
	}
	if err := checkPositive("MultivariateRBF", sigma, l); err != nil {
		return nil, err
	}
	sigmaV, err := sigma.Item()
	if err != nil {
		return nil, fmt.Errorf("MultivariateRBF: sigma: %w", err)
	}
	lV, err := l.Item()
	if err != nil {
		return nil, fmt.Errorf("MultivariateRBF: l: %w", err)
	}

	diff, err := array.Sub(x, y)
	if err != nil {
		return nil, fmt.Errorf("MultivariateRBF: %w", err)
	}
	sq, _ := array.Mul(diff, diff)
	return array.Scalar(sigmaV * sigmaV * math.Exp(-sq.Sum()/(2*lV*lV))), nil
}

func rbfDefaults(y, sigma, l *array.NDArray) (*array.NDArray, *array.NDArray, *array.NDArray) {
	if y == nil {
		y = array.Scalar(0)
	}
	if sigma == nil {
		sigma = array.Scalar(1)
	}
	if l == nil {
		l = array.Scalar(1)
	}
	return y, sigma, l
}

// Logit evaluates log(x / (1-x)) element-wise. Every element must lie
// strictly inside (0, 1).
func Logit(x *array.NDArray) (*array.NDArray, error) {
	if x == nil {
		return nil, fmt.Errorf("Logit: input array is nil")
	}
	for _, v := range x.Data() {
		if !(v > 0 && v < 1) {
			return nil, fmt.Errorf("Logit: %w: input must lie in (0, 1), got %v", ErrInvalidDomain, v)
		}
	}
	return x.Map(func(v float64) float64 {
		return math.Log(v) - math.Log(1-v)
	}), nil
}

// Softplus evaluates log(1 + exp(x)) element-wise, returning 0 exactly
// below -30 and x exactly above 30 to avoid overflow.
func Softplus(x *array.NDArray) (*array.NDArray, error) {
	if err := checkFinite("Softplus", x); err != nil {
		return nil, err
	}
	return x.Map(func(v float64) float64 {
		switch {
		case v < -30:
			return 0
		case v > 30:
			return v
		default:
			return math.Log(1 + math.Exp(v))
		}
	}), nil
}

// ToSimplex transforms an unconstrained vector of length K-1 to a
// K-simplex using a backward stick-breaking construction. Accepts 1-D
// input or 2-D input transformed row-wise.
func ToSimplex(x *array.NDArray) (*array.NDArray, error) {
	if err := checkFinite("ToSimplex", x); err != nil {
		return nil, err
	}

	switch len(x.Shape()) {
	case 1:
		return stickBreak(x.Data()), nil
	case 2:
		rows, cols := x.Shape()[0], x.Shape()[1]
		out := array.Zeros(array.Shape{rows, cols + 1})
		for i := 0; i < rows; i++ {
			row := stickBreak(x.Data()[i*cols : (i+1)*cols])
			copy(out.Data()[i*(cols+1):(i+1)*(cols+1)], row.Data())
		}
		return out, nil
	default:
		return nil, fmt.Errorf("ToSimplex: %w: expected 1-D or 2-D input, got %v",
			ErrInvalidDomain, x.Shape())
	}
}

// stickBreak maps a length K-1 row to a length K simplex row.
func stickBreak(row []float64) *array.NDArray {
	k1 := len(row)
	z := make([]float64, k1)
	for i := range row {
		eq := -math.Log(float64(k1 - i))
		z[i] = 1.0 / (1.0 + math.Exp(-(eq + row[i])))
	}

	// pil = [z, 1], piu = [1, 1-z], out = cumprod(piu) * pil.
	out := array.Zeros(array.Shape{k1 + 1})
	stick := 1.0
	for i := 0; i < k1; i++ {
		out.Set(stick*z[i], i)
		stick *= 1 - z[i]
	}
	out.Set(stick, k1)
	return out
}
