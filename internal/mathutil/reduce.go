package mathutil

import (
	"fmt"
	"math"

	"github.com/graft-ml/graft/internal/array"
)

// AllAxes reduces over every dimension.
const AllAxes = -1

// LogSumExp computes log(sum(exp(x))) along axis, shifting by the
// per-group maximum for numerical stability. axis is AllAxes or a
// dimension index; with keepDims the reduced dimension stays with
// length 1.
func LogSumExp(x *array.NDArray, axis int, keepDims bool) (*array.NDArray, error) {
	return reduceLogExp(x, axis, keepDims, false)
}

// LogMeanExp computes log(mean(exp(x))) along axis, shifting by the
// per-group maximum for numerical stability.
func LogMeanExp(x *array.NDArray, axis int, keepDims bool) (*array.NDArray, error) {
	return reduceLogExp(x, axis, keepDims, true)
}

func reduceLogExp(x *array.NDArray, axis int, keepDims, mean bool) (*array.NDArray, error) {
	op := "LogSumExp"
	if mean {
		op = "LogMeanExp"
	}
	if err := checkFinite(op, x); err != nil {
		return nil, err
	}

	if axis == AllAxes {
		max := x.Max()
		sum := 0.0
		for _, v := range x.Data() {
			sum += math.Exp(v - max)
		}
		if mean {
			sum /= float64(x.NumElements())
		}
		result := max + math.Log(sum)
		if keepDims {
			shape := make(array.Shape, len(x.Shape()))
			for i := range shape {
				shape[i] = 1
			}
			return array.Full(shape, result), nil
		}
		return array.Scalar(result), nil
	}

	if axis < 0 || axis >= len(x.Shape()) {
		return nil, fmt.Errorf("%s: %w: axis %d out of range for shape %v",
			op, ErrInvalidDomain, axis, x.Shape())
	}

	reducedShape := x.Shape().Clone()
	reducedShape[axis] = 1
	maxes := array.Full(reducedShape, math.Inf(-1))
	sums := array.Zeros(reducedShape)

	strides := x.Shape().Strides()
	groupOf := func(i int) []int {
		index := make([]int, len(strides))
		rem := i
		for d := range index {
			index[d] = rem / strides[d]
			rem %= strides[d]
		}
		index[axis] = 0
		return index
	}

	for i, v := range x.Data() {
		idx := groupOf(i)
		if v > maxes.At(idx...) {
			maxes.Set(v, idx...)
		}
	}
	for i, v := range x.Data() {
		idx := groupOf(i)
		sums.Set(sums.At(idx...)+math.Exp(v-maxes.At(idx...)), idx...)
	}

	n := float64(x.Shape()[axis])
	out := array.Zeros(reducedShape)
	for i := range out.Data() {
		s := sums.Data()[i]
		if mean {
			s /= n
		}
		out.Data()[i] = maxes.Data()[i] + math.Log(s)
	}

	if keepDims {
		return out, nil
	}
	squeezed := make(array.Shape, 0, len(reducedShape)-1)
	for d, dim := range reducedShape {
		if d != axis {
			squeezed = append(squeezed, dim)
		}
	}
	res, err := array.FromSlice(out.Data(), squeezed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
