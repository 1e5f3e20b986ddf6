package mathutil

import (
	"fmt"
	"math"

	"github.com/graft-ml/graft/internal/array"
)

// ScalarFunc evaluates a scalar objective at the given parameter
// arrays. The arrays passed in must not be retained or mutated.
type ScalarFunc func(xs []*array.NDArray) (float64, error)

// Hessian computes the matrix of second partial derivatives of f with
// respect to every element of xs, flattened in order, by second-order
// central finite differences. The parameters can have different shapes;
// the result is a (d, d) matrix where d is the total element count.
//
// Gradient-based differentiation is intentionally out of scope; the
// numeric scheme needs only function evaluations.
func Hessian(f ScalarFunc, xs []*array.NDArray) (*array.NDArray, error) {
	if f == nil {
		return nil, fmt.Errorf("Hessian: function is nil")
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("Hessian: %w: no parameters", ErrInvalidDomain)
	}
	if err := checkFinite("Hessian", xs...); err != nil {
		return nil, err
	}

	d := 0
	for _, x := range xs {
		d += x.NumElements()
	}
	steps := make([]float64, d)
	flat := 0
	for _, x := range xs {
		for _, v := range x.Data() {
			steps[flat] = 1e-4 * (1 + math.Abs(v))
			flat++
		}
	}

	// evalAt clones the parameters, nudges the flattened elements by
	// the given deltas, and evaluates f.
	evalAt := func(deltas map[int]float64) (float64, error) {
		nudged := make([]*array.NDArray, len(xs))
		offset := 0
		for k, x := range xs {
			nudged[k] = x.Clone()
			for idx, delta := range deltas {
				if idx >= offset && idx < offset+x.NumElements() {
					nudged[k].Data()[idx-offset] += delta
				}
			}
			offset += x.NumElements()
		}
		return f(nudged)
	}

	hess := array.Zeros(array.Shape{d, d})
	for i := 0; i < d; i++ {
		hi := steps[i]
		for j := i; j < d; j++ {
			hj := steps[j]

			var hij float64
			if i == j {
				center, err := evalAt(nil)
				if err != nil {
					return nil, fmt.Errorf("Hessian: %w", err)
				}
				plus, err := evalAt(map[int]float64{i: hi})
				if err != nil {
					return nil, fmt.Errorf("Hessian: %w", err)
				}
				minus, err := evalAt(map[int]float64{i: -hi})
				if err != nil {
					return nil, fmt.Errorf("Hessian: %w", err)
				}
				hij = (plus - 2*center + minus) / (hi * hi)
			} else {
				pp, err := evalAt(map[int]float64{i: hi, j: hj})
				if err != nil {
					return nil, fmt.Errorf("Hessian: %w", err)
				}
				pm, err := evalAt(map[int]float64{i: hi, j: -hj})
				if err != nil {
					return nil, fmt.Errorf("Hessian: %w", err)
				}
				mp, err := evalAt(map[int]float64{i: -hi, j: hj})
				if err != nil {
					return nil, fmt.Errorf("Hessian: %w", err)
				}
				mm, err := evalAt(map[int]float64{i: -hi, j: -hj})
				if err != nil {
					return nil, fmt.Errorf("Hessian: %w", err)
				}
				hij = (pp - pm - mp + mm) / (4 * hi * hj)
			}

			hess.Set(hij, i, j)
			hess.Set(hij, j, i)
		}
	}
	return hess, nil
}
