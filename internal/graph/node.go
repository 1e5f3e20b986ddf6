package graph

import (
	"fmt"

	"github.com/graft-ml/graft/internal/array"
)

// Node is any addressable participant in a Graph: Variable, Placeholder,
// Operation, Tensor, or StochasticNode. Names are unique per Graph.
type Node interface {
	// Name returns the node's unique name within its Graph.
	Name() string
	// Graph returns the owning Graph. Nodes never outlive their Graph.
	Graph() *Graph
}

// AttrMap holds an operation's attribute descriptor. Values are scalars,
// strings, Shapes, or NDArrays; Clone produces a deep copy so that a
// cloned operation never shares mutable attribute state with the
// original.
type AttrMap map[string]any

// Clone deep-copies the attribute map.
func (m AttrMap) Clone() AttrMap {
	if m == nil {
		return nil
	}
	out := make(AttrMap, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case *array.NDArray:
			out[k] = val.Clone()
		case array.Shape:
			out[k] = val.Clone()
		case []string:
			cp := make([]string, len(val))
			copy(cp, val)
			out[k] = cp
		case []float64:
			cp := make([]float64, len(val))
			copy(cp, val)
			out[k] = cp
		case AttrMap:
			out[k] = val.Clone()
		default:
			out[k] = val
		}
	}
	return out
}

// Operation is a computation step: an op-type identifier, ordered input
// tensors, ordered control-dependency operations, an optional back
// reference to the operation it was derived from, a device placement,
// and an attribute descriptor. Each Operation owns its output tensors.
type Operation struct {
	graph       *Graph
	name        string
	opType      string
	inputs      []*Tensor
	controlDeps []*Operation
	originalOp  *Operation
	device      string
	attrs       AttrMap
	outputs     []*Tensor
}

// Name returns the operation's unique name.
func (op *Operation) Name() string { return op.name }

// Graph returns the owning graph.
func (op *Operation) Graph() *Graph { return op.graph }

// Type returns the op-type identifier, e.g. "Mul".
func (op *Operation) Type() string { return op.opType }

// Inputs returns the ordered input tensors.
func (op *Operation) Inputs() []*Tensor { return op.inputs }

// ControlDeps returns the ordered control-dependency operations.
func (op *Operation) ControlDeps() []*Operation { return op.controlDeps }

// OriginalOp returns the back-reference to the operation this one was
// derived from, or nil.
func (op *Operation) OriginalOp() *Operation { return op.originalOp }

// Device returns the device placement string ("" when unplaced).
func (op *Operation) Device() string { return op.device }

// Attrs returns the attribute descriptor.
func (op *Operation) Attrs() AttrMap { return op.attrs }

// Outputs returns the operation's output tensors.
func (op *Operation) Outputs() []*Tensor { return op.outputs }

// Output returns the output tensor at index i.
func (op *Operation) Output(i int) *Tensor { return op.outputs[i] }

// NumOutputs returns the number of output tensors.
func (op *Operation) NumOutputs() int { return len(op.outputs) }

// Tensor is the output of exactly one Operation at a fixed index. Its
// name is derived from the producing operation: "opName:index".
type Tensor struct {
	op    *Operation
	index int
	shape array.Shape
}

// Name returns "opName:index".
func (t *Tensor) Name() string {
	return fmt.Sprintf("%s:%d", t.op.name, t.index)
}

// Graph returns the owning graph.
func (t *Tensor) Graph() *Graph { return t.op.graph }

// Op returns the producing operation.
func (t *Tensor) Op() *Operation { return t.op }

// Index returns the tensor's output index on its operation.
func (t *Tensor) Index() int { return t.index }

// Shape returns the static shape metadata (nil when unknown).
func (t *Tensor) Shape() array.Shape { return t.shape }

// SetShape overrides the static shape metadata.
func (t *Tensor) SetShape(shape array.Shape) { t.shape = shape }
