package graph

import (
	"fmt"

	"github.com/graft-ml/graft/internal/array"
)

// Variable is persistent, mutable, named storage. Dependents consume it
// through its read-handle tensor, which is structurally indistinguishable
// from any other tensor; identification therefore goes through the
// graph's name-keyed variable registry, never through the declared type.
type Variable struct {
	graph   *Graph
	name    string
	initial *array.NDArray
	value   *array.NDArray
	handle  *Tensor
}

// NewVariable creates a variable holding value and registers it under
// name (auto-generated from "Variable" when empty). The variable's
// read handle and the variable itself are both registered, so lookups
// by either name resolve to the variable.
func NewVariable(g *Graph, name string, value *array.NDArray) (*Variable, error) {
	if value == nil {
		return nil, fmt.Errorf("NewVariable: value is nil")
	}
	op, err := g.NewOperation(&OperationConfig{
		Name: name,
		Type: OpVariable,
	})
	if err != nil {
		return nil, fmt.Errorf("NewVariable: %w", err)
	}
	op.Output(0).SetShape(value.Shape().Clone())

	v := &Variable{
		graph:   g,
		name:    op.Name(),
		initial: value.Clone(),
		value:   value.Clone(),
		handle:  op.Output(0),
	}
	g.variables[v.name] = v
	g.variables[v.handle.Name()] = v
	return v, nil
}

// Name returns the variable's name.
func (v *Variable) Name() string { return v.name }

// Graph returns the owning graph.
func (v *Variable) Graph() *Graph { return v.graph }

// Handle returns the read-handle tensor dependents consume.
func (v *Variable) Handle() *Tensor { return v.handle }

// Value returns the current stored value.
func (v *Variable) Value() *array.NDArray { return v.value }

// Initial returns the value the variable was created with.
func (v *Variable) Initial() *array.NDArray { return v.initial }

// Assign replaces the stored value. The new value must keep the shape.
func (v *Variable) Assign(value *array.NDArray) error {
	if !value.Shape().Equal(v.value.Shape()) {
		return fmt.Errorf("Assign: shape %v does not match variable %q shape %v",
			value.Shape(), v.name, v.value.Shape())
	}
	v.value = value.Clone()
	return nil
}

// Placeholder is an externally supplied input node. Like Variable, it is
// identified by name through the graph's placeholder registry.
type Placeholder struct {
	graph  *Graph
	name   string
	shape  array.Shape
	handle *Tensor
}

// NewPlaceholder creates a placeholder with the given static shape and
// registers it under name (auto-generated from "Placeholder" when
// empty). Values are supplied at evaluation time through Feeds.
func NewPlaceholder(g *Graph, name string, shape array.Shape) (*Placeholder, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("NewPlaceholder: %w", err)
	}
	op, err := g.NewOperation(&OperationConfig{
		Name: name,
		Type: OpPlaceholder,
	})
	if err != nil {
		return nil, fmt.Errorf("NewPlaceholder: %w", err)
	}
	op.Output(0).SetShape(shape.Clone())

	p := &Placeholder{
		graph:  g,
		name:   op.Name(),
		shape:  shape.Clone(),
		handle: op.Output(0),
	}
	g.placeholders[p.name] = p
	g.placeholders[p.handle.Name()] = p
	return p, nil
}

// Name returns the placeholder's name.
func (p *Placeholder) Name() string { return p.name }

// Graph returns the owning graph.
func (p *Placeholder) Graph() *Graph { return p.graph }

// Handle returns the tensor dependents consume.
func (p *Placeholder) Handle() *Tensor { return p.handle }

// Shape returns the placeholder's static shape.
func (p *Placeholder) Shape() array.Shape { return p.shape }
