package graph

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/graft-ml/graft/internal/array"
)

// Family identifies a distribution family and knows how to validate its
// named parameters and draw a sample. Implementations are stateless
// values; randomness comes from the graph's shared source. A family
// materializes exactly one value per node — the 1:1 association the
// indirect-substitution match relies on.
type Family interface {
	// Name returns the family identifier, e.g. "Normal".
	Name() string
	// ParamNames returns the required parameter names.
	ParamNames() []string
	// Validate checks parameter domains (finiteness, positivity).
	Validate(params map[string]*array.NDArray) error
	// Sample draws one sample of the given shape.
	Sample(params map[string]*array.NDArray, shape array.Shape, rng *rand.Rand) (*array.NDArray, error)
}

// StochasticNode is a random variable: a distribution family, named
// arguments (each a Node or a constant), shape metadata, and a
// materialized sampled value tensor.
type StochasticNode struct {
	graph           *Graph
	name            string
	family          Family
	params          map[string]any
	shape           array.Shape
	validateArgs    bool
	reparameterized bool
	sampleSize      int
	value           *Tensor
}

// StochasticConfig holds every field for constructing a StochasticNode.
// Fields are passed explicitly; there is no construct-then-overwrite
// path.
type StochasticConfig struct {
	Name            string         // unique name; "" auto-generates from the family name
	Family          Family         // distribution family (required)
	Params          map[string]any // named arguments: Node, *array.NDArray, or float64
	Shape           array.Shape    // sample shape; nil infers the broadcast of parameter shapes
	ValidateArgs    bool           // validate parameter domains before sampling
	Reparameterized bool           // sample is expressed as a deterministic transform of noise
	SampleSize      int            // leading sample dimension; 0 or 1 means a single draw
}

// NewStochasticNode constructs a StochasticNode from explicit field
// values, materializes its sampled value from the graph's shared random
// source, and registers it in the random-variable registry.
func NewStochasticNode(g *Graph, cfg *StochasticConfig) (*StochasticNode, error) {
	if cfg == nil || cfg.Family == nil {
		return nil, fmt.Errorf("NewStochasticNode: missing distribution family")
	}

	name := cfg.Name
	if name == "" {
		name = g.uniqueName(cfg.Family.Name())
	}
	if _, taken := g.nodes[name]; taken {
		return nil, fmt.Errorf("NewStochasticNode: name %q already exists in graph", name)
	}

	// Materialize parameter values. Names are walked in sorted order so
	// that sampling consumes the shared random source deterministically.
	paramVals := make(map[string]*array.NDArray, len(cfg.Params))
	names := make([]string, 0, len(cfg.Params))
	for pname := range cfg.Params {
		names = append(names, pname)
	}
	sort.Strings(names)
	for _, pname := range names {
		val, err := paramValue(g, cfg.Params[pname])
		if err != nil {
			return nil, fmt.Errorf("NewStochasticNode: parameter %q of %q: %w", pname, name, err)
		}
		paramVals[pname] = val
	}
	for _, pname := range cfg.Family.ParamNames() {
		if _, ok := paramVals[pname]; !ok {
			return nil, fmt.Errorf("NewStochasticNode: %q missing parameter %q", cfg.Family.Name(), pname)
		}
	}

	if cfg.ValidateArgs {
		if err := cfg.Family.Validate(paramVals); err != nil {
			return nil, fmt.Errorf("NewStochasticNode: %q: %w", name, err)
		}
	}

	var shape array.Shape
	if cfg.Shape != nil {
		shape = cfg.Shape.Clone()
	} else {
		var err error
		shape, err = paramBroadcast(paramVals, names)
		if err != nil {
			return nil, fmt.Errorf("NewStochasticNode: %q: %w", name, err)
		}
	}
	sampleSize := cfg.SampleSize
	if sampleSize == 0 {
		sampleSize = 1
	}
	sampleShape := shape
	if sampleSize > 1 {
		sampleShape = append(array.Shape{sampleSize}, shape...)
	}

	sampled, err := cfg.Family.Sample(paramVals, sampleShape, g.rng)
	if err != nil {
		return nil, fmt.Errorf("NewStochasticNode: sampling %q: %w", name, err)
	}

	valueOp, err := g.NewOperation(&OperationConfig{
		Name:  name + "/value",
		Type:  OpSample,
		Attrs: AttrMap{attrValue: sampled},
	})
	if err != nil {
		return nil, fmt.Errorf("NewStochasticNode: %w", err)
	}
	valueOp.Output(0).SetShape(sampleShape.Clone())

	params := make(map[string]any, len(cfg.Params))
	for k, v := range cfg.Params {
		params[k] = v
	}

	sn := &StochasticNode{
		graph:           g,
		name:            name,
		family:          cfg.Family,
		params:          params,
		shape:           shape,
		validateArgs:    cfg.ValidateArgs,
		reparameterized: cfg.Reparameterized,
		sampleSize:      sampleSize,
		value:           valueOp.Output(0),
	}
	g.nodes[name] = sn
	g.stochastics[name] = sn
	return sn, nil
}

// Name returns the node's unique name.
func (sn *StochasticNode) Name() string { return sn.name }

// Graph returns the owning graph.
func (sn *StochasticNode) Graph() *Graph { return sn.graph }

// Family returns the distribution family.
func (sn *StochasticNode) Family() Family { return sn.family }

// Params returns the named arguments as given at construction.
func (sn *StochasticNode) Params() map[string]any { return sn.params }

// Shape returns the per-sample shape.
func (sn *StochasticNode) Shape() array.Shape { return sn.shape }

// ValidateArgs reports whether parameter domains are validated.
func (sn *StochasticNode) ValidateArgs() bool { return sn.validateArgs }

// Reparameterized reports the reparameterization flag.
func (sn *StochasticNode) Reparameterized() bool { return sn.reparameterized }

// SampleSize returns the leading sample dimension (1 for a single draw).
func (sn *StochasticNode) SampleSize() int { return sn.sampleSize }

// Value returns the materialized sampled value tensor. Exactly one
// value tensor exists per node.
func (sn *StochasticNode) Value() *Tensor { return sn.value }

// paramValue materializes a named argument: graph nodes are evaluated,
// constants pass through.
func paramValue(g *Graph, param any) (*array.NDArray, error) {
	switch p := param.(type) {
	case *array.NDArray:
		return p, nil
	case float64:
		return array.Scalar(p), nil
	case int:
		return array.Scalar(float64(p)), nil
	case Node:
		t, err := nodeTensor(p)
		if err != nil {
			return nil, err
		}
		return g.Eval(t, nil)
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", param)
	}
}

// nodeTensor returns the tensor a node exposes to dependents.
func nodeTensor(n Node) (*Tensor, error) {
	switch v := n.(type) {
	case *Tensor:
		return v, nil
	case *Variable:
		return v.Handle(), nil
	case *Placeholder:
		return v.Handle(), nil
	case *StochasticNode:
		return v.Value(), nil
	case *Operation:
		if v.NumOutputs() == 0 {
			return nil, fmt.Errorf("operation %q has no outputs", v.Name())
		}
		return v.Output(0), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKind, n)
	}
}

// paramBroadcast infers the sample shape as the broadcast of all
// parameter shapes, walking names in sorted order.
func paramBroadcast(params map[string]*array.NDArray, sortedNames []string) (array.Shape, error) {
	shape := array.Shape{}
	for _, name := range sortedNames {
		var err error
		shape, err = array.Broadcast(shape, params[name].Shape())
		if err != nil {
			return nil, err
		}
	}
	return shape, nil
}
