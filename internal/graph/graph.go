// Package graph implements a probabilistic computation graph: a
// registry of operations, tensors, variables, placeholders, and random
// variables, plus Build, which derives a new subgraph from an existing
// one while substituting selected ancestors.
//
// A Graph is an explicit context object: every constructor takes the
// owning *Graph, and there is no process-wide default graph. A Graph is
// not safe for concurrent mutation; Build assumes exclusive access for
// its duration.
package graph

import (
	"fmt"
	"math/rand"
	"sort"
)

// Config holds Graph construction options.
type Config struct {
	// Seed seeds the graph's shared random source used to materialize
	// sampled values (default: 1). Two graphs built with the same seed
	// and the same construction order sample identical values.
	Seed int64
}

// Graph owns all nodes of a computation graph: a name index, the
// Variable/Placeholder/StochasticNode registries, named Collections,
// and a device-placement context stack.
type Graph struct {
	nodes        map[string]Node
	variables    map[string]*Variable
	placeholders map[string]*Placeholder
	stochastics  map[string]*StochasticNode
	collections  map[string][]Node
	deviceStack  []string
	controlOps   []*Operation
	nameCounts   map[string]int
	rng          *rand.Rand
}

// NewGraph creates an empty Graph.
func NewGraph(cfg *Config) *Graph {
	seed := int64(1)
	if cfg != nil && cfg.Seed != 0 {
		seed = cfg.Seed
	}
	return &Graph{
		nodes:        make(map[string]Node),
		variables:    make(map[string]*Variable),
		placeholders: make(map[string]*Placeholder),
		stochastics:  make(map[string]*StochasticNode),
		collections:  make(map[string][]Node),
		nameCounts:   make(map[string]int),
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Rand returns the graph's shared random source.
func (g *Graph) Rand() *rand.Rand { return g.rng }

// NodeByName looks up any node (operation, tensor, variable,
// placeholder, or stochastic node) by its unique name.
func (g *Graph) NodeByName(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// TensorByName looks up a tensor by name, e.g. "Mul:0".
func (g *Graph) TensorByName(name string) (*Tensor, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, false
	}
	t, ok := n.(*Tensor)
	return t, ok
}

// uniqueName returns prefix if unused, otherwise "prefix_N" with the
// smallest N that is unused. Counters are per prefix.
func (g *Graph) uniqueName(prefix string) string {
	if _, taken := g.nodes[prefix]; !taken && g.nameCounts[prefix] == 0 {
		g.nameCounts[prefix]++
		return prefix
	}
	for {
		name := fmt.Sprintf("%s_%d", prefix, g.nameCounts[prefix])
		g.nameCounts[prefix]++
		if _, taken := g.nodes[name]; !taken {
			return name
		}
	}
}

// OperationConfig holds the fields for constructing an Operation.
type OperationConfig struct {
	Name        string   // unique name; "" auto-generates from Type
	Type        string   // op-type identifier, e.g. OpMul
	Inputs      []*Tensor
	ControlDeps []*Operation
	OriginalOp  *Operation // optional back-reference
	Attrs       AttrMap
	NumOutputs  int // default: 1
}

// NewOperation constructs an Operation, registers it and its output
// tensors in the name index, records it for control-dependency
// tracking, and applies the current device placement.
func (g *Graph) NewOperation(cfg *OperationConfig) (*Operation, error) {
	if cfg == nil || cfg.Type == "" {
		return nil, fmt.Errorf("NewOperation: missing op type")
	}
	for i, in := range cfg.Inputs {
		if in == nil {
			return nil, fmt.Errorf("NewOperation: input %d of %q is nil", i, cfg.Type)
		}
		if in.Graph() != g {
			return nil, fmt.Errorf("NewOperation: input %q belongs to a different graph", in.Name())
		}
	}

	name := cfg.Name
	if name == "" {
		name = g.uniqueName(cfg.Type)
	}

	numOutputs := cfg.NumOutputs
	if numOutputs == 0 {
		numOutputs = 1
	}

	op := &Operation{
		graph:       g,
		name:        name,
		opType:      cfg.Type,
		inputs:      append([]*Tensor(nil), cfg.Inputs...),
		controlDeps: append([]*Operation(nil), cfg.ControlDeps...),
		originalOp:  cfg.OriginalOp,
		device:      g.CurrentDevicePlacement(),
		attrs:       cfg.Attrs,
	}
	op.outputs = make([]*Tensor, numOutputs)
	for i := range op.outputs {
		op.outputs[i] = &Tensor{op: op, index: i}
	}

	if err := g.RegisterOperation(op); err != nil {
		return nil, err
	}
	g.RecordControlDependency(op)
	return op, nil
}

// RegisterOperation adds an operation and its output tensors to the
// name index. Fails if any name is already taken.
func (g *Graph) RegisterOperation(op *Operation) error {
	if _, taken := g.nodes[op.name]; taken {
		return fmt.Errorf("RegisterOperation: name %q already exists in graph", op.name)
	}
	g.nodes[op.name] = op
	for _, out := range op.outputs {
		g.nodes[out.Name()] = out
	}
	return nil
}

// RecordControlDependency records an operation as seen by the graph's
// control-dependency bookkeeping.
func (g *Graph) RecordControlDependency(op *Operation) {
	g.controlOps = append(g.controlOps, op)
}

// ControlDependencyRecord returns every operation recorded for
// control-dependency tracking, in registration order.
func (g *Graph) ControlDependencyRecord() []*Operation {
	return g.controlOps
}

// PushDevice enters a device-placement context. Operations created
// while the context is active are placed on device.
func (g *Graph) PushDevice(device string) {
	g.deviceStack = append(g.deviceStack, device)
}

// PopDevice leaves the innermost device-placement context.
func (g *Graph) PopDevice() {
	if len(g.deviceStack) > 0 {
		g.deviceStack = g.deviceStack[:len(g.deviceStack)-1]
	}
}

// CurrentDevicePlacement returns the active device placement. The most
// specific (innermost non-empty) context wins; "" when none is active.
func (g *Graph) CurrentDevicePlacement() string {
	for i := len(g.deviceStack) - 1; i >= 0; i-- {
		if g.deviceStack[i] != "" {
			return g.deviceStack[i]
		}
	}
	return ""
}

// AddToCollection adds a node to the named collection. A node may
// belong to any number of collections; membership is not deduplicated.
func (g *Graph) AddToCollection(name string, n Node) {
	g.collections[name] = append(g.collections[name], n)
}

// Collection returns the members of the named collection.
func (g *Graph) Collection(name string) []Node {
	return g.collections[name]
}

// CollectionsOf returns the sorted names of every collection the node
// belongs to.
func (g *Graph) CollectionsOf(n Node) []string {
	var names []string
	for name, members := range g.collections {
		for _, m := range members {
			if m == n {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// Variables returns the variable registry keyed by name. Both the
// variable name and its read-handle tensor name map to the variable.
func (g *Graph) Variables() map[string]*Variable { return g.variables }

// Placeholders returns the placeholder registry keyed by name.
func (g *Graph) Placeholders() map[string]*Placeholder { return g.placeholders }

// StochasticNodes returns the random-variable registry keyed by name.
func (g *Graph) StochasticNodes() map[string]*StochasticNode { return g.stochastics }
