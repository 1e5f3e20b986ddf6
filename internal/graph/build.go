package graph

import (
	"fmt"
	"sort"
)

// SubstitutionMap maps original nodes to replacement nodes of the same
// kind. During Build, any ancestor of the target found in the map is
// swapped for its replacement, transitively through the dependency
// chain.
type SubstitutionMap map[Node]Node

// BuildConfig holds Build options. A nil config means the defaults.
type BuildConfig struct {
	// Scope is the namespace prefix for cloned nodes; it doubles as the
	// memoization key, so repeated Build calls with the same scope
	// reuse earlier clones (default: "built").
	Scope string
	// ReplaceItself also applies the substitution map to the target
	// node itself, not only to its ancestors (default: false).
	ReplaceItself bool
	// CopySubstitutes clones substituted nodes under the scope instead
	// of referencing them verbatim. By default a replacement found in
	// the substitution map is returned as-is, so the caller's node —
	// not a clone of it — ends up wired into the result.
	CopySubstitutes bool
}

const defaultScope = "built"

// Build derives a new subgraph from node under a fresh namespace,
// recursively rebuilding every dependency transitively required to
// evaluate it and swapping any ancestor found in swap. Cloning rather
// than mutating keeps the original subgraph independently evaluable.
//
// Per-kind policy:
//   - Variables and Placeholders are never duplicated; every dependent
//     clone references the original.
//   - Tensors rebuild their producing operation, take the output at the
//     same index, and inherit the original's collection memberships.
//   - Operations rebuild their original-op back-reference, control
//     dependencies, and inputs, then re-register under the qualified
//     name with a deep-copied attribute descriptor.
//   - StochasticNodes rebuild their node-valued arguments, are
//     reconstructed in the same family, and re-materialize a sampled
//     value.
//
// Memoization is keyed by qualified name ("scope/originalName") against
// the live graph, so shared dependencies stay shared (at most one clone
// per scope and node, even across Build calls) and recursion terminates
// on the acyclic dependency relation.
//
// Errors abort the whole call tree immediately; nodes registered before
// the failing point remain registered.
func Build(node Node, swap SubstitutionMap, cfg *BuildConfig) (Node, error) {
	scope := defaultScope
	replaceItself := false
	copySubstitutes := false
	if cfg != nil {
		if cfg.Scope != "" {
			scope = cfg.Scope
		}
		replaceItself = cfg.ReplaceItself
		copySubstitutes = cfg.CopySubstitutes
	}

	if _, err := Classify(node); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	if err := validateSwap(swap); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	b := &builder{
		graph:           node.Graph(),
		swap:            swap,
		scope:           scope,
		copySubstitutes: copySubstitutes,
	}
	return b.build(node, replaceItself)
}

// builder carries one Build call's state. It has no private clone
// cache: memoization reads the live graph's name index.
type builder struct {
	graph           *Graph
	swap            SubstitutionMap
	scope           string
	copySubstitutes bool
}

// build clones node under the builder's scope. honorSelf is false only
// for the outermost call when the caller opts the target itself out of
// substitution; every recursive descent passes true.
func (b *builder) build(node Node, honorSelf bool) (Node, error) {
	kind, err := Classify(node)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	if resolved, swapped := b.resolve(node, honorSelf); swapped {
		if !b.copySubstitutes {
			return resolved, nil
		}
		node = resolved
		if kind, err = Classify(node); err != nil {
			return nil, fmt.Errorf("Build: substitute for %q: %w", node.Name(), err)
		}
	}

	qualified := b.scope + "/" + node.Name()
	if hit, ok := b.lookup(qualified, node); ok {
		return hit, nil
	}

	switch kind {
	case KindVariable, KindPlaceholder:
		// Single globally shared mutable/external state; identity is
		// preserved. Normally already handled by lookup.
		return node, nil
	case KindStochastic:
		return b.buildStochastic(node.(*StochasticNode), qualified)
	case KindTensor:
		return b.buildTensor(node.(*Tensor), qualified)
	case KindOperation:
		return b.buildOperation(node.(*Operation), qualified)
	default:
		return nil, fmt.Errorf("Build: %w: %v", ErrUnsupportedKind, kind)
	}
}

// resolve applies the substitution map. A direct hit returns the mapped
// replacement; honorSelf gates direct hits only, so a caller can opt
// the target out of substitution. Independently, if node is the
// materialized value tensor of a StochasticNode key, the replacement
// node's materialized value is returned: swapping a random variable
// transparently redirects its realized value too. A miss is not an
// error.
func (b *builder) resolve(node Node, honorSelf bool) (Node, bool) {
	if len(b.swap) == 0 {
		return node, false
	}
	if honorSelf {
		if replacement, ok := b.swap[node]; ok {
			return replacement, true
		}
	}
	if t, ok := node.(*Tensor); ok {
		for key, replacement := range b.swap {
			sn, ok := key.(*StochasticNode)
			if !ok || sn.Value() != t {
				continue
			}
			// validateSwap guarantees the replacement is stochastic.
			return replacement.(*StochasticNode).Value(), true
		}
	}
	return node, false
}

// lookup is the memoization check against the live graph, in order:
// previously built stochastic nodes under the qualified name, any node
// already registered under the qualified name, then the original name
// in the Variable/Placeholder registries — those are returned verbatim
// and never rebuilt.
func (b *builder) lookup(qualified string, original Node) (Node, bool) {
	if sn, ok := b.graph.stochastics[qualified]; ok {
		return sn, true
	}
	if n, ok := b.graph.nodes[qualified]; ok {
		return n, true
	}
	if _, ok := b.graph.variables[original.Name()]; ok {
		return original, true
	}
	if _, ok := b.graph.placeholders[original.Name()]; ok {
		return original, true
	}
	return nil, false
}

// buildTensor rebuilds the producing operation and selects the output
// at the original's index, copying static shape metadata and
// propagating collection memberships.
func (b *builder) buildTensor(t *Tensor, qualified string) (Node, error) {
	built, err := b.build(t.Op(), true)
	if err != nil {
		return nil, err
	}
	newOp, err := asOperation(built)
	if err != nil {
		return nil, fmt.Errorf("Build: producer of %q: %w", t.Name(), err)
	}
	if t.Index() >= newOp.NumOutputs() {
		return nil, fmt.Errorf("Build: output index %d of %q out of range on clone %q",
			t.Index(), t.Name(), newOp.Name())
	}

	newT := newOp.Output(t.Index())
	if t.Shape() != nil {
		newT.SetShape(t.Shape().Clone())
	}
	b.propagateCollections(t, newT)
	return newT, nil
}

// buildOperation rebuilds, in order, the original-op back-reference,
// the control dependencies, and the inputs, then constructs and
// registers the clone under the qualified name.
func (b *builder) buildOperation(op *Operation, qualified string) (Node, error) {
	var newOriginal *Operation
	if op.OriginalOp() != nil {
		built, err := b.build(op.OriginalOp(), true)
		if err != nil {
			return nil, err
		}
		if newOriginal, err = asOperation(built); err != nil {
			return nil, fmt.Errorf("Build: original op of %q: %w", op.Name(), err)
		}
	}

	newControl := make([]*Operation, 0, len(op.ControlDeps()))
	for _, dep := range op.ControlDeps() {
		built, err := b.build(dep, true)
		if err != nil {
			return nil, err
		}
		newDep, err := asOperation(built)
		if err != nil {
			return nil, fmt.Errorf("Build: control dependency of %q: %w", op.Name(), err)
		}
		newControl = append(newControl, newDep)
	}

	newInputs := make([]*Tensor, 0, len(op.Inputs()))
	for _, in := range op.Inputs() {
		built, err := b.build(in, true)
		if err != nil {
			return nil, err
		}
		newIn, err := asInputTensor(built)
		if err != nil {
			return nil, fmt.Errorf("Build: input of %q: %w", op.Name(), err)
		}
		newInputs = append(newInputs, newIn)
	}

	// NewOperation registers the clone in the name index, records it
	// for control-dependency tracking, and applies the active device
	// placement.
	return b.graph.NewOperation(&OperationConfig{
		Name:        qualified,
		Type:        op.Type(),
		Inputs:      newInputs,
		ControlDeps: newControl,
		OriginalOp:  newOriginal,
		Attrs:       op.Attrs().Clone(),
		NumOutputs:  op.NumOutputs(),
	})
}

// buildStochastic rebuilds every node-valued argument (constants pass
// through unchanged) and reconstructs a node of the same family under
// the qualified name, re-materializing its sampled value.
func (b *builder) buildStochastic(sn *StochasticNode, qualified string) (Node, error) {
	names := make([]string, 0, len(sn.Params()))
	for name := range sn.Params() {
		names = append(names, name)
	}
	sort.Strings(names)

	newParams := make(map[string]any, len(names))
	for _, name := range names {
		param := sn.Params()[name]
		if n, ok := param.(Node); ok {
			built, err := b.build(n, true)
			if err != nil {
				return nil, err
			}
			newParams[name] = built
			continue
		}
		newParams[name] = param
	}

	return NewStochasticNode(b.graph, &StochasticConfig{
		Name:            qualified,
		Family:          sn.Family(),
		Params:          newParams,
		Shape:           sn.Shape().Clone(),
		ValidateArgs:    sn.ValidateArgs(),
		Reparameterized: sn.Reparameterized(),
		SampleSize:      sn.SampleSize(),
	})
}

// propagateCollections adds the clone to every collection the original
// tensor belongs to. No-op when the original belongs to none.
func (b *builder) propagateCollections(original, clone *Tensor) {
	for _, name := range b.graph.CollectionsOf(original) {
		b.graph.AddToCollection(name, clone)
	}
}

// validateSwap rejects substitution pairs of mismatched kind up front,
// before any cloning, so a bad map cannot leave a half-built namespace.
func validateSwap(swap SubstitutionMap) error {
	for key, replacement := range swap {
		keyKind, err := Classify(key)
		if err != nil {
			return fmt.Errorf("substitution key: %w", err)
		}
		repKind, err := Classify(replacement)
		if err != nil {
			return fmt.Errorf("substitution for %q: %w", key.Name(), err)
		}
		if keyKind != repKind {
			return fmt.Errorf("substitution for %q: kind mismatch: %v replaced by %v",
				key.Name(), keyKind, repKind)
		}
	}
	return nil
}

// asOperation narrows a built node to an *Operation.
func asOperation(n Node) (*Operation, error) {
	op, ok := n.(*Operation)
	if !ok {
		return nil, fmt.Errorf("built to %T, expected operation", n)
	}
	return op, nil
}

// asInputTensor narrows a built node to the tensor an operation input
// slot consumes.
func asInputTensor(n Node) (*Tensor, error) {
	switch v := n.(type) {
	case *Tensor:
		return v, nil
	case *Variable:
		return v.Handle(), nil
	case *Placeholder:
		return v.Handle(), nil
	case *StochasticNode:
		return v.Value(), nil
	default:
		return nil, fmt.Errorf("built to %T, expected tensor", n)
	}
}
