package graph

import (
	"errors"
	"fmt"
)

// ErrUnsupportedKind is returned when a node is none of the five
// recognized kinds. Check with errors.Is.
var ErrUnsupportedKind = errors.New("unsupported node kind")

// Kind is the classification of a node.
type Kind int

// The five recognized node kinds.
const (
	KindVariable Kind = iota
	KindPlaceholder
	KindOperation
	KindTensor
	KindStochastic
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "Variable"
	case KindPlaceholder:
		return "Placeholder"
	case KindOperation:
		return "Operation"
	case KindTensor:
		return "Tensor"
	case KindStochastic:
		return "StochasticNode"
	default:
		return "Unknown"
	}
}

// Classify determines a node's kind. The graph's name-keyed Variable
// and Placeholder registries are consulted before structural dispatch:
// a variable reached through an operation's inputs arrives as a plain
// *Tensor and can only be told apart by name.
func Classify(n Node) (Kind, error) {
	if n == nil {
		return 0, fmt.Errorf("Classify: %w: nil node", ErrUnsupportedKind)
	}

	g := n.Graph()
	if g != nil {
		if _, ok := g.variables[n.Name()]; ok {
			return KindVariable, nil
		}
		if _, ok := g.placeholders[n.Name()]; ok {
			return KindPlaceholder, nil
		}
	}

	switch n.(type) {
	case *Variable:
		return KindVariable, nil
	case *Placeholder:
		return KindPlaceholder, nil
	case *StochasticNode:
		return KindStochastic, nil
	case *Tensor:
		return KindTensor, nil
	case *Operation:
		return KindOperation, nil
	default:
		return 0, fmt.Errorf("Classify: %w: %T", ErrUnsupportedKind, n)
	}
}
