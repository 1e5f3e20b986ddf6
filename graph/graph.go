// Copyright 2026 The Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/graft-ml/graft/internal/array"
	"github.com/graft-ml/graft/internal/graph"
)

// Type aliases for the public API.

// Graph owns all nodes of a computation graph.
type Graph = graph.Graph

// Config holds Graph construction options.
type Config = graph.Config

// Node is any addressable participant in a Graph.
type Node = graph.Node

// Operation is a computation step consuming input Tensors.
type Operation = graph.Operation

// OperationConfig holds the fields for constructing an Operation.
type OperationConfig = graph.OperationConfig

// Tensor is the output of exactly one Operation at a fixed index.
type Tensor = graph.Tensor

// Variable is persistent, mutable, named storage.
type Variable = graph.Variable

// Placeholder is an externally supplied input node.
type Placeholder = graph.Placeholder

// StochasticNode is a random variable with a materialized sampled value.
type StochasticNode = graph.StochasticNode

// StochasticConfig holds every field for constructing a StochasticNode.
type StochasticConfig = graph.StochasticConfig

// Family identifies a distribution family.
type Family = graph.Family

// AttrMap holds an operation's deep-copyable attribute descriptor.
type AttrMap = graph.AttrMap

// SubstitutionMap maps original nodes to replacements of the same kind.
type SubstitutionMap = graph.SubstitutionMap

// BuildConfig holds Build options; nil selects the defaults.
type BuildConfig = graph.BuildConfig

// Kind is the classification of a node.
type Kind = graph.Kind

// Feeds supplies placeholder values for one evaluation.
type Feeds = graph.Feeds

// The five recognized node kinds.
const (
	KindVariable    Kind = graph.KindVariable
	KindPlaceholder Kind = graph.KindPlaceholder
	KindOperation   Kind = graph.KindOperation
	KindTensor      Kind = graph.KindTensor
	KindStochastic  Kind = graph.KindStochastic
)

// Op-type identifiers understood by the evaluator.
const (
	OpConst       = graph.OpConst
	OpVariable    = graph.OpVariable
	OpPlaceholder = graph.OpPlaceholder
	OpSample      = graph.OpSample
	OpAdd         = graph.OpAdd
	OpSub         = graph.OpSub
	OpMul         = graph.OpMul
	OpDiv         = graph.OpDiv
	OpNeg         = graph.OpNeg
	OpExp         = graph.OpExp
	OpLog         = graph.OpLog
	OpSigmoid     = graph.OpSigmoid
	OpMatMul      = graph.OpMatMul
)

// ErrUnsupportedKind is returned when a node is none of the five
// recognized kinds.
var ErrUnsupportedKind = graph.ErrUnsupportedKind

// NewGraph creates an empty Graph.
func NewGraph(cfg *Config) *Graph {
	return graph.NewGraph(cfg)
}

// Build derives a new subgraph from node under a fresh namespace,
// recursively rebuilding its dependency closure and swapping ancestors
// found in swap. See the package documentation for the cloning policy.
func Build(node Node, swap SubstitutionMap, cfg *BuildConfig) (Node, error) {
	return graph.Build(node, swap, cfg)
}

// Classify determines a node's kind, consulting the graph's Variable
// and Placeholder name registries before structural dispatch.
func Classify(n Node) (Kind, error) {
	return graph.Classify(n)
}

// NewVariable creates a variable holding value.
func NewVariable(g *Graph, name string, value *array.NDArray) (*Variable, error) {
	return graph.NewVariable(g, name, value)
}

// NewPlaceholder creates a placeholder with the given static shape.
func NewPlaceholder(g *Graph, name string, shape array.Shape) (*Placeholder, error) {
	return graph.NewPlaceholder(g, name, shape)
}

// NewStochasticNode constructs a StochasticNode from explicit fields
// and materializes its sampled value.
func NewStochasticNode(g *Graph, cfg *StochasticConfig) (*StochasticNode, error) {
	return graph.NewStochasticNode(g, cfg)
}

// Const adds a constant to the graph and returns its output tensor.
func Const(g *Graph, value *array.NDArray, name string) (*Tensor, error) {
	return graph.Const(g, value, name)
}

// Add returns x + y element-wise with broadcasting.
func Add(x, y *Tensor, name string) (*Tensor, error) { return graph.Add(x, y, name) }

// Sub returns x - y element-wise with broadcasting.
func Sub(x, y *Tensor, name string) (*Tensor, error) { return graph.Sub(x, y, name) }

// Mul returns x * y element-wise with broadcasting.
func Mul(x, y *Tensor, name string) (*Tensor, error) { return graph.Mul(x, y, name) }

// Div returns x / y element-wise with broadcasting.
func Div(x, y *Tensor, name string) (*Tensor, error) { return graph.Div(x, y, name) }

// Neg returns -x element-wise.
func Neg(x *Tensor, name string) (*Tensor, error) { return graph.Neg(x, name) }

// Exp returns e**x element-wise.
func Exp(x *Tensor, name string) (*Tensor, error) { return graph.Exp(x, name) }

// Log returns the natural logarithm element-wise.
func Log(x *Tensor, name string) (*Tensor, error) { return graph.Log(x, name) }

// Sigmoid returns 1/(1+e**-x) element-wise.
func Sigmoid(x *Tensor, name string) (*Tensor, error) { return graph.Sigmoid(x, name) }

// MatMul multiplies a (M, K) tensor by a (K, N) tensor.
func MatMul(x, y *Tensor, name string) (*Tensor, error) { return graph.MatMul(x, y, name) }
