// Copyright 2026 The Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides a probabilistic computation graph and Build,
// which derives a new subgraph from an existing one while substituting
// selected ancestor nodes.
//
// # Overview
//
// A Graph registers operations, tensors, variables, placeholders, and
// stochastic (random-variable) nodes under unique names. Build clones
// the dependency closure of a target node under a fresh namespace,
// swapping any ancestor found in a caller-supplied substitution map
// while reusing shared dependencies and persistent state nodes.
//
// # Basic Usage
//
//	import (
//	    "github.com/graft-ml/graft/array"
//	    "github.com/graft-ml/graft/graph"
//	)
//
//	g := graph.NewGraph(nil)
//	x, _ := graph.Const(g, array.Scalar(2.0), "x")
//	y, _ := graph.Const(g, array.Scalar(3.0), "y")
//	z, _ := graph.Mul(x, y, "z")
//
//	qx, _ := graph.Const(g, array.Scalar(4.0), "qx")
//	built, _ := graph.Build(z, graph.SubstitutionMap{x: qx}, nil)
//
//	// The original still evaluates to 6; the built subgraph to 12.
//	v1, _ := g.Eval(z, nil)
//	v2, _ := g.Eval(built.(*graph.Tensor), nil)
//
// # Cloning Policy
//
// Build dispatches on the node's kind:
//   - Variables and Placeholders are never duplicated; clones reference
//     the original, which holds the single shared state.
//   - Tensors rebuild their producing operation and inherit collection
//     memberships.
//   - Operations are re-registered under "scope/originalName" with
//     rebuilt inputs, control dependencies, and a deep-copied attribute
//     descriptor.
//   - StochasticNodes are reconstructed in the same distribution family
//     and re-materialize a sampled value.
//
// Memoization is keyed by qualified name against the live graph, so
// diamond dependencies stay shared and repeated Build calls with one
// scope reuse earlier clones.
//
// # Concurrency
//
// A Graph is a shared mutable resource without internal locking. Build
// and Eval assume exclusive access for their duration.
package graph
