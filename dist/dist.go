// Copyright 2026 The Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dist provides distribution families for stochastic graph
// nodes. Sampling draws from the owning graph's shared random source,
// so results are deterministic under a fixed graph seed.
//
// Example:
//
//	g := graph.NewGraph(&graph.Config{Seed: 7})
//	z, err := dist.Normal(g, "z", 0.0, 1.0)
//	value := z.Value() // materialized sample tensor
package dist

import (
	"github.com/graft-ml/graft/internal/dist"
	"github.com/graft-ml/graft/internal/graph"
)

// Family values for use with graph.StochasticConfig.
var (
	NormalFamily    = dist.NormalFamily
	BernoulliFamily = dist.BernoulliFamily
	BetaFamily      = dist.BetaFamily
	GammaFamily     = dist.GammaFamily
	PointMassFamily = dist.PointMassFamily
)

// Normal creates a stochastic node for N(loc, scale²). Parameters may
// be graph nodes, *array.NDArray constants, or float64 scalars.
func Normal(g *graph.Graph, name string, loc, scale any) (*graph.StochasticNode, error) {
	return dist.Normal(g, name, loc, scale)
}

// Bernoulli creates a stochastic node taking value 1 with probability
// probs and 0 otherwise.
func Bernoulli(g *graph.Graph, name string, probs any) (*graph.StochasticNode, error) {
	return dist.Bernoulli(g, name, probs)
}

// Beta creates a stochastic node for Beta(concentration1, concentration0).
func Beta(g *graph.Graph, name string, concentration1, concentration0 any) (*graph.StochasticNode, error) {
	return dist.Beta(g, name, concentration1, concentration0)
}

// Gamma creates a stochastic node for Gamma(concentration, rate).
func Gamma(g *graph.Graph, name string, concentration, rate any) (*graph.StochasticNode, error) {
	return dist.Gamma(g, name, concentration, rate)
}

// PointMass creates a degenerate stochastic node whose sample always
// equals value.
func PointMass(g *graph.Graph, name string, value any) (*graph.StochasticNode, error) {
	return dist.PointMass(g, name, value)
}
