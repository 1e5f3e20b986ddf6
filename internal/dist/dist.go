// Package dist implements distribution families for stochastic graph
// nodes. Each family is a stateless value satisfying graph.Family:
// given named parameters it validates their domains and draws a sample
// from the graph's shared random source, which makes sampling
// deterministic under a fixed graph seed.
package dist

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/graft-ml/graft/internal/array"
	"github.com/graft-ml/graft/internal/graph"
)

// Family values.
var (
	NormalFamily    graph.Family = normalFamily{}
	BernoulliFamily graph.Family = bernoulliFamily{}
	BetaFamily      graph.Family = betaFamily{}
	GammaFamily     graph.Family = gammaFamily{}
	PointMassFamily graph.Family = pointMassFamily{}
)

// Normal creates a stochastic node for N(loc, scale²). loc and scale
// may be graph nodes, *array.NDArray constants, or float64 scalars.
func Normal(g *graph.Graph, name string, loc, scale any) (*graph.StochasticNode, error) {
	return graph.NewStochasticNode(g, &graph.StochasticConfig{
		Name:            name,
		Family:          NormalFamily,
		Params:          map[string]any{"loc": loc, "scale": scale},
		ValidateArgs:    true,
		Reparameterized: true,
	})
}

// Bernoulli creates a stochastic node taking value 1 with probability
// probs and 0 otherwise.
func Bernoulli(g *graph.Graph, name string, probs any) (*graph.StochasticNode, error) {
	return graph.NewStochasticNode(g, &graph.StochasticConfig{
		Name:         name,
		Family:       BernoulliFamily,
		Params:       map[string]any{"probs": probs},
		ValidateArgs: true,
	})
}

// Beta creates a stochastic node for Beta(concentration1, concentration0).
func Beta(g *graph.Graph, name string, concentration1, concentration0 any) (*graph.StochasticNode, error) {
	return graph.NewStochasticNode(g, &graph.StochasticConfig{
		Name:   name,
		Family: BetaFamily,
		Params: map[string]any{
			"concentration1": concentration1,
			"concentration0": concentration0,
		},
		ValidateArgs: true,
	})
}

// Gamma creates a stochastic node for Gamma(concentration, rate).
func Gamma(g *graph.Graph, name string, concentration, rate any) (*graph.StochasticNode, error) {
	return graph.NewStochasticNode(g, &graph.StochasticConfig{
		Name:   name,
		Family: GammaFamily,
		Params: map[string]any{
			"concentration": concentration,
			"rate":          rate,
		},
		ValidateArgs: true,
	})
}

// PointMass creates a degenerate stochastic node whose sample always
// equals value. Useful as a variational stand-in when substituting
// random variables with point estimates.
func PointMass(g *graph.Graph, name string, value any) (*graph.StochasticNode, error) {
	return graph.NewStochasticNode(g, &graph.StochasticConfig{
		Name:         name,
		Family:       PointMassFamily,
		Params:       map[string]any{"value": value},
		ValidateArgs: true,
	})
}

type normalFamily struct{}

func (normalFamily) Name() string         { return "Normal" }
func (normalFamily) ParamNames() []string { return []string{"loc", "scale"} }

func (normalFamily) Validate(params map[string]*array.NDArray) error {
	if !params["loc"].AllFinite() {
		return fmt.Errorf("Normal: loc has non-finite values")
	}
	if !params["scale"].AllFinite() || !params["scale"].AllPositive() {
		return fmt.Errorf("Normal: scale must be finite and positive")
	}
	return nil
}

func (normalFamily) Sample(params map[string]*array.NDArray, shape array.Shape, rng *rand.Rand) (*array.NDArray, error) {
	eps := array.Zeros(shape)
	for i := range eps.Data() {
		eps.Data()[i] = rng.NormFloat64()
	}
	// loc + scale * eps, broadcast over the sample shape.
	scaled, err := array.Mul(params["scale"], eps)
	if err != nil {
		return nil, fmt.Errorf("Normal: %w", err)
	}
	out, err := array.Add(params["loc"], scaled)
	if err != nil {
		return nil, fmt.Errorf("Normal: %w", err)
	}
	return out, nil
}

type bernoulliFamily struct{}

func (bernoulliFamily) Name() string         { return "Bernoulli" }
func (bernoulliFamily) ParamNames() []string { return []string{"probs"} }

func (bernoulliFamily) Validate(params map[string]*array.NDArray) error {
	for _, p := range params["probs"].Data() {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("Bernoulli: probs must lie in [0, 1], got %v", p)
		}
	}
	return nil
}

func (bernoulliFamily) Sample(params map[string]*array.NDArray, shape array.Shape, rng *rand.Rand) (*array.NDArray, error) {
	probs, err := broadcastTo(params["probs"], shape)
	if err != nil {
		return nil, fmt.Errorf("Bernoulli: %w", err)
	}
	out := array.Zeros(shape)
	for i := range out.Data() {
		if rng.Float64() < probs.Data()[i] {
			out.Data()[i] = 1
		}
	}
	return out, nil
}

type betaFamily struct{}

func (betaFamily) Name() string { return "Beta" }
func (betaFamily) ParamNames() []string {
	return []string{"concentration1", "concentration0"}
}

func (betaFamily) Validate(params map[string]*array.NDArray) error {
	for _, name := range []string{"concentration1", "concentration0"} {
		p := params[name]
		if !p.AllFinite() || !p.AllPositive() {
			return fmt.Errorf("Beta: %s must be finite and positive", name)
		}
	}
	return nil
}

func (betaFamily) Sample(params map[string]*array.NDArray, shape array.Shape, rng *rand.Rand) (*array.NDArray, error) {
	c1, err := broadcastTo(params["concentration1"], shape)
	if err != nil {
		return nil, fmt.Errorf("Beta: %w", err)
	}
	c0, err := broadcastTo(params["concentration0"], shape)
	if err != nil {
		return nil, fmt.Errorf("Beta: %w", err)
	}
	out := array.Zeros(shape)
	for i := range out.Data() {
		x := sampleGamma(c1.Data()[i], rng)
		y := sampleGamma(c0.Data()[i], rng)
		out.Data()[i] = x / (x + y)
	}
	return out, nil
}

type gammaFamily struct{}

func (gammaFamily) Name() string         { return "Gamma" }
func (gammaFamily) ParamNames() []string { return []string{"concentration", "rate"} }

func (gammaFamily) Validate(params map[string]*array.NDArray) error {
	for _, name := range []string{"concentration", "rate"} {
		p := params[name]
		if !p.AllFinite() || !p.AllPositive() {
			return fmt.Errorf("Gamma: %s must be finite and positive", name)
		}
	}
	return nil
}

func (gammaFamily) Sample(params map[string]*array.NDArray, shape array.Shape, rng *rand.Rand) (*array.NDArray, error) {
	conc, err := broadcastTo(params["concentration"], shape)
	if err != nil {
		return nil, fmt.Errorf("Gamma: %w", err)
	}
	rate, err := broadcastTo(params["rate"], shape)
	if err != nil {
		return nil, fmt.Errorf("Gamma: %w", err)
	}
	out := array.Zeros(shape)
	for i := range out.Data() {
		out.Data()[i] = sampleGamma(conc.Data()[i], rng) / rate.Data()[i]
	}
	return out, nil
}

type pointMassFamily struct{}

func (pointMassFamily) Name() string         { return "PointMass" }
func (pointMassFamily) ParamNames() []string { return []string{"value"} }

func (pointMassFamily) Validate(params map[string]*array.NDArray) error {
	if !params["value"].AllFinite() {
		return fmt.Errorf("PointMass: value has non-finite values")
	}
	return nil
}

func (pointMassFamily) Sample(params map[string]*array.NDArray, shape array.Shape, _ *rand.Rand) (*array.NDArray, error) {
	out, err := broadcastTo(params["value"], shape)
	if err != nil {
		return nil, fmt.Errorf("PointMass: %w", err)
	}
	return out.Clone(), nil
}

// broadcastTo expands a parameter to the sample shape.
func broadcastTo(a *array.NDArray, shape array.Shape) (*array.NDArray, error) {
	out, err := array.Add(a, array.Zeros(shape))
	if err != nil {
		return nil, err
	}
	if !out.Shape().Equal(shape) {
		return nil, fmt.Errorf("parameter shape %v does not broadcast to sample shape %v",
			a.Shape(), shape)
	}
	return out, nil
}

// sampleGamma draws from Gamma(concentration, 1) using the
// Marsaglia-Tsang squeeze method. For concentration < 1 the boost
// Gamma(a) = Gamma(a+1) * U^(1/a) applies.
func sampleGamma(concentration float64, rng *rand.Rand) float64 {
	if concentration < 1 {
		u := rng.Float64()
		return sampleGamma(concentration+1, rng) * math.Pow(u, 1/concentration)
	}
	d := concentration - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		x := rng.NormFloat64()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}
