package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/graft/internal/array"
)

// fakeNode is a node kind the builder does not recognize.
type fakeNode struct{ g *Graph }

func (f *fakeNode) Name() string  { return "fake" }
func (f *fakeNode) Graph() *Graph { return f.g }

// pointFamily samples its "value" parameter verbatim; enough to test
// stochastic cloning without pulling in the dist package.
type pointFamily struct{}

func (pointFamily) Name() string         { return "Point" }
func (pointFamily) ParamNames() []string { return []string{"value"} }
func (pointFamily) Validate(map[string]*array.NDArray) error {
	return nil
}
func (pointFamily) Sample(params map[string]*array.NDArray, shape array.Shape, _ *rand.Rand) (*array.NDArray, error) {
	out, err := array.Add(params["value"], array.Zeros(shape))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func mustConst(t *testing.T, g *Graph, value float64, name string) *Tensor {
	t.Helper()
	c, err := Const(g, array.Scalar(value), name)
	require.NoError(t, err)
	return c
}

func TestBuildEndToEnd(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	y := mustConst(t, g, 3.0, "y")
	z, err := Mul(x, y, "z")
	require.NoError(t, err)
	qx := mustConst(t, g, 4.0, "qx")

	built, err := Build(z, SubstitutionMap{x: qx}, nil)
	require.NoError(t, err)
	zNew, ok := built.(*Tensor)
	require.True(t, ok, "built node should be a tensor")
	assert.Equal(t, "built/z:0", zNew.Name())

	orig, err := g.Eval(z, nil)
	require.NoError(t, err)
	origV, err := orig.Item()
	require.NoError(t, err)
	assert.InDelta(t, 6.0, origV, 1e-12, "original subgraph still evaluates independently")

	got, err := g.Eval(zNew, nil)
	require.NoError(t, err)
	gotV, err := got.Item()
	require.NoError(t, err)
	assert.InDelta(t, 12.0, gotV, 1e-12)
}

func TestBuildMemoizedReentry(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	y := mustConst(t, g, 3.0, "y")
	z, err := Mul(x, y, "z")
	require.NoError(t, err)

	cfg := &BuildConfig{Scope: "memo"}
	first, err := Build(z, nil, cfg)
	require.NoError(t, err)
	second, err := Build(z, nil, cfg)
	require.NoError(t, err)

	assert.Same(t, first, second, "same scope must return the identical clone")
}

func TestBuildSharingPreserved(t *testing.T) {
	g := NewGraph(nil)
	c := mustConst(t, g, 5.0, "c")
	one := mustConst(t, g, 1.0, "one")
	a, err := Add(c, one, "a")
	require.NoError(t, err)
	b, err := Mul(c, one, "b")
	require.NoError(t, err)

	cfg := &BuildConfig{Scope: "shared"}
	builtA, err := Build(a, nil, cfg)
	require.NoError(t, err)
	builtB, err := Build(b, nil, cfg)
	require.NoError(t, err)

	aClone := builtA.(*Tensor)
	bClone := builtB.(*Tensor)
	assert.Same(t, aClone.Op().Inputs()[0], bClone.Op().Inputs()[0],
		"diamond dependency must resolve to one shared clone of c")
	assert.Equal(t, "shared/c:0", aClone.Op().Inputs()[0].Name())
}

func TestBuildSubstitutionTransitivity(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	y := mustConst(t, g, 3.0, "y")
	z, err := Mul(x, y, "z")
	require.NoError(t, err)
	qx := mustConst(t, g, 4.0, "qx")

	built, err := Build(z, SubstitutionMap{x: qx}, &BuildConfig{Scope: "trans"})
	require.NoError(t, err)

	inputs := built.(*Tensor).Op().Inputs()
	require.Len(t, inputs, 2)
	assert.Same(t, qx, inputs[0], "substituted input must be qx itself, not a clone of x")
	assert.Equal(t, "trans/y:0", inputs[1].Name(), "unsubstituted input is cloned normally")
}

func TestBuildCopySubstitutes(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	y := mustConst(t, g, 3.0, "y")
	z, err := Mul(x, y, "z")
	require.NoError(t, err)
	qx := mustConst(t, g, 4.0, "qx")

	built, err := Build(z, SubstitutionMap{x: qx}, &BuildConfig{Scope: "cp", CopySubstitutes: true})
	require.NoError(t, err)

	inputs := built.(*Tensor).Op().Inputs()
	assert.Equal(t, "cp/qx:0", inputs[0].Name(), "substitute is itself rebuilt under the scope")
	assert.NotSame(t, qx, inputs[0])

	val, err := g.Eval(built.(*Tensor), nil)
	require.NoError(t, err)
	v, err := val.Item()
	require.NoError(t, err)
	assert.InDelta(t, 12.0, v, 1e-12)
}

func TestBuildVariableIdentityPreserved(t *testing.T) {
	g := NewGraph(nil)
	v, err := NewVariable(g, "weights", array.Vector(1, 2, 3))
	require.NoError(t, err)
	scale := mustConst(t, g, 2.0, "scale")
	out, err := Mul(v.Handle(), scale, "scaled")
	require.NoError(t, err)

	built, err := Build(out, nil, &BuildConfig{Scope: "ident"})
	require.NoError(t, err)

	inputs := built.(*Tensor).Op().Inputs()
	assert.Same(t, v.Handle(), inputs[0], "variable must never be duplicated")
	_, registered := g.NodeByName("ident/" + v.Name())
	assert.False(t, registered, "no clone of the variable may be registered")
}

func TestBuildPlaceholderIdentityPreserved(t *testing.T) {
	g := NewGraph(nil)
	p, err := NewPlaceholder(g, "input", array.Shape{2})
	require.NoError(t, err)
	two := mustConst(t, g, 2.0, "two")
	out, err := Mul(p.Handle(), two, "doubled")
	require.NoError(t, err)

	built, err := Build(out, nil, &BuildConfig{Scope: "ph"})
	require.NoError(t, err)

	inputs := built.(*Tensor).Op().Inputs()
	assert.Same(t, p.Handle(), inputs[0])

	fed := array.Vector(3, 4)
	val, err := g.Eval(built.(*Tensor), Feeds{p: fed})
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 8}, val.Data())
}

func TestBuildIndirectSubstitution(t *testing.T) {
	g := NewGraph(nil)
	z, err := NewStochasticNode(g, &StochasticConfig{
		Name:   "z",
		Family: pointFamily{},
		Params: map[string]any{"value": array.Scalar(2.0)},
	})
	require.NoError(t, err)
	q, err := NewStochasticNode(g, &StochasticConfig{
		Name:   "q",
		Family: pointFamily{},
		Params: map[string]any{"value": array.Scalar(4.0)},
	})
	require.NoError(t, err)

	built, err := Build(z.Value(), SubstitutionMap{z: q}, nil)
	require.NoError(t, err)
	assert.Same(t, q.Value(), built,
		"swapping a random variable must redirect its materialized value")
}

func TestBuildStochasticClone(t *testing.T) {
	g := NewGraph(nil)
	loc := mustConst(t, g, 1.0, "loc")
	z, err := NewStochasticNode(g, &StochasticConfig{
		Name:            "z",
		Family:          pointFamily{},
		Params:          map[string]any{"value": loc},
		Reparameterized: true,
	})
	require.NoError(t, err)

	qloc := mustConst(t, g, 7.0, "qloc")
	built, err := Build(z, SubstitutionMap{loc: qloc}, &BuildConfig{Scope: "st", ReplaceItself: false})
	require.NoError(t, err)

	clone, ok := built.(*StochasticNode)
	require.True(t, ok)
	assert.Equal(t, "st/z", clone.Name())
	assert.Equal(t, "Point", clone.Family().Name())
	assert.True(t, clone.Reparameterized(), "semantic flags copied field by field")
	assert.Same(t, qloc, clone.Params()["value"], "node-valued argument substituted")

	val, err := g.Eval(clone.Value(), nil)
	require.NoError(t, err)
	v, err := val.Item()
	require.NoError(t, err)
	assert.InDelta(t, 7.0, v, 1e-12, "value re-materialized from substituted argument")

	_, registered := g.StochasticNodes()["st/z"]
	assert.True(t, registered, "clone registered in the random-variable registry")
}

func TestBuildReplaceItself(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	qx := mustConst(t, g, 4.0, "qx")

	// Default: the target itself is opted out of direct substitution.
	built, err := Build(x, SubstitutionMap{x: qx}, &BuildConfig{Scope: "self"})
	require.NoError(t, err)
	assert.Equal(t, "self/x:0", built.Name())

	// ReplaceItself applies the map to the target too.
	built, err = Build(x, SubstitutionMap{x: qx}, &BuildConfig{Scope: "self2", ReplaceItself: true})
	require.NoError(t, err)
	assert.Same(t, qx, built)
}

func TestBuildRejectsUnsupportedKind(t *testing.T) {
	g := NewGraph(nil)
	before := len(g.nodes)

	_, err := Build(&fakeNode{g: g}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.Equal(t, before, len(g.nodes), "a rejected build must register no nodes")

	_, err = Build(nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestBuildRejectsKindMismatchedSubstitution(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	y := mustConst(t, g, 3.0, "y")
	z, err := Mul(x, y, "z")
	require.NoError(t, err)

	before := len(g.nodes)
	_, err = Build(z, SubstitutionMap{x: y.Op()}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind mismatch")
	assert.Equal(t, before, len(g.nodes), "rejected before any cloning")
}

func TestBuildCollectionFidelity(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	g.AddToCollection("A", x)
	g.AddToCollection("B", x)
	other := mustConst(t, g, 1.0, "other")
	g.AddToCollection("C", other)

	built, err := Build(x, nil, &BuildConfig{Scope: "coll"})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, g.CollectionsOf(built),
		"clone belongs to exactly the original's collections")
}

func TestBuildControlDepsAndOriginalOp(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	dep := mustConst(t, g, 0.0, "dep")
	base := mustConst(t, g, 1.0, "base")

	op, err := g.NewOperation(&OperationConfig{
		Name:        "guarded",
		Type:        OpNeg,
		Inputs:      []*Tensor{x},
		ControlDeps: []*Operation{dep.Op()},
		OriginalOp:  base.Op(),
		Attrs:       AttrMap{"note": "keep"},
	})
	require.NoError(t, err)

	built, err := Build(op, nil, &BuildConfig{Scope: "ctl"})
	require.NoError(t, err)
	clone := built.(*Operation)

	assert.Equal(t, "ctl/guarded", clone.Name())
	require.Len(t, clone.ControlDeps(), 1)
	assert.Equal(t, "ctl/dep", clone.ControlDeps()[0].Name())
	require.NotNil(t, clone.OriginalOp())
	assert.Equal(t, "ctl/base", clone.OriginalOp().Name())
	assert.Equal(t, "keep", clone.Attrs()["note"])

	// Deep copy: mutating the clone's attrs leaves the original alone.
	clone.Attrs()["note"] = "changed"
	assert.Equal(t, "keep", op.Attrs()["note"])
}

func TestBuildAppliesDevicePlacement(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	y := mustConst(t, g, 3.0, "y")
	z, err := Mul(x, y, "z")
	require.NoError(t, err)

	g.PushDevice("device:GPU:0")
	defer g.PopDevice()

	built, err := Build(z, nil, &BuildConfig{Scope: "dev"})
	require.NoError(t, err)
	assert.Equal(t, "device:GPU:0", built.(*Tensor).Op().Device())
	assert.Equal(t, "", z.Op().Device(), "original placement untouched")
}

func TestBuildNoRollbackOnFailure(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 1.0, "x")
	pair, err := Const(g, array.Vector(1, 2), "pair")
	require.NoError(t, err)
	loc, err := Mul(x, pair, "locop")
	require.NoError(t, err)
	_, err = NewStochasticNode(g, &StochasticConfig{
		Name:   "z",
		Family: pointFamily{},
		Params: map[string]any{"value": loc},
	})
	require.NoError(t, err)
	z := g.StochasticNodes()["z"]

	triple, err := Const(g, array.Vector(1, 2, 3), "triple")
	require.NoError(t, err)

	// Swapping pair (length 2) for triple (length 3) makes the clone's
	// re-materialization fail after locop was already rebuilt.
	_, err = Build(z, SubstitutionMap{pair: triple}, &BuildConfig{Scope: "fail"})
	require.Error(t, err)

	_, registered := g.NodeByName("fail/locop")
	assert.True(t, registered, "nodes registered before the failure stay registered")
}

func TestBuildMemoizationSpansCalls(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 2.0, "x")
	y := mustConst(t, g, 3.0, "y")
	z, err := Mul(x, y, "z")
	require.NoError(t, err)

	cfg := &BuildConfig{Scope: "span"}
	builtX, err := Build(x, nil, cfg)
	require.NoError(t, err)
	builtZ, err := Build(z, nil, cfg)
	require.NoError(t, err)

	assert.Same(t, builtX, builtZ.(*Tensor).Op().Inputs()[0],
		"the memoization store reads the live graph across Build calls")
}
