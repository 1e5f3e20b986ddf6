package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/graft/internal/array"
)

func TestUniqueNameGeneration(t *testing.T) {
	g := NewGraph(nil)

	c1, err := Const(g, array.Scalar(1), "")
	require.NoError(t, err)
	c2, err := Const(g, array.Scalar(2), "")
	require.NoError(t, err)

	assert.Equal(t, "Const", c1.Op().Name())
	assert.Equal(t, "Const_1", c2.Op().Name())

	_, err = Const(g, array.Scalar(3), "Const")
	require.Error(t, err, "explicit duplicate names are rejected")
}

func TestNodeLookup(t *testing.T) {
	g := NewGraph(nil)
	c, err := Const(g, array.Scalar(1), "c")
	require.NoError(t, err)

	op, ok := g.NodeByName("c")
	require.True(t, ok)
	assert.Same(t, c.Op(), op)

	tensor, ok := g.TensorByName("c:0")
	require.True(t, ok)
	assert.Same(t, c, tensor)

	_, ok = g.NodeByName("missing")
	assert.False(t, ok)
}

func TestCollections(t *testing.T) {
	g := NewGraph(nil)
	a := mustConst(t, g, 1, "a")
	b := mustConst(t, g, 2, "b")

	g.AddToCollection("losses", a)
	g.AddToCollection("summaries", a)
	g.AddToCollection("losses", b)

	assert.Len(t, g.Collection("losses"), 2)
	assert.Equal(t, []string{"losses", "summaries"}, g.CollectionsOf(a))
	assert.Equal(t, []string{"losses"}, g.CollectionsOf(b))
	assert.Empty(t, g.CollectionsOf(mustConst(t, g, 3, "c")))
}

func TestDeviceStack(t *testing.T) {
	g := NewGraph(nil)
	assert.Equal(t, "", g.CurrentDevicePlacement())

	g.PushDevice("device:CPU:0")
	g.PushDevice("")
	assert.Equal(t, "device:CPU:0", g.CurrentDevicePlacement(),
		"innermost non-empty placement wins")

	g.PushDevice("device:GPU:1")
	placed := mustConst(t, g, 1, "placed")
	assert.Equal(t, "device:GPU:1", placed.Op().Device())

	g.PopDevice()
	g.PopDevice()
	g.PopDevice()
	assert.Equal(t, "", g.CurrentDevicePlacement())
	g.PopDevice() // popping an empty stack is a no-op
}

func TestControlDependencyRecord(t *testing.T) {
	g := NewGraph(nil)
	a := mustConst(t, g, 1, "a")
	b := mustConst(t, g, 2, "b")

	record := g.ControlDependencyRecord()
	require.Len(t, record, 2)
	assert.Same(t, a.Op(), record[0])
	assert.Same(t, b.Op(), record[1])
}

func TestNewOperationRejectsForeignInputs(t *testing.T) {
	g1 := NewGraph(nil)
	g2 := NewGraph(nil)
	foreign := mustConst(t, g2, 1, "x")

	_, err := g1.NewOperation(&OperationConfig{
		Type:   OpNeg,
		Inputs: []*Tensor{foreign},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different graph")
}

func TestEvalArithmetic(t *testing.T) {
	g := NewGraph(nil)
	x := mustConst(t, g, 10, "x")
	y := mustConst(t, g, 4, "y")

	sum, err := Add(x, y, "")
	require.NoError(t, err)
	diff, err := Sub(x, y, "")
	require.NoError(t, err)
	quot, err := Div(x, y, "")
	require.NoError(t, err)
	neg, err := Neg(x, "")
	require.NoError(t, err)

	for _, tc := range []struct {
		tensor *Tensor
		want   float64
	}{
		{sum, 14},
		{diff, 6},
		{quot, 2.5},
		{neg, -10},
	} {
		val, err := g.Eval(tc.tensor, nil)
		require.NoError(t, err)
		v, err := val.Item()
		require.NoError(t, err)
		assert.InDelta(t, tc.want, v, 1e-12, tc.tensor.Name())
	}
}

func TestEvalVariable(t *testing.T) {
	g := NewGraph(nil)
	v, err := NewVariable(g, "w", array.Vector(1, 2))
	require.NoError(t, err)
	doubled, err := Mul(v.Handle(), mustConst(t, g, 2, "two"), "")
	require.NoError(t, err)

	val, err := g.Eval(doubled, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, val.Data())

	require.NoError(t, v.Assign(array.Vector(5, 6)))
	val, err = g.Eval(doubled, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12}, val.Data(), "evaluation sees the assigned value")

	err = v.Assign(array.Vector(1, 2, 3))
	require.Error(t, err, "assignment must keep the shape")
}

func TestEvalPlaceholder(t *testing.T) {
	g := NewGraph(nil)
	p, err := NewPlaceholder(g, "in", array.Shape{2})
	require.NoError(t, err)
	out, err := Add(p.Handle(), mustConst(t, g, 1, "one"), "")
	require.NoError(t, err)

	val, err := g.Eval(out, Feeds{p: array.Vector(3, 4)})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, val.Data())

	_, err = g.Eval(out, nil)
	require.Error(t, err, "unfed placeholder")

	_, err = g.Eval(out, Feeds{p: array.Vector(1, 2, 3)})
	require.Error(t, err, "feed shape must match the declared shape")
}

func TestEvalMatMul(t *testing.T) {
	g := NewGraph(nil)
	a, err := array.FromSlice([]float64{1, 2, 3, 4}, array.Shape{2, 2})
	require.NoError(t, err)
	b, err := array.FromSlice([]float64{5, 6, 7, 8}, array.Shape{2, 2})
	require.NoError(t, err)

	at, err := Const(g, a, "a")
	require.NoError(t, err)
	bt, err := Const(g, b, "b")
	require.NoError(t, err)
	prod, err := MatMul(at, bt, "")
	require.NoError(t, err)

	val, err := g.Eval(prod, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{19, 22, 43, 50}, val.Data())
}
