package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/graft/internal/array"
)

func TestLogSumExpAllAxes(t *testing.T) {
	// LSE([0, 0]) = log 2.
	out, err := LogSumExp(array.Vector(0, 0), AllAxes, false)
	require.NoError(t, err)
	v, err := out.Item()
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2), v, 1e-12)

	// Large values do not overflow thanks to the max shift.
	out, err = LogSumExp(array.Vector(1000, 1000), AllAxes, false)
	require.NoError(t, err)
	v, err = out.Item()
	require.NoError(t, err)
	assert.InDelta(t, 1000+math.Log(2), v, 1e-9)
}

func TestLogSumExpAxis(t *testing.T) {
	x, err := array.FromSlice([]float64{1, 2, 3, 4}, array.Shape{2, 2})
	require.NoError(t, err)

	out, err := LogSumExp(x, 1, false)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(array.Shape{2}))
	assert.InDelta(t, math.Log(math.Exp(1)+math.Exp(2)), out.At(0), 1e-12)
	assert.InDelta(t, math.Log(math.Exp(3)+math.Exp(4)), out.At(1), 1e-12)

	out, err = LogSumExp(x, 0, false)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(array.Shape{2}))
	assert.InDelta(t, math.Log(math.Exp(1)+math.Exp(3)), out.At(0), 1e-12)
	assert.InDelta(t, math.Log(math.Exp(2)+math.Exp(4)), out.At(1), 1e-12)
}

func TestLogSumExpKeepDims(t *testing.T) {
	x, err := array.FromSlice([]float64{1, 2, 3, 4}, array.Shape{2, 2})
	require.NoError(t, err)

	out, err := LogSumExp(x, 1, true)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(array.Shape{2, 1}))

	out, err = LogSumExp(x, AllAxes, true)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(array.Shape{1, 1}))
}

func TestLogSumExpBadInputs(t *testing.T) {
	x, err := array.FromSlice([]float64{1, 2, 3, 4}, array.Shape{2, 2})
	require.NoError(t, err)

	_, err = LogSumExp(x, 2, false)
	assert.ErrorIs(t, err, ErrInvalidDomain, "axis out of range")

	_, err = LogSumExp(array.Scalar(math.NaN()), AllAxes, false)
	assert.ErrorIs(t, err, ErrInvalidDomain)
}

func TestLogMeanExp(t *testing.T) {
	// LME of a constant array is the constant.
	out, err := LogMeanExp(array.Vector(3, 3, 3), AllAxes, false)
	require.NoError(t, err)
	v, err := out.Item()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-12)

	// LME = LSE - log n.
	x := array.Vector(1, 2, 5)
	lse, err := LogSumExp(x, AllAxes, false)
	require.NoError(t, err)
	lme, err := LogMeanExp(x, AllAxes, false)
	require.NoError(t, err)
	sv, err := lse.Item()
	require.NoError(t, err)
	mv, err := lme.Item()
	require.NoError(t, err)
	assert.InDelta(t, sv-math.Log(3), mv, 1e-12)
}

func TestLogMeanExpAxis(t *testing.T) {
	x, err := array.FromSlice([]float64{0, 0, 2, 2}, array.Shape{2, 2})
	require.NoError(t, err)

	out, err := LogMeanExp(x, 1, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out.At(0), 1e-12)
	assert.InDelta(t, 2.0, out.At(1), 1e-12)
}
