package graph

import (
	"fmt"

	"github.com/graft-ml/graft/internal/array"
)

// Op-type identifiers understood by the evaluator.
const (
	OpConst       = "Const"
	OpVariable    = "Variable"
	OpPlaceholder = "Placeholder"
	OpSample      = "Sample"
	OpAdd         = "Add"
	OpSub         = "Sub"
	OpMul         = "Mul"
	OpDiv         = "Div"
	OpNeg         = "Neg"
	OpExp         = "Exp"
	OpLog         = "Log"
	OpSigmoid     = "Sigmoid"
	OpMatMul      = "MatMul"
)

// attrValue is the attribute key holding the payload of Const and
// Sample operations.
const attrValue = "value"

// Const adds a constant to the graph and returns its output tensor.
// An empty name auto-generates one from "Const".
func Const(g *Graph, value *array.NDArray, name string) (*Tensor, error) {
	if value == nil {
		return nil, fmt.Errorf("Const: value is nil")
	}
	op, err := g.NewOperation(&OperationConfig{
		Name:  name,
		Type:  OpConst,
		Attrs: AttrMap{attrValue: value.Clone()},
	})
	if err != nil {
		return nil, err
	}
	op.Output(0).SetShape(value.Shape().Clone())
	return op.Output(0), nil
}

// binary adds an element-wise binary operation with broadcast shape
// inference.
func binary(opType string, x, y *Tensor, name string) (*Tensor, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("%s: input tensor is nil", opType)
	}
	g := x.Graph()
	op, err := g.NewOperation(&OperationConfig{
		Name:   name,
		Type:   opType,
		Inputs: []*Tensor{x, y},
	})
	if err != nil {
		return nil, err
	}
	if x.Shape() != nil && y.Shape() != nil {
		if shape, err := array.Broadcast(x.Shape(), y.Shape()); err == nil {
			op.Output(0).SetShape(shape)
		}
	}
	return op.Output(0), nil
}

// Add returns x + y element-wise with broadcasting.
func Add(x, y *Tensor, name string) (*Tensor, error) { return binary(OpAdd, x, y, name) }

// Sub returns x - y element-wise with broadcasting.
func Sub(x, y *Tensor, name string) (*Tensor, error) { return binary(OpSub, x, y, name) }

// Mul returns x * y element-wise with broadcasting.
func Mul(x, y *Tensor, name string) (*Tensor, error) { return binary(OpMul, x, y, name) }

// Div returns x / y element-wise with broadcasting.
func Div(x, y *Tensor, name string) (*Tensor, error) { return binary(OpDiv, x, y, name) }

// unary adds an element-wise unary operation preserving the shape.
func unary(opType string, x *Tensor, name string) (*Tensor, error) {
	if x == nil {
		return nil, fmt.Errorf("%s: input tensor is nil", opType)
	}
	op, err := x.Graph().NewOperation(&OperationConfig{
		Name:   name,
		Type:   opType,
		Inputs: []*Tensor{x},
	})
	if err != nil {
		return nil, err
	}
	if x.Shape() != nil {
		op.Output(0).SetShape(x.Shape().Clone())
	}
	return op.Output(0), nil
}

// Neg returns -x element-wise.
func Neg(x *Tensor, name string) (*Tensor, error) { return unary(OpNeg, x, name) }

// Exp returns e**x element-wise.
func Exp(x *Tensor, name string) (*Tensor, error) { return unary(OpExp, x, name) }

// Log returns the natural logarithm element-wise.
func Log(x *Tensor, name string) (*Tensor, error) { return unary(OpLog, x, name) }

// Sigmoid returns 1/(1+e**-x) element-wise.
func Sigmoid(x *Tensor, name string) (*Tensor, error) { return unary(OpSigmoid, x, name) }

// MatMul multiplies a (M, K) tensor by a (K, N) tensor.
func MatMul(x, y *Tensor, name string) (*Tensor, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("MatMul: input tensor is nil")
	}
	op, err := x.Graph().NewOperation(&OperationConfig{
		Name:   name,
		Type:   OpMatMul,
		Inputs: []*Tensor{x, y},
	})
	if err != nil {
		return nil, err
	}
	if len(x.Shape()) == 2 && len(y.Shape()) == 2 {
		op.Output(0).SetShape(array.Shape{x.Shape()[0], y.Shape()[1]})
	}
	return op.Output(0), nil
}
