package graph

import (
	"fmt"

	"github.com/graft-ml/graft/internal/array"
)

// Feeds supplies placeholder values for one evaluation.
type Feeds map[*Placeholder]*array.NDArray

// Eval computes a tensor's value by depth-first recursion over its
// producing operations. Results are memoized per call, so shared
// dependencies are computed once. Returned arrays are owned by the
// graph or the memo and must not be mutated by the caller.
func (g *Graph) Eval(t *Tensor, feeds Feeds) (*array.NDArray, error) {
	if t == nil {
		return nil, fmt.Errorf("Eval: tensor is nil")
	}
	memo := make(map[*Tensor]*array.NDArray)
	return g.eval(t, feeds, memo)
}

func (g *Graph) eval(t *Tensor, feeds Feeds, memo map[*Tensor]*array.NDArray) (*array.NDArray, error) {
	if val, ok := memo[t]; ok {
		return val, nil
	}

	op := t.Op()
	val, err := g.evalOp(op, t.Index(), feeds, memo)
	if err != nil {
		return nil, err
	}
	memo[t] = val
	return val, nil
}

func (g *Graph) evalOp(op *Operation, index int, feeds Feeds, memo map[*Tensor]*array.NDArray) (*array.NDArray, error) {
	switch op.Type() {
	case OpConst, OpSample:
		val, ok := op.Attrs()[attrValue].(*array.NDArray)
		if !ok {
			return nil, fmt.Errorf("Eval: %s op %q has no value attribute", op.Type(), op.Name())
		}
		return val, nil

	case OpVariable:
		v, ok := g.variables[op.Name()]
		if !ok {
			return nil, fmt.Errorf("Eval: operation %q is not in the variable registry", op.Name())
		}
		return v.Value(), nil

	case OpPlaceholder:
		p, ok := g.placeholders[op.Name()]
		if !ok {
			return nil, fmt.Errorf("Eval: operation %q is not in the placeholder registry", op.Name())
		}
		fed, ok := feeds[p]
		if !ok {
			return nil, fmt.Errorf("Eval: placeholder %q was not fed", p.Name())
		}
		if !fed.Shape().Equal(p.Shape()) {
			return nil, fmt.Errorf("Eval: feed for %q has shape %v, want %v",
				p.Name(), fed.Shape(), p.Shape())
		}
		return fed, nil

	case OpAdd, OpSub, OpMul, OpDiv, OpMatMul:
		x, y, err := g.evalInputs2(op, feeds, memo)
		if err != nil {
			return nil, err
		}
		switch op.Type() {
		case OpAdd:
			return array.Add(x, y)
		case OpSub:
			return array.Sub(x, y)
		case OpMul:
			return array.Mul(x, y)
		case OpDiv:
			return array.Div(x, y)
		default:
			return array.MatMul(x, y)
		}

	case OpNeg, OpExp, OpLog, OpSigmoid:
		if len(op.Inputs()) != 1 {
			return nil, fmt.Errorf("Eval: %s op %q has %d inputs, want 1",
				op.Type(), op.Name(), len(op.Inputs()))
		}
		x, err := g.eval(op.Inputs()[0], feeds, memo)
		if err != nil {
			return nil, err
		}
		switch op.Type() {
		case OpNeg:
			return array.Neg(x), nil
		case OpExp:
			return array.Exp(x), nil
		case OpLog:
			return array.Log(x), nil
		default:
			return array.Sigmoid(x), nil
		}

	default:
		return nil, fmt.Errorf("Eval: unsupported op type %q (op %q)", op.Type(), op.Name())
	}
}

func (g *Graph) evalInputs2(op *Operation, feeds Feeds, memo map[*Tensor]*array.NDArray) (*array.NDArray, *array.NDArray, error) {
	if len(op.Inputs()) != 2 {
		return nil, nil, fmt.Errorf("Eval: %s op %q has %d inputs, want 2",
			op.Type(), op.Name(), len(op.Inputs()))
	}
	x, err := g.eval(op.Inputs()[0], feeds, memo)
	if err != nil {
		return nil, nil, err
	}
	y, err := g.eval(op.Inputs()[1], feeds, memo)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
