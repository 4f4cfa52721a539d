// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"fmt"

	"github.com/grailbio/gradual/types"
)

var numberType = types.Union(types.Integer, types.Float)

// inferBinop synthesizes the type of a binary operation.
func (c *checker) inferBinop(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	switch e.Op {
	case "+", "-", "*":
		return c.arith(vs, e, false)
	case "/":
		_, _, vs, cs, err := c.operands(vs, e, numberType)
		if err != nil {
			return nil, nil, nil, err
		}
		return types.Float, vs, cs, nil
	case "div", "rem", "band", "bor", "bxor", "bsl", "bsr":
		return c.arith(vs, e, true)
	case "==", "/=", "=<", "<", ">", ">=", "=:=", "=/=":
		_, vs, cs1, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		_, vs, cs2, err := c.infer(vs, e.Right)
		if err != nil {
			return nil, nil, nil, err
		}
		return types.Bool, vs, types.Combine(cs1, cs2), nil
	case "and", "or", "xor":
		_, _, vs, cs, err := c.operands(vs, e, types.Bool)
		if err != nil {
			return nil, nil, nil, err
		}
		return types.Bool, vs, cs, nil
	case "andalso", "orelse":
		vs, cs1, err := c.checkAgainst(vs, types.Bool, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		right, vs, cs2, err := c.infer(vs, e.Right)
		if err != nil {
			return nil, nil, nil, err
		}
		// The left operand short-circuits to its own value.
		short := types.False
		if e.Op == "orelse" {
			short = types.True
		}
		return types.Normalize(c.env, types.Union(right, short)), vs, types.Combine(cs1, cs2), nil
	case "++":
		return c.inferAppend(vs, e)
	case "--":
		listAny := types.Normalize(c.env, types.List(types.Any))
		left, _, vs, cs, err := c.operands(vs, e, listAny)
		if err != nil {
			return nil, nil, nil, err
		}
		// Removal can empty the list but never adds elements.
		if left.IsList() {
			left = types.Normalize(c.env, types.List(left.Elem))
		}
		return left, vs, cs, nil
	case "!":
		_, vs, cs1, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		right, vs, cs2, err := c.infer(vs, e.Right)
		if err != nil {
			return nil, nil, nil, err
		}
		return right, vs, types.Combine(cs1, cs2), nil
	}
	panic(fmt.Sprintf("invalid binary operator %q", e.Op))
}

// operands checks both operands of e against want and returns their
// inferred types.
func (c *checker) operands(vs venv, e *Expr, want *types.T) (left, right *types.T, _ venv, _ types.Constraints, _ error) {
	wantN := types.Normalize(c.env, want)
	left, vs, cs1, err := c.infer(vs, e.Left)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if _, ok := types.Subtype(c.env, left, wantN); !ok {
		return nil, nil, nil, nil, c.mismatch(e.Left, left, wantN)
	}
	right, vs, cs2, err := c.infer(vs, e.Right)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if _, ok := types.Subtype(c.env, right, wantN); !ok {
		return nil, nil, nil, nil, c.mismatch(e.Right, right, wantN)
	}
	return left, right, vs, types.Combine(cs1, cs2), nil
}

// arith types an arithmetic operator, folding literal operands.
// Integer-only operators reject floats; the mixed operators produce
// float() as soon as either side may be a float.
func (c *checker) arith(vs venv, e *Expr, intOnly bool) (*types.T, venv, types.Constraints, error) {
	want := numberType
	if intOnly {
		want = types.Integer
	}
	left, right, vs, cs, err := c.operands(vs, e, want)
	if err != nil {
		return nil, nil, nil, err
	}
	if lv, ok := arithLit(left); ok {
		if rv, ok := arithLit(right); ok {
			if v, ok := foldArith(e.Op, lv, rv); ok {
				return types.IntLit(v), vs, cs, nil
			}
		}
	}
	switch {
	case intOnly:
		return types.Integer, vs, cs, nil
	case left.Kind == types.FloatKind || right.Kind == types.FloatKind:
		return types.Float, vs, cs, nil
	case left.IsInt() && right.IsInt():
		return types.Integer, vs, cs, nil
	}
	return types.Normalize(c.env, numberType), vs, cs, nil
}

func arithLit(t *types.T) (int64, bool) {
	if t.Kind == types.IntLitKind {
		return t.Val, true
	}
	return 0, false
}

// foldArith evaluates an arithmetic operator on integer literals.
func foldArith(op string, a, b int64) (int64, bool) {
	switch op {
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "*":
		return a * b, true
	case "div":
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case "rem":
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case "band":
		return a & b, true
	case "bor":
		return a | b, true
	case "bxor":
		return a ^ b, true
	case "bsl":
		if b < 0 || b > 62 {
			return 0, false
		}
		return a << uint(b), true
	case "bsr":
		if b < 0 {
			return 0, false
		}
		if b > 62 {
			b = 62
		}
		return a >> uint(b), true
	}
	return 0, false
}

// inferAppend types list concatenation.
func (c *checker) inferAppend(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	listAny := types.Normalize(c.env, types.List(types.Any))
	left, vs, cs1, err := c.infer(vs, e.Left)
	if err != nil {
		return nil, nil, nil, err
	}
	if _, ok := types.Subtype(c.env, left, listAny); !ok {
		return nil, nil, nil, c.mismatch(e.Left, left, listAny)
	}
	right, vs, cs2, err := c.infer(vs, e.Right)
	if err != nil {
		return nil, nil, nil, err
	}
	cs := types.Combine(cs1, cs2)
	if !left.IsList() || !right.IsList() {
		return types.Any, vs, cs, nil
	}
	elems := []*types.T{}
	if left.Empty != types.EmptyList {
		elems = append(elems, left.Elem)
	}
	if right.Empty != types.EmptyList {
		elems = append(elems, right.Elem)
	}
	if len(elems) == 0 {
		return types.Nil, vs, cs, nil
	}
	empty := types.MaybeEmpty
	if left.Empty == types.Nonempty || right.Empty == types.Nonempty {
		empty = types.Nonempty
	}
	return types.Normalize(c.env, types.ImproperList(empty, types.Union(elems...), right.Tail)), vs, cs, nil
}

// inferUnop synthesizes the type of a unary operation.
func (c *checker) inferUnop(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	switch e.Op {
	case "-", "+":
		t, vs, cs, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		wantN := types.Normalize(c.env, numberType)
		if _, ok := types.Subtype(c.env, t, wantN); !ok {
			return nil, nil, nil, c.mismatch(e.Left, t, wantN)
		}
		if v, ok := arithLit(t); ok {
			if e.Op == "-" {
				v = -v
			}
			return types.IntLit(v), vs, cs, nil
		}
		switch {
		case t.Kind == types.FloatKind:
			return types.Float, vs, cs, nil
		case t.IsInt():
			return types.Integer, vs, cs, nil
		}
		return wantN, vs, cs, nil
	case "not":
		vs, cs, err := c.checkAgainst(vs, types.Bool, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		return types.Bool, vs, cs, nil
	case "bnot":
		t, vs, cs, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		if _, ok := types.Subtype(c.env, t, types.Integer); !ok {
			return nil, nil, nil, c.mismatch(e.Left, t, types.Integer)
		}
		if v, ok := arithLit(t); ok {
			return types.IntLit(^v), vs, cs, nil
		}
		return types.Integer, vs, cs, nil
	}
	panic(fmt.Sprintf("invalid unary operator %q", e.Op))
}
