// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"fmt"

	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/intrange"
	"github.com/grailbio/gradual/types"
)

// checkGuards type-checks a clause's guard sequence and narrows the
// clause's variable environment by what a passing guard implies.
// Guards is a disjunction of conjunctions; narrowing applies only
// when the disjunction has a single arm, since alternatives weaken
// what a pass guarantees.
func (c *checker) checkGuards(vs venv, clause *Clause) (venv, types.Constraints, error) {
	var all types.Constraints
	for _, conj := range clause.Guards {
		for _, g := range conj {
			t, _, cs, err := c.infer(vs, g)
			if err != nil {
				return nil, nil, err
			}
			all = types.Combine(all, cs)
			if !types.Compatible(c.env, t, types.Bool) {
				return nil, nil, errors.E(errors.TypeMismatch, g.Position,
					fmt.Sprintf("guard %s has type %s but boolean() is expected", g, t))
			}
		}
	}
	for _, ref := range c.guardRefinements(clause) {
		cur, ok := vs[ref.v]
		if !ok {
			continue
		}
		reft := types.Normalize(c.env, ref.t)
		var narrowed *types.T
		if ref.neg {
			narrowed = types.Diff(c.env, cur, reft)
		} else {
			narrowed, _ = types.GLB(c.env, cur, reft)
		}
		if narrowed.Kind != types.NoneKind || cur.Kind == types.NoneKind {
			vs = vs.bind(ref.v, narrowed)
		}
	}
	return vs, all, nil
}

// A refinement records what a single guard implies about one clause
// variable: a passing guard puts the variable's value in t (or out of
// it, when neg is set).
type refinement struct {
	v   string
	t   *types.T
	neg bool
}

// guardRefinements extracts refinements from a clause's guard. Only a
// single-arm guard refines; each conjunct is inspected independently.
func (c *checker) guardRefinements(clause *Clause) []*refinement {
	if len(clause.Guards) != 1 {
		return nil
	}
	var refs []*refinement
	for _, g := range clause.Guards[0] {
		if ref := c.refinementOf(g); ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

// refinementOf recognizes the guard shapes that refine a variable:
// type tests is_TYPE(Var), and comparisons of Var against an atom or
// integer literal.
func (c *checker) refinementOf(g *Expr) *refinement {
	switch g.Kind {
	case ExprCall:
		if g.Left != nil || len(g.List) != 1 {
			return nil
		}
		name, ok := g.Right.atom()
		if !ok {
			return nil
		}
		arg := g.List[0]
		if arg.Kind != ExprVar || arg.wildcard() {
			return nil
		}
		t, ok := guardTests[name]
		if !ok {
			return nil
		}
		return &refinement{v: arg.Ident, t: t}
	case ExprBinop:
		v, lit := g.Left, g.Right
		if v.Kind != ExprVar {
			v, lit = lit, v
		}
		if v.Kind != ExprVar || v.wildcard() {
			return nil
		}
		t := comparisonType(g.Op, lit, g.Left.Kind != ExprVar)
		if t == nil {
			return nil
		}
		neg := g.Op == "/=" || g.Op == "=/="
		return &refinement{v: v.Ident, t: t, neg: neg}
	}
	return nil
}

// comparisonType returns the type of values for which "Var op lit"
// holds. flipped indicates the literal was on the left. Ordering
// comparisons are only refined for integer literals; any float
// compares into every integer interval, so float() joins the range.
func comparisonType(op string, lit *Expr, flipped bool) *types.T {
	switch op {
	case "=:=", "==", "/=", "=/=":
		switch lit.Kind {
		case ExprAtom:
			return types.AtomLit(lit.Ident)
		case ExprInt:
			if op == "==" || op == "/=" {
				// Arithmetic equality also admits the float of equal
				// value.
				return types.Union(types.IntLit(lit.Val), types.Float)
			}
			return types.IntLit(lit.Val)
		case ExprNil:
			return types.Nil
		}
		return nil
	case "<", "=<", ">", ">=":
		if lit.Kind != ExprInt {
			return nil
		}
		if flipped {
			op = flipCompare(op)
		}
		k := lit.Val
		var r intrange.Range
		switch op {
		case "<":
			r = intrange.AtMost(k - 1)
		case "=<":
			r = intrange.AtMost(k)
		case ">":
			r = intrange.AtLeast(k + 1)
		case ">=":
			r = intrange.AtLeast(k)
		}
		return types.Union(types.Range(r), types.Float)
	}
	return nil
}

func flipCompare(op string) string {
	switch op {
	case "<":
		return ">"
	case "=<":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "=<"
	}
	return op
}

// guardTests maps type-test BIFs to the type a passing test implies.
var guardTests = map[string]*types.T{
	"is_atom":      types.Atom,
	"is_boolean":   types.Bool,
	"is_integer":   types.Integer,
	"is_float":     types.Float,
	"is_number":    types.Union(types.Integer, types.Float),
	"is_list":      types.ImproperList(types.MaybeEmpty, types.Any, types.Any),
	"is_tuple":     types.AnyTuple,
	"is_map":       types.AnyMap,
	"is_function":  types.AnyFun,
	"is_binary":    types.Binary,
	"is_bitstring": types.Bitstring,
	"is_pid":       types.Pid,
	"is_port":      types.Port,
	"is_reference": types.Reference,
}
