// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"github.com/grailbio/gradual/types"
)

// checkAgainst checks e against the expected type want, which must be
// normalized. Structural expressions have the expectation pushed into
// their parts; everything else is inferred and tested for consistent
// subtyping.
func (c *checker) checkAgainst(vs venv, want *types.T, e *Expr) (venv, types.Constraints, error) {
	if structural(e) {
		want = types.Unfold(c.env, want)
	}
	switch want.Kind {
	case types.AnyKind, types.TopKind:
		_, vs, cs, err := c.infer(vs, e)
		return vs, cs, err
	case types.UnionKind:
		if structural(e) {
			return c.againstUnion(vs, want, e)
		}
	}
	switch e.Kind {
	case ExprTuple:
		if want.Kind == types.TupleKind && !want.Wild && len(want.Elems) == len(e.List) {
			var all types.Constraints
			for i, sub := range e.List {
				nvs, cs, err := c.checkAgainst(vs, want.Elems[i], sub)
				if err != nil {
					return nil, nil, err
				}
				vs = nvs
				all = types.Combine(all, cs)
			}
			return vs, all, nil
		}
	case ExprNil:
		if want.IsList() && want.Empty != types.Nonempty {
			return vs, nil, nil
		}
	case ExprCons:
		if want.IsList() && want.Empty != types.EmptyList {
			vs, cs1, err := c.checkAgainst(vs, want.Elem, e.Left)
			if err != nil {
				return nil, nil, err
			}
			tailW := types.Normalize(c.env, types.ImproperList(types.MaybeEmpty, want.Elem, want.Tail))
			if want.Tail != nil {
				tailW = types.Normalize(c.env, types.Union(tailW, want.Tail))
			}
			vs, cs2, err := c.checkAgainst(vs, tailW, e.Right)
			if err != nil {
				return nil, nil, err
			}
			return vs, types.Combine(cs1, cs2), nil
		}
	case ExprCase:
		subj, vs, cs1, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, err
		}
		_, cs2, err := c.clauses(vs, e.Clauses, []*types.T{subj}, want, captureVars)
		if err != nil {
			return nil, nil, err
		}
		return vs, types.Combine(cs1, cs2), nil
	case ExprIf:
		var all types.Constraints
		for _, clause := range e.Clauses {
			cvs, cs, err := c.checkGuards(vs, clause)
			if err != nil {
				return nil, nil, err
			}
			_, cs2, err := c.seqAgainst(cvs, want, clause.Body)
			if err != nil {
				return nil, nil, err
			}
			all = types.Combine(all, cs, cs2)
		}
		return vs, all, nil
	case ExprBlock:
		nvs, cs, err := c.seqAgainst(vs, want, e.Body)
		if err != nil {
			return nil, nil, err
		}
		return nvs, cs, nil
	case ExprFun:
		if want.Kind == types.FunKind && !want.Wild && len(want.Elems) == len(e.Clauses[0].Pats) {
			result := types.Any
			if want.Result != nil {
				result = want.Result
			}
			_, cs, err := c.clauses(vs, e.Clauses, want.Elems, result, bindVars)
			if err != nil {
				return nil, nil, err
			}
			return vs, cs, nil
		}
	case ExprMatch:
		nvs, cs1, err := c.checkAgainst(vs, want, e.Right)
		if err != nil {
			return nil, nil, err
		}
		nvs, _, cs2, err := c.checkPats(nvs, captureVars, []*Expr{e.Left}, []*types.T{want})
		if err != nil {
			return nil, nil, err
		}
		return nvs, types.Combine(cs1, cs2), nil
	}
	t, vs, cs, err := c.infer(vs, e)
	if err != nil {
		return nil, nil, err
	}
	cs2, ok := types.Subtype(c.env, t, want)
	if !ok {
		return nil, nil, c.mismatch(e, t, want)
	}
	return vs, types.Combine(cs, cs2), nil
}

// structural tells whether pushing an expected union into e member by
// member can succeed where whole-type subtyping would not.
func structural(e *Expr) bool {
	switch e.Kind {
	case ExprTuple, ExprNil, ExprCons, ExprFun:
		return true
	}
	return false
}

// againstUnion checks e against each member of a union expectation,
// accepting the first that fits.
func (c *checker) againstUnion(vs venv, want *types.T, e *Expr) (venv, types.Constraints, error) {
	var first error
	for _, member := range want.Elems {
		nvs, cs, err := c.checkAgainst(vs, member, e)
		if err == nil {
			return nvs, cs, nil
		}
		if first == nil {
			first = err
		}
	}
	return nil, nil, first
}
