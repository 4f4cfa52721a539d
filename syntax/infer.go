// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"fmt"

	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/types"
)

// timeoutType is the type of receive-after timeouts.
var timeoutType = types.Union(types.NonNegInteger, types.AtomLit("infinity"))

// infer synthesizes the type of e, threading variable bindings
// left-to-right. The returned type is normalized.
func (c *checker) infer(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	switch e.Kind {
	case ExprAtom:
		return c.lit(types.AtomLit(e.Ident)), vs, nil, nil
	case ExprInt:
		return c.lit(types.IntLit(e.Val)), vs, nil, nil
	case ExprFloat:
		return c.lit(types.Float), vs, nil, nil
	case ExprString:
		if !c.opts.Infer {
			return types.Any, vs, nil, nil
		}
		if e.Str == "" {
			return types.Nil, vs, nil, nil
		}
		return types.Normalize(c.env, types.NonemptyList(types.Char)), vs, nil, nil
	case ExprVar:
		t, ok := vs[e.Ident]
		if !ok {
			return nil, nil, nil, errors.E(errors.UndefinedReference, e.Position,
				fmt.Sprintf("variable %s is unbound", e.Ident))
		}
		return t, vs, nil, nil
	case ExprNil:
		return types.Nil, vs, nil, nil
	case ExprCons:
		head, vs, cs1, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		tail, vs, cs2, err := c.infer(vs, e.Right)
		if err != nil {
			return nil, nil, nil, err
		}
		return consType(c.env, head, tail), vs, types.Combine(cs1, cs2), nil
	case ExprTuple:
		elems := make([]*types.T, len(e.List))
		var all types.Constraints
		for i, sub := range e.List {
			var (
				cs  types.Constraints
				err error
			)
			elems[i], vs, cs, err = c.infer(vs, sub)
			if err != nil {
				return nil, nil, nil, err
			}
			all = types.Combine(all, cs)
		}
		return types.Normalize(c.env, types.Tuple(elems...)), vs, all, nil
	case ExprBin:
		return c.inferBin(vs, e)
	case ExprMap:
		return c.inferMap(vs, e)
	case ExprRecord:
		return c.inferRecord(vs, e)
	case ExprRecordField:
		return c.inferRecordField(vs, e)
	case ExprRecordIndex:
		idx, err := c.recordIndex(e)
		if err != nil {
			return nil, nil, nil, err
		}
		return c.lit(types.IntLit(idx)), vs, nil, nil
	case ExprCall:
		return c.inferCall(vs, e)
	case ExprFun:
		return c.inferFun(vs, e)
	case ExprFunRef:
		return c.inferFunRef(vs, e)
	case ExprCase:
		subj, vs, cs1, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		t, cs2, err := c.clauses(vs, e.Clauses, []*types.T{subj}, nil, captureVars)
		if err != nil {
			return nil, nil, nil, err
		}
		return t, vs, types.Combine(cs1, cs2), nil
	case ExprIf:
		var (
			results []*types.T
			all     types.Constraints
		)
		for _, clause := range e.Clauses {
			cvs, cs, err := c.checkGuards(vs, clause)
			if err != nil {
				return nil, nil, nil, err
			}
			t, _, cs2, err := c.seq(cvs, clause.Body)
			if err != nil {
				return nil, nil, nil, err
			}
			results = append(results, t)
			all = types.Combine(all, cs, cs2)
		}
		return types.Normalize(c.env, types.Union(results...)), vs, all, nil
	case ExprReceive:
		return c.inferReceive(vs, e)
	case ExprTry:
		return c.inferTry(vs, e)
	case ExprBlock:
		t, vs, cs, err := c.seq(vs, e.Body)
		if err != nil {
			return nil, nil, nil, err
		}
		return t, vs, cs, nil
	case ExprMatch:
		t, vs, cs1, err := c.infer(vs, e.Right)
		if err != nil {
			return nil, nil, nil, err
		}
		vs, _, cs2, err := c.checkPats(vs, captureVars, []*Expr{e.Left}, []*types.T{t})
		if err != nil {
			return nil, nil, nil, err
		}
		return t, vs, types.Combine(cs1, cs2), nil
	case ExprBinop:
		return c.inferBinop(vs, e)
	case ExprUnop:
		return c.inferUnop(vs, e)
	case ExprLC:
		return c.inferLC(vs, e)
	case ExprBC:
		return nil, nil, nil, errors.E(errors.IllegalPattern, e.Position,
			"binary comprehensions are not supported")
	case ExprCatch:
		// catch E evaluates to E's value or to a caught term.
		_, vs, cs, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		return types.Any, vs, cs, nil
	}
	panic(fmt.Sprintf("invalid expression kind %d", e.Kind))
}

// lit widens literal types to any() unless inference is enabled.
func (c *checker) lit(t *types.T) *types.T {
	if !c.opts.Infer {
		return types.Any
	}
	return t
}

// inferBin checks a binary construction and computes its bitstring
// type.
func (c *checker) inferBin(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	var all types.Constraints
	for _, seg := range e.Segs {
		if seg.Size != nil {
			var (
				cs  types.Constraints
				err error
			)
			vs, cs, err = c.checkAgainst(vs, types.Integer, seg.Size)
			if err != nil {
				return nil, nil, nil, err
			}
			all = types.Combine(all, cs)
		}
		want := types.Normalize(c.env, segValueType(seg))
		if seg.Expr.Kind == ExprString && seg.Type != "binary" && seg.Type != "bitstring" {
			// A string literal stands for its character codes.
			continue
		}
		var (
			cs  types.Constraints
			err error
		)
		vs, cs, err = c.checkAgainst(vs, want, seg.Expr)
		if err != nil {
			return nil, nil, nil, err
		}
		all = types.Combine(all, cs)
	}
	return types.Normalize(c.env, binType(e)), vs, all, nil
}

// inferMap checks a map construction or update.
func (c *checker) inferMap(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	var (
		assocs []*types.Assoc
		all    types.Constraints
	)
	if e.Left != nil {
		base, nvs, cs, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		vs, all = nvs, cs
		if !types.Compatible(c.env, base, types.AnyMap) {
			return nil, nil, nil, c.mismatch(e.Left, base, types.AnyMap)
		}
		if base.Kind == types.MapKind {
			assocs = append(assocs, base.Assocs...)
		} else {
			assocs = append(assocs, &types.Assoc{Key: types.Any, Val: types.Any})
		}
	}
	for _, a := range e.Assocs {
		key, ok := groundKey(a.Key)
		if !ok {
			var (
				cs  types.Constraints
				err error
			)
			key, vs, cs, err = c.infer(vs, a.Key)
			if err != nil {
				return nil, nil, nil, err
			}
			all = types.Combine(all, cs)
		}
		key = types.Normalize(c.env, key)
		if a.Exact && e.Left != nil && !mapHasKey(c.env, assocs, key) {
			return nil, nil, nil, errors.E(errors.TypeMismatch, a.Key.Position,
				fmt.Sprintf("update of missing key %s", a.Key))
		}
		val, nvs, cs, err := c.infer(vs, a.Val)
		if err != nil {
			return nil, nil, nil, err
		}
		vs = nvs
		all = types.Combine(all, cs)
		assocs = replaceAssoc(assocs, &types.Assoc{Mandatory: ok, Key: key, Val: val})
	}
	return types.Normalize(c.env, types.Map(assocs...)), vs, all, nil
}

// mapHasKey reports whether some association admits key.
func mapHasKey(env *types.Env, assocs []*types.Assoc, key *types.T) bool {
	for _, a := range assocs {
		if types.Compatible(env, key, types.Normalize(env, a.Key)) {
			return true
		}
	}
	return false
}

// replaceAssoc adds an association, replacing an existing one with an
// identical key.
func replaceAssoc(assocs []*types.Assoc, a *types.Assoc) []*types.Assoc {
	for i, old := range assocs {
		if old.Key.Equal(a.Key) {
			out := make([]*types.Assoc, len(assocs))
			copy(out, assocs)
			out[i] = a
			return out
		}
	}
	return append(assocs, a)
}

// inferRecord checks a record construction or update.
func (c *checker) inferRecord(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	decl := c.m.Record(e.Name)
	if decl == nil {
		return nil, nil, nil, errors.E(errors.UndefinedReference, e.Position,
			fmt.Sprintf("record #%s is undefined", e.Name))
	}
	rec := types.Normalize(c.env, types.Record(e.Name))
	var all types.Constraints
	if e.Left != nil {
		base, nvs, cs, err := c.infer(vs, e.Left)
		if err != nil {
			return nil, nil, nil, err
		}
		vs = nvs
		all = types.Combine(all, cs)
		if !types.Compatible(c.env, base, rec) {
			return nil, nil, nil, c.mismatch(e.Left, base, rec)
		}
	}
	for _, f := range e.Fields {
		fields := []*RecordField{decl.Field(f.Name)}
		if f.Name == "_" {
			fields = unnamedFields(decl, e.Fields)
		} else if fields[0] == nil {
			return nil, nil, nil, errors.E(errors.UndefinedReference, f.Expr.Position,
				fmt.Sprintf("record #%s has no field %s", e.Name, f.Name))
		}
		for _, df := range fields {
			want := types.Any
			if df.Type != nil {
				var err error
				want, err = c.normalize(df.Type)
				if err != nil {
					return nil, nil, nil, err
				}
			}
			nvs, cs, err := c.checkAgainst(vs, want, f.Expr)
			if err != nil {
				return nil, nil, nil, err
			}
			vs = nvs
			all = types.Combine(all, cs)
		}
	}
	return rec, vs, all, nil
}

// inferRecordField checks a field access Base#name.field.
func (c *checker) inferRecordField(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	decl := c.m.Record(e.Name)
	if decl == nil {
		return nil, nil, nil, errors.E(errors.UndefinedReference, e.Position,
			fmt.Sprintf("record #%s is undefined", e.Name))
	}
	df := decl.Field(e.Field)
	if df == nil {
		return nil, nil, nil, errors.E(errors.UndefinedReference, e.Position,
			fmt.Sprintf("record #%s has no field %s", e.Name, e.Field))
	}
	rec := types.Normalize(c.env, types.Record(e.Name))
	base, vs, cs, err := c.infer(vs, e.Left)
	if err != nil {
		return nil, nil, nil, err
	}
	if !types.Compatible(c.env, base, rec) {
		return nil, nil, nil, c.mismatch(e.Left, base, rec)
	}
	// Prefer a refinement carried by the base type.
	if base.Kind == types.RecordKind && base.Name == e.Name {
		for _, rf := range base.Fields {
			if rf.Name == e.Field {
				return rf.T, vs, cs, nil
			}
		}
	}
	if df.Type == nil {
		return types.Any, vs, cs, nil
	}
	t, err := c.normalize(df.Type)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, vs, cs, nil
}

// inferFun checks a fun expression. Unannotated parameters type as
// any(); the fun's result is the union of its clause bodies.
func (c *checker) inferFun(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	arity := len(e.Clauses[0].Pats)
	args := make([]*types.T, arity)
	for i := range args {
		args[i] = types.Any
	}
	result, cs, err := c.clauses(vs, e.Clauses, args, nil, bindVars)
	if err != nil {
		return nil, nil, nil, err
	}
	return types.Normalize(c.env, types.Fun(args, result)), vs, cs, nil
}

// inferFunRef types a fun reference fun f/N or fun m:f/N.
func (c *checker) inferFunRef(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	arity, arityOK := constIntExpr(e.Arity)
	if e.Left != nil {
		mod, modOK := e.Left.atom()
		name, nameOK := e.Right.atom()
		if !modOK || !nameOK || !arityOK {
			// Dynamic module, name, or arity.
			return types.Normalize(c.env, types.AnyFun), vs, nil, nil
		}
		specs, err := c.remoteSpec(e.Position, mod, name, int(arity))
		if err != nil {
			return nil, nil, nil, err
		}
		return c.funRefType(specs, int(arity)), vs, nil, nil
	}
	name, _ := e.Right.atom()
	if !arityOK {
		return types.Normalize(c.env, types.AnyFun), vs, nil, nil
	}
	specs, err := c.localSpec(e.Position, name, int(arity))
	if err != nil {
		return nil, nil, nil, err
	}
	return c.funRefType(specs, int(arity)), vs, nil, nil
}

// funRefType converts a spec candidate list to a single fun type: a
// one-clause spec types precisely, anything else falls back to the
// arity's wildcard.
func (c *checker) funRefType(specs []*types.T, arity int) *types.T {
	if len(specs) == 1 {
		if n, err := c.specFunType(specs[0]); err == nil && !n.Wild {
			return n
		}
	}
	args := make([]*types.T, arity)
	for i := range args {
		args[i] = types.Any
	}
	return types.Normalize(c.env, types.Fun(args, types.Any))
}

// inferReceive checks a receive expression. Message patterns match
// arbitrary terms.
func (c *checker) inferReceive(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	var (
		results []*types.T
		all     types.Constraints
	)
	if len(e.Clauses) > 0 {
		t, cs, err := c.clauses(vs, e.Clauses, []*types.T{types.Any}, nil, captureVars)
		if err != nil {
			return nil, nil, nil, err
		}
		results = append(results, t)
		all = types.Combine(all, cs)
	}
	if e.After != nil {
		nvs, cs, err := c.checkAgainst(vs, types.Normalize(c.env, timeoutType), e.After.Timeout)
		if err != nil {
			return nil, nil, nil, err
		}
		all = types.Combine(all, cs)
		t, _, cs2, err := c.seq(nvs, e.After.Body)
		if err != nil {
			return nil, nil, nil, err
		}
		results = append(results, t)
		all = types.Combine(all, cs2)
	}
	return types.Normalize(c.env, types.Union(results...)), vs, all, nil
}

// exceptionClass is the type of try-catch class patterns.
var exceptionClass = types.Union(
	types.AtomLit("throw"), types.AtomLit("error"), types.AtomLit("exit"))

// inferTry checks a try expression.
func (c *checker) inferTry(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	bodyT, bvs, all, err := c.seq(vs, e.Body)
	if err != nil {
		return nil, nil, nil, err
	}
	var results []*types.T
	if len(e.Clauses) > 0 {
		t, cs, err := c.clauses(bvs, e.Clauses, []*types.T{bodyT}, nil, captureVars)
		if err != nil {
			return nil, nil, nil, err
		}
		results = append(results, t)
		all = types.Combine(all, cs)
	} else {
		results = append(results, bodyT)
	}
	for _, clause := range e.Catches {
		cvs := vs
		pats := []*Expr{clause.Pats[0]}
		wants := []*types.T{types.Any}
		if clause.Class != nil {
			pats = append([]*Expr{clause.Class}, pats...)
			wants = append([]*types.T{types.Normalize(c.env, exceptionClass)}, wants...)
		}
		if clause.Stack != nil {
			pats = append(pats, clause.Stack)
			wants = append(wants, types.Normalize(c.env, types.List(types.Any)))
		}
		cvs, _, cs, err := c.checkPats(cvs, captureVars, pats, wants)
		if err != nil {
			return nil, nil, nil, err
		}
		all = types.Combine(all, cs)
		cvs, cs, err = c.checkGuards(cvs, clause)
		if err != nil {
			return nil, nil, nil, err
		}
		all = types.Combine(all, cs)
		t, _, cs2, err := c.seq(cvs, clause.Body)
		if err != nil {
			return nil, nil, nil, err
		}
		results = append(results, t)
		all = types.Combine(all, cs2)
	}
	if e.After != nil {
		_, _, cs, err := c.seq(vs, e.After.Body)
		if err != nil {
			return nil, nil, nil, err
		}
		all = types.Combine(all, cs)
	}
	return types.Normalize(c.env, types.Union(results...)), vs, all, nil
}

// inferLC checks a list comprehension.
func (c *checker) inferLC(vs venv, e *Expr) (*types.T, venv, types.Constraints, error) {
	cvs := vs
	var all types.Constraints
	for _, q := range e.Quals {
		if q.Seq != nil {
			if q.Bin {
				return nil, nil, nil, errors.E(errors.IllegalPattern, q.Position,
					"binary generators are not supported")
			}
			seq, nvs, cs, err := c.infer(cvs, q.Seq)
			if err != nil {
				return nil, nil, nil, err
			}
			cvs = nvs
			all = types.Combine(all, cs)
			seq = types.Unfold(c.env, seq)
			elem := types.Any
			switch {
			case seq.Kind == types.AnyKind:
			case seq.IsList():
				elem = seq.Elem
			default:
				return nil, nil, nil, c.mismatch(q.Seq, seq, types.Normalize(c.env, types.List(types.Any)))
			}
			cvs, _, cs, err = c.checkPats(cvs, captureVars, []*Expr{q.Pat}, []*types.T{elem})
			if err != nil {
				return nil, nil, nil, err
			}
			all = types.Combine(all, cs)
			continue
		}
		t, nvs, cs, err := c.infer(cvs, q.Filter)
		if err != nil {
			return nil, nil, nil, err
		}
		cvs = nvs
		all = types.Combine(all, cs)
		if !types.Compatible(c.env, t, types.Bool) {
			return nil, nil, nil, c.mismatch(q.Filter, t, types.Bool)
		}
	}
	elem, _, cs, err := c.infer(cvs, e.CompExpr)
	if err != nil {
		return nil, nil, nil, err
	}
	all = types.Combine(all, cs)
	return types.Normalize(c.env, types.List(elem)), vs, all, nil
}
