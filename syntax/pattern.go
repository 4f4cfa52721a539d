// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax

import (
	"fmt"

	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/types"
)

// patMode selects pattern variable semantics. Function and fun clause
// heads bind their variables afresh; case, receive, and match
// patterns treat already-bound variables as equality checks.
type patMode int

const (
	bindVars patMode = iota
	captureVars
)

// patInfo summarizes the outcome of checking one pattern.
type patInfo struct {
	// cov is the set of subject values the pattern is guaranteed to
	// match, used for clause coverage accounting. Patterns whose
	// success depends on runtime values (floats, strings, equality
	// checks on bound variables) contribute none().
	cov *types.T
	// typ is the type the matched value is known to have when the
	// pattern succeeds.
	typ *types.T
}

// checkPats checks one clause's pattern row against the subject types
// wants, returning the extended venv and per-pattern outcomes.
// Variables repeated across the row are unified with the meet of
// their occurrences and contribute no coverage.
func (c *checker) checkPats(vs venv, mode patMode, pats []*Expr, wants []*types.T) (venv, []patInfo, types.Constraints, error) {
	if len(pats) != len(wants) {
		panic(fmt.Sprintf("pattern row of width %d against %d types", len(pats), len(wants)))
	}
	repeated := repeatedVars(pats)
	if mode == captureVars {
		// A variable bound before the clause behaves like a repeat.
		for name := range patVarCounts(pats) {
			if name == "_" {
				continue
			}
			if _, ok := vs[name]; ok {
				repeated[name] = true
			}
		}
	} else {
		// Head variables shadow enclosing bindings.
		nv := make(venv, len(vs))
		for k, v := range vs {
			nv[k] = v
		}
		for name := range patVarCounts(pats) {
			delete(nv, name)
		}
		vs = nv
	}
	p := &patCheck{checker: c, repeated: repeated}
	infos := make([]patInfo, len(pats))
	var all types.Constraints
	for i, pat := range pats {
		var (
			cs  types.Constraints
			err error
		)
		vs, infos[i], cs, err = p.pat(vs, pat, wants[i])
		if err != nil {
			return nil, nil, nil, err
		}
		all = types.Combine(all, cs)
	}
	return vs, infos, all, nil
}

// patCheck carries per-row pattern state.
type patCheck struct {
	*checker
	repeated map[string]bool
}

// pat checks a single pattern against the subject type want, which
// must be normalized.
func (p *patCheck) pat(vs venv, pat *Expr, want *types.T) (venv, patInfo, types.Constraints, error) {
	want = types.Unfold(p.env, want)
	if want.Kind == types.UnionKind {
		return p.patUnion(vs, pat, want)
	}
	switch pat.Kind {
	case ExprVar:
		return p.patVar(vs, pat, want)
	case ExprAtom:
		return p.patLit(vs, pat, types.AtomLit(pat.Ident), want)
	case ExprInt:
		return p.patLit(vs, pat, types.IntLit(pat.Val), want)
	case ExprUnop:
		v, ok := constIntExpr(pat)
		if !ok {
			break
		}
		return p.patLit(vs, pat, types.IntLit(v), want)
	case ExprFloat:
		if !types.Compatible(p.env, types.Float, want) {
			return nil, patInfo{}, nil, p.mismatch(pat, types.Float, want)
		}
		// Floats match by numeric equality, so they never contribute
		// coverage.
		return vs, patInfo{cov: types.None, typ: types.Float}, nil, nil
	case ExprString:
		return p.pat(vs, stringPattern(pat), want)
	case ExprNil:
		if !types.Compatible(p.env, types.Nil, want) {
			return nil, patInfo{}, nil, p.mismatch(pat, types.Nil, want)
		}
		return vs, patInfo{cov: types.Nil, typ: types.Nil}, nil, nil
	case ExprCons:
		return p.patCons(vs, pat, want)
	case ExprTuple:
		return p.patTuple(vs, pat, want)
	case ExprRecord:
		return p.patRecord(vs, pat, want)
	case ExprRecordIndex:
		idx, err := p.recordIndex(pat)
		if err != nil {
			return nil, patInfo{}, nil, err
		}
		return p.patLit(vs, pat, types.IntLit(idx), want)
	case ExprMap:
		return p.patMap(vs, pat, want)
	case ExprBin:
		return p.patBin(vs, pat, want)
	case ExprMatch:
		// An alias P1 = P2 matches values matched by both sides.
		vs, info1, cs1, err := p.pat(vs, pat.Left, want)
		if err != nil {
			return nil, patInfo{}, nil, err
		}
		vs, info2, cs2, err := p.pat(vs, pat.Right, want)
		if err != nil {
			return nil, patInfo{}, nil, err
		}
		cov, cs3 := types.GLB(p.env, info1.cov, info2.cov)
		typ, cs4 := types.GLB(p.env, info1.typ, info2.typ)
		return vs, patInfo{cov: cov, typ: typ}, types.Combine(cs1, cs2, cs3, cs4), nil
	case ExprBinop:
		if pat.Op == "++" {
			if desugared, ok := prefixPattern(pat); ok {
				return p.pat(vs, desugared, want)
			}
		}
	}
	return nil, patInfo{}, nil, errors.E(errors.IllegalPattern, pat.Position,
		fmt.Sprintf("%s is not a valid pattern", pat))
}

// patUnion tries pat against each member of a union subject,
// accepting the first member that matches. Coverage is limited to the
// matched member.
func (p *patCheck) patUnion(vs venv, pat *Expr, want *types.T) (venv, patInfo, types.Constraints, error) {
	var first error
	for _, member := range want.Elems {
		nvs, info, cs, err := p.pat(vs, pat, member)
		if err == nil {
			// Variables and wildcards span the whole union, not just
			// the first member.
			if pat.Kind == ExprVar && !p.repeated[pat.Ident] {
				return p.patVar(vs, pat, want)
			}
			return nvs, info, cs, nil
		}
		if first == nil {
			first = err
		}
	}
	return nil, patInfo{}, nil, first
}

// patVar checks a variable or wildcard pattern.
func (p *patCheck) patVar(vs venv, pat *Expr, want *types.T) (venv, patInfo, types.Constraints, error) {
	if pat.wildcard() {
		return vs, patInfo{cov: want, typ: want}, nil, nil
	}
	name := pat.Ident
	if !p.repeated[name] {
		return vs.bind(name, want), patInfo{cov: want, typ: want}, nil, nil
	}
	// A repeated or previously bound variable is an equality check:
	// the occurrences must have a common meet, and the match is
	// conditional on runtime equality, so it contributes no coverage.
	cur, ok := vs[name]
	if !ok {
		cur = types.Top
	}
	m, cs := types.GLB(p.env, cur, want)
	if m.Kind == types.NoneKind && cur.Kind != types.NoneKind && want.Kind != types.NoneKind {
		return nil, patInfo{}, nil, errors.E(errors.TypeMismatch, pat.Position,
			fmt.Sprintf("%s has type %s and can never equal a value of type %s", name, cur, want))
	}
	return vs.bind(name, m), patInfo{cov: types.None, typ: m}, cs, nil
}

// patLit checks a ground literal pattern of type lit.
func (p *patCheck) patLit(vs venv, pat *Expr, lit *types.T, want *types.T) (venv, patInfo, types.Constraints, error) {
	if !types.Compatible(p.env, lit, want) {
		return nil, patInfo{}, nil, p.mismatch(pat, lit, want)
	}
	return vs, patInfo{cov: lit, typ: lit}, nil, nil
}

// patCons checks a cons pattern [H|T].
func (p *patCheck) patCons(vs venv, pat *Expr, want *types.T) (venv, patInfo, types.Constraints, error) {
	var elemW, tailW *types.T
	switch {
	case want.Kind == types.AnyKind:
		elemW, tailW = types.Any, types.Any
	case want.Kind == types.TopKind:
		elemW, tailW = types.Top, types.Top
	case want.IsList():
		if want.Empty == types.EmptyList {
			return nil, patInfo{}, nil, p.mismatch(pat, types.NonemptyList(types.Any), want)
		}
		elemW = want.Elem
		// The tail of a cons cell is the rest of the list; improper
		// lists may also terminate here.
		tail := types.ImproperList(types.MaybeEmpty, want.Elem, want.Tail)
		if want.Tail != nil {
			tail = types.Union(tail, want.Tail)
		}
		tailW = types.Normalize(p.env, tail)
	default:
		return nil, patInfo{}, nil, p.mismatch(pat, types.NonemptyList(types.Any), want)
	}
	vs, headInfo, cs1, err := p.pat(vs, pat.Left, elemW)
	if err != nil {
		return nil, patInfo{}, nil, err
	}
	vs, tailInfo, cs2, err := p.pat(vs, pat.Right, tailW)
	if err != nil {
		return nil, patInfo{}, nil, err
	}
	info := patInfo{cov: types.None, typ: consType(p.env, headInfo.typ, tailInfo.typ)}
	// The pattern covers the nonempty portion of the subject exactly
	// when both sub-patterns cover their subjects.
	if headInfo.cov.Equal(elemW) && tailInfo.cov.Equal(tailW) {
		if want.IsList() {
			info.cov = types.Normalize(p.env, types.ImproperList(types.Nonempty, want.Elem, want.Tail))
		} else {
			info.cov = types.Normalize(p.env, types.NonemptyList(types.Any))
		}
	}
	return vs, info, types.Combine(cs1, cs2), nil
}

// consType computes the type of a cons cell from its head and tail
// types.
func consType(env *types.Env, head, tail *types.T) *types.T {
	if tail.IsList() {
		elem := types.Union(head, tail.Elem)
		if tail.Empty == types.EmptyList {
			elem = head
		}
		return types.Normalize(env, types.ImproperList(types.Nonempty, elem, tail.Tail))
	}
	if tail.Kind == types.AnyKind || tail.Kind == types.TopKind {
		return types.Normalize(env, types.ImproperList(types.Nonempty, types.Union(head, tail), nil))
	}
	return types.Normalize(env, types.ImproperList(types.Nonempty, head, tail))
}

// patTuple checks a tuple pattern.
func (p *patCheck) patTuple(vs venv, pat *Expr, want *types.T) (venv, patInfo, types.Constraints, error) {
	wants := make([]*types.T, len(pat.List))
	switch {
	case want.Kind == types.AnyKind, want.Kind == types.TupleKind && want.Wild:
		for i := range wants {
			wants[i] = types.Any
		}
	case want.Kind == types.TopKind:
		for i := range wants {
			wants[i] = types.Top
		}
	case want.Kind == types.TupleKind:
		if len(want.Elems) != len(pat.List) {
			return nil, patInfo{}, nil, errors.E(errors.TypeMismatch, pat.Position,
				fmt.Sprintf("tuple pattern of size %d against %s", len(pat.List), want))
		}
		copy(wants, want.Elems)
	case want.Kind == types.RecordKind:
		// Records are tuples underneath; match against the underlying
		// shape.
		return p.patTuple(vs, pat, p.recordTuple(want))
	default:
		return nil, patInfo{}, nil, p.mismatch(pat, types.AnyTuple, want)
	}
	var (
		covs   = make([]*types.T, len(pat.List))
		typs   = make([]*types.T, len(pat.List))
		all    types.Constraints
		covers = true
	)
	for i, sub := range pat.List {
		var (
			info patInfo
			cs   types.Constraints
			err  error
		)
		vs, info, cs, err = p.pat(vs, sub, wants[i])
		if err != nil {
			return nil, patInfo{}, nil, err
		}
		covs[i], typs[i] = info.cov, info.typ
		covers = covers && info.cov.Kind != types.NoneKind
		all = types.Combine(all, cs)
	}
	info := patInfo{cov: types.None, typ: types.Normalize(p.env, types.Tuple(typs...))}
	if covers {
		info.cov = types.Normalize(p.env, types.Tuple(covs...))
	}
	return vs, info, all, nil
}

// recordTuple returns the tuple shape of a normalized record type:
// the tag atom followed by the field types.
func (p *patCheck) recordTuple(want *types.T) *types.T {
	decl := p.m.Record(want.Name)
	elems := []*types.T{types.AtomLit(want.Name)}
	if decl != nil {
		for _, f := range decl.Fields {
			ft := p.recordFieldType(want, f)
			elems = append(elems, ft)
		}
	}
	return types.Normalize(p.env, types.Tuple(elems...))
}

func (p *patCheck) recordFieldType(want *types.T, f *RecordField) *types.T {
	for _, rf := range want.Fields {
		if rf.Name == f.Name {
			return rf.T
		}
	}
	if f.Type == nil {
		return types.Any
	}
	return types.Normalize(p.env, f.Type)
}

// patRecord checks a record pattern #name{f = P, ...}.
func (p *patCheck) patRecord(vs venv, pat *Expr, want *types.T) (venv, patInfo, types.Constraints, error) {
	decl := p.m.Record(pat.Name)
	if decl == nil {
		return nil, patInfo{}, nil, errors.E(errors.UndefinedReference, pat.Position,
			fmt.Sprintf("record #%s is undefined", pat.Name))
	}
	rec := types.Normalize(p.env, types.Record(pat.Name))
	switch want.Kind {
	case types.AnyKind, types.TopKind:
	case types.RecordKind:
		if want.Name != pat.Name {
			return nil, patInfo{}, nil, p.mismatch(pat, rec, want)
		}
		rec = want
	case types.TupleKind:
		if !want.Wild && !types.Compatible(p.env, rec, want) {
			return nil, patInfo{}, nil, p.mismatch(pat, rec, want)
		}
	default:
		return nil, patInfo{}, nil, p.mismatch(pat, rec, want)
	}
	var (
		covFields []*types.Field
		typFields []*types.Field
		all       types.Constraints
		covers    = true
	)
	for _, f := range pat.Fields {
		fields := []*RecordField{decl.Field(f.Name)}
		if f.Name == "_" {
			fields = unnamedFields(decl, pat.Fields)
		} else if fields[0] == nil {
			return nil, patInfo{}, nil, errors.E(errors.UndefinedReference, f.Expr.Position,
				fmt.Sprintf("record #%s has no field %s", pat.Name, f.Name))
		}
		for _, df := range fields {
			fw := p.recordFieldType(rec, df)
			var (
				info patInfo
				cs   types.Constraints
				err  error
			)
			vs, info, cs, err = p.pat(vs, f.Expr, fw)
			if err != nil {
				return nil, patInfo{}, nil, err
			}
			all = types.Combine(all, cs)
			covers = covers && info.cov.Equal(fw)
			if !info.cov.Equal(fw) {
				covFields = append(covFields, &types.Field{Name: df.Name, T: info.cov})
			}
			if !info.typ.Equal(fw) {
				typFields = append(typFields, &types.Field{Name: df.Name, T: info.typ})
			}
		}
	}
	info := patInfo{
		cov: types.None,
		typ: types.Normalize(p.env, types.Record(pat.Name, typFields...)),
	}
	if covers {
		info.cov = types.Normalize(p.env, types.Record(pat.Name, covFields...))
	}
	return vs, info, all, nil
}

// unnamedFields returns the declared fields not named by a record
// pattern, the fields an "_" field pattern applies to.
func unnamedFields(decl *RecordDecl, named []*FieldExpr) []*RecordField {
	var fields []*RecordField
	for _, df := range decl.Fields {
		found := false
		for _, f := range named {
			if f.Name == df.Name {
				found = true
				break
			}
		}
		if !found {
			fields = append(fields, df)
		}
	}
	return fields
}

// patMap checks a map pattern #{K := P, ...}. Keys must be ground
// literals.
func (p *patCheck) patMap(vs venv, pat *Expr, want *types.T) (venv, patInfo, types.Constraints, error) {
	if pat.Left != nil {
		return nil, patInfo{}, nil, errors.E(errors.IllegalPattern, pat.Position,
			"map update is not a valid pattern")
	}
	switch want.Kind {
	case types.AnyKind, types.TopKind, types.MapKind:
	default:
		return nil, patInfo{}, nil, p.mismatch(pat, types.AnyMap, want)
	}
	var (
		assocs []*types.Assoc
		all    types.Constraints
	)
	for _, a := range pat.Assocs {
		key, ok := groundKey(a.Key)
		if !ok {
			return nil, patInfo{}, nil, errors.E(errors.IllegalPattern, a.Key.Position,
				fmt.Sprintf("map pattern key %s is not a literal", a.Key))
		}
		valW := types.Any
		if want.Kind == types.MapKind {
			valW = nil
			for _, wa := range want.Assocs {
				if types.Compatible(p.env, key, wa.Key) {
					valW = wa.Val
					break
				}
			}
			if valW == nil {
				return nil, patInfo{}, nil, errors.E(errors.TypeMismatch, a.Key.Position,
					fmt.Sprintf("%s has no key %s", want, a.Key))
			}
		}
		var (
			info patInfo
			cs   types.Constraints
			err  error
		)
		vs, info, cs, err = p.pat(vs, a.Val, valW)
		if err != nil {
			return nil, patInfo{}, nil, err
		}
		all = types.Combine(all, cs)
		assocs = append(assocs, &types.Assoc{Mandatory: true, Key: key, Val: info.typ})
	}
	// Map patterns match any map carrying the keys, so they never
	// cover their subject.
	info := patInfo{cov: types.None, typ: types.Normalize(p.env, types.Map(assocs...))}
	return vs, info, all, nil
}

// groundKey returns the literal type of a map pattern key.
func groundKey(e *Expr) (*types.T, bool) {
	switch e.Kind {
	case ExprAtom:
		return types.AtomLit(e.Ident), true
	case ExprInt:
		return types.IntLit(e.Val), true
	case ExprNil:
		return types.Nil, true
	case ExprTuple:
		elems := make([]*types.T, len(e.List))
		for i, sub := range e.List {
			t, ok := groundKey(sub)
			if !ok {
				return nil, false
			}
			elems[i] = t
		}
		return types.Tuple(elems...), true
	case ExprUnop:
		if v, ok := constIntExpr(e); ok {
			return types.IntLit(v), true
		}
	}
	return nil, false
}

// patBin checks a binary pattern.
func (p *patCheck) patBin(vs venv, pat *Expr, want *types.T) (venv, patInfo, types.Constraints, error) {
	binT := binType(pat)
	if !types.Compatible(p.env, binT, want) {
		return nil, patInfo{}, nil, p.mismatch(pat, binT, want)
	}
	var all types.Constraints
	for _, seg := range pat.Segs {
		if seg.Size != nil {
			// Segment sizes are expressions over already-bound
			// variables.
			_, cs, err := p.checkAgainst(vs, types.Integer, seg.Size)
			if err != nil {
				return nil, patInfo{}, nil, err
			}
			all = types.Combine(all, cs)
		}
		var (
			cs  types.Constraints
			err error
		)
		vs, _, cs, err = p.pat(vs, seg.Expr, segType(seg))
		if err != nil {
			return nil, patInfo{}, nil, err
		}
		all = types.Combine(all, cs)
	}
	// Binary patterns constrain sizes at runtime; no coverage.
	return vs, patInfo{cov: types.None, typ: binT}, all, nil
}

// repeatedVars returns the variables occurring more than once across
// a pattern row.
func repeatedVars(pats []*Expr) map[string]bool {
	repeated := make(map[string]bool)
	for name, n := range patVarCounts(pats) {
		if n > 1 && name != "_" {
			repeated[name] = true
		}
	}
	return repeated
}

// patVarCounts counts variable occurrences across a pattern row.
// Sizes in binary segments are expressions, not pattern occurrences.
func patVarCounts(pats []*Expr) map[string]int {
	counts := make(map[string]int)
	var walk func(e *Expr)
	walk = func(e *Expr) {
		if e == nil {
			return
		}
		switch e.Kind {
		case ExprVar:
			counts[e.Ident]++
		case ExprCons, ExprMatch, ExprBinop:
			walk(e.Left)
			walk(e.Right)
		case ExprUnop:
			walk(e.Left)
		case ExprTuple:
			for _, sub := range e.List {
				walk(sub)
			}
		case ExprRecord:
			for _, f := range e.Fields {
				walk(f.Expr)
			}
		case ExprMap:
			for _, a := range e.Assocs {
				walk(a.Val)
			}
		case ExprBin:
			for _, seg := range e.Segs {
				walk(seg.Expr)
			}
		}
	}
	for _, pat := range pats {
		walk(pat)
	}
	return counts
}

// stringPattern desugars a string pattern into its list of character
// literals.
func stringPattern(pat *Expr) *Expr {
	list := &Expr{Position: pat.Position, Kind: ExprNil}
	runes := []rune(pat.Str)
	for i := len(runes) - 1; i >= 0; i-- {
		list = &Expr{
			Position: pat.Position,
			Kind:     ExprCons,
			Left:     &Expr{Position: pat.Position, Kind: ExprInt, Val: int64(runes[i])},
			Right:    list,
		}
	}
	return list
}

// prefixPattern desugars "prefix" ++ Rest and [1,2|...] ++ Rest
// patterns into cons chains.
func prefixPattern(pat *Expr) (*Expr, bool) {
	var elems []*Expr
	left := pat.Left
	switch left.Kind {
	case ExprString:
		for _, r := range left.Str {
			elems = append(elems, &Expr{Position: left.Position, Kind: ExprInt, Val: int64(r)})
		}
	case ExprCons, ExprNil:
		for left.Kind == ExprCons {
			elems = append(elems, left.Left)
			left = left.Right
		}
		if left.Kind != ExprNil {
			return nil, false
		}
	default:
		return nil, false
	}
	out := pat.Right
	for i := len(elems) - 1; i >= 0; i-- {
		out = &Expr{Position: pat.Position, Kind: ExprCons, Left: elems[i], Right: out}
	}
	return out, true
}

// constIntExpr folds a signed integer literal pattern.
func constIntExpr(e *Expr) (int64, bool) {
	switch e.Kind {
	case ExprInt:
		return e.Val, true
	case ExprUnop:
		v, ok := constIntExpr(e.Left)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	}
	return 0, false
}

// recordIndex returns the 1-based tuple index of #name.field.
func (c *checker) recordIndex(e *Expr) (int64, error) {
	decl := c.m.Record(e.Name)
	if decl == nil {
		return 0, errors.E(errors.UndefinedReference, e.Position,
			fmt.Sprintf("record #%s is undefined", e.Name))
	}
	for i, f := range decl.Fields {
		if f.Name == e.Field {
			return int64(i + 2), nil
		}
	}
	return 0, errors.E(errors.UndefinedReference, e.Position,
		fmt.Sprintf("record #%s has no field %s", e.Name, e.Field))
}
