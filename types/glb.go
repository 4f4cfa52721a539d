// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	"github.com/grailbio/gradual/intrange"
	set "github.com/hashicorp/go-set/v3"
)

// GLB returns the greatest lower bound of the given types: the
// widest type acceptable wherever every input is. The unknown type
// yields the other operand: any() ⊓ t = t. Meets against type
// variables produce a fresh variable bounded above by both sides.
//
// The bound is exact for most type pairs and under-approximates for
// the rest (funs and maps of differing shape, recursive meets),
// falling back to none(). Inputs must be normalized; the result is.
// Constraint-free results are cached in the environment across
// calls.
func GLB(e *Env, ts ...*T) (*T, Constraints) {
	g := &glber{e: e, seen: set.NewHashSet[*typePair, uint64](0)}
	acc := Top
	var all Constraints
	for _, t := range ts {
		mustNormal(t)
		var cs Constraints
		acc, cs = g.meet(acc, t)
		all = Combine(all, cs)
	}
	return acc, all
}

type glber struct {
	e    *Env
	seen *set.HashSet[*typePair, uint64]
}

func (g *glber) meet(t, u *T) (*T, Constraints) {
	if t.Equal(u) {
		return t, nil
	}
	// The unknown type carries no information to intersect: the
	// other operand stands.
	if t.Kind == AnyKind {
		return u, nil
	}
	if u.Kind == AnyKind {
		return t, nil
	}
	if t.Kind == TopKind {
		return u, nil
	}
	if u.Kind == TopKind {
		return t, nil
	}
	if t.Kind == NoneKind || u.Kind == NoneKind {
		return None, nil
	}
	if t.Kind == VarKind || u.Kind == VarKind {
		fresh := g.e.Fresh()
		return fresh, Combine(Upper(fresh.Name, t), Upper(fresh.Name, u))
	}
	// Recursive meets bottom out.
	pair := &typePair{t, u}
	if g.seen.Contains(pair) {
		return None, nil
	}
	g.seen.Insert(pair)
	defer g.seen.Remove(pair)

	key := g.e.glbKey(t, u)
	if m, ok := g.e.cachedGLB(key); ok {
		return m, nil
	}
	m, cs := g.meet1(t, u)
	if cs == nil {
		g.e.cacheGLB(key, m)
	}
	return m, cs
}

func (g *glber) meet1(t, u *T) (*T, Constraints) {
	if t.Kind == UnionKind || u.Kind == UnionKind {
		// Meets distribute over unions.
		ts, us := []*T{t}, []*T{u}
		if t.Kind == UnionKind {
			ts = t.Elems
		}
		if u.Kind == UnionKind {
			us = u.Elems
		}
		var (
			elems []*T
			all   Constraints
		)
		for _, tm := range ts {
			for _, um := range us {
				m, cs := g.meet(tm, um)
				elems = append(elems, m)
				all = Combine(all, cs)
			}
		}
		return canonUnion(g.e, elems), all
	}
	if t.Kind == UserKind && !t.Opaque {
		return g.meet(unfold(g.e, t), u)
	}
	if u.Kind == UserKind && !u.Opaque {
		return g.meet(t, unfold(g.e, u))
	}
	if t.Kind == UserKind || u.Kind == UserKind {
		// Opaque types meet nominally; Equal has already ruled out
		// identical references.
		return None, nil
	}
	if t.IsInt() && u.IsInt() {
		r, _ := intView(t)
		ur, _ := intView(u)
		return rangeToType(intrange.Intersect(r, ur)), nil
	}
	if t.Kind == RecordKind || u.Kind == RecordKind {
		if t.Kind == RecordKind && u.Kind == RecordKind {
			return g.meetRecord(t, u)
		}
		tt, uu := t, u
		if t.Kind == RecordKind {
			tt = expandRecord(g.e, t)
		}
		if u.Kind == RecordKind {
			uu = expandRecord(g.e, u)
		}
		return g.meet(tt, uu)
	}
	if t.Kind != u.Kind {
		if t.Kind == AtomLitKind && u.Kind == AtomKind {
			return t, nil
		}
		if t.Kind == AtomKind && u.Kind == AtomLitKind {
			return u, nil
		}
		return None, nil
	}
	switch t.Kind {
	case TupleKind:
		if t.Wild {
			return u, nil
		}
		if u.Wild {
			return t, nil
		}
		if len(t.Elems) != len(u.Elems) {
			return None, nil
		}
		elems := make([]*T, len(t.Elems))
		var all Constraints
		for i := range t.Elems {
			var cs Constraints
			elems[i], cs = g.meet(t.Elems[i], u.Elems[i])
			if elems[i].Kind == NoneKind {
				return None, nil
			}
			all = Combine(all, cs)
		}
		return Tuple(elems...), all
	case ListKind:
		return g.meetList(t, u)
	case FunKind:
		return g.meetFun(t, u)
	case MapKind:
		return g.meetMap(t, u)
	case BinKind:
		if Compatible(g.e, t, u) {
			return t, nil
		}
		if Compatible(g.e, u, t) {
			return u, nil
		}
		return None, nil
	}
	return None, nil
}

func (g *glber) meetList(t, u *T) (*T, Constraints) {
	var empty Emptiness
	switch {
	case t.Empty == u.Empty:
		empty = t.Empty
	case t.Empty == MaybeEmpty:
		empty = u.Empty
	case u.Empty == MaybeEmpty:
		empty = t.Empty
	default:
		// One side only empty, the other only nonempty.
		return None, nil
	}
	if empty == EmptyList {
		return Nil, nil
	}
	elem, cs1 := g.meet(t.Elem, u.Elem)
	tail, cs2 := g.meet(t.TailOrNil(), u.TailOrNil())
	if elem.Kind == NoneKind {
		// No elements fit, so only the empty list can.
		if empty == Nonempty {
			return None, nil
		}
		return Nil, nil
	}
	if tail.Kind == NoneKind {
		return None, nil
	}
	if tail.Equal(Nil) {
		tail = nil
	}
	return &T{Kind: ListKind, Empty: empty, Elem: elem, Tail: tail}, Combine(cs1, cs2)
}

func (g *glber) meetFun(t, u *T) (*T, Constraints) {
	if t.Wild || u.Wild {
		result, cs := g.meet(t.Result, u.Result)
		switch {
		case t.Wild && u.Wild:
			if result.Kind == AnyKind {
				return AnyFun, nil
			}
			return AnyArityFun(result), cs
		case t.Wild:
			return Fun(u.Elems, result), cs
		default:
			return Fun(t.Elems, result), cs
		}
	}
	if len(t.Elems) != len(u.Elems) {
		return None, nil
	}
	argsEqual := true
	for i := range t.Elems {
		if !t.Elems[i].Equal(u.Elems[i]) {
			argsEqual = false
			break
		}
	}
	if argsEqual {
		result, cs := g.meet(t.Result, u.Result)
		return Fun(t.Elems, result), cs
	}
	// Unequal argument types: one fun must subsume the other, else
	// there is no useful bound.
	if Compatible(g.e, t, u) {
		return t, nil
	}
	if Compatible(g.e, u, t) {
		return u, nil
	}
	return None, nil
}

// meetMap combines every pairing of t's and u's associations by
// per-field meet, dropping pairings whose key or value bottoms out.
// A mandatory tag wins over an optional one. Maps whose own keys
// overlap are beyond this approximation and meet to none().
func (g *glber) meetMap(t, u *T) (*T, Constraints) {
	if mapSelfOverlap(g.e, t) || mapSelfOverlap(g.e, u) {
		return None, nil
	}
	var (
		assocs []*Assoc
		all    Constraints
	)
	for _, a := range t.Assocs {
		for _, b := range u.Assocs {
			key, cs1 := g.meet(a.Key, b.Key)
			if key.Kind == NoneKind {
				continue
			}
			val, cs2 := g.meet(a.Val, b.Val)
			if val.Kind == NoneKind {
				continue
			}
			assocs = append(assocs, &Assoc{Mandatory: a.Mandatory || b.Mandatory, Key: key, Val: val})
			all = Combine(all, cs1, cs2)
		}
	}
	if len(assocs) == 0 {
		return None, nil
	}
	return &T{Kind: MapKind, Assocs: assocs}, all
}

// mapSelfOverlap tells whether any two associations of a map have
// mutually compatible key types, making pairings ambiguous.
func mapSelfOverlap(e *Env, t *T) bool {
	for i, a := range t.Assocs {
		for _, b := range t.Assocs[i+1:] {
			if Compatible(e, a.Key, b.Key) || Compatible(e, b.Key, a.Key) {
				return true
			}
		}
	}
	return false
}

func (g *glber) meetRecord(t, u *T) (*T, Constraints) {
	if t.Module != u.Module || t.Name != u.Name {
		return None, nil
	}
	decl, ok := g.e.ResolveRecord(t.Module, t.Name)
	if !ok {
		panic("types: dangling record #" + t.Name)
	}
	var (
		fields []*Field
		all    Constraints
	)
	for _, f := range decl {
		ft, fu := f.T, f.T
		if r := fieldNamed(t.Fields, f.Name); r != nil {
			ft = r.T
		}
		if r := fieldNamed(u.Fields, f.Name); r != nil {
			fu = r.T
		}
		m, cs := g.meet(ft, fu)
		if m.Kind == NoneKind {
			return None, nil
		}
		if !m.Equal(f.T) {
			fields = append(fields, &Field{Name: f.Name, T: m})
		}
		all = Combine(all, cs)
	}
	sortFields(fields)
	return &T{Kind: RecordKind, Module: t.Module, Name: t.Name, Fields: fields}, all
}
