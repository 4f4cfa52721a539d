// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	set "github.com/hashicorp/go-set/v3"

	"github.com/grailbio/gradual/intrange"
)

// Diff subtracts u from t: it returns the type of the values of t
// not covered by u. Subtraction is what remains of a case subject
// after a pattern has failed to match.
//
// Diff over-approximates where exact subtraction cannot be
// expressed (the unknown type, type variables, opaque types, funs,
// deep recursion), returning t unchanged; it returns none() only
// when u provably covers t. Inputs must be normalized.
func Diff(e *Env, t, u *T) *T {
	mustNormal(t)
	mustNormal(u)
	d := &differ{e: e, seen: set.NewHashSet[*typePair, uint64](0)}
	res := d.diff(t, u)
	if res.Equal(t) {
		return t
	}
	return res
}

type differ struct {
	e    *Env
	seen *set.HashSet[*typePair, uint64]
}

func (d *differ) diff(t, u *T) *T {
	// The unknown type admits refinement in neither direction: an
	// any() subject stays any(), while subtracting any() removes
	// everything.
	if t.Kind == AnyKind || t.Kind == NoneKind {
		return t
	}
	if u.Kind == AnyKind || u.Kind == TopKind {
		return None
	}
	if u.Kind == NoneKind {
		return t
	}
	if t.Kind == VarKind || u.Kind == VarKind {
		return t
	}
	pair := &typePair{t, u}
	if d.seen.Contains(pair) {
		return t
	}
	d.seen.Insert(pair)
	defer d.seen.Remove(pair)

	if Compatible(d.e, t, u) {
		return None
	}
	if t.Kind == UnionKind {
		elems := make([]*T, len(t.Elems))
		for i, m := range t.Elems {
			elems[i] = d.diff(m, u)
		}
		return canonUnion(d.e, elems)
	}
	if u.Kind == UnionKind {
		acc := t
		for _, m := range u.Elems {
			acc = d.diff(acc, m)
		}
		return acc
	}
	if t.Kind == UserKind && !t.Opaque {
		return d.diff(unfold(d.e, t), u)
	}
	if u.Kind == UserKind && !u.Opaque {
		return d.diff(t, unfold(d.e, u))
	}
	if t.Kind == UserKind || u.Kind == UserKind {
		return t
	}
	if t.IsInt() && u.IsInt() {
		r, _ := intView(t)
		ur, _ := intView(u)
		return rangesToType(intrange.Diff(r, ur))
	}
	if t.Kind == RecordKind || u.Kind == RecordKind {
		return d.diffRecord(t, u)
	}
	if t.Kind != u.Kind {
		return t
	}
	switch t.Kind {
	case TupleKind:
		if t.Wild || u.Wild {
			return t
		}
		if len(t.Elems) != len(u.Elems) {
			return t
		}
		rebuild := func(i int, di *T) *T {
			elems := make([]*T, len(t.Elems))
			copy(elems, t.Elems)
			elems[i] = di
			return Tuple(elems...)
		}
		return d.diffCoords(t, t.Elems, u.Elems, rebuild)
	case ListKind:
		return d.diffList(t, u)
	case MapKind:
		return d.diffMap(t, u)
	}
	return t
}

// diffCoords subtracts a product type coordinate-wise. A value
// escapes u exactly when some coordinate escapes, so the remainder
// is the union of orig with one coordinate refined. When any
// coordinate is untouched the subtraction removes nothing
// expressible and orig is returned.
func (d *differ) diffCoords(orig *T, coords1, coords2 []*T, rebuild func(i int, di *T) *T) *T {
	dis := make([]*T, len(coords1))
	allNone := true
	for i := range coords1 {
		dis[i] = d.diff(coords1[i], coords2[i])
		if dis[i].Kind != NoneKind {
			allNone = false
		}
		if dis[i].Equal(coords1[i]) {
			return orig
		}
	}
	if allNone {
		return None
	}
	var variants []*T
	for i, di := range dis {
		if di.Kind == NoneKind {
			continue
		}
		variants = append(variants, rebuild(i, di))
	}
	return canonUnion(d.e, variants)
}

func (d *differ) diffRecord(t, u *T) *T {
	if t.Kind == RecordKind && u.Kind == RecordKind {
		if t.Module != u.Module || t.Name != u.Name {
			return t
		}
		decl, ok := d.e.ResolveRecord(t.Module, t.Name)
		if !ok {
			panic("types: dangling record #" + t.Name)
		}
		coords1 := make([]*T, len(decl))
		coords2 := make([]*T, len(decl))
		for i, f := range decl {
			coords1[i], coords2[i] = f.T, f.T
			if r := fieldNamed(t.Fields, f.Name); r != nil {
				coords1[i] = r.T
			}
			if r := fieldNamed(u.Fields, f.Name); r != nil {
				coords2[i] = r.T
			}
		}
		rebuild := func(i int, di *T) *T {
			var fields []*Field
			for _, f := range t.Fields {
				if f.Name != decl[i].Name {
					fields = append(fields, f)
				}
			}
			if !di.Equal(decl[i].T) {
				fields = append(fields, &Field{Name: decl[i].Name, T: di})
			}
			sortFields(fields)
			return &T{Kind: RecordKind, Module: t.Module, Name: t.Name, Fields: fields}
		}
		return d.diffCoords(t, coords1, coords2, rebuild)
	}
	if t.Kind == RecordKind && u.Kind == TupleKind {
		if u.Wild {
			return t
		}
		decl, ok := d.e.ResolveRecord(t.Module, t.Name)
		if !ok {
			panic("types: dangling record #" + t.Name)
		}
		if len(u.Elems) != len(decl)+1 {
			return t
		}
		expanded := expandRecord(d.e, t)
		rebuild := func(i int, di *T) *T {
			if i == 0 {
				// The tag position cannot be partially refined.
				return t
			}
			var fields []*Field
			for _, f := range t.Fields {
				if f.Name != decl[i-1].Name {
					fields = append(fields, f)
				}
			}
			if !di.Equal(decl[i-1].T) {
				fields = append(fields, &Field{Name: decl[i-1].Name, T: di})
			}
			sortFields(fields)
			return &T{Kind: RecordKind, Module: t.Module, Name: t.Name, Fields: fields}
		}
		return d.diffCoords(t, expanded.Elems, u.Elems, rebuild)
	}
	if u.Kind == RecordKind {
		return d.diff(t, expandRecord(d.e, u))
	}
	return t
}

func (d *differ) diffList(t, u *T) *T {
	// Subtracting [] strips emptiness.
	if u.Equal(Nil) {
		if t.Empty == MaybeEmpty {
			return &T{Kind: ListKind, Empty: Nonempty, Elem: t.Elem, Tail: t.Tail}
		}
		return t
	}
	elemD := d.diff(t.Elem, u.Elem)
	tailD := d.diff(t.TailOrNil(), u.TailOrNil())
	if elemD.Kind != NoneKind || tailD.Kind != NoneKind {
		// Elements only partially covered; lists mixing covered and
		// uncovered elements remain, so nothing can be removed.
		return t
	}
	switch u.Empty {
	case Nonempty:
		switch t.Empty {
		case MaybeEmpty:
			return Nil
		case Nonempty:
			return None
		}
	case MaybeEmpty:
		return None
	}
	return t
}

func (d *differ) diffMap(t, u *T) *T {
	var variants []*T
	for _, a2 := range u.Assocs {
		if !a2.Mandatory || !singletonKey(a2.Key) {
			return t
		}
		a1 := d.covering(t, a2.Key)
		if a1 == nil {
			// t has no such key, so u matches nothing of t.
			return t
		}
		if !a1.Key.Equal(a2.Key) {
			// The key sits inside a broader association and cannot
			// be carved out.
			return t
		}
		leftover := d.diff(a1.Val, a2.Val)
		if leftover.Kind != NoneKind {
			variants = append(variants, mapReplacing(t, a1, &Assoc{Mandatory: true, Key: a1.Key, Val: leftover}))
		}
		if !a1.Mandatory {
			variants = append(variants, mapReplacing(t, a1, nil))
		}
	}
	if len(variants) == 0 {
		return None
	}
	return canonUnion(d.e, variants)
}

// covering returns the first association of t admitting key.
func (d *differ) covering(t *T, key *T) *Assoc {
	for _, a := range t.Assocs {
		if Compatible(d.e, key, a.Key) {
			return a
		}
	}
	return nil
}

// mapReplacing copies t with assoc old replaced (or removed, when
// repl is nil).
func mapReplacing(t *T, old *Assoc, repl *Assoc) *T {
	var assocs []*Assoc
	for _, a := range t.Assocs {
		if a == old {
			if repl != nil {
				assocs = append(assocs, repl)
			}
			continue
		}
		assocs = append(assocs, a)
	}
	return &T{Kind: MapKind, Assocs: assocs}
}

func singletonKey(t *T) bool {
	return t.Kind == AtomLitKind || t.Kind == IntLitKind
}

// Refinable reports whether t is a type that patterns can
// meaningfully exhaust: one built from literals, finite structure,
// and subtractable integer ranges. Exhaustiveness is only judged
// over refinable subjects; everything else (the unknown type, open
// atoms, floats, funs, runtime identifiers, bitstrings) always
// needs a catch-all.
func Refinable(e *Env, t *T) bool {
	mustNormal(t)
	r := &refiner{e: e, seen: set.NewHashSet[*T, uint64](0)}
	return r.refinable(t)
}

type refiner struct {
	e    *Env
	seen *set.HashSet[*T, uint64]
}

func (r *refiner) refinable(t *T) bool {
	switch t.Kind {
	case NoneKind, AtomKind, AtomLitKind, IntKind, IntLitKind, RangeKind:
		return true
	case ListKind:
		if t.Empty == EmptyList {
			return true
		}
		return t.Tail == nil && r.refinable(t.Elem)
	case TupleKind:
		if t.Wild {
			return false
		}
		for _, m := range t.Elems {
			if !r.refinable(m) {
				return false
			}
		}
		return true
	case UnionKind:
		for _, m := range t.Elems {
			if !r.refinable(m) {
				return false
			}
		}
		return true
	case MapKind:
		for _, a := range t.Assocs {
			if !singletonKey(a.Key) || !r.refinable(a.Val) {
				return false
			}
		}
		return true
	case RecordKind:
		decl, ok := r.e.ResolveRecord(t.Module, t.Name)
		if !ok {
			panic("types: dangling record #" + t.Name)
		}
		for _, f := range decl {
			ft := f.T
			if rf := fieldNamed(t.Fields, f.Name); rf != nil {
				ft = rf.T
			}
			if !r.refinable(ft) {
				return false
			}
		}
		return true
	case UserKind:
		if t.Opaque {
			return false
		}
		if r.seen.Contains(t) {
			return true
		}
		r.seen.Insert(t)
		return r.refinable(unfold(r.e, t))
	}
	return false
}
