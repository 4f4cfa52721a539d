// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package types

import (
	set "github.com/hashicorp/go-set/v3"

	"github.com/grailbio/gradual/intrange"
)

// typePair is a pair of types under comparison. Pairs hash
// structurally so that revisits through unfolding are detected even
// though unfolding allocates fresh nodes.
type typePair struct {
	t, u *T
}

func (p *typePair) Hash() uint64 {
	return 31*p.t.Hash() ^ p.u.Hash()
}

// mustNormal asserts that a type entering comparison has been
// normalized. Only the top node is checked.
func mustNormal(t *T) {
	if t == nil {
		panic("types: comparison of nil type")
	}
	if t.Kind == ErrorKind {
		panic("types: comparison of error type: " + t.String())
	}
	if t.Pos.IsValid() {
		panic("types: comparison of unnormalized type " + t.String())
	}
}

// Subtype reports whether t is a consistent subtype of u: whether a
// value of type t is acceptable where u is expected, granting the
// unknown type any() in both directions. Comparisons against type
// variables never fail; they are returned as constraints instead.
//
// Both types must be normalized. Recursive types compare
// coinductively: a revisited pair succeeds.
func Subtype(e *Env, t, u *T) (Constraints, bool) {
	mustNormal(t)
	mustNormal(u)
	s := &subtyper{e: e, seen: set.NewHashSet[*typePair, uint64](0)}
	return s.sub(t, u)
}

// Compatible reports whether t is a consistent subtype of u,
// discarding constraints.
func Compatible(e *Env, t, u *T) bool {
	_, ok := Subtype(e, t, u)
	return ok
}

type subtyper struct {
	e    *Env
	seen *set.HashSet[*typePair, uint64]
}

func (s *subtyper) sub(t, u *T) (Constraints, bool) {
	// Coinduction: a goal that recurses into itself holds. The set
	// tracks in-progress pairs only; a completed goal must not
	// settle unrelated revisits, so pairs are removed on exit.
	pair := &typePair{t, u}
	if s.seen.Contains(pair) {
		return nil, true
	}
	s.seen.Insert(pair)
	defer s.seen.Remove(pair)

	if t.Equal(u) {
		return nil, true
	}
	if t.Kind == AnyKind || u.Kind == AnyKind {
		return nil, true
	}
	if t.Kind == VarKind {
		return Upper(t.Name, u), true
	}
	if u.Kind == VarKind {
		return Lower(u.Name, t), true
	}
	if u.Kind == TopKind {
		return nil, true
	}
	if t.Kind == NoneKind {
		return nil, true
	}
	if t.Kind == UnionKind {
		var all Constraints
		for _, m := range t.Elems {
			cs, ok := s.sub(m, u)
			if !ok {
				return nil, false
			}
			all = Combine(all, cs)
		}
		return all, true
	}
	if u.Kind == UnionKind {
		// Normalization leaves union integer members disjoint and
		// non-adjacent, so membership in a single member suffices.
		for _, m := range u.Elems {
			if cs, ok := s.sub(t, m); ok {
				return cs, true
			}
		}
		return nil, false
	}
	if t.Kind == UserKind && !t.Opaque {
		return s.sub(unfold(s.e, t), u)
	}
	if u.Kind == UserKind && !u.Opaque {
		return s.sub(t, unfold(s.e, u))
	}
	if t.Kind == UserKind || u.Kind == UserKind {
		// Opaque types relate nominally, with invariant arguments.
		if t.Kind != u.Kind || t.Module != u.Module || t.Name != u.Name || len(t.Elems) != len(u.Elems) {
			return nil, false
		}
		var all Constraints
		for i := range t.Elems {
			cs1, ok := s.sub(t.Elems[i], u.Elems[i])
			if !ok {
				return nil, false
			}
			cs2, ok := s.sub(u.Elems[i], t.Elems[i])
			if !ok {
				return nil, false
			}
			all = Combine(all, cs1, cs2)
		}
		return all, true
	}
	if t.IsInt() && u.IsInt() {
		r, _ := intView(t)
		ur, _ := intView(u)
		return nil, intrange.Subset(r, ur)
	}
	if t.Kind == AtomLitKind && u.Kind == AtomKind {
		return nil, true
	}
	if t.Kind == RecordKind || u.Kind == RecordKind {
		// Records are tuples underneath.
		tt, uu := t, u
		if t.Kind == RecordKind {
			tt = expandRecord(s.e, t)
		}
		if u.Kind == RecordKind {
			uu = expandRecord(s.e, u)
		}
		return s.sub(tt, uu)
	}
	if t.Kind != u.Kind {
		return nil, false
	}
	switch t.Kind {
	case TupleKind:
		if u.Wild {
			return nil, true
		}
		if t.Wild || len(t.Elems) != len(u.Elems) {
			return nil, false
		}
		var all Constraints
		for i := range t.Elems {
			cs, ok := s.sub(t.Elems[i], u.Elems[i])
			if !ok {
				return nil, false
			}
			all = Combine(all, cs)
		}
		return all, true
	case ListKind:
		// Admissible lengths must narrow.
		switch t.Empty {
		case EmptyList:
			if u.Empty == Nonempty {
				return nil, false
			}
		case MaybeEmpty:
			if u.Empty != MaybeEmpty {
				return nil, false
			}
		}
		cs1, ok := s.sub(t.Elem, u.Elem)
		if !ok {
			return nil, false
		}
		cs2, ok := s.sub(t.TailOrNil(), u.TailOrNil())
		if !ok {
			return nil, false
		}
		return Combine(cs1, cs2), true
	case FunKind:
		return s.subFun(t, u)
	case MapKind:
		return s.subMap(t, u)
	case BinKind:
		// Sizes base1+k*unit1 must all be of form base2+k*unit2.
		if u.Unit == 0 {
			return nil, t.Unit == 0 && t.Base == u.Base
		}
		ok := t.Base >= u.Base && (t.Base-u.Base)%u.Unit == 0 && t.Unit%u.Unit == 0
		return nil, ok
	}
	return nil, false
}

func (s *subtyper) subFun(t, u *T) (Constraints, bool) {
	var err error
	if len(t.Bounds) > 0 {
		if t, err = SolveBounds(s.e, t); err != nil {
			return nil, false
		}
	}
	if len(u.Bounds) > 0 {
		if u, err = SolveBounds(s.e, u); err != nil {
			return nil, false
		}
	}
	if u.Wild {
		if u.Result.Kind == AnyKind {
			return nil, true
		}
		return s.sub(t.Result, u.Result)
	}
	if t.Wild {
		// A fun of unknown arity is acceptable at any arity.
		return s.sub(t.Result, u.Result)
	}
	if len(t.Elems) != len(u.Elems) {
		return nil, false
	}
	var all Constraints
	for i := range t.Elems {
		// Arguments are contravariant.
		cs, ok := s.sub(u.Elems[i], t.Elems[i])
		if !ok {
			return nil, false
		}
		all = Combine(all, cs)
	}
	cs, ok := s.sub(t.Result, u.Result)
	if !ok {
		return nil, false
	}
	return Combine(all, cs), true
}

// subMap checks map subtyping: every key u demands, t must supply,
// and every entry t admits, u must allow.
func (s *subtyper) subMap(t, u *T) (Constraints, bool) {
	// #{any() => any()} admits, and is admitted by, every map.
	if wildMap(t) || wildMap(u) {
		return nil, true
	}
	var all Constraints
	for _, a2 := range u.Assocs {
		if !a2.Mandatory {
			continue
		}
		found := false
		for _, a1 := range t.Assocs {
			if !a1.Mandatory {
				continue
			}
			cs1, ok := s.sub(a1.Key, a2.Key)
			if !ok {
				continue
			}
			cs2, ok := s.sub(a1.Val, a2.Val)
			if !ok {
				continue
			}
			all = Combine(all, cs1, cs2)
			found = true
			break
		}
		if !found {
			return nil, false
		}
	}
	for _, a1 := range t.Assocs {
		found := false
		for _, a2 := range u.Assocs {
			cs1, ok := s.sub(a1.Key, a2.Key)
			if !ok {
				continue
			}
			cs2, ok := s.sub(a1.Val, a2.Val)
			if !ok {
				continue
			}
			all = Combine(all, cs1, cs2)
			found = true
			break
		}
		if !found {
			return nil, false
		}
	}
	return all, true
}

// wildMap tells whether a map type is #{any() => any()}: nothing
// but optional any-to-any associations, at least one.
func wildMap(t *T) bool {
	if len(t.Assocs) == 0 {
		return false
	}
	for _, a := range t.Assocs {
		if a.Mandatory || a.Key.Kind != AnyKind || a.Val.Kind != AnyKind {
			return false
		}
	}
	return true
}

// expandRecord expands a record type to its tuple form: the record
// tag followed by every declared field, with refinements applied.
// The record resolved during normalization; failure to resolve it
// again is a resolver defect.
func expandRecord(e *Env, t *T) *T {
	decl, ok := e.ResolveRecord(t.Module, t.Name)
	if !ok {
		panic("types: dangling record #" + t.Name)
	}
	elems := make([]*T, 0, len(decl)+1)
	elems = append(elems, AtomLit(t.Name))
	for _, f := range decl {
		ft := f.T
		if r := fieldNamed(t.Fields, f.Name); r != nil {
			ft = r.T
		}
		elems = append(elems, ft)
	}
	return Tuple(elems...)
}
